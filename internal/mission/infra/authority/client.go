package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/mission/errs"
	"Vikings/internal/shared/serverconfig"
	"Vikings/modules/kit/logx"
)

const (
	opSubmit   = "authority.SubmitAttack"
	opResolve  = "authority.ResolveDeferredAttack"
	opSnapshot = "authority.FetchDefender"

	maxBody = 1 << 20
)

type attackBody struct {
	domain.AttackParams
	Resolve bool `json:"resolve,omitempty"`
}

type snapshotBody struct {
	Army      domain.Army      `json:"army"`
	Resources domain.Resources `json:"resources"`
}

// Client 通过 HTTP 调用战斗权威方；守方快照短时缓存，减少攻击高峰的重复查询。
type Client struct {
	base  string
	http  *http.Client
	cache *ristretto.Cache[string, domain.DefenderData]
	ttl   time.Duration
	log   logx.Logger
}

func NewClient(cfg serverconfig.AuthorityConfig, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("authority base_url is empty")
	}
	if log == nil {
		log = logx.Nop()
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ttl := time.Duration(cfg.SnapshotTTLS) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, domain.DefenderData]{
		NumCounters: 1e5,
		MaxCost:     1e4,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create snapshot cache: %w", err)
	}
	return &Client{
		base:  strings.TrimRight(cfg.BaseURL, "/"),
		http:  &http.Client{Timeout: timeout},
		cache: cache,
		ttl:   ttl,
		log:   log,
	}, nil
}

func (c *Client) Close() {
	c.cache.Close()
}

func (c *Client) SubmitAttack(ctx context.Context, p domain.AttackParams) (domain.AuthorityResult, error) {
	return c.attack(ctx, opSubmit, attackBody{AttackParams: p})
}

func (c *Client) ResolveDeferredAttack(ctx context.Context, p domain.AttackParams) (domain.AuthorityResult, error) {
	return c.attack(ctx, opResolve, attackBody{AttackParams: p, Resolve: true})
}

// attack 4xx 视为业务拒绝（Success=false），5xx 与网络错误作为 error 返回。
func (c *Client) attack(ctx context.Context, op string, body attackBody) (domain.AuthorityResult, error) {
	meta := map[string]any{"attacker": body.Attacker, "request_id": body.RequestID}
	raw, err := json.Marshal(body)
	if err != nil {
		return domain.AuthorityResult{}, errs.Wrap(op, errs.KindUnknown, err, meta)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/attack", bytes.NewReader(raw))
	if err != nil {
		return domain.AuthorityResult{}, errs.Wrap(op, errs.KindUnknown, err, meta)
	}
	req.Header.Set("Content-Type", "application/json")

	status, payload, err := c.do(req)
	if err != nil {
		return domain.AuthorityResult{}, errs.Wrap(op, errs.KindDependency, err, meta)
	}
	var res domain.AuthorityResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return domain.AuthorityResult{}, errs.Wrap(op, errs.KindDependency,
			fmt.Errorf("decode status %d: %w", status, err), meta)
	}
	switch {
	case status >= http.StatusInternalServerError:
		return domain.AuthorityResult{}, errs.Wrap(op, errs.KindDependency,
			fmt.Errorf("status %d: %s", status, res.Message), meta)
	case status >= http.StatusBadRequest:
		c.log.WithContext(ctx).Info("authority rejected attack",
			zap.String("attacker", body.Attacker), zap.Int("status", status), zap.String("message", res.Message))
		return domain.AuthorityResult{Success: false, Message: res.Message}, nil
	}
	return res, nil
}

func (c *Client) FetchDefender(ctx context.Context, username string) (domain.DefenderData, error) {
	if d, ok := c.cache.Get(username); ok {
		return d, nil
	}
	meta := map[string]any{"username": username}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.base+"/api/user/"+url.PathEscape(username)+"/snapshot", nil)
	if err != nil {
		return domain.UnknownDefender(), errs.Wrap(opSnapshot, errs.KindUnknown, err, meta)
	}
	status, payload, err := c.do(req)
	if err != nil {
		return domain.UnknownDefender(), errs.Wrap(opSnapshot, errs.KindDependency, err, meta)
	}
	switch {
	case status == http.StatusNotFound:
		return domain.UnknownDefender(), port.ErrNotFound
	case status != http.StatusOK:
		return domain.UnknownDefender(), errs.Wrap(opSnapshot, errs.KindDependency,
			fmt.Errorf("status %d", status), meta)
	}
	var body snapshotBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return domain.UnknownDefender(), errs.Wrap(opSnapshot, errs.KindDependency, err, meta)
	}
	d := domain.KnownDefender(body.Army, body.Resources)
	c.cache.SetWithTTL(username, d, 1, c.ttl)
	return d, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, payload, nil
}

var (
	_ port.Authority       = (*Client)(nil)
	_ port.DefenderFetcher = (*Client)(nil)
)
