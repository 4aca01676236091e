package handler

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"Vikings/internal/mission/app"
	"Vikings/internal/mission/app/model"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/shared/security"
	"Vikings/internal/shared/transport"
)

type fakeRuntime struct {
	user    string
	mission domain.MissionType
	quest   string
	err     error
}

func (f *fakeRuntime) SendMission(ctx context.Context, user string, mission domain.MissionType, req model.MissionReq) (model.TimerView, error) {
	f.user, f.mission = user, mission
	return model.TimerView{ID: 7, Type: domain.TimerMission, Subtype: mission}, f.err
}

func (f *fakeRuntime) Train(ctx context.Context, user string, req model.TrainReq) (model.TimerView, error) {
	f.user = user
	return model.TimerView{ID: 8, Type: domain.TimerUnit}, f.err
}

func (f *fakeRuntime) Build(ctx context.Context, user string, req model.BuildReq) (model.TimerView, error) {
	return model.TimerView{}, f.err
}

func (f *fakeRuntime) Research(ctx context.Context, user string, req model.ResearchReq) (model.TimerView, error) {
	return model.TimerView{}, f.err
}

func (f *fakeRuntime) UpgradeTerritory(ctx context.Context, user string, req model.TerritoryUpgradeReq) (int, error) {
	return 2, f.err
}

func (f *fakeRuntime) State(ctx context.Context, user string) (model.StateView, error) {
	return model.StateView{Username: user}, f.err
}

func (f *fakeRuntime) Timers(ctx context.Context, user string) ([]model.TimerView, error) {
	return nil, f.err
}

func (f *fakeRuntime) Quests(ctx context.Context, user string) (entity.QuestBoard, error) {
	return entity.QuestBoard{}, f.err
}

func (f *fakeRuntime) ClaimQuest(ctx context.Context, user string, req model.QuestClaimReq) (model.QuestClaimView, error) {
	f.user, f.quest = user, req.ID
	return model.QuestClaimView{Reward: domain.Resources{"gold": 200}}, f.err
}

func setup(t *testing.T, rt Runtime) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := security.Award("alice", 0)
	if err != nil {
		t.Fatalf("Award err=%v", err)
	}
	r := gin.New()
	NewHttpHandler(rt, nil, nil, nil).RegisterRoutes(r)
	return r, token
}

func do(r nethttp.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, transport.Response) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp transport.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestHttp_缺少令牌(t *testing.T) {
	r, _ := setup(t, &fakeRuntime{})
	w, _ := do(r, nethttp.MethodGet, "/api/state", "", nil)
	if w.Code != nethttp.StatusUnauthorized {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestHttp_出征路由带上任务类型(t *testing.T) {
	rt := &fakeRuntime{}
	r, token := setup(t, rt)
	_, resp := do(r, nethttp.MethodPost, "/api/missions/fortress-attack", token, map[string]any{
		"targetX": 1, "targetY": 2, "units": map[string]int{"archer": 5},
	})
	if resp.Code != transport.OK {
		t.Fatalf("resp=%+v", resp)
	}
	if rt.user != "alice" || rt.mission != domain.MissionFortressAttack {
		t.Fatalf("user=%s mission=%s", rt.user, rt.mission)
	}
}

func TestHttp_错误码映射(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want transport.BizCode
	}{
		{"队列占用", app.ErrQueueBusy, transport.Conflict},
		{"非首领", app.ErrNotClanLeader, transport.Forbidden},
		{"权威方不可用", app.ErrUnavailable, transport.Unavailable},
		{"单批过大", app.ErrInvalidParam, transport.InvalidParam},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, token := setup(t, &fakeRuntime{err: tc.err})
			_, resp := do(r, nethttp.MethodPost, "/api/train", token, map[string]any{"unit": "spearman", "amount": 2})
			if resp.Code != tc.want {
				t.Fatalf("want=%d got=%+v", tc.want, resp)
			}
		})
	}
}

func TestHttp_参数错误(t *testing.T) {
	r, token := setup(t, &fakeRuntime{})
	_, resp := do(r, nethttp.MethodPost, "/api/train", token, map[string]any{"unit": "spearman"})
	if resp.Code != transport.InvalidParam {
		t.Fatalf("amount 缺失应为参数错误, resp=%+v", resp)
	}
}

func TestHttp_训练数量超过上限(t *testing.T) {
	rt := &fakeRuntime{}
	r, token := setup(t, rt)
	_, resp := do(r, nethttp.MethodPost, "/api/train", token, map[string]any{"unit": "spearman", "amount": 309905300438320468})
	if resp.Code != transport.InvalidParam || rt.user != "" {
		t.Fatalf("超过单批上限应在绑定时拒绝, resp=%+v", resp)
	}
}

func TestHttp_领取任务奖励(t *testing.T) {
	rt := &fakeRuntime{}
	r, token := setup(t, rt)
	_, resp := do(r, nethttp.MethodPost, "/api/quests/claim", token, map[string]any{"id": "d_1_0"})
	if resp.Code != transport.OK || rt.user != "alice" || rt.quest != "d_1_0" {
		t.Fatalf("resp=%+v user=%s quest=%s", resp, rt.user, rt.quest)
	}

	r, token = setup(t, &fakeRuntime{err: app.ErrQuestClaimed})
	if _, resp := do(r, nethttp.MethodPost, "/api/quests/claim", token, map[string]any{"id": "d_1_0"}); resp.Code != transport.Conflict {
		t.Fatalf("重复领取应为冲突, resp=%+v", resp)
	}
	if _, resp := do(r, nethttp.MethodPost, "/api/quests/claim", token, map[string]any{}); resp.Code != transport.InvalidParam {
		t.Fatalf("缺少 id 应为参数错误, resp=%+v", resp)
	}
}
