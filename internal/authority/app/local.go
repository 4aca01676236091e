package app

import (
	"context"
	"errors"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/entity/domain"
	"Vikings/modules/kit/errx"
)

// Local 与任务引擎同进程部署时的权威方。业务拒绝转成 Success=false，
// 只有系统故障才作为 error 返回。
type Local struct {
	svc *BattleService
}

func NewLocal(svc *BattleService) *Local {
	return &Local{svc: svc}
}

func (l *Local) SubmitAttack(ctx context.Context, p domain.AttackParams) (domain.AuthorityResult, error) {
	return rejected(l.svc.Attack(ctx, AttackRequest{AttackParams: p}))
}

func (l *Local) ResolveDeferredAttack(ctx context.Context, p domain.AttackParams) (domain.AuthorityResult, error) {
	return rejected(l.svc.Attack(ctx, AttackRequest{AttackParams: p, Resolve: true}))
}

func (l *Local) FetchDefender(ctx context.Context, username string) (domain.DefenderData, error) {
	army, res, err := l.svc.Snapshot(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return domain.UnknownDefender(), port.ErrNotFound
	}
	if err != nil {
		return domain.UnknownDefender(), err
	}
	return domain.KnownDefender(army, res), nil
}

func rejected(res domain.AuthorityResult, err error) (domain.AuthorityResult, error) {
	var e *errx.Error
	if errors.As(err, &e) && e.IsBiz() {
		return domain.AuthorityResult{Success: false, Message: e.Msg()}, nil
	}
	return res, err
}

var (
	_ port.Authority       = (*Local)(nil)
	_ port.DefenderFetcher = (*Local)(nil)
)
