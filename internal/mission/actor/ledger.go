package actor

import (
	"context"
	"errors"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/shared/actor/messages"
)

// Ledger 同进程权威方使用的账本：读落库快照，写请求玩家 actor 按现值结算，
// 避免 actor 下一次落库覆盖掉外部修改。
type Ledger struct {
	rt   *Runtime
	repo port.StateRepository
}

var _ port.PlayerLedger = (*Ledger)(nil)

func NewLedger(rt *Runtime, repo port.StateRepository) *Ledger {
	return &Ledger{rt: rt, repo: repo}
}

func (l *Ledger) Holdings(ctx context.Context, username string) (domain.Army, domain.Resources, error) {
	s, err := l.repo.LoadPlayer(ctx, username)
	if errors.Is(err, entity.ErrPlayerNotFound) {
		return nil, nil, port.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return s.Army, s.Resources, nil
}

// AdjustArmy 在玩家 actor 内按现值条件扣减，不够时返回 port.ErrInsufficient。
func (l *Ledger) AdjustArmy(ctx context.Context, username string, delta domain.Army) error {
	_, err := l.rt.Ask(ctx, messages.ApplyHoldings{PlayerBase: base(username), Army: delta})
	return err
}

func (l *Ledger) AdjustResources(ctx context.Context, username string, delta domain.Resources) error {
	_, err := l.rt.Ask(ctx, messages.ApplyHoldings{PlayerBase: base(username), Resources: delta})
	return err
}

// Attach 在 Runtime 创建后绑定；Runtime 的依赖里又引用了本账本，所以分两步。
func (l *Ledger) Attach(rt *Runtime) {
	l.rt = rt
}
