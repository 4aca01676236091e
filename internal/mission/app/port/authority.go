package port

import (
	"context"

	"Vikings/internal/mission/entity/domain"
)

// Authority 远端战斗权威方。
type Authority interface {
	SubmitAttack(ctx context.Context, p domain.AttackParams) (domain.AuthorityResult, error)
	// ResolveDeferredAttack 只在要塞攻击到点时调用，RequestID 用于去重。
	ResolveDeferredAttack(ctx context.Context, p domain.AttackParams) (domain.AuthorityResult, error)
}

// DefenderFetcher 查询守方快照，找不到返回 ErrNotFound。
type DefenderFetcher interface {
	FetchDefender(ctx context.Context, username string) (domain.DefenderData, error)
}
