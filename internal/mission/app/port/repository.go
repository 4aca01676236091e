package port

import (
	"context"
	"errors"

	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInsufficient 条件扣减失败：库存不够，未做任何修改。
	ErrInsufficient = errors.New("insufficient amount")
	ErrConflict     = errors.New("conflict")
)

// StateRepository 玩家状态（含在途定时器）的存取。
type StateRepository interface {
	LoadPlayer(ctx context.Context, username string) (*entity.PlayerSnapshot, error)
	Snapshot(ctx context.Context, s *entity.PlayerSnapshot) error
}

// PlayerLedger 权威方对玩家军队与资源的原子增减，负数要求余量足够。
type PlayerLedger interface {
	Holdings(ctx context.Context, username string) (domain.Army, domain.Resources, error)
	AdjustArmy(ctx context.Context, username string, delta domain.Army) error
	AdjustResources(ctx context.Context, username string, delta domain.Resources) error
}

// WorldStore 世界地图。
type WorldStore interface {
	Entity(ctx context.Context, c domain.Coord) (*domain.MapEntity, error)
	// ClaimHome 返回玩家城市坐标，没有就找空格放一座。
	ClaimHome(ctx context.Context, username string) (domain.Coord, error)
	// Capture 把资源点的归属与驻军改为 owner。
	Capture(ctx context.Context, c domain.Coord, owner string, garrison domain.Army, at int64) error
	Owned(ctx context.Context, owner string) ([]domain.MapEntity, error)
	// RaiseLevel 仅当归属为 owner 且等级仍为 from 时升一级，否则 ErrConflict。
	RaiseLevel(ctx context.Context, c domain.Coord, owner string, from int) error
	Place(ctx context.Context, c domain.Coord, e domain.MapEntity) error
}

// ClanStore 部落数据。驻军和金库只允许按种类原子增减。
type ClanStore interface {
	Clan(ctx context.Context, id string) (*domain.Clan, error)
	ClanOf(ctx context.Context, username string) (*domain.Clan, error)
	AdjustGarrison(ctx context.Context, clanID string, delta domain.Army) error
	AdjustTreasury(ctx context.Context, clanID string, delta domain.Resources) error
	Save(ctx context.Context, c *domain.Clan) error
}

// ReportSink 战报箱。
type ReportSink interface {
	SaveReport(ctx context.Context, r domain.BattleReport) error
}
