package persistence

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/infra/persistence/memory"
	"Vikings/internal/mission/infra/persistence/mongodb"
	sharedmongo "Vikings/internal/shared/infrastructure/mongo"
	"Vikings/internal/shared/serverconfig"
)

const (
	StorageMemory  = "memory"
	StorageMongoDB = "mongodb"
)

// Stores 按配置选出的一组仓储。Memory 仅在内存模式下非空。
type Stores struct {
	State   port.StateRepository
	Players port.PlayerLedger
	World   port.WorldStore
	Clans   port.ClanStore
	Memory  *memory.Store
	Close   func(ctx context.Context) error
}

func Open(ctx context.Context, storage string, cfg serverconfig.MongoDBConfig, l *zap.Logger) (*Stores, error) {
	switch strings.ToLower(strings.TrimSpace(storage)) {
	case "", StorageMemory:
		m := memory.NewStore()
		return &Stores{
			State: m, Players: m, World: m, Clans: m, Memory: m,
			Close: func(context.Context) error { return nil },
		}, nil
	case StorageMongoDB:
		client, db, err := sharedmongo.Open(ctx, cfg, l)
		if err != nil {
			return nil, fmt.Errorf("open mongodb: %w", err)
		}
		players := mongodb.NewPlayerRepo(db)
		return &Stores{
			State:   players,
			Players: players,
			World:   mongodb.NewWorldRepo(db),
			Clans:   mongodb.NewClanRepo(db),
			Close:   client.Disconnect,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage %q", storage)
	}
}
