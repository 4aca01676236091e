package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/shared/serverconfig"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), serverconfig.LedgerConfig{
		Dialect: "sqlite",
		DSN:     filepath.Join(t.TempDir(), "ledger.sqlite"),
	}, nil)
	if err != nil {
		t.Fatalf("Open err=%v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_记录与查询(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	if _, ok, err := s.Lookup(ctx, "r1"); err != nil || ok {
		t.Fatalf("空库不应命中, ok=%v err=%v", ok, err)
	}
	first := domain.AuthorityResult{
		Success: true, Victory: true,
		Loot:       domain.Resources{"gold": 12},
		Casualties: domain.Army{"archer": 3},
	}
	if err := s.Record(ctx, "r1", "alice", first); err != nil {
		t.Fatalf("Record err=%v", err)
	}
	if err := s.Record(ctx, "r1", "alice", domain.AuthorityResult{Success: true}); err != nil {
		t.Fatalf("重复写入不应报错, err=%v", err)
	}
	got, ok, err := s.Lookup(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if !got.Victory || got.Loot["gold"] != 12 || got.Casualties["archer"] != 3 {
		t.Fatalf("应保留首次结果, got=%+v", got)
	}
}

func TestStore_迁移可重复执行(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "again.sqlite")
	cfg := serverconfig.LedgerConfig{Dialect: "sqlite", DSN: dsn}
	for i := 0; i < 2; i++ {
		s, err := Open(context.Background(), cfg, nil)
		if err != nil {
			t.Fatalf("第 %d 次 Open err=%v", i+1, err)
		}
		_ = s.Close()
	}
}

func TestStore_清理旧记录(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	_ = s.Record(ctx, "old", "alice", domain.AuthorityResult{Success: true})
	n, err := s.Purge(ctx, time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if _, ok, _ := s.Lookup(ctx, "old"); ok {
		t.Fatalf("清理后不应命中")
	}
}

func TestOpen_配置错误(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, serverconfig.LedgerConfig{Dialect: "oracle"}, nil); err == nil {
		t.Fatalf("未知方言应报错")
	}
	if _, err := Open(ctx, serverconfig.LedgerConfig{Dialect: "postgres"}, nil); err == nil {
		t.Fatalf("postgres 缺少 dsn 应报错")
	}
}
