package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
)

func TestStore_快照读写与版本(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if _, err := s.LoadPlayer(ctx, "alice"); !errors.Is(err, entity.ErrPlayerNotFound) {
		t.Fatalf("期望 ErrPlayerNotFound, got=%v", err)
	}
	p := entity.NewPlayerState("alice", domain.Coord{X: 1, Y: 2})
	if err := s.Snapshot(ctx, p.BuildPersistSnapshot(2, nil)); err != nil {
		t.Fatalf("Snapshot err=%v", err)
	}
	if err := s.Snapshot(ctx, p.BuildPersistSnapshot(1, nil)); !errors.Is(err, port.ErrConflict) {
		t.Fatalf("旧版本应被拒绝, got=%v", err)
	}
	got, err := s.LoadPlayer(ctx, "alice")
	if err != nil || got.Home != (domain.Coord{X: 1, Y: 2}) || got.Version != 2 {
		t.Fatalf("got=%+v err=%v", got, err)
	}
	got.Resources[domain.Resource("gold")] = 0
	again, _ := s.LoadPlayer(ctx, "alice")
	if again.Resources["gold"] != 1000 {
		t.Fatalf("返回值不应共享内部状态")
	}
}

func TestStore_条件扣减全有或全无(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := entity.NewPlayerState("bob", domain.Coord{})
	_ = s.Snapshot(ctx, p.BuildPersistSnapshot(1, nil))

	err := s.AdjustResources(ctx, "bob", domain.Resources{"gold": -100, "wood": -5000})
	if !errors.Is(err, port.ErrInsufficient) {
		t.Fatalf("期望 ErrInsufficient, got=%v", err)
	}
	_, res, _ := s.Holdings(ctx, "bob")
	if res["gold"] != 1000 {
		t.Fatalf("失败时不应部分扣除, gold=%d", res["gold"])
	}
	if err := s.AdjustResources(ctx, "bob", domain.Resources{"gold": -100, "wine": 7}); err != nil {
		t.Fatalf("err=%v", err)
	}
	_, res, _ = s.Holdings(ctx, "bob")
	if res["gold"] != 900 || res["wine"] != 7 {
		t.Fatalf("got=%v", res)
	}
	if err := s.AdjustArmy(ctx, "nobody", domain.Army{"spearman": 1}); !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("期望 ErrNotFound, got=%v", err)
	}
}

func TestStore_ClaimHome找空地且幂等(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a, err := s.ClaimHome(ctx, "alice")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	b, _ := s.ClaimHome(ctx, "bob")
	if a == b {
		t.Fatalf("两座城不能在同一格 %v", a)
	}
	again, _ := s.ClaimHome(ctx, "alice")
	if again != a {
		t.Fatalf("重复调用应返回同一坐标")
	}
	e, err := s.Entity(ctx, a)
	if err != nil || !e.IsPlayerCity() || e.User != "alice" {
		t.Fatalf("got=%+v err=%v", e, err)
	}
	if domain.VirtualEntity(a) != nil && a != domain.WorldCenter {
		t.Fatalf("不应建在资源点上")
	}
}

func TestStore_占领虚拟资源点(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	var node domain.Coord
	domain.SpiralFrom(domain.Coord{X: 10, Y: 10}, 50, func(c domain.Coord) bool {
		node = c
		return domain.VirtualEntity(c) != nil
	})
	before, err := s.Entity(ctx, node)
	if err != nil || before.Kind != domain.KindResource {
		t.Fatalf("期望虚拟资源点, got=%+v err=%v", before, err)
	}
	if err := s.Capture(ctx, node, "alice", domain.Army{"spearman": 9}, 123); err != nil {
		t.Fatalf("Capture err=%v", err)
	}
	owned, _ := s.Owned(ctx, "alice")
	if len(owned) != 1 || owned[0].Garrison.Total != 9 || owned[0].Level != before.Level {
		t.Fatalf("got=%+v", owned)
	}
	if err := s.RaiseLevel(ctx, node, "bob", before.Level); !errors.Is(err, port.ErrConflict) {
		t.Fatalf("非所有者升级应冲突, got=%v", err)
	}
	if err := s.RaiseLevel(ctx, node, "alice", before.Level); err != nil {
		t.Fatalf("err=%v", err)
	}
	if err := s.RaiseLevel(ctx, node, "alice", before.Level); !errors.Is(err, port.ErrConflict) {
		t.Fatalf("等级已变化应冲突, got=%v", err)
	}
}

func TestStore_部落驻军并发扣减不超卖(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_ = s.Save(ctx, &domain.Clan{
		ID: "c1", Tag: "VK", Leader: "alice",
		Fortress: &domain.Fortress{X: 100, Y: 100, Level: 1, Garrison: domain.Army{"spearman": 50}},
	})

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.AdjustGarrison(ctx, "c1", domain.Army{"spearman": -10}) == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if ok != 5 {
		t.Fatalf("期望恰好 5 次成功, got=%d", ok)
	}
	c, _ := s.Clan(ctx, "c1")
	if c.Fortress.Garrison["spearman"] != 0 {
		t.Fatalf("got=%v", c.Fortress.Garrison)
	}
	e, err := s.Entity(ctx, domain.Coord{X: 101, Y: 101})
	if err != nil || e.Kind != domain.KindFortress || e.Center {
		t.Fatalf("要塞格子应写入地图, got=%+v err=%v", e, err)
	}
	if got, _ := s.ClanOf(ctx, "alice"); got == nil || got.ID != "c1" {
		t.Fatalf("ClanOf got=%+v", got)
	}
}
