package actor

import (
	"context"
	"errors"
	"testing"
	"time"

	"Vikings/internal/mission/actors"
	"Vikings/internal/mission/app"
	"Vikings/internal/mission/app/model"
	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/combat"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/mission/handler"
	"Vikings/internal/mission/infra/persistence/memory"
	"Vikings/internal/shared/gameconfig/catalog"
)

type seqIDs struct{ n int64 }

func (s *seqIDs) NextID() int64 {
	s.n++
	return s.n
}

func newRuntime(t *testing.T) (*Runtime, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	cat := catalog.Default()
	ids := &seqIDs{}
	rt := NewRuntime(actors.Deps{
		Repo: store,
		Handler: handler.Deps{
			Catalog:  cat,
			Resolver: combat.NewResolver(cat, combat.NewRand(1)),
			World:    store,
			Clans:    store,
			Reports:  store,
		},
		Service:    app.NewMissionService(ids, nil),
		IDs:        ids,
		Tick:       50 * time.Millisecond,
		FlushEvery: 50 * time.Millisecond,
	}, 2*time.Second)
	t.Cleanup(rt.Shutdown)
	return rt, store
}

func TestRuntime_新玩家自动建城(t *testing.T) {
	rt, store := newRuntime(t)
	st, err := rt.State(context.Background(), "alice")
	if err != nil {
		t.Fatalf("State err=%v", err)
	}
	if st.Username != "alice" || st.Resources["gold"] < 1000 {
		t.Fatalf("got=%+v", st)
	}
	e, err := store.Entity(context.Background(), st.Home)
	if err != nil || e.User != "alice" {
		t.Fatalf("城市应写入地图, got=%+v err=%v", e, err)
	}
	if _, err := store.LoadPlayer(context.Background(), "alice"); err != nil {
		t.Fatalf("新玩家应立即落库, err=%v", err)
	}
}

func TestRuntime_训练排队与忙碌(t *testing.T) {
	rt, _ := newRuntime(t)
	ctx := context.Background()
	v, err := rt.Train(ctx, "bob", model.TrainReq{Unit: "spearman", Amount: 2})
	if err != nil {
		t.Fatalf("Train err=%v", err)
	}
	if v.ID == 0 || v.Type != domain.TimerUnit || v.EndTime-v.StartTime != 10_000 {
		t.Fatalf("got=%+v", v)
	}
	if _, err := rt.Train(ctx, "bob", model.TrainReq{Unit: "spearman", Amount: 1}); !errors.Is(err, app.ErrQueueBusy) {
		t.Fatalf("期望 ErrQueueBusy, got=%v", err)
	}
	timers, err := rt.Timers(ctx, "bob")
	if err != nil || len(timers) != 1 || timers[0].ID != v.ID {
		t.Fatalf("got=%+v err=%v", timers, err)
	}
}

func TestLedger_按玩家现值条件扣减(t *testing.T) {
	rt, store := newRuntime(t)
	ctx := context.Background()
	if _, err := rt.State(ctx, "carol"); err != nil {
		t.Fatalf("err=%v", err)
	}
	ledger := NewLedger(rt, store)
	if err := ledger.AdjustResources(ctx, "carol", domain.Resources{"gold": -500_000}); !errors.Is(err, port.ErrInsufficient) {
		t.Fatalf("余量不足应返回 ErrInsufficient, got=%v", err)
	}
	st, _ := rt.State(ctx, "carol")
	if st.Resources["gold"] < 1000 {
		t.Fatalf("失败的扣减不应生效, got=%d", st.Resources["gold"])
	}
	if err := ledger.AdjustResources(ctx, "carol", domain.Resources{"gold": -900}); err != nil {
		t.Fatalf("err=%v", err)
	}
	after, _ := rt.State(ctx, "carol")
	if after.Resources["gold"] >= st.Resources["gold"] || after.Resources["gold"] > st.Resources["gold"]-900+50 {
		t.Fatalf("应扣掉 900, before=%d after=%d", st.Resources["gold"], after.Resources["gold"])
	}
	if err := ledger.AdjustArmy(ctx, "carol", domain.Army{"archer": -1}); !errors.Is(err, port.ErrInsufficient) {
		t.Fatalf("没有弓兵应返回 ErrInsufficient, got=%v", err)
	}
	if _, _, err := ledger.Holdings(ctx, "nobody"); !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("期望 not found, got=%v", err)
	}
}
