package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/mission/infra/persistence/memory"
)

// fixedRand 总是返回 min(v, n-1)；取 1000 时浮动系数恰为 1.0。
type fixedRand int

func (f fixedRand) Intn(n int) int {
	return min(int(f), n-1)
}

type memRequests struct {
	mu   sync.Mutex
	seen map[string]domain.AuthorityResult
}

func (m *memRequests) Lookup(ctx context.Context, id string) (domain.AuthorityResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.seen[id]
	return r, ok, nil
}

func (m *memRequests) Record(ctx context.Context, id, attacker string, res domain.AuthorityResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]domain.AuthorityResult{}
	}
	m.seen[id] = res
	return nil
}

func newBattleFixture(t *testing.T) (*BattleService, *memory.Store, domain.Coord) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	for _, u := range []string{"alice", "bob"} {
		p := entity.NewPlayerState(u, domain.Coord{})
		if err := store.Snapshot(ctx, p.BuildPersistSnapshot(1, nil)); err != nil {
			t.Fatalf("seed %s err=%v", u, err)
		}
	}
	home, err := store.ClaimHome(ctx, "bob")
	if err != nil {
		t.Fatalf("ClaimHome err=%v", err)
	}
	svc := NewBattleService(Deps{
		World:    store,
		Players:  store,
		Clans:    store,
		Reports:  store,
		Requests: &memRequests{},
		Rand:     fixedRand(1000),
	})
	return svc, store, home
}

func attackOn(c domain.Coord, troops domain.Army) AttackRequest {
	return AttackRequest{AttackParams: domain.AttackParams{
		Attacker: "alice", TargetX: c.X, TargetY: c.Y, Troops: troops,
	}}
}

func TestAttack_攻破玩家城市掠夺资源(t *testing.T) {
	ctx := context.Background()
	svc, store, home := newBattleFixture(t)

	res, err := svc.Attack(ctx, attackOn(home, domain.Army{"archer": 100}))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !res.Success || !res.Victory {
		t.Fatalf("2000 攻击对 500 防御应获胜, got=%+v", res)
	}
	// 损失率 500/2000*0.3=0.075，向上取整
	if res.Casualties["archer"] != 8 {
		t.Fatalf("casualties=%v", res.Casualties)
	}
	want := domain.Resources{"gold": 200, "wood": 160, "food": 100}
	for r, v := range want {
		if res.Loot[r] != v {
			t.Fatalf("loot[%s]=%d, want %d (loot=%v)", r, res.Loot[r], v, res.Loot)
		}
	}
	_, left, _ := store.Holdings(ctx, "bob")
	if left["gold"] != 800 || left["wood"] != 840 || left["food"] != 400 {
		t.Fatalf("守方资源未正确扣除: %v", left)
	}
	army, _, _ := store.Holdings(ctx, "alice")
	if army.Total() != 0 {
		t.Fatalf("权威方不应修改攻方军队: %v", army)
	}
	if res.Report == nil || res.Report.Title != "Victory vs bob" || res.Report.Data.DefensePower != 500 {
		t.Fatalf("report=%+v", res.Report)
	}
	reports := store.Reports("bob")
	if len(reports) != 1 || reports[0].Title != "Defeat by alice" || reports[0].Data.Winner {
		t.Fatalf("守方战报=%+v", reports)
	}
}

func TestAttack_进攻失败没有掠夺(t *testing.T) {
	ctx := context.Background()
	svc, store, home := newBattleFixture(t)

	res, err := svc.Attack(ctx, attackOn(home, domain.Army{"spearman": 10}))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !res.Success || res.Victory {
		t.Fatalf("50 攻击不应获胜, got=%+v", res)
	}
	// 0.3 + (1-0.1)*0.3 = 0.57
	if res.Casualties["spearman"] != 6 || len(res.Loot) != 0 {
		t.Fatalf("casualties=%v loot=%v", res.Casualties, res.Loot)
	}
	reports := store.Reports("bob")
	if len(reports) != 1 || reports[0].Title != "Defended against alice" {
		t.Fatalf("守方战报=%+v", reports)
	}
}

// spentLedger 快照里资源还在，但守方已经花掉，条件扣减失败。
type spentLedger struct{ *memory.Store }

func (spentLedger) AdjustResources(ctx context.Context, username string, delta domain.Resources) error {
	return port.ErrInsufficient
}

func TestAttack_守方余量不足时放弃掠夺(t *testing.T) {
	ctx := context.Background()
	svc, store, home := newBattleFixture(t)
	svc.Players = spentLedger{store}

	res, err := svc.Attack(ctx, attackOn(home, domain.Army{"archer": 100}))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !res.Success || !res.Victory {
		t.Fatalf("got=%+v", res)
	}
	if len(res.Loot) != 0 || len(res.Report.Data.Loot) != 0 {
		t.Fatalf("扣减失败时不应凭空产出战利品, loot=%v", res.Loot)
	}
	_, left, _ := store.Holdings(ctx, "bob")
	if left["gold"] != 1000 {
		t.Fatalf("守方资源不应变化: %v", left)
	}
}

func TestAttack_业务拒绝(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newBattleFixture(t)
	aliceHome, _ := store.ClaimHome(ctx, "alice")

	cases := []struct {
		name string
		req  AttackRequest
		want error
	}{
		{"缺少字段", AttackRequest{AttackParams: domain.AttackParams{Attacker: "alice"}}, ErrMissingFields},
		{"攻方不存在", AttackRequest{AttackParams: domain.AttackParams{Attacker: "ghost", Troops: domain.Army{"archer": 1}}}, ErrAttackerNotFound},
		{"攻打自己", attackOn(aliceHome, domain.Army{"archer": 1}), ErrSelfAttack},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Attack(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("want=%v got=%v", tc.want, err)
			}
		})
	}
}

func seedClan(t *testing.T, store *memory.Store) {
	t.Helper()
	err := store.Save(context.Background(), &domain.Clan{
		ID: "c1", Tag: "WLF", Name: "Wolves", Leader: "alice", Members: []string{"alice", "bob"},
		Fortress: &domain.Fortress{X: 10, Y: 10, Level: 1, Garrison: domain.Army{}},
	})
	if err != nil {
		t.Fatalf("seed clan err=%v", err)
	}
}

func TestAttack_要塞出征先延迟后结算(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newBattleFixture(t)
	seedClan(t, store)

	req := AttackRequest{AttackParams: domain.AttackParams{
		Attacker: "alice", TargetX: 300, TargetY: 300, Troops: domain.Army{"archer": 100},
		Source: domain.SourceFortress, RequestID: "t-1",
	}}
	res, err := svc.Attack(ctx, req)
	if err != nil || !res.Success || !res.Deferred {
		t.Fatalf("未到点应返回 deferred, res=%+v err=%v", res, err)
	}

	req.Resolve = true
	res, err = svc.Attack(ctx, req)
	if err != nil {
		t.Fatalf("resolve err=%v", err)
	}
	// 野蛮人营地 5 级：防御 700，损失率 0.105
	if !res.Victory || res.Casualties["archer"] != 11 {
		t.Fatalf("res=%+v", res)
	}
	clan, _ := store.Clan(ctx, "c1")
	if clan.Fortress.Garrison["archer"] != 89 {
		t.Fatalf("幸存者应回到驻军, garrison=%v", clan.Fortress.Garrison)
	}
	if clan.Treasury["gold"] != 199 || clan.Treasury["wood"] != 160 || clan.Treasury["food"] != 128 {
		t.Fatalf("掠夺应进入金库, treasury=%v", clan.Treasury)
	}

	again, err := svc.Attack(ctx, req)
	if err != nil || again.Report == nil || again.Report.ID != res.Report.ID {
		t.Fatalf("同一 requestId 应返回首次结果, again=%+v err=%v", again, err)
	}
	clan, _ = store.Clan(ctx, "c1")
	if clan.Fortress.Garrison["archer"] != 89 {
		t.Fatalf("重复结算不应再次入驻, garrison=%v", clan.Fortress.Garrison)
	}
}

func TestAttack_要塞出征需要首领(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newBattleFixture(t)

	req := AttackRequest{AttackParams: domain.AttackParams{
		Attacker: "bob", TargetX: 300, TargetY: 300, Troops: domain.Army{"archer": 1},
		Source: domain.SourceFortress,
	}}
	if _, err := svc.Attack(ctx, req); !errors.Is(err, ErrNotInClan) {
		t.Fatalf("没有部落, got=%v", err)
	}
	seedClan(t, store)
	if _, err := svc.Attack(ctx, req); !errors.Is(err, ErrNotLeader) {
		t.Fatalf("非首领, got=%v", err)
	}
}

func TestAttack_攻打本部落要塞视为攻打自己(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newBattleFixture(t)
	seedClan(t, store)

	req := AttackRequest{AttackParams: domain.AttackParams{
		Attacker: "alice", TargetX: 11, TargetY: 11, Troops: domain.Army{"archer": 1},
		Source: domain.SourceFortress,
	}, Resolve: true}
	if _, err := svc.Attack(ctx, req); !errors.Is(err, ErrSelfAttack) {
		t.Fatalf("got=%v", err)
	}
}

func TestLocal_业务拒绝转为失败结果(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newBattleFixture(t)
	home, _ := store.ClaimHome(ctx, "alice")
	local := NewLocal(svc)

	res, err := local.SubmitAttack(ctx, domain.AttackParams{
		Attacker: "alice", TargetX: home.X, TargetY: home.Y, Troops: domain.Army{"archer": 1},
	})
	if err != nil || res.Success || res.Message != "Cannot attack yourself" {
		t.Fatalf("res=%+v err=%v", res, err)
	}

	d, err := local.FetchDefender(ctx, "bob")
	if err != nil || !d.Known() || d.Resources["gold"] != 1000 {
		t.Fatalf("defender=%+v err=%v", d, err)
	}
	if _, err := local.FetchDefender(ctx, "ghost"); !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("期望 ErrNotFound, got=%v", err)
	}
}
