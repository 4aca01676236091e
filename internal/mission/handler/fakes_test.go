package handler

import (
	"context"
	"errors"
	"sync"
	"time"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/combat"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/shared/gameconfig/catalog"
)

type lowRand struct{}

func (lowRand) Intn(n int) int { return 0 }

type fakeWorld struct {
	cells    map[string]*domain.MapEntity
	err      error
	captures int
}

func (w *fakeWorld) Entity(ctx context.Context, c domain.Coord) (*domain.MapEntity, error) {
	if w.err != nil {
		return nil, w.err
	}
	e, ok := w.cells[c.Key()]
	if !ok {
		return nil, port.ErrNotFound
	}
	return e.Clone(), nil
}

func (w *fakeWorld) ClaimHome(ctx context.Context, username string) (domain.Coord, error) {
	return domain.Coord{}, nil
}

func (w *fakeWorld) Capture(ctx context.Context, c domain.Coord, owner string, garrison domain.Army, at int64) error {
	e, ok := w.cells[c.Key()]
	if !ok {
		return port.ErrNotFound
	}
	w.captures++
	e.Owner = owner
	e.CapturedAt = at
	e.Garrison = domain.NewGarrison(garrison)
	return nil
}

func (w *fakeWorld) Owned(ctx context.Context, owner string) ([]domain.MapEntity, error) {
	return nil, nil
}

func (w *fakeWorld) RaiseLevel(ctx context.Context, c domain.Coord, owner string, from int) error {
	return nil
}

func (w *fakeWorld) Place(ctx context.Context, c domain.Coord, e domain.MapEntity) error {
	w.cells[c.Key()] = &e
	return nil
}

type fakeClans struct {
	mu   sync.Mutex
	clan domain.Clan
}

func (f *fakeClans) Clan(ctx context.Context, id string) (*domain.Clan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.clan.ID {
		return nil, port.ErrNotFound
	}
	c := f.clan
	return &c, nil
}

func (f *fakeClans) ClanOf(ctx context.Context, username string) (*domain.Clan, error) {
	return f.Clan(ctx, f.clan.ID)
}

func (f *fakeClans) AdjustGarrison(ctx context.Context, clanID string, delta domain.Army) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := f.clan.Fortress.Garrison
	for k, v := range delta {
		if g[k]+v < 0 {
			return port.ErrInsufficient
		}
	}
	for k, v := range delta {
		g[k] += v
	}
	return nil
}

func (f *fakeClans) AdjustTreasury(ctx context.Context, clanID string, delta domain.Resources) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clan.Treasury.Add(delta)
	return nil
}

func (f *fakeClans) Save(ctx context.Context, c *domain.Clan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clan = *c
	return nil
}

type fakeAuthority struct {
	calls  []domain.AttackParams
	result domain.AuthorityResult
	err    error
	// timeouts 前几次 ResolveDeferredAttack 返回超时
	timeouts int
}

func (a *fakeAuthority) SubmitAttack(ctx context.Context, p domain.AttackParams) (domain.AuthorityResult, error) {
	a.calls = append(a.calls, p)
	return a.result, a.err
}

func (a *fakeAuthority) ResolveDeferredAttack(ctx context.Context, p domain.AttackParams) (domain.AuthorityResult, error) {
	a.calls = append(a.calls, p)
	if len(a.calls) <= a.timeouts {
		return domain.AuthorityResult{}, context.DeadlineExceeded
	}
	return a.result, a.err
}

type fakeDefenders struct {
	data domain.DefenderData
	err  error
}

func (f fakeDefenders) FetchDefender(ctx context.Context, username string) (domain.DefenderData, error) {
	return f.data, f.err
}

type fakeNotifier struct {
	got []port.Notification
}

func (n *fakeNotifier) Notify(username string, note port.Notification) {
	n.got = append(n.got, note)
}

func (n *fakeNotifier) last() port.Notification {
	if len(n.got) == 0 {
		return port.Notification{}
	}
	return n.got[len(n.got)-1]
}

type fakeReports struct {
	saved []domain.BattleReport
}

func (r *fakeReports) SaveReport(ctx context.Context, rep domain.BattleReport) error {
	r.saved = append(r.saved, rep)
	return nil
}

var errDown = errors.New("authority down")

type fixture struct {
	env     *Env
	reg     *Registry
	world   *fakeWorld
	clans   *fakeClans
	auth    *fakeAuthority
	notes   *fakeNotifier
	reports *fakeReports
}

func newFixture() *fixture {
	f := &fixture{
		world: &fakeWorld{cells: map[string]*domain.MapEntity{}},
		clans: &fakeClans{clan: domain.Clan{
			ID: "c1", Leader: "alice", Members: []string{"alice"},
			Fortress: &domain.Fortress{X: 0, Y: 0, Level: 1, Garrison: domain.Army{"spearman": 50, "archer": 20}},
			Treasury: domain.Resources{catalog.Gold: 1000},
		}},
		auth:    &fakeAuthority{},
		notes:   &fakeNotifier{},
		reports: &fakeReports{},
	}
	cat := catalog.Default()
	player := entity.NewPlayerState("alice", domain.Coord{})
	f.env = NewEnv(Deps{
		Catalog:   cat,
		Resolver:  combat.NewResolver(cat, lowRand{}),
		World:     f.world,
		Clans:     f.clans,
		Authority: f.auth,
		Defenders: fakeDefenders{err: port.ErrNotFound},
		Notifier:  f.notes,
		Reports:   f.reports,
		Now:       func() time.Time { return time.UnixMilli(1_000_000) },
	}, player)
	f.reg = NewRegistry(f.env)
	return f
}

func (f *fixture) fire(p domain.Payload) error {
	return f.reg.Handle(context.Background(), &domain.Timer{ID: 42, EndTime: 1, Payload: p})
}
