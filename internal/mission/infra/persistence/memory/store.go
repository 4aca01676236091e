package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
)

// homeSearchRadius 找空地建城时向外搜索的最大环数。
const homeSearchRadius = 200

// Store 单进程内存实现，覆盖玩家、世界和部落；开发与测试用。
type Store struct {
	mu      sync.Mutex
	players map[string]*entity.PlayerSnapshot
	cells   map[string]*domain.MapEntity
	homes   map[string]domain.Coord
	clans   map[string]*domain.Clan
	reports []domain.BattleReport
}

var (
	_ port.StateRepository = (*Store)(nil)
	_ port.PlayerLedger    = (*Store)(nil)
	_ port.WorldStore      = (*Store)(nil)
	_ port.ClanStore       = (*Store)(nil)
	_ port.ReportSink      = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		players: make(map[string]*entity.PlayerSnapshot),
		cells:   make(map[string]*domain.MapEntity),
		homes:   make(map[string]domain.Coord),
		clans:   make(map[string]*domain.Clan),
	}
}

func (s *Store) LoadPlayer(ctx context.Context, username string) (*entity.PlayerSnapshot, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.players[username]
	if !ok {
		return nil, entity.ErrPlayerNotFound
	}
	return cloneSnapshot(snap), nil
}

func (s *Store) Snapshot(ctx context.Context, snap *entity.PlayerSnapshot) error {
	_ = ctx
	if snap == nil {
		return nil
	}
	if snap.Username == "" {
		return entity.ErrPlayerNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.players[snap.Username]; ok && cur.Version > snap.Version {
		return port.ErrConflict
	}
	s.players[snap.Username] = cloneSnapshot(snap)
	return nil
}

func (s *Store) Holdings(ctx context.Context, username string) (domain.Army, domain.Resources, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.players[username]
	if !ok {
		return nil, nil, port.ErrNotFound
	}
	return snap.Army.Clone(), snap.Resources.Clone(), nil
}

func (s *Store) AdjustArmy(ctx context.Context, username string, delta domain.Army) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.players[username]
	if !ok {
		return port.ErrNotFound
	}
	if snap.Army == nil {
		snap.Army = domain.Army{}
	}
	return adjust(snap.Army, delta)
}

func (s *Store) AdjustResources(ctx context.Context, username string, delta domain.Resources) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.players[username]
	if !ok {
		return port.ErrNotFound
	}
	if snap.Resources == nil {
		snap.Resources = domain.Resources{}
	}
	return adjust(snap.Resources, delta)
}

// adjust 先检查全部负向分量，再一起应用。
func adjust[K comparable](have map[K]int64, delta map[K]int64) error {
	for k, d := range delta {
		if d < 0 && have[k]+d < 0 {
			return port.ErrInsufficient
		}
	}
	for k, d := range delta {
		have[k] += d
	}
	return nil
}

// Entity 持久化格子优先，否则回落到按坐标生成的资源点。
func (s *Store) Entity(ctx context.Context, c domain.Coord) (*domain.MapEntity, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(c)
	if e == nil {
		return nil, port.ErrNotFound
	}
	return e.Clone(), nil
}

func (s *Store) lookup(c domain.Coord) *domain.MapEntity {
	if e, ok := s.cells[c.Key()]; ok {
		return e
	}
	return domain.VirtualEntity(c)
}

func (s *Store) ClaimHome(ctx context.Context, username string) (domain.Coord, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.homes[username]; ok {
		return c, nil
	}
	var home domain.Coord
	found := domain.SpiralFrom(domain.WorldCenter, homeSearchRadius, func(c domain.Coord) bool {
		if s.lookup(c) != nil {
			return false
		}
		home = c
		return true
	})
	if !found {
		return domain.Coord{}, entity.ErrNoFreeCell
	}
	s.cells[home.Key()] = &domain.MapEntity{Kind: domain.KindCity, Name: username + "'s City", User: username, Level: 1}
	s.homes[username] = home
	return home, nil
}

func (s *Store) Capture(ctx context.Context, c domain.Coord, owner string, garrison domain.Army, at int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(c)
	if e == nil {
		return port.ErrNotFound
	}
	if e.Kind != domain.KindResource {
		return fmt.Errorf("capture %s: %w", c.Key(), port.ErrConflict)
	}
	next := e.Clone()
	next.Owner = owner
	next.Garrison = domain.NewGarrison(garrison)
	next.CapturedAt = at
	s.cells[c.Key()] = next
	return nil
}

func (s *Store) Owned(ctx context.Context, owner string) ([]domain.MapEntity, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0)
	for k, e := range s.cells {
		if e.Kind == domain.KindResource && e.Owner == owner {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]domain.MapEntity, 0, len(keys))
	for _, k := range keys {
		out = append(out, *s.cells[k].Clone())
	}
	return out, nil
}

func (s *Store) RaiseLevel(ctx context.Context, c domain.Coord, owner string, from int) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cells[c.Key()]
	if !ok {
		return port.ErrNotFound
	}
	if e.Owner != owner || e.EffectiveLevel() != from {
		return port.ErrConflict
	}
	e.Level = from + 1
	return nil
}

func (s *Store) Place(ctx context.Context, c domain.Coord, e domain.MapEntity) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.cells[c.Key()]; taken {
		return fmt.Errorf("place %s: %w", c.Key(), port.ErrConflict)
	}
	s.cells[c.Key()] = e.Clone()
	if e.Kind == domain.KindCity && e.User != "" && e.User != domain.NPCUser {
		s.homes[e.User] = c
	}
	return nil
}

func (s *Store) Clan(ctx context.Context, id string) (*domain.Clan, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clans[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return cloneClan(c), nil
}

func (s *Store) ClanOf(ctx context.Context, username string) (*domain.Clan, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.clans))
	for id := range s.clans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if c := s.clans[id]; c.IsMember(username) {
			return cloneClan(c), nil
		}
	}
	return nil, port.ErrNotFound
}

func (s *Store) AdjustGarrison(ctx context.Context, clanID string, delta domain.Army) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clans[clanID]
	if !ok || c.Fortress == nil {
		return port.ErrNotFound
	}
	if c.Fortress.Garrison == nil {
		c.Fortress.Garrison = domain.Army{}
	}
	return adjust(c.Fortress.Garrison, delta)
}

func (s *Store) AdjustTreasury(ctx context.Context, clanID string, delta domain.Resources) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clans[clanID]
	if !ok {
		return port.ErrNotFound
	}
	if c.Treasury == nil {
		c.Treasury = domain.Resources{}
	}
	return adjust(c.Treasury, delta)
}

// Save 整体覆盖部落；要塞四格同步写入地图。
func (s *Store) Save(ctx context.Context, c *domain.Clan) error {
	_ = ctx
	if c == nil || c.ID == "" {
		return port.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clans[c.ID] = cloneClan(c)
	if f := c.Fortress; f != nil {
		for i, cell := range domain.FortressCells(f.Coord()) {
			s.cells[cell.Key()] = &domain.MapEntity{
				Kind:       domain.KindFortress,
				Name:       "[" + c.Tag + "] Fortress",
				Level:      f.Level,
				FortressID: c.ID,
				ClanID:     c.ID,
				Center:     i == 0,
			}
		}
	}
	return nil
}

func (s *Store) SaveReport(ctx context.Context, r domain.BattleReport) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

// Reports 按写入顺序返回 owner 的战报。
func (s *Store) Reports(owner string) []domain.BattleReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.BattleReport
	for _, r := range s.reports {
		if r.Owner == owner {
			out = append(out, r)
		}
	}
	return out
}

func cloneSnapshot(s *entity.PlayerSnapshot) *entity.PlayerSnapshot {
	out := *s
	out.Army = s.Army.Clone()
	out.Resources = s.Resources.Clone()
	out.Research = cloneInts(s.Research)
	out.Buildings = cloneInts(s.Buildings)
	out.Quests = s.Quests.Clone()
	out.Timers = append([]domain.TimerRecord(nil), s.Timers...)
	return &out
}

func cloneInts(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneClan(c *domain.Clan) *domain.Clan {
	out := *c
	out.Members = append([]string(nil), c.Members...)
	out.Treasury = c.Treasury.Clone()
	if c.Fortress != nil {
		f := *c.Fortress
		f.Garrison = c.Fortress.Garrison.Clone()
		out.Fortress = &f
	}
	return &out
}
