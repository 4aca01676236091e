package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/combat"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/shared/gameconfig/catalog"
	"Vikings/modules/kit/logx"
)

const (
	cityDefense         = 500
	fortressBaseDefense = 2000
	fortressPerLevel    = 500
	territoryBase       = 200
	territoryPerLevel   = 100
	npcMaxLevel         = 5
)

var (
	fortressBonus  = decimal.RequireFromString("1.05")
	varianceFloor  = decimal.RequireFromString("0.9")
	varianceSteps  = 2001
	varianceScale  = decimal.NewFromInt(10000)
	winLossCap     = decimal.RequireFromString("0.2")
	winLossFloor   = decimal.RequireFromString("0.02")
	winLossFactor  = decimal.RequireFromString("0.3")
	lossBase       = decimal.RequireFromString("0.3")
	lossCap        = decimal.RequireFromString("0.9")
	stealShare     = decimal.RequireFromString("0.2")
	lootPriorities = []domain.Resource{catalog.Gold, catalog.Wood, catalog.Food, catalog.Wine, catalog.Marble}
)

// AttackRequest 一次攻击请求；Resolve 只对要塞出征有意义。
type AttackRequest struct {
	domain.AttackParams
	Resolve bool `json:"resolve,omitempty"`
}

// RequestLedger 记录已结算的请求，同一 requestId 只结算一次。
type RequestLedger interface {
	Lookup(ctx context.Context, requestID string) (domain.AuthorityResult, bool, error)
	Record(ctx context.Context, requestID, attacker string, res domain.AuthorityResult) error
}

type Deps struct {
	World    port.WorldStore
	Players  port.PlayerLedger
	Clans    port.ClanStore
	Reports  port.ReportSink
	Requests RequestLedger
	Catalog  *catalog.Catalog
	Rand     combat.Rand
	Now      func() time.Time
	Log      logx.Logger
}

// BattleService 战斗权威方：只修改守方和要塞，攻方状态由任务引擎自己结算。
type BattleService struct {
	Deps
	locks keyedMutex
}

func NewBattleService(deps Deps) *BattleService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = logx.Nop()
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.Rand == nil {
		deps.Rand = combat.NewRand(time.Now().UnixNano())
	}
	return &BattleService{Deps: deps}
}

type targetKind string

const (
	targetCity      targetKind = "city"
	targetTerritory targetKind = "territory"
	targetFortress  targetKind = "fortress"
	targetNPC       targetKind = "npc"
)

type battleTarget struct {
	kind      targetKind
	owner     string
	name      string
	level     int
	clan      *domain.Clan
	army      domain.Army
	resources domain.Resources
}

// realPlayer 守方是真实玩家时才扣资源、写战报。
func (t battleTarget) realPlayer() bool {
	return t.kind == targetCity || t.kind == targetTerritory
}

func (s *BattleService) Attack(ctx context.Context, req AttackRequest) (domain.AuthorityResult, error) {
	if req.Attacker == "" || req.Troops.Total() <= 0 {
		return domain.AuthorityResult{}, ErrMissingFields
	}
	if err := req.Troops.Validate(); err != nil {
		return domain.AuthorityResult{}, ErrMissingFields.WithCause(err)
	}
	if req.RequestID != "" {
		unlock := s.locks.lock(req.RequestID)
		defer unlock()
		if s.Requests != nil {
			prev, ok, err := s.Requests.Lookup(ctx, req.RequestID)
			if err != nil {
				return domain.AuthorityResult{}, ErrStorage.WithCause(err)
			}
			if ok {
				s.Log.WithContext(ctx).Info("attack request replayed", zap.String("request_id", req.RequestID))
				return prev, nil
			}
		}
	}

	res, err := s.attack(ctx, req)
	if err != nil {
		return res, err
	}
	if req.RequestID != "" && !res.Deferred && s.Requests != nil {
		if err := s.Requests.Record(ctx, req.RequestID, req.Attacker, res); err != nil {
			logx.ReportSysError(ctx, s.Log, logx.NewSysLog("record attack request", err),
				zap.String("request_id", req.RequestID))
		}
	}
	return res, nil
}

func (s *BattleService) attack(ctx context.Context, req AttackRequest) (domain.AuthorityResult, error) {
	if _, _, err := s.Players.Holdings(ctx, req.Attacker); err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return domain.AuthorityResult{}, ErrAttackerNotFound
		}
		return domain.AuthorityResult{}, ErrStorage.WithCause(err)
	}

	var clan *domain.Clan
	if req.Source == domain.SourceFortress {
		c, err := s.attackerFortress(ctx, req.Attacker)
		if err != nil {
			return domain.AuthorityResult{}, err
		}
		clan = c
		if !req.Resolve {
			// 驻军已由任务引擎原子扣除，这里只确认资格
			return domain.AuthorityResult{
				Success:  true,
				Deferred: true,
				Message:  "Fortress attack queued - battle will resolve upon arrival",
			}, nil
		}
	}

	c := domain.Coord{X: req.TargetX, Y: req.TargetY}
	target, err := s.identify(ctx, c)
	if err != nil {
		return domain.AuthorityResult{}, err
	}
	if target.owner == req.Attacker || (clan != nil && target.clan != nil && target.clan.ID == clan.ID) {
		return domain.AuthorityResult{}, ErrSelfAttack
	}

	attack, capacity := s.strength(req.Troops)
	defense := s.defense(target)
	finalAtt := decimal.Max(decimal.NewFromInt(1), attack.Mul(s.variance()))
	finalDef := decimal.Max(decimal.Zero, defense.Mul(s.variance()))
	victory := finalAtt.GreaterThan(finalDef)

	casualties := casualtiesOf(req.Troops, lossRate(victory, finalAtt, finalDef))
	_, survivors := combat.ApplyCasualties(req.Troops, casualties)

	loot := domain.Resources{}
	if victory && target.kind != targetFortress {
		loot = steal(target.resources, capacity)
	}

	if clan != nil {
		if err := s.Clans.AdjustGarrison(ctx, clan.ID, survivors); err != nil {
			return domain.AuthorityResult{}, ErrStorage.WithCause(err)
		}
	}
	if len(loot) > 0 && target.realPlayer() {
		if err := s.debit(ctx, target.owner, loot); err != nil {
			s.Log.WithContext(ctx).Warn("defender loot debit failed, loot dropped",
				zap.String("defender", target.owner), zap.Error(err))
			loot = domain.Resources{}
		}
	}
	if clan != nil && len(loot) > 0 {
		if err := s.Clans.AdjustTreasury(ctx, clan.ID, loot); err != nil {
			logx.ReportSysError(ctx, s.Log, logx.NewSysLog("fortress treasury credit", err), zap.String("clan", clan.ID))
		}
	}

	now := s.Now().UnixMilli()
	report := s.attackerReport(req, target, c, victory, attack, defense, loot, casualties, survivors, now)
	if target.realPlayer() {
		s.defenderReport(ctx, req.Attacker, target, c, victory, loot, now)
	}
	s.Log.WithContext(ctx).Info("battle resolved",
		zap.String("attacker", req.Attacker),
		zap.String("target", c.Key()),
		zap.String("target_kind", string(target.kind)),
		zap.Bool("victory", victory),
		zap.String("attack", finalAtt.StringFixed(1)),
		zap.String("defense", finalDef.StringFixed(1)))

	return domain.AuthorityResult{
		Success:    true,
		Victory:    victory,
		Loot:       loot,
		Casualties: casualties,
		Report:     &report,
	}, nil
}

func (s *BattleService) attackerFortress(ctx context.Context, attacker string) (*domain.Clan, error) {
	if s.Clans == nil {
		return nil, ErrNotInClan
	}
	clan, err := s.Clans.ClanOf(ctx, attacker)
	if errors.Is(err, port.ErrNotFound) {
		return nil, ErrNotInClan
	}
	if err != nil {
		return nil, ErrStorage.WithCause(err)
	}
	if clan.Leader != attacker {
		return nil, ErrNotLeader
	}
	if clan.Fortress == nil {
		return nil, ErrNoFortress
	}
	return clan, nil
}

// identify 坐标上没有玩家、领地或要塞时生成一个野蛮人营地。
func (s *BattleService) identify(ctx context.Context, c domain.Coord) (battleTarget, error) {
	e, err := s.World.Entity(ctx, c)
	if err != nil && !errors.Is(err, port.ErrNotFound) {
		return battleTarget{}, ErrStorage.WithCause(err)
	}
	switch {
	case e.IsPlayerCity():
		return s.playerTarget(ctx, targetCity, e.User, e.User+"'s City", e.EffectiveLevel())
	case e != nil && e.Kind == domain.KindResource && e.Owner != "":
		return s.playerTarget(ctx, targetTerritory, e.Owner, e.Name, e.EffectiveLevel())
	case e != nil && e.Kind == domain.KindFortress:
		id := e.ClanID
		if id == "" {
			id = e.FortressID
		}
		clan, err := s.Clans.Clan(ctx, id)
		if err == nil && clan.Fortress != nil {
			return battleTarget{
				kind:  targetFortress,
				owner: "Clan Fortress [" + clan.Tag + "]",
				name:  "Fortress of " + clan.Name,
				level: max(clan.Fortress.Level, 1),
				clan:  clan,
				army:  clan.Fortress.Garrison.Clone(),
			}, nil
		}
		if err != nil && !errors.Is(err, port.ErrNotFound) {
			return battleTarget{}, ErrStorage.WithCause(err)
		}
	}
	return s.barbarians(), nil
}

func (s *BattleService) playerTarget(ctx context.Context, kind targetKind, owner, name string, level int) (battleTarget, error) {
	army, res, err := s.Players.Holdings(ctx, owner)
	if errors.Is(err, port.ErrNotFound) {
		return s.barbarians(), nil
	}
	if err != nil {
		return battleTarget{}, ErrStorage.WithCause(err)
	}
	return battleTarget{kind: kind, owner: owner, name: name, level: level, army: army, resources: res}, nil
}

func (s *BattleService) barbarians() battleTarget {
	return battleTarget{
		kind:  targetNPC,
		owner: "NPC_Barbarian",
		name:  "Barbarian Camp",
		level: s.Rand.Intn(npcMaxLevel) + 1,
		army: domain.Army{
			"spearman": int64(s.Rand.Intn(20)),
			"archer":   int64(s.Rand.Intn(10)),
		},
		resources: domain.Resources{
			catalog.Gold: int64(s.Rand.Intn(1000)),
			catalog.Wood: int64(s.Rand.Intn(1000)),
			catalog.Food: int64(s.Rand.Intn(1000)),
		},
	}
}

// strength 攻击力与载货量，未知兵种不计。
func (s *BattleService) strength(troops domain.Army) (decimal.Decimal, int64) {
	var attack, capacity int64
	for kind, n := range troops {
		u, ok := s.Catalog.Unit(kind)
		if !ok || n <= 0 {
			continue
		}
		attack += u.Attack * n
		capacity += u.Cargo * n
	}
	return decimal.NewFromInt(attack), capacity
}

func (s *BattleService) defense(t battleTarget) decimal.Decimal {
	switch t.kind {
	case targetCity:
		return decimal.NewFromInt(cityDefense)
	case targetFortress:
		var garrison int64
		for kind, n := range t.army {
			if u, ok := s.Catalog.Unit(kind); ok && n > 0 {
				garrison += u.Defense * n
			}
		}
		base := int64(fortressBaseDefense + t.level*fortressPerLevel)
		return decimal.NewFromInt(base + garrison).Mul(fortressBonus)
	default:
		return decimal.NewFromInt(int64(territoryBase + t.level*territoryPerLevel))
	}
}

// variance 返回 [0.9, 1.1] 的浮动系数。
func (s *BattleService) variance() decimal.Decimal {
	return varianceFloor.Add(decimal.NewFromInt(int64(s.Rand.Intn(varianceSteps))).Div(varianceScale))
}

func lossRate(victory bool, att, def decimal.Decimal) decimal.Decimal {
	if victory {
		rate := decimal.Min(winLossCap, def.Div(att).Mul(winLossFactor))
		return decimal.Max(rate, winLossFloor)
	}
	ratio := decimal.Zero
	if def.IsPositive() {
		ratio = att.Div(def)
	}
	return decimal.Min(lossBase.Add(decimal.NewFromInt(1).Sub(ratio).Mul(winLossFactor)), lossCap)
}

// casualtiesOf 向上取整，损失率大于 0 时每个兵种至少死一个。
func casualtiesOf(troops domain.Army, rate decimal.Decimal) domain.Army {
	out := domain.Army{}
	for kind, n := range troops {
		if n <= 0 {
			continue
		}
		lost := min(decimal.NewFromInt(n).Mul(rate).Ceil().IntPart(), n)
		if lost > 0 {
			out[kind] = lost
		}
	}
	return out
}

// steal 按优先级逐项掠夺：min(现有, 剩余载货/5, 现有×20%)。
func steal(avail domain.Resources, capacity int64) domain.Resources {
	loot := domain.Resources{}
	n := int64(len(lootPriorities))
	for _, r := range lootPriorities {
		if capacity <= 0 {
			break
		}
		have := avail[r]
		take := min(have, capacity/n, decimal.NewFromInt(have).Mul(stealShare).Floor().IntPart())
		if take > 0 {
			loot[r] = take
			capacity -= take
		}
	}
	return loot
}

func (s *BattleService) debit(ctx context.Context, owner string, loot domain.Resources) error {
	delta := make(domain.Resources, len(loot))
	for r, v := range loot {
		delta[r] = -v
	}
	return s.Players.AdjustResources(ctx, owner, delta)
}

func (s *BattleService) attackerReport(req AttackRequest, t battleTarget, c domain.Coord, victory bool,
	attack, defense decimal.Decimal, loot domain.Resources, casualties, survivors domain.Army, now int64) domain.BattleReport {
	title := "Defeat vs " + t.owner
	if victory {
		title = "Victory vs " + t.owner
	}
	return domain.BattleReport{
		ID:        uuid.NewString(),
		Owner:     req.Attacker,
		Kind:      domain.ReportAttack,
		Title:     title,
		CreatedAt: now,
		Data: domain.ReportData{
			Winner:        victory,
			Attacker:      req.Attacker,
			Enemy:         t.owner,
			EnemyLevel:    t.level,
			Target:        c.Key(),
			AttackPower:   attack.String(),
			DefensePower:  defense.Floor().IntPart(),
			DefenderArmy:  t.army,
			Loot:          loot,
			UnitsSent:     req.Troops,
			UnitsLost:     casualties,
			UnitsReturned: survivors,
		},
	}
}

func (s *BattleService) defenderReport(ctx context.Context, attacker string, t battleTarget, c domain.Coord,
	victory bool, loot domain.Resources, now int64) {
	if s.Reports == nil {
		return
	}
	title := "Defended against " + attacker
	if victory {
		title = "Defeat by " + attacker
	}
	r := domain.BattleReport{
		ID:        uuid.NewString(),
		Owner:     t.owner,
		Kind:      domain.ReportDefense,
		Title:     title,
		CreatedAt: now,
		Data: domain.ReportData{
			Winner:   !victory,
			Attacker: attacker,
			Enemy:    attacker,
			Target:   c.Key(),
			Loot:     loot,
		},
	}
	if err := s.Reports.SaveReport(ctx, r); err != nil {
		s.Log.WithContext(ctx).Warn("save defender report failed", zap.String("owner", t.owner), zap.Error(err))
	}
}

// Snapshot 守方当前的军队与资源。
func (s *BattleService) Snapshot(ctx context.Context, username string) (domain.Army, domain.Resources, error) {
	army, res, err := s.Players.Holdings(ctx, username)
	if errors.Is(err, port.ErrNotFound) {
		return nil, nil, ErrUserNotFound.WithData("username", username)
	}
	if err != nil {
		return nil, nil, ErrStorage.WithCause(err)
	}
	return army, res, nil
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
