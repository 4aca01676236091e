package combat

import (
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"

	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/shared/gameconfig/catalog"
)

const (
	TechWeaponry  = "weaponry"
	TechLogistics = "logistics"

	lootBaselinePerLevel = 200
	monsterBasePower     = 100
	powerPerLevel        = 50
	variancePerLevel     = 20
)

var lootRate = decimal.RequireFromString("0.3")

// Rand 只用到 Intn，测试里替换成固定值。
type Rand interface {
	Intn(n int) int
}

// lockedRand 可在多个 actor 间共用。
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewRand(seed int64) Rand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

type Resolver struct {
	cat *catalog.Catalog
	rnd Rand
}

func NewResolver(cat *catalog.Catalog, rnd Rand) *Resolver {
	return &Resolver{cat: cat, rnd: rnd}
}

// AttackPower Σ(数量×攻击)×(1+武器科技加成)。
func (r *Resolver) AttackPower(units domain.Army, research map[string]int) decimal.Decimal {
	var raw int64
	for kind, n := range units {
		if u, ok := r.cat.Unit(kind); ok && n > 0 {
			raw += n * u.Attack
		}
	}
	return decimal.NewFromInt(raw).Mul(r.cat.BonusMultiplier(TechWeaponry, research[TechWeaponry]))
}

// Cargo floor(Σ(数量×载重)×(1+后勤科技加成))。
func (r *Resolver) Cargo(units domain.Army, research map[string]int) int64 {
	var raw int64
	for kind, n := range units {
		if u, ok := r.cat.Unit(kind); ok && n > 0 {
			raw += n * u.Cargo
		}
	}
	return decimal.NewFromInt(raw).Mul(r.cat.BonusMultiplier(TechLogistics, research[TechLogistics])).Floor().IntPart()
}

// DefensePower Σ(数量×防御)。
func (r *Resolver) DefensePower(army domain.Army) int64 {
	var total int64
	for kind, n := range army {
		if u, ok := r.cat.Unit(kind); ok && n > 0 {
			total += n * u.Defense
		}
	}
	return total
}

// Resolve 纯计算，不修改任何状态。只有野外目标会抽一次随机数。
func (r *Resolver) Resolve(units domain.Army, research map[string]int, target *domain.MapEntity, defender domain.DefenderData) domain.Outcome {
	level := target.EffectiveLevel()
	out := domain.Outcome{
		Loot:          domain.Resources{},
		AttackPower:   r.AttackPower(units, research),
		Cargo:         r.Cargo(units, research),
		DefenderLevel: level,
	}

	switch {
	case defender.Known():
		out.DefenderArmy = defender.Army.Clone()
		out.TargetPower = r.DefensePower(defender.Army)
	case target.IsPlayerCity():
		// 拿不到守方数据，按无人防守处理
		out.DefenderUnknown = true
	case target.Kind == domain.KindMonster:
		out.TargetPower = int64(level*powerPerLevel+r.rnd.Intn(level*variancePerLevel)) + monsterBasePower
	default:
		out.TargetPower = int64(level*powerPerLevel + r.rnd.Intn(level*variancePerLevel))
	}

	out.Won = out.AttackPower.GreaterThan(decimal.NewFromInt(out.TargetPower))
	if !out.Won {
		return out
	}
	out.Loot = r.loot(out.Cargo, level, defender)
	return out
}

// loot 先金后木，受剩余载重限制。
func (r *Resolver) loot(cargo int64, level int, defender domain.DefenderData) domain.Resources {
	var gold, wood int64
	if defender.Known() && defender.Resources != nil {
		gold = decimal.NewFromInt(defender.Resources[catalog.Gold]).Mul(lootRate).Floor().IntPart()
		wood = decimal.NewFromInt(defender.Resources[catalog.Wood]).Mul(lootRate).Floor().IntPart()
	} else {
		gold = int64(level * lootBaselinePerLevel)
		wood = gold
	}

	loot := domain.Resources{}
	remaining := cargo
	if take := min(gold, remaining); take > 0 {
		loot[catalog.Gold] = take
		remaining -= take
	}
	if take := min(wood, remaining); take > 0 {
		loot[catalog.Wood] = take
	}
	return loot
}

// Attrition floor(sent×rate)，按兵种分别计算。
func Attrition(sent domain.Army, rate decimal.Decimal) (lost, survivors domain.Army) {
	lost = domain.Army{}
	survivors = domain.Army{}
	for kind, n := range sent {
		if n <= 0 {
			continue
		}
		l := decimal.NewFromInt(n).Mul(rate).Floor().IntPart()
		l = min(max(l, 0), n)
		if l > 0 {
			lost[kind] = l
		}
		if n-l > 0 {
			survivors[kind] = n - l
		}
	}
	return lost, survivors
}

// Survivors floor(sent×keep)，按兵种分别计算。征服胜利后驻军用这个。
func Survivors(sent domain.Army, keep decimal.Decimal) (survivors, lost domain.Army) {
	survivors = domain.Army{}
	lost = domain.Army{}
	for kind, n := range sent {
		if n <= 0 {
			continue
		}
		s := decimal.NewFromInt(n).Mul(keep).Floor().IntPart()
		s = min(max(s, 0), n)
		if s > 0 {
			survivors[kind] = s
		}
		if n-s > 0 {
			lost[kind] = n - s
		}
	}
	return survivors, lost
}

// ApplyCasualties 按权威方给的伤亡扣除，伤亡不超过派出数。
func ApplyCasualties(sent, casualties domain.Army) (lost, returned domain.Army) {
	lost = domain.Army{}
	returned = domain.Army{}
	for kind, n := range sent {
		if n <= 0 {
			continue
		}
		l := min(max(casualties[kind], 0), n)
		if l > 0 {
			lost[kind] = l
		}
		if n-l > 0 {
			returned[kind] = n - l
		}
	}
	return lost, returned
}
