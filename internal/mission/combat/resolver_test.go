package combat

import (
	"testing"

	"github.com/shopspring/decimal"

	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/shared/gameconfig/catalog"
)

// fixedRand 总是返回 v（不超过 n-1）。
type fixedRand struct {
	v     int
	calls int
}

func (f *fixedRand) Intn(n int) int {
	f.calls++
	return min(f.v, n-1)
}

func newResolver(v int) (*Resolver, *fixedRand) {
	r := &fixedRand{v: v}
	return NewResolver(catalog.Default(), r), r
}

func TestResolve_三级资源点低随机应胜利并掠夺600金600木(t *testing.T) {
	res, rnd := newResolver(0)
	target := &domain.MapEntity{Kind: domain.KindResource, Level: 3, Resource: catalog.Wood}

	out := res.Resolve(domain.Army{"spearman": 100}, nil, target, domain.UnknownDefender())
	if !out.Won {
		t.Fatalf("期望胜利, power=%s target=%d", out.AttackPower, out.TargetPower)
	}
	if out.TargetPower != 150 || rnd.calls != 1 {
		t.Fatalf("期望守方战力 150 且随机一次, got=%d calls=%d", out.TargetPower, rnd.calls)
	}
	if !out.AttackPower.Equal(decimal.NewFromInt(500)) || out.Cargo != 2000 {
		t.Fatalf("期望战力 500 载重 2000, got=%s %d", out.AttackPower, out.Cargo)
	}
	if out.Loot[catalog.Gold] != 600 || out.Loot[catalog.Wood] != 600 {
		t.Fatalf("期望掠夺 600/600, got=%v", out.Loot)
	}
}

func TestResolve_战力相等守方胜且无掠夺(t *testing.T) {
	res, _ := newResolver(0)
	// 守方 1 个 spearman 防御 20；攻方 4 个 spearman 攻击 20
	def := domain.KnownDefender(domain.Army{"spearman": 1}, domain.Resources{catalog.Gold: 1000})
	out := res.Resolve(domain.Army{"spearman": 4}, nil, &domain.MapEntity{Kind: domain.KindCity, User: "bob"}, def)
	if out.Won {
		t.Fatalf("平局应判守方胜")
	}
	if len(out.Loot) != 0 {
		t.Fatalf("失败不应有掠夺, got=%v", out.Loot)
	}
}

func TestResolve_无数据的玩家城市视为无人防守(t *testing.T) {
	res, rnd := newResolver(0)
	target := &domain.MapEntity{Kind: domain.KindCity, User: "bob", Level: 2}
	out := res.Resolve(domain.Army{"archer": 1}, nil, target, domain.UnknownDefender())
	if !out.Won || out.TargetPower != 0 || !out.DefenderUnknown {
		t.Fatalf("期望必胜且战力 0 并标记未知, got=%+v", out)
	}
	if rnd.calls != 0 {
		t.Fatalf("玩家城市不应抽随机数")
	}
	// 载重 10，基准掠夺 400 金，被载重截断
	if out.Loot[catalog.Gold] != 10 || out.Loot[catalog.Wood] != 0 {
		t.Fatalf("掠夺应受载重限制, got=%v", out.Loot)
	}
}

func TestResolve_确认无兵与未知区分(t *testing.T) {
	res, _ := newResolver(0)
	target := &domain.MapEntity{Kind: domain.KindCity, User: "bob"}
	out := res.Resolve(domain.Army{"archer": 10}, nil, target, domain.KnownDefender(nil, domain.Resources{catalog.Gold: 100, catalog.Wood: 50}))
	if !out.Won || out.DefenderUnknown {
		t.Fatalf("确认无兵应胜且不标记未知, got=%+v", out)
	}
	if out.Loot[catalog.Gold] != 30 || out.Loot[catalog.Wood] != 15 {
		t.Fatalf("期望掠夺守方 30%%, got=%v", out.Loot)
	}
}

func TestResolve_怪物有基础战力(t *testing.T) {
	res, _ := newResolver(5)
	out := res.Resolve(domain.Army{"spearman": 1}, nil, &domain.MapEntity{Kind: domain.KindMonster, Level: 1}, domain.UnknownDefender())
	if out.TargetPower != 155 {
		t.Fatalf("期望 1×50+5+100=155, got=%d", out.TargetPower)
	}
	if out.Won {
		t.Fatalf("不应胜利")
	}
}

func TestResolve_科技加成(t *testing.T) {
	res, _ := newResolver(0)
	research := map[string]int{TechWeaponry: 2, TechLogistics: 3}
	units := domain.Army{"spearman": 10}
	if got := res.AttackPower(units, research); !got.Equal(decimal.NewFromInt(55)) {
		t.Fatalf("期望 50×1.1=55, got=%s", got)
	}
	if got := res.Cargo(units, research); got != 230 {
		t.Fatalf("期望 floor(200×1.15)=230, got=%d", got)
	}
}

func TestResolve_胜利掠夺不超过载重(t *testing.T) {
	res, _ := newResolver(0)
	for level := 1; level <= 10; level++ {
		for n := int64(1); n <= 200; n += 17 {
			units := domain.Army{"spearman": n, "archer": n / 2}
			out := res.Resolve(units, map[string]int{TechLogistics: level % 4}, &domain.MapEntity{Kind: domain.KindResource, Level: level}, domain.UnknownDefender())
			if out.Won && out.Loot.Total() > out.Cargo {
				t.Fatalf("掠夺 %d 超过载重 %d", out.Loot.Total(), out.Cargo)
			}
			if !out.Won && len(out.Loot) != 0 {
				t.Fatalf("失败不应有掠夺")
			}
		}
	}
}

func TestAttrition_守恒且向下取整(t *testing.T) {
	sent := domain.Army{"spearman": 15, "archer": 3, "ballista": 0}
	lost, survivors := Attrition(sent, decimal.RequireFromString("0.5"))
	for kind, n := range sent {
		if lost[kind]+survivors[kind] != n {
			t.Fatalf("%s 不守恒: lost=%d survivors=%d sent=%d", kind, lost[kind], survivors[kind], n)
		}
	}
	if lost["spearman"] != 7 || lost["archer"] != 1 {
		t.Fatalf("期望向下取整, got=%v", lost)
	}
}

func TestSurvivors_征服驻军95(t *testing.T) {
	survivors, lost := Survivors(domain.Army{"spearman": 10, "archer": 40}, decimal.RequireFromString("0.95"))
	if survivors["spearman"] != 9 || survivors["archer"] != 38 {
		t.Fatalf("got=%v", survivors)
	}
	if lost["spearman"] != 1 || lost["archer"] != 2 {
		t.Fatalf("got=%v", lost)
	}
}

func TestApplyCasualties_伤亡截断到派出数(t *testing.T) {
	lost, returned := ApplyCasualties(domain.Army{"spearman": 5, "archer": 2}, domain.Army{"spearman": 9, "catapult": 3})
	if lost["spearman"] != 5 || returned["spearman"] != 0 || returned["archer"] != 2 {
		t.Fatalf("lost=%v returned=%v", lost, returned)
	}
	if _, ok := lost["catapult"]; ok {
		t.Fatalf("未派出的兵种不应出现在损失里")
	}
}
