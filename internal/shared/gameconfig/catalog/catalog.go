package catalog

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var builtin []byte

// Resource 资源种类。
type Resource string

const (
	Gold     Resource = "gold"
	Wood     Resource = "wood"
	Food     Resource = "food"
	Wine     Resource = "wine"
	Marble   Resource = "marble"
	Crystal  Resource = "crystal"
	Sulfur   Resource = "sulfur"
	Iron     Resource = "iron"
	Citizens Resource = "citizens"
)

// Cost 资源 -> 数量。
type Cost map[Resource]int64

// Scale 按 factor^level 放大并向下取整。
func (c Cost) Scale(factor decimal.Decimal, level int) Cost {
	mul := factor.Pow(decimal.NewFromInt(int64(level)))
	out := make(Cost, len(c))
	for r, v := range c {
		out[r] = decimal.NewFromInt(v).Mul(mul).Floor().IntPart()
	}
	return out
}

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// Times 乘以数量（训练 n 个单位）；n 为负或结果超出 int64 时返回 false。
func (c Cost) Times(n int64) (Cost, bool) {
	if n < 0 {
		return nil, false
	}
	out := make(Cost, len(c))
	for r, v := range c {
		p := decimal.NewFromInt(v).Mul(decimal.NewFromInt(n))
		if p.Abs().GreaterThan(maxAmount) {
			return nil, false
		}
		out[r] = p.IntPart()
	}
	return out, true
}

type Unit struct {
	Key          string `yaml:"-"`
	Name         string `yaml:"name"`
	Attack       int64  `yaml:"attack"`
	Defense      int64  `yaml:"defense"`
	Cargo        int64  `yaml:"cargo"`
	Upkeep       int64  `yaml:"upkeep"`
	TrainingTime int64  `yaml:"training_time"`
	MinTownHall  int    `yaml:"min_town_hall"`
	Cost         Cost   `yaml:"cost"`
}

type Research struct {
	Key           string  `yaml:"-"`
	Name          string  `yaml:"name"`
	BonusPerLevel float64 `yaml:"bonus_per_level"`
	Time          int64   `yaml:"time"`
	Cost          Cost    `yaml:"cost"`
}

type Building struct {
	Key        string  `yaml:"-"`
	Name       string  `yaml:"name"`
	CostFactor float64 `yaml:"cost_factor"`
	BaseCost   Cost    `yaml:"base_cost"`
}

type document struct {
	Units               map[string]*Unit     `yaml:"units"`
	Research            map[string]*Research `yaml:"research"`
	Buildings           map[string]*Building `yaml:"buildings"`
	TerritoryProduction []int64              `yaml:"territory_production"`
}

// Catalog 加载后只读，可在多个 goroutine 间共享。
type Catalog struct {
	units      map[string]Unit
	research   map[string]Research
	buildings  map[string]Building
	production []int64
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default 返回内置目录；内置数据非法属于构建错误，直接 panic。
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(builtin)
		if err != nil {
			panic(fmt.Errorf("builtin catalog invalid: %w", err))
		}
		defaultCat = c
	})
	return defaultCat
}

// Load 从文件加载；path 为空时返回内置目录。
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %q: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(doc.Units) == 0 {
		return nil, fmt.Errorf("catalog has no units")
	}
	c := &Catalog{
		units:      make(map[string]Unit, len(doc.Units)),
		research:   make(map[string]Research, len(doc.Research)),
		buildings:  make(map[string]Building, len(doc.Buildings)),
		production: append([]int64(nil), doc.TerritoryProduction...),
	}
	for k, u := range doc.Units {
		if u == nil || u.Attack < 0 || u.Defense < 0 || u.Cargo < 0 || u.TrainingTime <= 0 {
			return nil, fmt.Errorf("unit %q: invalid stats", k)
		}
		u.Key = k
		if u.MinTownHall <= 0 {
			u.MinTownHall = 1
		}
		c.units[k] = *u
	}
	for k, r := range doc.Research {
		if r == nil || r.Time <= 0 || r.BonusPerLevel < 0 {
			return nil, fmt.Errorf("research %q: invalid definition", k)
		}
		r.Key = k
		c.research[k] = *r
	}
	for k, b := range doc.Buildings {
		if b == nil || b.CostFactor < 1 {
			return nil, fmt.Errorf("building %q: cost_factor must be >= 1", k)
		}
		b.Key = k
		c.buildings[k] = *b
	}
	return c, nil
}

func (c *Catalog) Unit(key string) (Unit, bool) {
	u, ok := c.units[key]
	return u, ok
}

func (c *Catalog) Research(key string) (Research, bool) {
	r, ok := c.research[key]
	return r, ok
}

func (c *Catalog) Building(key string) (Building, bool) {
	b, ok := c.buildings[key]
	return b, ok
}

// UnitKeys 按字典序返回。
func (c *Catalog) UnitKeys() []string {
	keys := make([]string, 0, len(c.units))
	for k := range c.units {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BonusMultiplier 返回 1 + bonusPerLevel×level；未知科技按 1 处理。
func (c *Catalog) BonusMultiplier(tech string, level int) decimal.Decimal {
	one := decimal.NewFromInt(1)
	r, ok := c.research[tech]
	if !ok || level <= 0 {
		return one
	}
	return one.Add(decimal.NewFromFloat(r.BonusPerLevel).Mul(decimal.NewFromInt(int64(level))))
}

// ResearchCost 第 level 级（当前等级）升级所需资源：base×1.5^level。
func (c *Catalog) ResearchCost(tech string, level int) (Cost, bool) {
	r, ok := c.research[tech]
	if !ok {
		return nil, false
	}
	return r.Cost.Scale(decimal.NewFromFloat(1.5), level), true
}

// ResearchTime 秒：floor(time×1.2^level)。
func (c *Catalog) ResearchTime(tech string, level int) (int64, bool) {
	r, ok := c.research[tech]
	if !ok {
		return 0, false
	}
	mul := decimal.NewFromFloat(1.2).Pow(decimal.NewFromInt(int64(level)))
	return decimal.NewFromInt(r.Time).Mul(mul).Floor().IntPart(), true
}

// BuildingCost 当前等级升级到下一级的花费：base×factor^level。
func (c *Catalog) BuildingCost(key string, level int) (Cost, bool) {
	b, ok := c.buildings[key]
	if !ok {
		return nil, false
	}
	return b.BaseCost.Scale(decimal.NewFromFloat(b.CostFactor), level), true
}

// ConstructionTime 秒：max(1, floor(5×(level+1)×(1-0.05×architecture)))。
func (c *Catalog) ConstructionTime(level, architecture int) int64 {
	reduction := decimal.NewFromInt(1).Sub(c.BonusMultiplier("architecture", architecture).Sub(decimal.NewFromInt(1)))
	t := decimal.NewFromInt(int64(5 * (level + 1))).Mul(reduction).Floor().IntPart()
	return max(1, t)
}

// MaxTrainBatch 单次训练数量上限。
const MaxTrainBatch = 10000

// MaxTerritoryLevel 领地等级上限。
const MaxTerritoryLevel = 10

// TerritoryHourlyOutput 已占领领地每小时产出：floor(3600×(100+pct)/100)，表外等级无加成。
func (c *Catalog) TerritoryHourlyOutput(level int) int64 {
	const base = 3600
	if level <= 0 {
		level = 1
	}
	var pct int64
	if level-1 < len(c.production) {
		pct = c.production[level-1]
	}
	return base * (100 + pct) / 100
}

var territoryUpgradeBase = Cost{
	Gold: 10000, Wood: 8000, Food: 5000, Wine: 3000, Marble: 2000, Crystal: 1500, Sulfur: 1000,
}

// TerritoryUpgradeCost 从 level 升到 level+1：base×2^level。
func TerritoryUpgradeCost(level int) Cost {
	if level < 1 {
		level = 1
	}
	c, _ := territoryUpgradeBase.Times(int64(1) << level)
	return c
}
