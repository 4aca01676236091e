package entity

import (
	"maps"

	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/shared/gameconfig/catalog"
)

const TownHall = "townHall"

type Stats struct {
	Battles int64 `json:"battles" bson:"battles"`
	Wins    int64 `json:"wins" bson:"wins"`
	Losses  int64 `json:"losses" bson:"losses"`
}

// PlayerState 一个玩家会话的全部可变状态，只由该玩家的 actor 读写。
type PlayerState struct {
	username  string
	home      domain.Coord
	clanID    string
	army      domain.Army
	resources domain.Resources
	carry     map[domain.Resource]float64
	research  map[string]int
	buildings map[string]int
	stats     Stats
	quests    QuestBoard
	lastTick  int64

	dirty bool
}

func NewPlayerState(username string, home domain.Coord) *PlayerState {
	return &PlayerState{
		username: username,
		home:     home,
		army:     domain.Army{},
		resources: domain.Resources{
			catalog.Gold:     1000,
			catalog.Wood:     1000,
			catalog.Food:     500,
			catalog.Citizens: 50,
		},
		carry:     map[domain.Resource]float64{},
		research:  map[string]int{},
		buildings: map[string]int{TownHall: 1},
		dirty:     true,
	}
}

// FromSnapshot 用持久化快照重建状态，不带脏标记。
func FromSnapshot(s *PlayerSnapshot) *PlayerState {
	p := &PlayerState{
		username:  s.Username,
		home:      s.Home,
		clanID:    s.ClanID,
		army:      s.Army.Clone(),
		resources: s.Resources.Clone(),
		carry:     map[domain.Resource]float64{},
		research:  maps.Clone(s.Research),
		buildings: maps.Clone(s.Buildings),
		stats:     s.Stats,
		quests:    s.Quests.Clone(),
		lastTick:  s.LastTick,
	}
	if p.research == nil {
		p.research = map[string]int{}
	}
	if p.buildings == nil {
		p.buildings = map[string]int{}
	}
	return p
}

func (p *PlayerState) Username() string   { return p.username }
func (p *PlayerState) Home() domain.Coord { return p.home }
func (p *PlayerState) ClanID() string     { return p.clanID }
func (p *PlayerState) Stats() Stats       { return p.stats }
func (p *PlayerState) LastTick() int64    { return p.lastTick }
func (p *PlayerState) Army() domain.Army  { return p.army.Clone() }
func (p *PlayerState) Research() map[string]int {
	return maps.Clone(p.research)
}

func (p *PlayerState) Resources() domain.Resources {
	return p.resources.Clone()
}

func (p *PlayerState) Resource(r domain.Resource) int64 {
	return p.resources[r]
}

func (p *PlayerState) ResearchLevel(tech string) int {
	return p.research[tech]
}

func (p *PlayerState) BuildingLevel(key string) int {
	return p.buildings[key]
}

func (p *PlayerState) Buildings() map[string]int {
	return maps.Clone(p.buildings)
}

func (p *PlayerState) SetClan(id string) {
	if p.clanID == id {
		return
	}
	p.clanID = id
	p.dirty = true
}

// TakeUnits 扣除出征部队，不足时不改动。
func (p *PlayerState) TakeUnits(units domain.Army) bool {
	if !p.army.Deduct(units) {
		return false
	}
	p.army = p.army.Compact()
	p.dirty = true
	return true
}

func (p *PlayerState) AddUnits(units domain.Army) {
	if units.Total() <= 0 {
		return
	}
	p.army.Add(units)
	p.dirty = true
}

func (p *PlayerState) CanAfford(cost catalog.Cost) bool {
	return p.resources.Covers(cost)
}

func (p *PlayerState) Pay(cost catalog.Cost) bool {
	if !p.resources.Pay(cost) {
		return false
	}
	p.dirty = true
	return true
}

func (p *PlayerState) Shortage(cost catalog.Cost) domain.Resources {
	return p.resources.Shortage(cost)
}

func (p *PlayerState) AddResources(delta domain.Resources) {
	if len(delta) == 0 {
		return
	}
	p.resources.Add(delta)
	p.dirty = true
}

func (p *PlayerState) UpgradeBuilding(key string) int {
	p.buildings[key]++
	p.dirty = true
	return p.buildings[key]
}

func (p *PlayerState) AdvanceResearch(tech string) int {
	p.research[tech]++
	p.dirty = true
	return p.research[tech]
}

// RecordBattle 更新战绩。
func (p *PlayerState) RecordBattle(won bool) {
	p.stats.Battles++
	if won {
		p.stats.Wins++
	} else {
		p.stats.Losses++
	}
	p.dirty = true
}

func (p *PlayerState) Dirty() bool {
	return p != nil && p.dirty
}

func (p *PlayerState) MarkDirty() {
	p.dirty = true
}

func (p *PlayerState) ClearDirty() {
	if p == nil {
		return
	}
	p.dirty = false
}

// ApplyExternal 应用来自权威方的增减（被掠夺、伤亡）。
// 任一扣减超过现有量时整体不生效，返回 false。
func (p *PlayerState) ApplyExternal(army domain.Army, res domain.Resources) bool {
	for k, d := range army {
		if d < 0 && p.army[k] < -d {
			return false
		}
	}
	for k, d := range res {
		if d < 0 && p.resources[k] < -d {
			return false
		}
	}
	for k, d := range army {
		p.army[k] += d
	}
	for k, d := range res {
		p.resources[k] += d
	}
	if len(army) > 0 {
		p.army = p.army.Compact()
	}
	if len(army) > 0 || len(res) > 0 {
		p.dirty = true
	}
	return true
}
