package entity

import (
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/shared/gameconfig/catalog"
)

const (
	baseCitizens        = 50
	citizensPerTownHall = 100
	// 人口从 0 增长到上限约 10 分钟
	citizenFillSeconds = 600
	goldPerCitizen     = 0.1
	woodPerSecond      = 5
)

// MaxCitizens 人口上限：50 + 市政厅等级×100。
func (p *PlayerState) MaxCitizens() int64 {
	return baseCitizens + int64(p.buildings[TownHall])*citizensPerTownHall
}

// Upkeep 每小时口粮消耗。
func (p *PlayerState) Upkeep(cat *catalog.Catalog) int64 {
	var total int64
	for kind, n := range p.army {
		if u, ok := cat.Unit(kind); ok {
			total += u.Upkeep * n
		}
	}
	return total
}

// Produce 结算从上次 tick 到 now 的产出，territories 为该玩家已占领的领地。
// 资源按整数保存，不足 1 的部分留在 carry 里累计。
func (p *PlayerState) Produce(cat *catalog.Catalog, nowMs int64, territories []domain.MapEntity) {
	if p.lastTick == 0 || nowMs <= p.lastTick {
		p.lastTick = nowMs
		return
	}
	secs := float64(nowMs-p.lastTick) / 1000
	p.lastTick = nowMs

	maxCit := p.MaxCitizens()
	citizens := p.resources[catalog.Citizens]
	if citizens < maxCit {
		grown := p.accrue(catalog.Citizens, float64(maxCit)/citizenFillSeconds*secs)
		if citizens+grown > maxCit {
			p.resources[catalog.Citizens] = maxCit
			p.carry[catalog.Citizens] = 0
		}
	}

	p.accrue(catalog.Gold, float64(p.resources[catalog.Citizens])*goldPerCitizen*secs)
	p.accrue(catalog.Wood, woodPerSecond*secs)

	for _, t := range territories {
		if t.Resource == "" {
			continue
		}
		p.accrue(t.Resource, float64(cat.TerritoryHourlyOutput(t.EffectiveLevel()))/3600*secs)
	}

	if upkeep := p.Upkeep(cat); upkeep > 0 {
		p.consume(catalog.Food, float64(upkeep)/3600*secs)
	}
	p.dirty = true
}

func (p *PlayerState) accrue(r domain.Resource, amount float64) int64 {
	total := p.carry[r] + amount
	whole := int64(total)
	p.carry[r] = total - float64(whole)
	p.resources[r] += whole
	return whole
}

// consume 扣到 0 为止。
func (p *PlayerState) consume(r domain.Resource, amount float64) {
	total := amount - p.carry[r]
	whole := int64(total)
	if float64(whole) < total {
		whole++
	}
	p.carry[r] = float64(whole) - total
	p.resources[r] = max(0, p.resources[r]-whole)
}
