package entity

import (
	"maps"

	"Vikings/internal/mission/entity/domain"
)

// PlayerSnapshot 是玩家状态的持久化形态，Timers 为仍在途的定时器。
type PlayerSnapshot struct {
	Version   uint64               `json:"version" bson:"version"`
	Username  string               `json:"username" bson:"_id"`
	Home      domain.Coord         `json:"home" bson:"home"`
	ClanID    string               `json:"clanId,omitempty" bson:"clan_id,omitempty"`
	Army      domain.Army          `json:"army" bson:"army"`
	Resources domain.Resources     `json:"resources" bson:"resources"`
	Research  map[string]int       `json:"research" bson:"research"`
	Buildings map[string]int       `json:"buildings" bson:"buildings"`
	Stats     Stats                `json:"stats" bson:"stats"`
	Quests    QuestBoard           `json:"quests" bson:"quests"`
	LastTick  int64                `json:"lastTick" bson:"last_tick"`
	Timers    []domain.TimerRecord `json:"timers" bson:"timers"`
}

// BuildPersistSnapshot 拷贝当前状态；timers 由调度器提供。
func (p *PlayerState) BuildPersistSnapshot(version uint64, timers []domain.TimerRecord) *PlayerSnapshot {
	if p == nil {
		return nil
	}
	return &PlayerSnapshot{
		Version:   version,
		Username:  p.username,
		Home:      p.home,
		ClanID:    p.clanID,
		Army:      p.army.Clone(),
		Resources: p.resources.Clone(),
		Research:  maps.Clone(p.research),
		Buildings: maps.Clone(p.buildings),
		Stats:     p.stats,
		Quests:    p.quests.Clone(),
		LastTick:  p.lastTick,
		Timers:    timers,
	}
}
