package model

import (
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
)

// TimerView 对外展示的定时器。
type TimerView struct {
	ID        int64              `json:"id,string"`
	Type      domain.TimerKind   `json:"type"`
	Subtype   domain.MissionType `json:"subtype,omitempty"`
	StartTime int64              `json:"startTime"`
	EndTime   int64              `json:"endTime"`
	Desc      string             `json:"desc,omitempty"`
	Units     domain.Army        `json:"units,omitempty"`
	TargetKey string             `json:"targetKey,omitempty"`
	OriginKey string             `json:"originKey,omitempty"`
	Strategy  string             `json:"strategy,omitempty"`
}

func NewTimerView(t *domain.Timer) TimerView {
	r := domain.ToRecord(t)
	v := TimerView{
		ID:        r.ID,
		Type:      r.Type,
		Subtype:   r.Subtype,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Desc:      r.Desc,
		Units:     r.Units,
		TargetKey: r.TargetKey,
		OriginKey: r.OriginKey,
	}
	switch p := t.Payload.(type) {
	case domain.AttackMission:
		v.Strategy = p.Resolution.Strategy()
	case domain.FortressAttackMission:
		v.Strategy = p.Resolution.Strategy()
	}
	return v
}

type StateView struct {
	Username  string            `json:"username"`
	Home      domain.Coord      `json:"home"`
	ClanID    string            `json:"clanId,omitempty"`
	Army      domain.Army       `json:"army"`
	Resources domain.Resources  `json:"resources"`
	Research  map[string]int    `json:"research"`
	Buildings map[string]int    `json:"buildings"`
	Stats     entity.Stats      `json:"stats"`
	Quests    entity.QuestBoard `json:"quests"`
	Timers    []TimerView       `json:"timers"`
}

// QuestClaimView 领取结果：本次奖励和领取后的资源。
type QuestClaimView struct {
	Reward    domain.Resources `json:"reward"`
	Resources domain.Resources `json:"resources"`
}
