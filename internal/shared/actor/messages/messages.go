package messages

import (
	"Vikings/internal/mission/app/model"
	"Vikings/internal/mission/entity/domain"
)

// PlayerMessage 需要路由到某个玩家 actor 的消息。
type PlayerMessage interface {
	Username() string
}

type PlayerBase struct {
	User string
}

func (b PlayerBase) Username() string {
	return b.User
}

type SendMission struct {
	PlayerBase
	Mission domain.MissionType
	Req     model.MissionReq
}

type Train struct {
	PlayerBase
	Req model.TrainReq
}

type Build struct {
	PlayerBase
	Req model.BuildReq
}

type Research struct {
	PlayerBase
	Req model.ResearchReq
}

type UpgradeTerritory struct {
	PlayerBase
	Req model.TerritoryUpgradeReq
}

type QueryState struct {
	PlayerBase
}

type QueryTimers struct {
	PlayerBase
}

type QueryQuests struct {
	PlayerBase
}

type ClaimQuest struct {
	PlayerBase
	Req model.QuestClaimReq
}

// ApplyHoldings 权威方对玩家军队和资源的增减；扣减超过余量时整体拒绝。
type ApplyHoldings struct {
	PlayerBase
	Army      domain.Army
	Resources domain.Resources
}

// Reply 所有请求的统一回复。
type Reply struct {
	Value any
	Err   error
}
