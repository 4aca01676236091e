package model

import "Vikings/internal/mission/entity/domain"

type MissionReq struct {
	TargetX int         `json:"targetX"`
	TargetY int         `json:"targetY"`
	Units   domain.Army `json:"units" binding:"required"`
}

type TrainReq struct {
	Unit   string `json:"unit" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0,lte=10000"`
}

type BuildReq struct {
	Building string `json:"building" binding:"required"`
}

type ResearchReq struct {
	Tech string `json:"tech" binding:"required"`
}

type TerritoryUpgradeReq struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type QuestClaimReq struct {
	ID string `json:"id" binding:"required"`
}
