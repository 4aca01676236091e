package app

import "Vikings/modules/kit/errx"

// Code 应用层错误码。
type Code = errx.Code

const (
	CodeInvalidUnits          Code = "MISSION_INVALID_UNITS"
	CodeInsufficientUnits     Code = "MISSION_INSUFFICIENT_UNITS"
	CodeInsufficientResources Code = "MISSION_INSUFFICIENT_RESOURCES"
	CodeInvalidTarget         Code = "MISSION_INVALID_TARGET"
	CodeNotClanLeader         Code = "MISSION_NOT_CLAN_LEADER"
	CodeNoFortress            Code = "MISSION_NO_FORTRESS"
	CodeInsufficientGarrison  Code = "MISSION_INSUFFICIENT_GARRISON"
	CodeQueueBusy             Code = "MISSION_QUEUE_BUSY"
	CodeRequirementNotMet     Code = "MISSION_REQUIREMENT_NOT_MET"
	CodeUnknownItem           Code = "MISSION_UNKNOWN_ITEM"
	CodeAttackRejected        Code = "MISSION_ATTACK_REJECTED"
	CodeMaxLevel              Code = "MISSION_MAX_LEVEL"
	CodeQuestClaimed          Code = "MISSION_QUEST_CLAIMED"

	CodeInternalServer Code = errx.CodeInternal
	CodeUnavailable    Code = errx.CodeUnavailable
)

type Error = errx.Error

// 哨兵错误只读，需要上下文时用 WithData/WithCause 派生。
var (
	ErrInvalidUnits          = errx.NewBiz(CodeInvalidUnits, "出征部队无效")
	ErrInsufficientUnits     = errx.NewBiz(CodeInsufficientUnits, "兵力不足")
	ErrInsufficientResources = errx.NewBiz(CodeInsufficientResources, "资源不足")
	ErrInvalidTarget         = errx.NewBiz(CodeInvalidTarget, "目标无效")
	ErrNotClanLeader         = errx.NewBiz(CodeNotClanLeader, "只有部落首领可以调动要塞")
	ErrNoFortress            = errx.NewBiz(CodeNoFortress, "部落没有要塞")
	ErrInsufficientGarrison  = errx.NewBiz(CodeInsufficientGarrison, "要塞驻军不足")
	ErrQueueBusy             = errx.NewBiz(CodeQueueBusy, "队列已占用")
	ErrRequirementNotMet     = errx.NewBiz(CodeRequirementNotMet, "前置条件不满足")
	ErrUnknownItem           = errx.NewBiz(CodeUnknownItem, "未知条目")
	ErrAttackRejected        = errx.NewBiz(CodeAttackRejected, "攻击被拒绝")
	ErrMaxLevel              = errx.NewBiz(CodeMaxLevel, "已达最高等级")
	ErrQuestClaimed          = errx.NewBiz(CodeQuestClaimed, "奖励已领取")
	ErrInvalidParam          = errx.ErrInvalidParam
	ErrInternalServer        = errx.ErrInternal
	ErrUnavailable           = errx.ErrUnavailable
)
