package handler

import (
	"context"
	"time"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/combat"
	"Vikings/internal/mission/entity"
	"Vikings/internal/shared/gameconfig/catalog"
	"Vikings/modules/kit/logx"
)

const defaultCallTimeout = 5 * time.Second

// Deps 各玩家会话共享的依赖。
type Deps struct {
	Catalog   *catalog.Catalog
	Resolver  *combat.Resolver
	World     port.WorldStore
	Clans     port.ClanStore
	Authority port.Authority
	Defenders port.DefenderFetcher
	Notifier  port.Notifier
	Reports   port.ReportSink
	Log       logx.Logger
	Now       func() time.Time
	// QuestRand 生成每日/每周任务，为空时按时间播种
	QuestRand combat.Rand
	// CallTimeout 单次远端调用的超时
	CallTimeout time.Duration
}

// Env 结算时的上下文：一个玩家的状态加上共享依赖。
type Env struct {
	Deps
	Player *entity.PlayerState
}

func NewEnv(deps Deps, player *entity.PlayerState) *Env {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = logx.Nop()
	}
	if deps.CallTimeout <= 0 {
		deps.CallTimeout = defaultCallTimeout
	}
	if deps.QuestRand == nil {
		deps.QuestRand = combat.NewRand(time.Now().UnixNano())
	}
	return &Env{Deps: deps, Player: player}
}

func (e *Env) nowMs() int64 {
	return e.Now().UnixMilli()
}

func (e *Env) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.CallTimeout)
}

func (e *Env) Notify(level port.NotifyLevel, timerID int64, msg string) {
	if e.Notifier == nil {
		return
	}
	e.Notifier.Notify(e.Player.Username(), port.Notification{
		Level:   level,
		Message: msg,
		TimerID: timerID,
		At:      e.nowMs(),
	})
}

// RefreshQuests 到期的任务整批换新并通知。
func (e *Env) RefreshQuests() {
	daily, weekly := e.Player.RefreshQuests(e.nowMs(), e.QuestRand)
	if daily {
		e.Notify(port.NotifySuccess, 0, "新的每日任务已刷新")
	}
	if weekly {
		e.Notify(port.NotifySuccess, 0, "新的每周任务已刷新")
	}
}

// QuestEvent 推进任务进度，刚完成的任务单独通知。
func (e *Env) QuestEvent(kind entity.QuestKind, amount, timerID int64) {
	for _, q := range e.Player.QuestProgress(kind, amount) {
		e.Notify(port.NotifySuccess, timerID, "任务完成："+q.Title)
	}
}
