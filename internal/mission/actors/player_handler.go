package actors

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"Vikings/internal/mission/app"
	"Vikings/internal/mission/app/model"
	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/shared/actor/messages"
)

// requestTimeout 一次玩家请求内所有远端调用的总时限
const requestTimeout = 10 * time.Second

type PlayerHandler struct{}

var PH = &PlayerHandler{}

func reply(ctx actor.Context, v any, err error) {
	if ctx.Sender() == nil {
		return
	}
	ctx.Respond(messages.Reply{Value: v, Err: err})
}

func (h *PlayerHandler) HandleSendMission(ctx actor.Context, p *PlayerActor, req messages.SendMission) {
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	svc, s := p.deps.Service, p.session
	var send func(context.Context, *app.Session, model.MissionReq) (*model.TimerView, error)
	switch req.Mission {
	case domain.MissionAttack:
		send = svc.SendAttack
	case domain.MissionConquest:
		send = svc.SendConquest
	case domain.MissionGather:
		send = svc.SendGather
	case domain.MissionFortressAttack:
		send = svc.SendFortressAttack
	default:
		reply(ctx, nil, app.ErrInvalidParam.WithData("mission", string(req.Mission)))
		return
	}
	v, err := send(c, s, req.Req)
	replyView(ctx, v, err)
}

func (h *PlayerHandler) HandleTrain(ctx actor.Context, p *PlayerActor, req messages.Train) {
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	v, err := p.deps.Service.Train(c, p.session, req.Req)
	replyView(ctx, v, err)
}

func (h *PlayerHandler) HandleBuild(ctx actor.Context, p *PlayerActor, req messages.Build) {
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	v, err := p.deps.Service.Build(c, p.session, req.Req)
	replyView(ctx, v, err)
}

func (h *PlayerHandler) HandleResearch(ctx actor.Context, p *PlayerActor, req messages.Research) {
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	v, err := p.deps.Service.Research(c, p.session, req.Req)
	replyView(ctx, v, err)
}

func (h *PlayerHandler) HandleUpgradeTerritory(ctx actor.Context, p *PlayerActor, req messages.UpgradeTerritory) {
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	level, err := p.deps.Service.UpgradeTerritory(c, p.session, req.Req)
	if err == nil {
		p.refreshTerritories(c)
	}
	reply(ctx, level, err)
}

func (h *PlayerHandler) HandleQueryState(ctx actor.Context, p *PlayerActor, req messages.QueryState) {
	reply(ctx, p.deps.Service.State(p.session), nil)
}

func (h *PlayerHandler) HandleQueryTimers(ctx actor.Context, p *PlayerActor, req messages.QueryTimers) {
	reply(ctx, p.deps.Service.Timers(p.session), nil)
}

func (h *PlayerHandler) HandleQueryQuests(ctx actor.Context, p *PlayerActor, req messages.QueryQuests) {
	reply(ctx, p.deps.Service.Quests(p.session), nil)
}

func (h *PlayerHandler) HandleClaimQuest(ctx actor.Context, p *PlayerActor, req messages.ClaimQuest) {
	v, err := p.deps.Service.ClaimQuest(context.Background(), p.session, req.Req)
	replyView(ctx, v, err)
}

func (h *PlayerHandler) HandleApplyHoldings(ctx actor.Context, p *PlayerActor, req messages.ApplyHoldings) {
	if !p.session.Env.Player.ApplyExternal(req.Army, req.Resources) {
		reply(ctx, nil, port.ErrInsufficient)
		return
	}
	reply(ctx, nil, nil)
}

// replyView 回复值类型，避免 nil 指针装进接口。
func replyView[T any](ctx actor.Context, v *T, err error) {
	if err != nil || v == nil {
		reply(ctx, nil, err)
		return
	}
	reply(ctx, *v, nil)
}
