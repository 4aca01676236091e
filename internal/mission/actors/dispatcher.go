package actors

import (
	"reflect"

	"github.com/asynkron/protoactor-go/actor"

	"Vikings/internal/mission/app"
	"Vikings/internal/shared/actor/messages"
)

type Dispatcher struct {
	handlers map[reflect.Type]Handler
}

type Handler struct {
	fn      reflect.Value
	reqType reflect.Type
}

func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[reflect.Type]Handler),
	}
	d.registerAll()
	return d
}

func (d *Dispatcher) registerAll() {
	register(d, PH.HandleSendMission)
	register(d, PH.HandleTrain)
	register(d, PH.HandleBuild)
	register(d, PH.HandleResearch)
	register(d, PH.HandleUpgradeTerritory)
	register(d, PH.HandleQueryState)
	register(d, PH.HandleQueryTimers)
	register(d, PH.HandleQueryQuests)
	register(d, PH.HandleClaimQuest)
	register(d, PH.HandleApplyHoldings)
}

// register 按请求的具体类型注册，要求是值类型消息。
func register[Req messages.PlayerMessage](
	d *Dispatcher,
	fn func(ctx actor.Context, p *PlayerActor, req Req),
) {
	reqType := reflect.TypeOf((*Req)(nil)).Elem()
	if reqType.Kind() == reflect.Ptr || reqType.Kind() == reflect.Interface {
		panic("dispatcher req type must be a value message")
	}
	if _, ok := d.handlers[reqType]; ok {
		panic("duplicate handler for " + reqType.String())
	}
	d.handlers[reqType] = Handler{
		fn:      reflect.ValueOf(fn),
		reqType: reqType,
	}
}

func (d *Dispatcher) Dispatch(ctx actor.Context, p *PlayerActor, req messages.PlayerMessage) {
	handler, ok := d.handlers[reflect.TypeOf(req)]
	if !ok {
		if ctx.Sender() != nil {
			ctx.Respond(messages.Reply{Err: app.ErrInvalidParam.WithData("reason", "no handler for request")})
		}
		return
	}
	handler.fn.Call([]reflect.Value{
		reflect.ValueOf(ctx),
		reflect.ValueOf(p),
		reflect.ValueOf(req),
	})
}
