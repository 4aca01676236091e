package actors

import (
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"Vikings/internal/mission/app"
	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/handler"
	"Vikings/internal/mission/scheduler"
	"Vikings/internal/shared/actor/messages"
	"Vikings/modules/kit/logx"
)

// Deps 玩家 actor 共享的依赖。
type Deps struct {
	Repo    port.StateRepository
	Handler handler.Deps
	Service *app.MissionService
	IDs     scheduler.IDSource
	Log     logx.Logger
	// Tick 生产与定时器检查的间隔
	Tick time.Duration
	// FlushEvery 为 0 时使用 dc 的默认值
	FlushEvery time.Duration
}

// ManagerActor 按用户名路由到玩家 actor，没有就创建。
type ManagerActor struct {
	deps         Deps
	playerActors map[string]*actor.PID
}

func NewManagerActor(deps Deps) *ManagerActor {
	return &ManagerActor{
		deps:         deps,
		playerActors: make(map[string]*actor.PID),
	}
}

func (m *ManagerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Terminated:
		for name, pid := range m.playerActors {
			if pid.Equal(msg.Who) {
				delete(m.playerActors, name)
			}
		}
	case messages.PlayerMessage:
		if msg.Username() == "" {
			if ctx.Sender() != nil {
				ctx.Respond(messages.Reply{Err: app.ErrInvalidParam.WithData("reason", "username 为空")})
			}
			return
		}
		ctx.Forward(m.getOrSpawn(ctx, msg.Username()))
	}
}

func (m *ManagerActor) getOrSpawn(ctx actor.Context, username string) *actor.PID {
	if pid, ok := m.playerActors[username]; ok && pid != nil {
		return pid
	}
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewPlayerActor(username, m.deps)
	})
	pid := ctx.Spawn(props)
	m.playerActors[username] = pid
	return pid
}
