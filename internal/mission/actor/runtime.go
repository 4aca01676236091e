package actor

import (
	"context"
	"errors"
	"time"

	protoactor "github.com/asynkron/protoactor-go/actor"

	"Vikings/internal/mission/actors"
	"Vikings/internal/mission/app/model"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/shared/actor/messages"
	"Vikings/modules/kit/errx"
)

const defaultAskTimeout = 10 * time.Second

var errNotStarted = errx.ErrInternal.WithMsg("actor runtime 未初始化")

// Runtime 对外暴露的玩家 actor 入口，所有状态修改都经它进入 actor。
type Runtime struct {
	system  *protoactor.ActorSystem
	root    *protoactor.RootContext
	manager *protoactor.PID
	timeout time.Duration
}

func NewRuntime(deps actors.Deps, askTimeout time.Duration) *Runtime {
	if askTimeout <= 0 {
		askTimeout = defaultAskTimeout
	}
	system := protoactor.NewActorSystem()
	root := system.Root
	managerProps := protoactor.PropsFromProducer(func() protoactor.Actor {
		return actors.NewManagerActor(deps)
	})
	manager := root.Spawn(managerProps)

	return &Runtime{
		system:  system,
		root:    root,
		manager: manager,
		timeout: askTimeout,
	}
}

func (r *Runtime) Shutdown() {
	if r == nil {
		return
	}
	if r.root != nil && r.manager != nil {
		// 等子 actor 落盘
		_ = r.root.StopFuture(r.manager).Wait()
	}
	if r.system != nil {
		r.system.Shutdown()
	}
}

// Ask 发送请求并等待回复，业务错误原样返回。
func (r *Runtime) Ask(ctx context.Context, msg messages.PlayerMessage) (any, error) {
	if r == nil || r.root == nil {
		return nil, errNotStarted
	}
	future := r.root.RequestFuture(r.manager, msg, r.timeoutFromContext(ctx))
	res, err := future.Result()
	if errors.Is(err, protoactor.ErrTimeout) {
		return nil, errx.ErrTimeout.WithCause(err)
	}
	if err != nil {
		return nil, errx.ErrInternal.WithMsg("actor 请求失败").WithCause(err)
	}
	rep, ok := res.(messages.Reply)
	if !ok {
		return nil, errx.ErrInternal.WithMsg("actor 返回类型非法")
	}
	return rep.Value, rep.Err
}

func (r *Runtime) timeoutFromContext(ctx context.Context) time.Duration {
	if r == nil || r.timeout <= 0 {
		return defaultAskTimeout
	}
	if ctx == nil {
		return r.timeout
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return r.timeout
	}
	remain := time.Until(deadline)
	if remain <= 0 {
		return time.Millisecond
	}
	if remain < r.timeout {
		return remain
	}
	return r.timeout
}

func (r *Runtime) SendMission(ctx context.Context, user string, mission domain.MissionType, req model.MissionReq) (model.TimerView, error) {
	return askAs[model.TimerView](r, ctx, messages.SendMission{PlayerBase: base(user), Mission: mission, Req: req})
}

func (r *Runtime) Train(ctx context.Context, user string, req model.TrainReq) (model.TimerView, error) {
	return askAs[model.TimerView](r, ctx, messages.Train{PlayerBase: base(user), Req: req})
}

func (r *Runtime) Build(ctx context.Context, user string, req model.BuildReq) (model.TimerView, error) {
	return askAs[model.TimerView](r, ctx, messages.Build{PlayerBase: base(user), Req: req})
}

func (r *Runtime) Research(ctx context.Context, user string, req model.ResearchReq) (model.TimerView, error) {
	return askAs[model.TimerView](r, ctx, messages.Research{PlayerBase: base(user), Req: req})
}

func (r *Runtime) UpgradeTerritory(ctx context.Context, user string, req model.TerritoryUpgradeReq) (int, error) {
	return askAs[int](r, ctx, messages.UpgradeTerritory{PlayerBase: base(user), Req: req})
}

func (r *Runtime) State(ctx context.Context, user string) (model.StateView, error) {
	return askAs[model.StateView](r, ctx, messages.QueryState{PlayerBase: base(user)})
}

func (r *Runtime) Timers(ctx context.Context, user string) ([]model.TimerView, error) {
	return askAs[[]model.TimerView](r, ctx, messages.QueryTimers{PlayerBase: base(user)})
}

func (r *Runtime) Quests(ctx context.Context, user string) (entity.QuestBoard, error) {
	return askAs[entity.QuestBoard](r, ctx, messages.QueryQuests{PlayerBase: base(user)})
}

func (r *Runtime) ClaimQuest(ctx context.Context, user string, req model.QuestClaimReq) (model.QuestClaimView, error) {
	return askAs[model.QuestClaimView](r, ctx, messages.ClaimQuest{PlayerBase: base(user), Req: req})
}

func askAs[T any](r *Runtime, ctx context.Context, msg messages.PlayerMessage) (T, error) {
	var zero T
	v, err := r.Ask(ctx, msg)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, errx.ErrInternal.WithMsg("actor 返回类型非法")
	}
	return out, nil
}

func base(user string) messages.PlayerBase {
	return messages.PlayerBase{User: user}
}
