package actors

import (
	"context"
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"

	"Vikings/internal/mission/app"
	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/dc"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/mission/handler"
	"Vikings/internal/mission/scheduler"
	"Vikings/internal/shared/actor/messages"
	"Vikings/modules/kit/logx"
)

type State int

const (
	None State = iota
	Init
	Online
	Offline
	Stopping
)

const (
	defaultTick = time.Second
	// territoryRefresh 领地列表每隔多少次 tick 重新读取
	territoryRefresh = 30
	loadTimeout      = 5 * time.Second
)

// PlayerActor 串行处理一个玩家的全部提交、生产与定时器结算。
type PlayerActor struct {
	state      State
	username   string
	deps       Deps
	log        logx.Logger
	dc         *dc.PlayerDC
	session    *app.Session
	dispatcher *Dispatcher

	territories []domain.MapEntity
	ticks       int
	lastFlush   time.Time
	tickStop    chan struct{}
}

type gameTick struct{}

func (gameTick) NotInfluenceReceiveTimeout() {}

func NewPlayerActor(username string, deps Deps) *PlayerActor {
	log := deps.Log
	if log == nil {
		log = logx.Nop()
	}
	return &PlayerActor{
		state:      None,
		username:   username,
		deps:       deps,
		log:        log,
		dc:         dc.NewPlayerDC(deps.Repo, log),
		dispatcher: NewDispatcher(),
	}
}

func (p *PlayerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		p.state = Init
		p.init(ctx)
	case *actor.Stopping:
		p.stopTickLoop()
		closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := p.dc.Close(closeCtx); err != nil {
			p.log.Error("player dc close failed", zap.String("username", p.username), zap.Error(err))
		}
		p.state = Stopping
	case *actor.Stopped:
		p.stopTickLoop()
		p.state = Offline
	case *actor.Restarting:
		p.stopTickLoop()
		p.state = Init
	case gameTick:
		if p.state != Online {
			return
		}
		p.tick()
	case messages.PlayerMessage:
		if p.state != Online {
			if ctx.Sender() != nil {
				ctx.Respond(messages.Reply{Err: app.ErrUnavailable.WithData("reason", "player not online")})
			}
			return
		}
		p.dispatcher.Dispatch(ctx, p, msg)
	}
}

func (p *PlayerActor) init(ctx actor.Context) {
	loadCtx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	player, timers, err := p.load(loadCtx)
	if err != nil {
		p.log.Error("player load failed", zap.String("username", p.username), zap.Error(err))
		p.state = Stopping
		ctx.Stop(ctx.Self())
		return
	}
	env := handler.NewEnv(p.deps.Handler, player)
	sched := scheduler.New(handler.NewRegistry(env), p.deps.IDs,
		scheduler.WithLogger(p.log),
		scheduler.WithErrorSink(p.onTimerError(env)),
	)
	for _, err := range sched.Restore(timers) {
		p.log.Warn("skip malformed timer record", zap.String("username", p.username), zap.Error(err))
	}
	p.session = &app.Session{Env: env, Timers: sched}
	p.dc.Attach(player, sched)
	p.refreshTerritories(loadCtx)
	p.state = Online
	p.lastFlush = time.Now()
	p.startTickLoop(ctx)
	// 加载期间离线的时间一次补齐
	p.tick()
}

// load 读取快照；新玩家分配城市并立即落库。
func (p *PlayerActor) load(ctx context.Context) (*entity.PlayerState, []domain.TimerRecord, error) {
	snap, err := p.dc.Load(ctx, p.username)
	if err != nil {
		return nil, nil, err
	}
	var player *entity.PlayerState
	var timers []domain.TimerRecord
	if snap != nil {
		player = entity.FromSnapshot(snap)
		timers = snap.Timers
	} else {
		home, err := p.deps.Handler.World.ClaimHome(ctx, p.username)
		if err != nil {
			return nil, nil, err
		}
		player = entity.NewPlayerState(p.username, home)
	}
	if clans := p.deps.Handler.Clans; clans != nil {
		if c, err := clans.ClanOf(ctx, p.username); err == nil {
			player.SetClan(c.ID)
		}
	}
	if snap == nil {
		p.dc.Attach(player, nil)
		if err := p.dc.FlushSync(ctx); err != nil {
			return nil, nil, err
		}
	}
	return player, timers, nil
}

// onTimerError 已经退还并通知过的失败不再重复提示。
func (p *PlayerActor) onTimerError(env *handler.Env) scheduler.ErrorSink {
	return func(t *domain.Timer, err error) {
		if errors.Is(err, handler.ErrRefunded) {
			return
		}
		env.Notify(port.NotifyError, t.ID, "任务结算失败："+t.Desc)
	}
}

func (p *PlayerActor) tick() {
	env := p.session.Env
	now := env.Now()
	p.ticks++
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	if p.ticks%territoryRefresh == 0 {
		p.refreshTerritories(ctx)
	}

	env.Player.Produce(env.Catalog, now.UnixMilli(), p.territories)
	env.RefreshQuests()
	rep := p.session.Timers.ProcessTimers(ctx, now.UnixMilli())
	if rep.Fired > 0 {
		// 占领、升级都可能改变领地
		p.refreshTerritories(ctx)
	}
	if now.Sub(p.lastFlush) >= p.flushEvery() {
		p.dc.Flush()
		p.lastFlush = now
	}
}

func (p *PlayerActor) refreshTerritories(ctx context.Context) {
	owned, err := p.deps.Handler.World.Owned(ctx, p.username)
	if err != nil {
		p.log.Warn("load territories failed", zap.String("username", p.username), zap.Error(err))
		return
	}
	p.territories = owned
}

func (p *PlayerActor) flushEvery() time.Duration {
	if p.deps.FlushEvery > 0 {
		return p.deps.FlushEvery
	}
	return p.dc.FlushEvery()
}

func (p *PlayerActor) Session() *app.Session {
	return p.session
}

func (p *PlayerActor) startTickLoop(ctx actor.Context) {
	if p.tickStop != nil {
		return
	}
	every := p.deps.Tick
	if every <= 0 {
		every = defaultTick
	}
	p.tickStop = make(chan struct{})
	self := ctx.Self()
	root := ctx.ActorSystem().Root

	go func(stop <-chan struct{}) {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				root.Send(self, gameTick{})
			case <-stop:
				return
			}
		}
	}(p.tickStop)
}

func (p *PlayerActor) stopTickLoop() {
	if p.tickStop == nil {
		return
	}
	close(p.tickStop)
	p.tickStop = nil
}
