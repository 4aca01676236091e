package dc

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
	"Vikings/modules/kit/logx"
)

const (
	defaultFlushEvery = 3 * time.Second
	retryBackoff      = 200 * time.Millisecond
	writeTimeout      = 5 * time.Second
)

// TimerSource 提供需要随玩家一起落库的在途定时器。
type TimerSource interface {
	Snapshot() []domain.TimerRecord
	Dirty() bool
	ClearDirty()
}

// PlayerDC 玩家状态的内存副本与异步写库。
// actor 内同步生成快照，写库在独立 goroutine 里进行，只保留最新版本。
type PlayerDC struct {
	repo       port.StateRepository
	log        logx.Logger
	player     *entity.PlayerState
	timers     TimerSource
	flushEvery time.Duration

	mu      sync.Mutex
	pending *entity.PlayerSnapshot
	version uint64
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewPlayerDC(repo port.StateRepository, log logx.Logger) *PlayerDC {
	if log == nil {
		log = logx.Nop()
	}
	d := &PlayerDC{
		repo:       repo,
		log:        log,
		flushEvery: defaultFlushEvery,
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go d.writerLoop()
	return d
}

// Load 读取快照；玩家不存在时返回 (nil, nil)。
func (d *PlayerDC) Load(ctx context.Context, username string) (*entity.PlayerSnapshot, error) {
	s, err := d.repo.LoadPlayer(ctx, username)
	if errors.Is(err, entity.ErrPlayerNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	if s.Version > d.version {
		d.version = s.Version
	}
	d.mu.Unlock()
	return s, nil
}

// Attach 绑定要持久化的状态与定时器。
func (d *PlayerDC) Attach(player *entity.PlayerState, timers TimerSource) {
	d.player = player
	d.timers = timers
}

func (d *PlayerDC) IsDirty() bool {
	if d.player == nil {
		return false
	}
	return d.player.Dirty() || (d.timers != nil && d.timers.Dirty())
}

// Flush 脏检查后生成快照并交给写协程。
func (d *PlayerDC) Flush() {
	if !d.IsDirty() {
		return
	}
	if s := d.buildNextSnapshot(); s != nil {
		d.enqueueLatest(s)
	}
}

// FlushSync 立即写库，新玩家落地时使用。
func (d *PlayerDC) FlushSync(ctx context.Context) error {
	s := d.buildNextSnapshot()
	if s == nil {
		return nil
	}
	if err := d.repo.Snapshot(ctx, s); err != nil {
		d.player.MarkDirty()
		return err
	}
	return nil
}

func (d *PlayerDC) FlushEvery() time.Duration {
	return d.flushEvery
}

func (d *PlayerDC) Close(ctx context.Context) error {
	d.Flush()

	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.stop)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *PlayerDC) buildNextSnapshot() *entity.PlayerSnapshot {
	if d.player == nil {
		return nil
	}
	d.mu.Lock()
	d.version++
	version := d.version
	d.mu.Unlock()

	var timers []domain.TimerRecord
	if d.timers != nil {
		timers = d.timers.Snapshot()
		d.timers.ClearDirty()
	}
	s := d.player.BuildPersistSnapshot(version, timers)
	d.player.ClearDirty()
	return s
}

func (d *PlayerDC) enqueueLatest(s *entity.PlayerSnapshot) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if d.pending == nil || d.pending.Version < s.Version {
		d.pending = s
	}
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *PlayerDC) popPending() *entity.PlayerSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.pending
	d.pending = nil
	return s
}

// requeueOnError 关闭后也要重排，否则最后一份快照会丢。
func (d *PlayerDC) requeueOnError(s *entity.PlayerSnapshot) {
	d.mu.Lock()
	if d.pending == nil || d.pending.Version < s.Version {
		d.pending = s
	}
	d.mu.Unlock()
}

func (d *PlayerDC) writerLoop() {
	defer close(d.done)

	for {
		select {
		case <-d.wake:
			d.consumePending(false)
		case <-d.stop:
			d.consumePending(true)
			return
		}
	}
}

// consumePending 写库失败时退避重试；final 为 true 时最多再试几次。
func (d *PlayerDC) consumePending(final bool) {
	attempts := 0
	for {
		s := d.popPending()
		if s == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := d.repo.Snapshot(ctx, s)
		cancel()
		if err == nil || errors.Is(err, port.ErrConflict) {
			attempts = 0
			continue
		}
		attempts++
		d.log.Warn("player snapshot write failed",
			zap.String("username", s.Username),
			zap.Uint64("version", s.Version),
			zap.Int("attempt", attempts),
			zap.Error(err),
		)
		if final && attempts >= 3 {
			d.log.Error("player snapshot dropped on close", zap.String("username", s.Username), zap.Uint64("version", s.Version))
			return
		}
		d.requeueOnError(s)
		select {
		case <-time.After(retryBackoff):
		case <-d.stop:
			final = true
		}
	}
}
