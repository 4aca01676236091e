package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"Vikings/internal/mission/entity/domain"
	"Vikings/modules/kit/logx"
)

// Handler 定时器到点后的结算。
type Handler interface {
	Handle(ctx context.Context, t *domain.Timer) error
}

type HandlerFunc func(ctx context.Context, t *domain.Timer) error

func (f HandlerFunc) Handle(ctx context.Context, t *domain.Timer) error { return f(ctx, t) }

// ErrorSink 接收单个定时器的失败，通常转成用户通知。
type ErrorSink func(t *domain.Timer, err error)

// IDSource 定时器 id 生成器。
type IDSource interface {
	NextID() int64
}

// Ledger 记录已经结算过的定时器。配置后失败可重试（至少一次），
// 处理器需要幂等；不配置时先出堆再执行，最多一次。
type Ledger interface {
	Applied(ctx context.Context, id int64) (bool, error)
	MarkApplied(ctx context.Context, id int64) error
}

// ErrRetry 包装后的错误在配置了 Ledger 时会让定时器下个 tick 重试。
var ErrRetry = errors.New("retry later")

var ErrDuplicateTimer = errors.New("duplicate timer id")

// FireError 单个定时器的失败。
type FireError struct {
	TimerID int64
	Route   string
	Err     error
}

func (e FireError) Error() string {
	return fmt.Sprintf("timer %d (%s): %v", e.TimerID, e.Route, e.Err)
}

func (e FireError) Unwrap() error { return e.Err }

// Report 一次 ProcessTimers 的结果。
type Report struct {
	Fired   int
	Retried int
	Failed  []FireError
}

// Scheduler 单个玩家的定时器集合。非并发安全，只由所属 actor 调用。
type Scheduler struct {
	h       timerHeap
	ids     map[int64]struct{}
	handler Handler
	idGen   IDSource
	onError ErrorSink
	ledger  Ledger
	log     logx.Logger
	dirty   bool
}

type Option func(*Scheduler)

func WithErrorSink(sink ErrorSink) Option {
	return func(s *Scheduler) { s.onError = sink }
}

func WithLedger(l Ledger) Option {
	return func(s *Scheduler) { s.ledger = l }
}

func WithLogger(l logx.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

func New(handler Handler, idGen IDSource, opts ...Option) *Scheduler {
	s := &Scheduler{
		ids:     make(map[int64]struct{}),
		handler: handler,
		idGen:   idGen,
		log:     logx.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule 加入一个定时器；ID 为 0 时自动分配。
func (s *Scheduler) Schedule(t *domain.Timer) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == 0 {
		t.ID = s.nextID()
	}
	if _, ok := s.ids[t.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateTimer, t.ID)
	}
	s.ids[t.ID] = struct{}{}
	heap.Push(&s.h, t)
	s.dirty = true
	return nil
}

var fallbackSeq atomic.Int64

func (s *Scheduler) nextID() int64 {
	if s.idGen != nil {
		return s.idGen.NextID()
	}
	return fallbackSeq.Add(1)
}

// ProcessTimers 弹出所有 EndTime <= now 的定时器并逐个结算。
// 单个定时器出错或 panic 只影响它自己，不会抛出本函数。
func (s *Scheduler) ProcessTimers(ctx context.Context, now int64) Report {
	var rep Report
	var retry []*domain.Timer
	for s.h.Len() > 0 && s.h[0].EndTime <= now {
		t := heap.Pop(&s.h).(*domain.Timer)
		delete(s.ids, t.ID)
		s.dirty = true

		if s.ledger != nil {
			done, err := s.ledger.Applied(ctx, t.ID)
			if err != nil {
				retry = append(retry, t)
				rep.Retried++
				continue
			}
			if done {
				continue
			}
		}

		err := s.fire(ctx, t)
		rep.Fired++
		if err != nil && s.ledger != nil && errors.Is(err, ErrRetry) {
			retry = append(retry, t)
			rep.Retried++
			continue
		}
		if s.ledger != nil {
			if mErr := s.ledger.MarkApplied(ctx, t.ID); mErr != nil {
				s.log.Warn("mark timer applied failed", zap.Int64("timer_id", t.ID), zap.Error(mErr))
			}
		}
		if err != nil {
			fe := FireError{TimerID: t.ID, Route: t.Route(), Err: err}
			rep.Failed = append(rep.Failed, fe)
			s.log.Warn("timer handler failed", zap.Int64("timer_id", t.ID), zap.String("route", fe.Route), zap.Error(err))
			if s.onError != nil {
				s.onError(t, err)
			}
		}
	}
	// 放回去的定时器下个 tick 再处理，避免本轮死循环
	for _, t := range retry {
		s.ids[t.ID] = struct{}{}
		heap.Push(&s.h, t)
	}
	return rep
}

func (s *Scheduler) fire(ctx context.Context, t *domain.Timer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	if s.handler == nil {
		return errors.New("no handler")
	}
	return s.handler.Handle(ctx, t)
}

func (s *Scheduler) Len() int {
	return s.h.Len()
}

// Pending 按到期时间返回在途定时器的副本。
func (s *Scheduler) Pending() []domain.Timer {
	out := make([]domain.Timer, 0, len(s.h))
	for _, t := range s.h {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EndTime != out[j].EndTime {
			return out[i].EndTime < out[j].EndTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// NextDue 最早到期时间，没有定时器时 ok=false。
func (s *Scheduler) NextDue() (int64, bool) {
	if s.h.Len() == 0 {
		return 0, false
	}
	return s.h[0].EndTime, true
}

// Snapshot 导出持久化记录。
func (s *Scheduler) Snapshot() []domain.TimerRecord {
	pending := s.Pending()
	out := make([]domain.TimerRecord, 0, len(pending))
	for i := range pending {
		out = append(out, domain.ToRecord(&pending[i]))
	}
	return out
}

// Restore 载入持久化记录。坏记录跳过并返回错误列表，其余照常恢复。
func (s *Scheduler) Restore(records []domain.TimerRecord) []error {
	var errs []error
	for i, r := range records {
		t, err := r.ToTimer()
		if err == nil {
			err = s.Schedule(t)
		}
		if err != nil {
			s.log.Warn("drop malformed timer record", zap.Int("index", i), zap.Int64("timer_id", r.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
		}
	}
	return errs
}

func (s *Scheduler) Dirty() bool { return s.dirty }

func (s *Scheduler) ClearDirty() { s.dirty = false }
