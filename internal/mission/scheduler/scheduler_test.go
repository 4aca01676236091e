package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"Vikings/internal/mission/entity/domain"
)

type seqIDs struct{ n int64 }

func (s *seqIDs) NextID() int64 {
	s.n++
	return s.n
}

type recorder struct {
	fired []int64
	fail  map[int64]error
	panic map[int64]bool
}

func (r *recorder) Handle(ctx context.Context, t *domain.Timer) error {
	r.fired = append(r.fired, t.ID)
	if r.panic[t.ID] {
		panic("boom")
	}
	return r.fail[t.ID]
}

func buildTimer(end int64) *domain.Timer {
	return &domain.Timer{StartTime: 0, EndTime: end, Payload: domain.ResearchJob{Tech: "weaponry"}}
}

func TestProcessTimers_只触发到期定时器且按到期顺序(t *testing.T) {
	rec := &recorder{}
	s := New(rec, &seqIDs{})
	for _, end := range []int64{3000, 1000, 2000, 9000} {
		if err := s.Schedule(buildTimer(end)); err != nil {
			t.Fatalf("err=%v", err)
		}
	}
	rep := s.ProcessTimers(context.Background(), 3000)
	if rep.Fired != 3 {
		t.Fatalf("期望触发 3 个, got=%d", rep.Fired)
	}
	want := []int64{2, 3, 1}
	for i, id := range want {
		if rec.fired[i] != id {
			t.Fatalf("触发顺序错误, got=%v", rec.fired)
		}
	}
	if s.Len() != 1 {
		t.Fatalf("期望剩 1 个, got=%d", s.Len())
	}
}

func TestProcessTimers_同一定时器只触发一次(t *testing.T) {
	rec := &recorder{}
	s := New(rec, &seqIDs{})
	_ = s.Schedule(buildTimer(1000))
	before := s.Snapshot()

	s.ProcessTimers(context.Background(), 5000)
	s.ProcessTimers(context.Background(), 5000)
	s.ProcessTimers(context.Background(), 6000)

	if len(rec.fired) != 1 {
		t.Fatalf("期望只触发一次, got=%d", len(rec.fired))
	}
	if len(before) != 1 || len(s.Snapshot()) != 0 {
		t.Fatalf("快照前后不符, before=%d after=%d", len(before), len(s.Snapshot()))
	}
}

func TestProcessTimers_失败与panic被隔离(t *testing.T) {
	rec := &recorder{
		fail:  map[int64]error{1: errors.New("authority down")},
		panic: map[int64]bool{2: true},
	}
	var sunk []int64
	s := New(rec, &seqIDs{}, WithErrorSink(func(t *domain.Timer, err error) {
		sunk = append(sunk, t.ID)
	}))
	for i := 0; i < 3; i++ {
		_ = s.Schedule(buildTimer(int64(100 * (i + 1))))
	}

	rep := s.ProcessTimers(context.Background(), 1000)
	if rep.Fired != 3 || len(rep.Failed) != 2 {
		t.Fatalf("期望 3 个触发 2 个失败, got fired=%d failed=%d", rep.Fired, len(rep.Failed))
	}
	if len(sunk) != 2 || s.Len() != 0 {
		t.Fatalf("失败应上报且不重试, sunk=%v len=%d", sunk, s.Len())
	}
}

func TestSchedule_拒绝坏定时器和重复id(t *testing.T) {
	s := New(&recorder{}, &seqIDs{})
	bad := &domain.Timer{StartTime: 10, EndTime: 5, Payload: domain.ResearchJob{Tech: "x"}}
	if err := s.Schedule(bad); !errors.Is(err, domain.ErrMalformedTimer) {
		t.Fatalf("期望 ErrMalformedTimer, got=%v", err)
	}
	miss := &domain.Timer{EndTime: 5, Payload: domain.AttackMission{Resolution: domain.Pending{}}}
	if err := s.Schedule(miss); !errors.Is(err, domain.ErrMalformedTimer) {
		t.Fatalf("没有 units 的任务应拒绝, got=%v", err)
	}
	ok := buildTimer(5)
	ok.ID = 7
	if err := s.Schedule(ok); err != nil {
		t.Fatalf("err=%v", err)
	}
	dup := buildTimer(6)
	dup.ID = 7
	if err := s.Schedule(dup); !errors.Is(err, ErrDuplicateTimer) {
		t.Fatalf("期望 ErrDuplicateTimer, got=%v", err)
	}
}

func TestSnapshotRestore_在途定时器无损恢复(t *testing.T) {
	s := New(&recorder{}, &seqIDs{})
	_ = s.Schedule(&domain.Timer{EndTime: 50, Payload: domain.GatherMission{
		March:    domain.March{Units: domain.Army{"spearman": 3}, Target: domain.Coord{X: 2, Y: 2}},
		Resource: "wood", Cargo: 60,
	}})
	_ = s.Schedule(buildTimer(20))

	recs := s.Snapshot()
	recs = append(recs, domain.TimerRecord{Type: domain.TimerMission, Subtype: domain.MissionGather, EndTime: 1})

	restored := New(&recorder{}, &seqIDs{n: 100})
	errs := restored.Restore(recs)
	if len(errs) != 1 {
		t.Fatalf("期望跳过 1 条坏记录, got=%v", errs)
	}
	if fmt.Sprint(restored.Snapshot()) != fmt.Sprint(s.Snapshot()) {
		t.Fatalf("恢复后不一致\n%v\n%v", restored.Snapshot(), s.Snapshot())
	}
	if due, ok := restored.NextDue(); !ok || due != 20 {
		t.Fatalf("NextDue=%d ok=%v", due, ok)
	}
}

type memLedger struct {
	applied map[int64]bool
}

func (m *memLedger) Applied(ctx context.Context, id int64) (bool, error) { return m.applied[id], nil }
func (m *memLedger) MarkApplied(ctx context.Context, id int64) error {
	m.applied[id] = true
	return nil
}

func TestProcessTimers_配置Ledger后可重试(t *testing.T) {
	calls := 0
	h := HandlerFunc(func(ctx context.Context, tm *domain.Timer) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("authority timeout: %w", ErrRetry)
		}
		return nil
	})
	l := &memLedger{applied: map[int64]bool{}}
	s := New(h, &seqIDs{}, WithLedger(l))
	_ = s.Schedule(buildTimer(10))

	rep := s.ProcessTimers(context.Background(), 100)
	if rep.Retried != 1 || s.Len() != 1 {
		t.Fatalf("第一次应放回重试, rep=%+v len=%d", rep, s.Len())
	}
	s.ProcessTimers(context.Background(), 200)
	if calls != 2 || s.Len() != 0 || !l.applied[1] {
		t.Fatalf("第二次应成功并记账, calls=%d len=%d", calls, s.Len())
	}
}

func TestProcessTimers_无Ledger时ErrRetry也不重试(t *testing.T) {
	h := HandlerFunc(func(ctx context.Context, tm *domain.Timer) error { return ErrRetry })
	s := New(h, &seqIDs{})
	_ = s.Schedule(buildTimer(10))
	rep := s.ProcessTimers(context.Background(), 100)
	if len(rep.Failed) != 1 || s.Len() != 0 {
		t.Fatalf("最多一次语义下不应放回, rep=%+v", rep)
	}
}
