package domain

import (
	"errors"
	"fmt"
)

type TimerKind string

const (
	TimerBuilding TimerKind = "building"
	TimerUnit     TimerKind = "unit"
	TimerResearch TimerKind = "research"
	TimerMission  TimerKind = "mission"
)

type MissionType string

const (
	MissionAttack         MissionType = "attack"
	MissionConquest       MissionType = "conquest"
	MissionGather         MissionType = "gather"
	MissionFortressAttack MissionType = "fortress_attack"
)

var ErrMalformedTimer = errors.New("malformed timer")

// Timer 一个定时任务。创建后只会被触发一次，不会重新排期。
type Timer struct {
	ID        int64
	StartTime int64 // epoch ms
	EndTime   int64 // epoch ms，>= StartTime
	Desc      string
	Payload   Payload
}

func (t *Timer) Kind() TimerKind {
	if t == nil || t.Payload == nil {
		return ""
	}
	return t.Payload.TimerKind()
}

// Mission 非任务类定时器返回空。
func (t *Timer) Mission() MissionType {
	if t == nil || t.Payload == nil {
		return ""
	}
	return t.Payload.MissionType()
}

// Route 用于选择结算处理器：任务类为 subtype，其余为 kind。
func (t *Timer) Route() string {
	if m := t.Mission(); m != "" {
		return string(m)
	}
	return string(t.Kind())
}

func (t *Timer) Validate() error {
	if t == nil || t.Payload == nil {
		return fmt.Errorf("%w: empty payload", ErrMalformedTimer)
	}
	if t.EndTime < t.StartTime {
		return fmt.Errorf("%w: endTime %d before startTime %d", ErrMalformedTimer, t.EndTime, t.StartTime)
	}
	return t.Payload.validate()
}

// Payload 按 kind/subtype 区分的负载，只能是本包定义的几种。
type Payload interface {
	TimerKind() TimerKind
	MissionType() MissionType
	validate() error
}

type BuildingJob struct {
	Building string
}

type TrainingJob struct {
	Unit   string
	Amount int64
}

type ResearchJob struct {
	Tech string
}

// March 出征部队：Units 在创建定时器前已经从来源（城市或要塞）扣除。
type March struct {
	Units  Army
	Origin Coord
	Target Coord
}

type AttackMission struct {
	March
	Resolution Resolution
}

type ConquestMission struct {
	March
}

type GatherMission struct {
	March
	Resource Resource
	Cargo    int64
}

type FortressAttackMission struct {
	March
	ClanID     string
	Resolution Resolution
}

func (BuildingJob) TimerKind() TimerKind           { return TimerBuilding }
func (TrainingJob) TimerKind() TimerKind           { return TimerUnit }
func (ResearchJob) TimerKind() TimerKind           { return TimerResearch }
func (AttackMission) TimerKind() TimerKind         { return TimerMission }
func (ConquestMission) TimerKind() TimerKind       { return TimerMission }
func (GatherMission) TimerKind() TimerKind         { return TimerMission }
func (FortressAttackMission) TimerKind() TimerKind { return TimerMission }

func (BuildingJob) MissionType() MissionType           { return "" }
func (TrainingJob) MissionType() MissionType           { return "" }
func (ResearchJob) MissionType() MissionType           { return "" }
func (AttackMission) MissionType() MissionType         { return MissionAttack }
func (ConquestMission) MissionType() MissionType       { return MissionConquest }
func (GatherMission) MissionType() MissionType         { return MissionGather }
func (FortressAttackMission) MissionType() MissionType { return MissionFortressAttack }

func (p BuildingJob) validate() error {
	if p.Building == "" {
		return fmt.Errorf("%w: building key missing", ErrMalformedTimer)
	}
	return nil
}

func (p TrainingJob) validate() error {
	if p.Unit == "" || p.Amount <= 0 {
		return fmt.Errorf("%w: unit job needs unit and positive amount", ErrMalformedTimer)
	}
	return nil
}

func (p ResearchJob) validate() error {
	if p.Tech == "" {
		return fmt.Errorf("%w: research tech missing", ErrMalformedTimer)
	}
	return nil
}

func (m March) validate() error {
	if len(m.Units) == 0 || m.Units.Total() <= 0 {
		return fmt.Errorf("%w: mission without units", ErrMalformedTimer)
	}
	if err := m.Units.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedTimer, err)
	}
	return nil
}

func (p AttackMission) validate() error {
	if err := p.March.validate(); err != nil {
		return err
	}
	return validateResolution(p.Resolution)
}

func (p ConquestMission) validate() error {
	return p.March.validate()
}

func (p GatherMission) validate() error {
	if err := p.March.validate(); err != nil {
		return err
	}
	if p.Resource == "" || p.Cargo < 0 {
		return fmt.Errorf("%w: gather needs resource and cargo", ErrMalformedTimer)
	}
	return nil
}

func (p FortressAttackMission) validate() error {
	if err := p.March.validate(); err != nil {
		return err
	}
	if p.ClanID == "" {
		return fmt.Errorf("%w: fortress attack without clan", ErrMalformedTimer)
	}
	return validateResolution(p.Resolution)
}

// Resolution 任务结果的来源：
// Pending 到点本地计算；PreComputed 提交时权威方已结算；DeferredRequest 到点再请求权威方。
type Resolution interface {
	Strategy() string
}

type Pending struct{}

type PreComputed struct {
	Result AuthorityResult
}

type DeferredRequest struct {
	Params AttackParams
}

func (Pending) Strategy() string         { return "pending" }
func (PreComputed) Strategy() string     { return "precomputed" }
func (DeferredRequest) Strategy() string { return "deferred" }

func validateResolution(r Resolution) error {
	switch v := r.(type) {
	case nil:
		return fmt.Errorf("%w: resolution missing", ErrMalformedTimer)
	case Pending, PreComputed:
		return nil
	case DeferredRequest:
		if v.Params.Attacker == "" || len(v.Params.Troops) == 0 {
			return fmt.Errorf("%w: deferred request without params", ErrMalformedTimer)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown resolution %T", ErrMalformedTimer, r)
	}
}
