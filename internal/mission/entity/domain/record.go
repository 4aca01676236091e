package domain

import "fmt"

// TimerRecord 是定时器的持久化形态，会话结束时仍在途的定时器靠它原样恢复。
type TimerRecord struct {
	ID             int64            `json:"id" bson:"id"`
	Type           TimerKind        `json:"type" bson:"type"`
	Subtype        MissionType      `json:"subtype,omitempty" bson:"subtype,omitempty"`
	StartTime      int64            `json:"startTime" bson:"start_time"`
	EndTime        int64            `json:"endTime" bson:"end_time"`
	Desc           string           `json:"desc,omitempty" bson:"desc,omitempty"`
	Key            string           `json:"key,omitempty" bson:"key,omitempty"`
	Unit           string           `json:"unit,omitempty" bson:"unit,omitempty"`
	Amount         int64            `json:"amount,omitempty" bson:"amount,omitempty"`
	Tech           string           `json:"tech,omitempty" bson:"tech,omitempty"`
	Units          Army             `json:"units,omitempty" bson:"units,omitempty"`
	TargetKey      string           `json:"targetKey,omitempty" bson:"target_key,omitempty"`
	OriginKey      string           `json:"originKey,omitempty" bson:"origin_key,omitempty"`
	ServerResult   *AuthorityResult `json:"serverResult,omitempty" bson:"server_result,omitempty"`
	DeferredBattle bool             `json:"deferredBattle,omitempty" bson:"deferred_battle,omitempty"`
	AttackParams   *AttackParams    `json:"attackParams,omitempty" bson:"attack_params,omitempty"`
	ResType        Resource         `json:"resType,omitempty" bson:"res_type,omitempty"`
	Cargo          int64            `json:"cargo,omitempty" bson:"cargo,omitempty"`
	ClanID         string           `json:"clanId,omitempty" bson:"clan_id,omitempty"`
}

// ToRecord 把定时器展开为持久化记录。
func ToRecord(t *Timer) TimerRecord {
	r := TimerRecord{
		ID:        t.ID,
		Type:      t.Kind(),
		Subtype:   t.Mission(),
		StartTime: t.StartTime,
		EndTime:   t.EndTime,
		Desc:      t.Desc,
	}
	switch p := t.Payload.(type) {
	case BuildingJob:
		r.Key = p.Building
	case TrainingJob:
		r.Unit, r.Amount = p.Unit, p.Amount
	case ResearchJob:
		r.Tech = p.Tech
	case AttackMission:
		r.fillMarch(p.March)
		r.fillResolution(p.Resolution)
	case ConquestMission:
		r.fillMarch(p.March)
	case GatherMission:
		r.fillMarch(p.March)
		r.ResType, r.Cargo = p.Resource, p.Cargo
	case FortressAttackMission:
		r.fillMarch(p.March)
		r.ClanID = p.ClanID
		r.fillResolution(p.Resolution)
	}
	return r
}

func (r *TimerRecord) fillMarch(m March) {
	r.Units = m.Units.Clone()
	r.TargetKey = m.Target.Key()
	r.OriginKey = m.Origin.Key()
}

func (r *TimerRecord) fillResolution(res Resolution) {
	switch v := res.(type) {
	case PreComputed:
		result := v.Result
		r.ServerResult = &result
	case DeferredRequest:
		params := v.Params
		r.DeferredBattle = true
		r.AttackParams = &params
	}
}

// ToTimer 还原定时器；字段缺失或不自洽时返回 ErrMalformedTimer。
func (r TimerRecord) ToTimer() (*Timer, error) {
	t := &Timer{ID: r.ID, StartTime: r.StartTime, EndTime: r.EndTime, Desc: r.Desc}
	switch r.Type {
	case TimerBuilding:
		t.Payload = BuildingJob{Building: r.Key}
	case TimerUnit:
		t.Payload = TrainingJob{Unit: r.Unit, Amount: r.Amount}
	case TimerResearch:
		t.Payload = ResearchJob{Tech: r.Tech}
	case TimerMission:
		p, err := r.missionPayload()
		if err != nil {
			return nil, err
		}
		t.Payload = p
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedTimer, r.Type)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (r TimerRecord) missionPayload() (Payload, error) {
	march, err := r.march()
	if err != nil {
		return nil, err
	}
	switch r.Subtype {
	case MissionAttack:
		return AttackMission{March: march, Resolution: r.resolution()}, nil
	case MissionConquest:
		return ConquestMission{March: march}, nil
	case MissionGather:
		return GatherMission{March: march, Resource: r.ResType, Cargo: r.Cargo}, nil
	case MissionFortressAttack:
		return FortressAttackMission{March: march, ClanID: r.ClanID, Resolution: r.resolution()}, nil
	default:
		return nil, fmt.Errorf("%w: unknown subtype %q", ErrMalformedTimer, r.Subtype)
	}
}

func (r TimerRecord) march() (March, error) {
	target, err := ParseKey(r.TargetKey)
	if err != nil {
		return March{}, fmt.Errorf("%w: %v", ErrMalformedTimer, err)
	}
	// 旧数据可能没有 originKey，按原点处理
	var origin Coord
	if r.OriginKey != "" {
		if origin, err = ParseKey(r.OriginKey); err != nil {
			return March{}, fmt.Errorf("%w: %v", ErrMalformedTimer, err)
		}
	}
	return March{Units: r.Units.Clone(), Origin: origin, Target: target}, nil
}

func (r TimerRecord) resolution() Resolution {
	switch {
	case r.DeferredBattle && r.AttackParams != nil:
		return DeferredRequest{Params: *r.AttackParams}
	case r.DeferredBattle:
		// 缺少请求参数，交给 validate 拒绝
		return DeferredRequest{}
	case r.ServerResult != nil:
		return PreComputed{Result: *r.ServerResult}
	default:
		return Pending{}
	}
}
