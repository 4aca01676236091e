package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"Vikings/internal/mission/app/model"
	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/mission/handler"
	"Vikings/internal/mission/scheduler"
	"Vikings/internal/shared/gameconfig/catalog"
	"Vikings/modules/kit/logx"
)

// Session 一个在线玩家的结算上下文与定时器，由玩家 actor 持有。
type Session struct {
	Env    *handler.Env
	Timers *scheduler.Scheduler
}

func (s *Session) player() *entity.PlayerState {
	return s.Env.Player
}

// MissionService 处理玩家提交：校验、扣除，然后创建定时器。
// 校验失败时不修改任何状态。
type MissionService struct {
	ids scheduler.IDSource
	log logx.Logger
}

func NewMissionService(ids scheduler.IDSource, log logx.Logger) *MissionService {
	if log == nil {
		log = logx.Nop()
	}
	return &MissionService{ids: ids, log: log}
}

// SendAttack 提交时交给权威方结算，结果随定时器到点再落账。
func (m *MissionService) SendAttack(ctx context.Context, s *Session, req model.MissionReq) (*model.TimerView, error) {
	target := domain.Coord{X: req.TargetX, Y: req.TargetY}
	if err := m.checkUnits(s, req.Units); err != nil {
		return nil, err
	}
	e, err := m.loadTarget(ctx, s, target)
	if err != nil {
		return nil, err
	}
	if e.User == s.player().Username() || e.Owner == s.player().Username() {
		return nil, ErrInvalidTarget.WithData("reason", "不能攻击自己")
	}

	p := s.player()
	units := req.Units.Compact()
	p.TakeUnits(units)

	var resolution domain.Resolution = domain.Pending{}
	if auth := s.Env.Authority; auth != nil {
		params := domain.AttackParams{Attacker: p.Username(), TargetX: target.X, TargetY: target.Y, Troops: units}
		res, err := m.submit(ctx, s, params)
		if err != nil {
			p.AddUnits(units)
			return nil, err
		}
		resolution = domain.PreComputed{Result: res}
	}

	return m.schedule(ctx, s, domain.AttackSeconds(p.Home(), target), "攻击 "+entityLabel(e, target), domain.AttackMission{
		March:      domain.March{Units: units, Origin: p.Home(), Target: target},
		Resolution: resolution,
	}, func() { p.AddUnits(units) })
}

func (m *MissionService) SendConquest(ctx context.Context, s *Session, req model.MissionReq) (*model.TimerView, error) {
	target := domain.Coord{X: req.TargetX, Y: req.TargetY}
	if err := m.checkUnits(s, req.Units); err != nil {
		return nil, err
	}
	e, err := m.loadTarget(ctx, s, target)
	if err != nil {
		return nil, err
	}
	p := s.player()
	if e.Kind != domain.KindResource {
		return nil, ErrInvalidTarget.WithData("reason", "只能征服资源点")
	}
	if e.Owner == p.Username() {
		return nil, ErrInvalidTarget.WithData("reason", "该领地已属于你")
	}
	units := req.Units.Compact()
	p.TakeUnits(units)
	return m.schedule(ctx, s, domain.ConquestSeconds(p.Home(), target), "征服 "+entityLabel(e, target), domain.ConquestMission{
		March: domain.March{Units: units, Origin: p.Home(), Target: target},
	}, func() { p.AddUnits(units) })
}

func (m *MissionService) SendGather(ctx context.Context, s *Session, req model.MissionReq) (*model.TimerView, error) {
	target := domain.Coord{X: req.TargetX, Y: req.TargetY}
	if err := m.checkUnits(s, req.Units); err != nil {
		return nil, err
	}
	e, err := m.loadTarget(ctx, s, target)
	if err != nil {
		return nil, err
	}
	if e.Kind != domain.KindResource {
		return nil, ErrInvalidTarget.WithData("reason", "只能在资源点采集")
	}
	p := s.player()
	res := e.Resource
	if res == "" {
		res = catalog.Wood
	}
	units := req.Units.Compact()
	cargo := s.Env.Resolver.Cargo(units, p.Research())
	p.TakeUnits(units)
	return m.schedule(ctx, s, domain.GatherSeconds, fmt.Sprintf("采集 %s", res), domain.GatherMission{
		March:    domain.March{Units: units, Origin: p.Home(), Target: target},
		Resource: res,
		Cargo:    cargo,
	}, func() { p.AddUnits(units) })
}

// SendFortressAttack 先原子扣除要塞驻军，向权威方登记但不结算，到点再请求结算。
func (m *MissionService) SendFortressAttack(ctx context.Context, s *Session, req model.MissionReq) (*model.TimerView, error) {
	if len(req.Units) == 0 || req.Units.Total() <= 0 || req.Units.Validate() != nil {
		return nil, ErrInvalidUnits
	}
	if err := m.checkKinds(s, req.Units); err != nil {
		return nil, err
	}
	p := s.player()
	clans := s.Env.Clans
	clan, err := clans.ClanOf(ctx, p.Username())
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, ErrNotClanLeader.WithData("reason", "不在任何部落")
		}
		return nil, ErrUnavailable.WithReason(ReasonClanUnavailable).WithCause(err)
	}
	if clan.Leader != p.Username() {
		return nil, ErrNotClanLeader
	}
	if clan.Fortress == nil {
		return nil, ErrNoFortress
	}
	origin := clan.Fortress.Coord()
	target := domain.Coord{X: req.TargetX, Y: req.TargetY}
	for _, c := range domain.FortressCells(origin) {
		if c == target {
			return nil, ErrInvalidTarget.WithData("reason", "不能攻击自己的要塞")
		}
	}
	if !clan.Fortress.Garrison.Covers(req.Units) {
		return nil, ErrInsufficientGarrison.WithData("garrison", clan.Fortress.Garrison)
	}

	units := req.Units.Compact()
	neg := domain.Army{}
	for k, v := range units {
		neg[k] = -v
	}
	if err := clans.AdjustGarrison(ctx, clan.ID, neg); err != nil {
		if errors.Is(err, port.ErrInsufficient) {
			return nil, ErrInsufficientGarrison
		}
		return nil, ErrUnavailable.WithReason(ReasonClanUnavailable).WithCause(err)
	}
	refund := func() {
		if err := clans.AdjustGarrison(context.WithoutCancel(ctx), clan.ID, units); err != nil {
			m.log.WithContext(ctx).Error("refund fortress garrison failed",
				zap.String("clan", clan.ID), zap.Any("units", units), zap.Error(err))
		}
	}

	id := m.nextID()
	params := domain.AttackParams{
		Attacker: p.Username(),
		TargetX:  target.X,
		TargetY:  target.Y,
		Troops:   units,
		Source:   domain.SourceFortress,
	}
	if id != 0 {
		params.RequestID = strconv.FormatInt(id, 10)
	}
	res, err := m.submit(ctx, s, params)
	if err != nil {
		refund()
		return nil, err
	}

	var resolution domain.Resolution = domain.DeferredRequest{Params: params}
	if !res.Deferred {
		// 权威方没有延迟，直接按结果处理
		resolution = domain.PreComputed{Result: res}
	}
	return m.scheduleWithID(ctx, s, id, domain.FortressAttackMillis(origin, target), "要塞出征 "+target.Key(), domain.FortressAttackMission{
		March:      domain.March{Units: units, Origin: origin, Target: target},
		ClanID:     clan.ID,
		Resolution: resolution,
	}, refund)
}

func (m *MissionService) Train(ctx context.Context, s *Session, req model.TrainReq) (*model.TimerView, error) {
	u, ok := s.Env.Catalog.Unit(req.Unit)
	if !ok {
		return nil, ErrUnknownItem.WithData("unit", req.Unit)
	}
	if req.Amount <= 0 || req.Amount > catalog.MaxTrainBatch {
		return nil, ErrInvalidParam.WithData("amount", req.Amount)
	}
	p := s.player()
	if p.BuildingLevel(entity.TownHall) < u.MinTownHall {
		return nil, ErrRequirementNotMet.WithData("townHall", u.MinTownHall)
	}
	if m.busy(s, func(t *domain.Timer) bool { return t.Kind() == domain.TimerUnit }) {
		return nil, ErrQueueBusy.WithData("queue", "unit")
	}
	cost, ok := u.Cost.Times(req.Amount)
	if !ok {
		return nil, ErrInvalidParam.WithData("amount", req.Amount)
	}
	if !p.Pay(cost) {
		return nil, ErrInsufficientResources.WithData("missing", p.Shortage(cost))
	}
	return m.schedule(ctx, s, u.TrainingTime*req.Amount, fmt.Sprintf("训练 %d %s", req.Amount, u.Name),
		domain.TrainingJob{Unit: req.Unit, Amount: req.Amount},
		func() { p.AddResources(refundOf(cost)) })
}

func (m *MissionService) Build(ctx context.Context, s *Session, req model.BuildReq) (*model.TimerView, error) {
	b, ok := s.Env.Catalog.Building(req.Building)
	if !ok {
		return nil, ErrUnknownItem.WithData("building", req.Building)
	}
	if m.busy(s, func(t *domain.Timer) bool {
		job, ok := t.Payload.(domain.BuildingJob)
		return ok && job.Building == req.Building
	}) {
		return nil, ErrQueueBusy.WithData("building", req.Building)
	}
	p := s.player()
	level := p.BuildingLevel(req.Building)
	cost, _ := s.Env.Catalog.BuildingCost(req.Building, level)
	if !p.Pay(cost) {
		return nil, ErrInsufficientResources.WithData("missing", p.Shortage(cost))
	}
	secs := s.Env.Catalog.ConstructionTime(level, p.ResearchLevel("architecture"))
	return m.schedule(ctx, s, secs, fmt.Sprintf("%s 升级到 %d 级", b.Name, level+1),
		domain.BuildingJob{Building: req.Building},
		func() { p.AddResources(refundOf(cost)) })
}

func (m *MissionService) Research(ctx context.Context, s *Session, req model.ResearchReq) (*model.TimerView, error) {
	r, ok := s.Env.Catalog.Research(req.Tech)
	if !ok {
		return nil, ErrUnknownItem.WithData("tech", req.Tech)
	}
	if m.busy(s, func(t *domain.Timer) bool { return t.Kind() == domain.TimerResearch }) {
		return nil, ErrQueueBusy.WithData("queue", "research")
	}
	p := s.player()
	level := p.ResearchLevel(req.Tech)
	cost, _ := s.Env.Catalog.ResearchCost(req.Tech, level)
	if !p.Pay(cost) {
		return nil, ErrInsufficientResources.WithData("missing", p.Shortage(cost))
	}
	secs, _ := s.Env.Catalog.ResearchTime(req.Tech, level)
	return m.schedule(ctx, s, secs, fmt.Sprintf("研究 %s %d 级", r.Name, level+1),
		domain.ResearchJob{Tech: req.Tech},
		func() { p.AddResources(refundOf(cost)) })
}

// UpgradeTerritory 立即生效，不走定时器。
func (m *MissionService) UpgradeTerritory(ctx context.Context, s *Session, req model.TerritoryUpgradeReq) (int, error) {
	c := domain.Coord{X: req.X, Y: req.Y}
	e, err := m.loadTarget(ctx, s, c)
	if err != nil {
		return 0, err
	}
	p := s.player()
	if e.Kind != domain.KindResource || e.Owner != p.Username() {
		return 0, ErrInvalidTarget.WithData("reason", "不是你的领地")
	}
	level := e.EffectiveLevel()
	if level >= catalog.MaxTerritoryLevel {
		return 0, ErrMaxLevel
	}
	cost := catalog.TerritoryUpgradeCost(level)
	if !p.Pay(cost) {
		return 0, ErrInsufficientResources.WithData("missing", p.Shortage(cost))
	}
	if err := s.Env.World.RaiseLevel(ctx, c, p.Username(), level); err != nil {
		p.AddResources(refundOf(cost))
		if errors.Is(err, port.ErrConflict) || errors.Is(err, port.ErrNotFound) {
			return 0, ErrInvalidTarget.WithData("reason", "领地状态已变化")
		}
		return 0, ErrUnavailable.WithReason(ReasonWorldUnavailable).WithCause(err)
	}
	return level + 1, nil
}

// Timers 按到期时间排序。
func (m *MissionService) Timers(s *Session) []model.TimerView {
	pending := s.Timers.Pending()
	out := make([]model.TimerView, 0, len(pending))
	for i := range pending {
		out = append(out, model.NewTimerView(&pending[i]))
	}
	return out
}

func (m *MissionService) State(s *Session) model.StateView {
	p := s.player()
	return model.StateView{
		Username:  p.Username(),
		Home:      p.Home(),
		ClanID:    p.ClanID(),
		Army:      p.Army(),
		Resources: p.Resources(),
		Research:  p.Research(),
		Buildings: p.Buildings(),
		Stats:     p.Stats(),
		Quests:    p.Quests(),
		Timers:    m.Timers(s),
	}
}

// Quests 先补上到期的刷新再返回。
func (m *MissionService) Quests(s *Session) entity.QuestBoard {
	s.Env.RefreshQuests()
	return s.player().Quests()
}

func (m *MissionService) ClaimQuest(ctx context.Context, s *Session, req model.QuestClaimReq) (*model.QuestClaimView, error) {
	s.Env.RefreshQuests()
	p := s.player()
	reward, err := p.ClaimQuest(req.ID)
	switch {
	case errors.Is(err, entity.ErrQuestNotFound):
		return nil, ErrUnknownItem.WithData("quest", req.ID)
	case errors.Is(err, entity.ErrQuestNotDone):
		return nil, ErrRequirementNotMet.WithData("quest", req.ID)
	case errors.Is(err, entity.ErrQuestClaimed):
		return nil, ErrQuestClaimed.WithData("quest", req.ID)
	case err != nil:
		return nil, ErrInternalServer.WithCause(err)
	}
	m.log.WithContext(ctx).Info("quest claimed",
		zap.String("user", p.Username()),
		zap.String("quest", req.ID))
	return &model.QuestClaimView{Reward: reward, Resources: p.Resources()}, nil
}

func (m *MissionService) checkKinds(s *Session, units domain.Army) error {
	for kind, n := range units {
		if _, ok := s.Env.Catalog.Unit(kind); !ok && n > 0 {
			return ErrInvalidUnits.WithData("unit", kind)
		}
	}
	return nil
}

// checkUnits 部队非空、兵种已知且玩家兵力足够。
func (m *MissionService) checkUnits(s *Session, units domain.Army) error {
	if len(units) == 0 || units.Total() <= 0 {
		return ErrInvalidUnits
	}
	if err := units.Validate(); err != nil {
		return ErrInvalidUnits.WithData("reason", err.Error())
	}
	if err := m.checkKinds(s, units); err != nil {
		return err
	}
	army := s.player().Army()
	if !army.Covers(units) {
		return ErrInsufficientUnits.WithData("army", army)
	}
	return nil
}

func (m *MissionService) loadTarget(ctx context.Context, s *Session, c domain.Coord) (*domain.MapEntity, error) {
	if c == s.player().Home() {
		return nil, ErrInvalidTarget.WithData("reason", "不能以自己的城市为目标")
	}
	e, err := s.Env.World.Entity(ctx, c)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, ErrInvalidTarget.WithData("target", c.Key())
		}
		return nil, ErrUnavailable.WithReason(ReasonWorldUnavailable).WithCause(err)
	}
	return e, nil
}

func (m *MissionService) submit(ctx context.Context, s *Session, params domain.AttackParams) (domain.AuthorityResult, error) {
	auth := s.Env.Authority
	if auth == nil {
		return domain.AuthorityResult{}, ErrUnavailable.WithReason(ReasonAuthorityUnavailable)
	}
	cctx, cancel := context.WithTimeout(ctx, s.Env.CallTimeout)
	defer cancel()
	res, err := auth.SubmitAttack(cctx, params)
	if err != nil {
		return res, ErrUnavailable.WithReason(ReasonAuthorityUnavailable).WithCause(err)
	}
	if !res.Success {
		return res, ErrAttackRejected.WithMsg(res.Message)
	}
	return res, nil
}

func (m *MissionService) busy(s *Session, match func(t *domain.Timer) bool) bool {
	pending := s.Timers.Pending()
	for i := range pending {
		if match(&pending[i]) {
			return true
		}
	}
	return false
}

func (m *MissionService) nextID() int64 {
	if m.ids == nil {
		return 0
	}
	return m.ids.NextID()
}

func (m *MissionService) schedule(ctx context.Context, s *Session, secs int64, desc string, payload domain.Payload, undo func()) (*model.TimerView, error) {
	return m.scheduleWithID(ctx, s, m.nextID(), secs*1000, desc, payload, undo)
}

// scheduleWithID 创建 ms 毫秒后到期的定时器；失败时调用 undo 撤销已做的扣除。
func (m *MissionService) scheduleWithID(ctx context.Context, s *Session, id, ms int64, desc string, payload domain.Payload, undo func()) (*model.TimerView, error) {
	now := s.Env.Now().UnixMilli()
	t := &domain.Timer{ID: id, StartTime: now, EndTime: now + ms, Desc: desc, Payload: payload}
	if err := s.Timers.Schedule(t); err != nil {
		undo()
		return nil, ErrInternalServer.WithReason(ReasonScheduleFail).WithCause(err)
	}
	s.player().MarkDirty()
	m.log.WithContext(ctx).Info("timer scheduled",
		zap.String("user", s.player().Username()),
		zap.Int64("timer_id", t.ID),
		zap.String("route", t.Route()),
		zap.Int64("end_time", t.EndTime))
	v := model.NewTimerView(t)
	return &v, nil
}

func refundOf(cost catalog.Cost) domain.Resources {
	out := domain.Resources{}
	for k, v := range cost {
		out[k] = v
	}
	return out
}

func entityLabel(e *domain.MapEntity, c domain.Coord) string {
	switch {
	case e.IsPlayerCity():
		return e.User
	case e.Name != "":
		return e.Name
	default:
		return c.Key()
	}
}
