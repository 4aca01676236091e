package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/combat"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
)

var (
	winAttrition     = decimal.RequireFromString("0.1")
	lossAttrition    = decimal.RequireFromString("0.5")
	conquestGarrison = decimal.RequireFromString("0.95")
)

var (
	ErrAuthorityRejected = errors.New("authority rejected attack")
	// ErrRefunded 结算失败且部队已退回、用户已收到通知。
	ErrRefunded = errors.New("refunded")
)

func refunded(err error) error {
	return fmt.Errorf("%w: %w", ErrRefunded, err)
}

func handleAttack(ctx context.Context, env *Env, t *domain.Timer) error {
	m, ok := t.Payload.(domain.AttackMission)
	if !ok {
		return payloadMismatch(t)
	}
	switch r := m.Resolution.(type) {
	case domain.PreComputed:
		applyAuthorityResult(ctx, env, t, m.March, r.Result)
		return nil
	case domain.DeferredRequest:
		return resolveDeferredAttack(ctx, env, t, m.March, r.Params)
	case domain.Pending:
		return resolveLocally(ctx, env, t, m.March)
	default:
		return payloadMismatch(t)
	}
}

// applyAuthorityResult 提交时权威方已经结算，这里只按结果落账。
func applyAuthorityResult(ctx context.Context, env *Env, t *domain.Timer, march domain.March, res domain.AuthorityResult) {
	p := env.Player
	lost, returned := combat.ApplyCasualties(march.Units, res.Casualties)
	p.AddUnits(returned)
	if res.Victory {
		p.AddResources(res.Loot)
	}
	p.RecordBattle(res.Victory)

	if res.Report != nil {
		r := *res.Report
		r.ID, r.Owner, r.CreatedAt = "", p.Username(), 0
		r.Data.UnitsReturned = returned
		if r.Data.UnitsLost == nil {
			r.Data.UnitsLost = lost
		}
		env.saveReport(ctx, r)
	} else {
		env.saveReport(ctx, battleSummary{
			kind: domain.ReportAttack, won: res.Victory, enemy: march.Target.Key(), target: march.Target,
			loot: res.Loot, sent: march.Units, lost: lost, returned: returned,
		}.report(p.Username(), env.nowMs()))
	}

	if res.Victory {
		env.Notify(port.NotifySuccess, t.ID, fmt.Sprintf("胜利！获得战利品 %v", res.Loot))
		env.QuestEvent(entity.QuestAttack, 1, t.ID)
	} else {
		env.Notify(port.NotifyError, t.ID, "战斗失利，部队带伤返回")
	}
}

// resolveLocally 没有权威结果的旧任务：到点重新取目标并本地结算。
func resolveLocally(ctx context.Context, env *Env, t *domain.Timer, march domain.March) error {
	p := env.Player
	target, err := env.World.Entity(ctx, march.Target)
	if err != nil {
		p.AddUnits(march.Units)
		if errors.Is(err, port.ErrNotFound) {
			env.Notify(port.NotifyWarning, t.ID, "目标已消失，部队已返回")
			return nil
		}
		env.Notify(port.NotifyError, t.ID, "读取目标失败，部队已返回")
		return refunded(fmt.Errorf("load target %s: %w", march.Target.Key(), err))
	}

	defender := domain.UnknownDefender()
	if target.IsPlayerCity() && env.Defenders != nil {
		cctx, cancel := env.callCtx(ctx)
		d, err := env.Defenders.FetchDefender(cctx, target.User)
		cancel()
		if err == nil {
			defender = d
		} else {
			env.Log.WithContext(ctx).Info("defender snapshot unavailable",
				zap.String("defender", target.User), zap.Error(err))
		}
	}

	out := env.Resolver.Resolve(march.Units, p.Research(), target, defender)
	rate := lossAttrition
	if out.Won {
		rate = winAttrition
		if out.TargetPower == 0 {
			rate = decimal.Zero
		}
	}
	lost, survivors := combat.Attrition(march.Units, rate)
	p.AddUnits(survivors)
	if out.Won {
		p.AddResources(out.Loot)
	}
	p.RecordBattle(out.Won)

	name := entityName(target, march.Target)
	env.saveReport(ctx, battleSummary{
		kind: domain.ReportAttack, won: out.Won, enemy: name, level: out.DefenderLevel, target: march.Target,
		outcome: &out, loot: out.Loot, sent: march.Units, lost: lost, returned: survivors,
	}.report(p.Username(), env.nowMs()))

	if out.Won {
		env.Notify(port.NotifySuccess, t.ID, fmt.Sprintf("击败了 %s！", name))
		env.QuestEvent(entity.QuestAttack, 1, t.ID)
	} else {
		env.Notify(port.NotifyError, t.ID, "战斗艰难，部队撤退并有损失")
	}
	return nil
}

// resolveDeferredAttack 普通攻击也可能带着延迟请求，处理方式同要塞但兵力回到玩家。
func resolveDeferredAttack(ctx context.Context, env *Env, t *domain.Timer, march domain.March, params domain.AttackParams) error {
	res, err := callResolve(ctx, env, t, params)
	if err != nil {
		env.Player.AddUnits(march.Units)
		env.Notify(port.NotifyError, t.ID, "战斗结算失败，部队已返回")
		return refunded(err)
	}
	applyAuthorityResult(ctx, env, t, march, res)
	return nil
}

func callResolve(ctx context.Context, env *Env, t *domain.Timer, params domain.AttackParams) (domain.AuthorityResult, error) {
	if env.Authority == nil {
		return domain.AuthorityResult{}, errors.New("authority not configured")
	}
	if params.RequestID == "" {
		params.RequestID = fmt.Sprint(t.ID)
	}
	res, err := resolveOnce(ctx, env, params)
	if err != nil {
		// 上一次可能已在权威方落账；同一请求号重放拿到的是记下的结果，不会再打一场
		env.Log.WithContext(ctx).Warn("resolve deferred attack failed, replaying",
			zap.String("request_id", params.RequestID), zap.Error(err))
		res, err = resolveOnce(ctx, env, params)
	}
	if err != nil {
		return res, fmt.Errorf("resolve deferred attack: %w", err)
	}
	if !res.Success {
		return res, fmt.Errorf("%w: %s", ErrAuthorityRejected, res.Message)
	}
	return res, nil
}

func resolveOnce(ctx context.Context, env *Env, params domain.AttackParams) (domain.AuthorityResult, error) {
	cctx, cancel := env.callCtx(ctx)
	defer cancel()
	return env.Authority.ResolveDeferredAttack(cctx, params)
}

func handleConquest(ctx context.Context, env *Env, t *domain.Timer) error {
	m, ok := t.Payload.(domain.ConquestMission)
	if !ok {
		return payloadMismatch(t)
	}
	p := env.Player
	target, err := env.World.Entity(ctx, m.Target)
	if err != nil {
		p.AddUnits(m.Units)
		if errors.Is(err, port.ErrNotFound) {
			env.Notify(port.NotifyWarning, t.ID, "目标已消失，部队已返回")
			return nil
		}
		env.Notify(port.NotifyError, t.ID, "读取目标失败，部队已返回")
		return refunded(fmt.Errorf("load target %s: %w", m.Target.Key(), err))
	}
	if target.Owner == p.Username() {
		p.AddUnits(m.Units)
		env.Notify(port.NotifyInfo, t.ID, "该领地已属于你，部队已返回")
		return nil
	}

	defender := domain.UnknownDefender()
	if target.Garrison != nil && target.Garrison.Total > 0 {
		defender = domain.KnownDefender(target.Garrison.Units, nil)
	}
	out := env.Resolver.Resolve(m.Units, p.Research(), target, defender)
	name := entityName(target, m.Target)

	if !out.Won {
		// 失败的征服部队不返回
		lost, _ := combat.Attrition(m.Units, lossAttrition)
		p.RecordBattle(false)
		env.saveReport(ctx, battleSummary{
			kind: domain.ReportConquest, won: false, enemy: name, level: out.DefenderLevel, target: m.Target,
			outcome: &out, sent: m.Units, lost: lost, returned: domain.Army{},
		}.report(p.Username(), env.nowMs()))
		env.Notify(port.NotifyError, t.ID, "征服失败，部队溃散")
		return nil
	}

	garrison, lost := combat.Survivors(m.Units, conquestGarrison)
	if err := env.World.Capture(ctx, m.Target, p.Username(), garrison, env.nowMs()); err != nil {
		p.AddUnits(m.Units)
		env.Notify(port.NotifyError, t.ID, "占领失败，部队已返回")
		return refunded(fmt.Errorf("capture %s: %w", m.Target.Key(), err))
	}
	p.RecordBattle(true)
	env.saveReport(ctx, battleSummary{
		kind: domain.ReportConquest, won: true, enemy: name, level: out.DefenderLevel, target: m.Target,
		outcome: &out, sent: m.Units, lost: lost, returned: domain.Army{},
	}.report(p.Username(), env.nowMs()))
	env.Notify(port.NotifySuccess, t.ID, fmt.Sprintf("占领了 %s，驻军 %d", name, garrison.Total()))
	return nil
}

func handleGather(ctx context.Context, env *Env, t *domain.Timer) error {
	m, ok := t.Payload.(domain.GatherMission)
	if !ok {
		return payloadMismatch(t)
	}
	p := env.Player
	p.AddUnits(m.Units)
	if m.Cargo > 0 {
		p.AddResources(domain.Resources{m.Resource: m.Cargo})
	}
	env.Notify(port.NotifySuccess, t.ID, fmt.Sprintf("采集完成：%d %s", m.Cargo, m.Resource))
	env.QuestEvent(entity.QuestGather, m.Cargo, t.ID)
	return nil
}

func handleFortressAttack(ctx context.Context, env *Env, t *domain.Timer) error {
	m, ok := t.Payload.(domain.FortressAttackMission)
	if !ok {
		return payloadMismatch(t)
	}
	switch r := m.Resolution.(type) {
	case domain.DeferredRequest:
		return resolveFortressAttack(ctx, env, t, m, r.Params)
	case domain.PreComputed, domain.Pending:
		// 旧版本提交时已结算，到点只提示
		env.Notify(port.NotifyInfo, t.ID, "要塞出征已结束")
		return nil
	default:
		return payloadMismatch(t)
	}
}

// resolveFortressAttack 到点才请求权威方结算；失败时驻军全部退回，金库不动。
func resolveFortressAttack(ctx context.Context, env *Env, t *domain.Timer, m domain.FortressAttackMission, params domain.AttackParams) error {
	res, err := callResolve(ctx, env, t, params)
	if err != nil {
		if rErr := env.Clans.AdjustGarrison(ctx, m.ClanID, m.Units); rErr != nil {
			env.Log.WithContext(ctx).Error("refund fortress garrison failed",
				zap.String("clan", m.ClanID), zap.Any("units", m.Units), zap.Error(rErr))
			err = errors.Join(err, rErr)
		}
		env.Notify(port.NotifyError, t.ID, "要塞战斗结算失败，驻军已退回")
		return refunded(err)
	}

	// 幸存者回驻军、战利品进金库由权威方完成，这里只刷新部落数据
	if clan, cErr := env.Clans.Clan(ctx, m.ClanID); cErr == nil {
		env.Player.SetClan(clan.ID)
	}

	lost, returned := combat.ApplyCasualties(m.Units, res.Casualties)
	if res.Report != nil {
		r := *res.Report
		r.ID, r.Owner, r.CreatedAt = "", env.Player.Username(), 0
		r.Data.UnitsReturned = returned
		env.saveReport(ctx, r)
	} else {
		env.saveReport(ctx, battleSummary{
			kind: domain.ReportAttack, won: res.Victory, enemy: m.Target.Key(), target: m.Target,
			loot: res.Loot, sent: m.Units, lost: lost, returned: returned,
		}.report(env.Player.Username(), env.nowMs()))
	}
	if res.Victory {
		env.Notify(port.NotifySuccess, t.ID, fmt.Sprintf("要塞出征胜利！战利品已入金库 %v", res.Loot))
	} else {
		env.Notify(port.NotifyError, t.ID, "要塞出征失利，幸存部队已返回驻地")
	}
	return nil
}
