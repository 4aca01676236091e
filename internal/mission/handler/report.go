package handler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Vikings/internal/mission/entity/domain"
)

type battleSummary struct {
	kind     string
	won      bool
	enemy    string
	level    int
	target   domain.Coord
	outcome  *domain.Outcome
	loot     domain.Resources
	sent     domain.Army
	lost     domain.Army
	returned domain.Army
}

func (b battleSummary) report(owner string, at int64) domain.BattleReport {
	title := "战斗失利：" + b.enemy
	if b.won {
		title = "战斗胜利：" + b.enemy
	}
	data := domain.ReportData{
		Winner:        b.won,
		Attacker:      owner,
		Enemy:         b.enemy,
		EnemyLevel:    b.level,
		Target:        b.target.Key(),
		Loot:          b.loot,
		UnitsSent:     b.sent,
		UnitsLost:     b.lost,
		UnitsReturned: b.returned,
	}
	if b.outcome != nil {
		data.AttackPower = b.outcome.AttackPower.String()
		data.DefensePower = b.outcome.TargetPower
		data.DefenderArmy = b.outcome.DefenderArmy
		data.DefenderUnknown = b.outcome.DefenderUnknown
	}
	return domain.BattleReport{
		ID:        uuid.NewString(),
		Owner:     owner,
		Kind:      b.kind,
		Title:     title,
		CreatedAt: at,
		Data:      data,
	}
}

// saveReport 战报写失败只记日志，不影响结算。
func (e *Env) saveReport(ctx context.Context, r domain.BattleReport) {
	if e.Reports == nil {
		return
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Owner == "" {
		r.Owner = e.Player.Username()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = e.nowMs()
	}
	if err := e.Reports.SaveReport(ctx, r); err != nil {
		e.Log.WithContext(ctx).Warn("save battle report failed",
			zap.String("user", r.Owner), zap.String("report_id", r.ID), zap.Error(err))
	}
}

func entityName(e *domain.MapEntity, c domain.Coord) string {
	switch {
	case e == nil:
		return fmt.Sprintf("(%s)", c.Key())
	case e.IsPlayerCity():
		return e.User
	case e.Name != "":
		return e.Name
	default:
		return fmt.Sprintf("%s (%s)", e.Kind, c.Key())
	}
}
