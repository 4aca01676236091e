package handler

import (
	"context"
	"fmt"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
)

func handleBuilding(ctx context.Context, env *Env, t *domain.Timer) error {
	job, ok := t.Payload.(domain.BuildingJob)
	if !ok {
		return payloadMismatch(t)
	}
	level := env.Player.UpgradeBuilding(job.Building)
	env.QuestEvent(entity.QuestBuild, 1, t.ID)
	name := job.Building
	if b, ok := env.Catalog.Building(job.Building); ok {
		name = b.Name
	}
	env.Notify(port.NotifySuccess, t.ID, fmt.Sprintf("%s 升级完成（%d 级）", name, level))
	return nil
}

func handleUnit(ctx context.Context, env *Env, t *domain.Timer) error {
	job, ok := t.Payload.(domain.TrainingJob)
	if !ok {
		return payloadMismatch(t)
	}
	env.Player.AddUnits(domain.Army{job.Unit: job.Amount})
	env.QuestEvent(entity.QuestTrain, job.Amount, t.ID)
	name := job.Unit
	if u, ok := env.Catalog.Unit(job.Unit); ok {
		name = u.Name
	}
	env.Notify(port.NotifySuccess, t.ID, fmt.Sprintf("训练完成：%d %s", job.Amount, name))
	return nil
}

func handleResearch(ctx context.Context, env *Env, t *domain.Timer) error {
	job, ok := t.Payload.(domain.ResearchJob)
	if !ok {
		return payloadMismatch(t)
	}
	level := env.Player.AdvanceResearch(job.Tech)
	name := job.Tech
	if r, ok := env.Catalog.Research(job.Tech); ok {
		name = r.Name
	}
	env.Notify(port.NotifySuccess, t.ID, fmt.Sprintf("研究完成：%s %d 级", name, level))
	return nil
}

func payloadMismatch(t *domain.Timer) error {
	return fmt.Errorf("%w: route %q with payload %T", domain.ErrMalformedTimer, t.Route(), t.Payload)
}
