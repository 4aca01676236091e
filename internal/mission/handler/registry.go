package handler

import (
	"context"
	"fmt"

	"Vikings/internal/mission/entity/domain"
)

// Func 一种定时器的结算函数。
type Func func(ctx context.Context, env *Env, t *domain.Timer) error

// Registry 按 kind/subtype 路由到结算函数，实现 scheduler.Handler。
type Registry struct {
	env    *Env
	routes map[string]Func
}

func NewRegistry(env *Env) *Registry {
	r := &Registry{env: env, routes: make(map[string]Func)}
	r.registerAll()
	return r
}

func (r *Registry) registerAll() {
	r.register(string(domain.TimerBuilding), handleBuilding)
	r.register(string(domain.TimerUnit), handleUnit)
	r.register(string(domain.TimerResearch), handleResearch)
	r.register(string(domain.MissionAttack), handleAttack)
	r.register(string(domain.MissionConquest), handleConquest)
	r.register(string(domain.MissionGather), handleGather)
	r.register(string(domain.MissionFortressAttack), handleFortressAttack)
}

func (r *Registry) register(route string, fn Func) {
	if _, ok := r.routes[route]; ok {
		panic("duplicate timer route: " + route)
	}
	r.routes[route] = fn
}

func (r *Registry) Handle(ctx context.Context, t *domain.Timer) error {
	fn, ok := r.routes[t.Route()]
	if !ok {
		return fmt.Errorf("%w: no handler for %q", domain.ErrMalformedTimer, t.Route())
	}
	return fn(ctx, r.env, t)
}

func (r *Registry) Env() *Env {
	return r.env
}
