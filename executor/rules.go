package executor

import (
	"context"
	"time"

	"github.com/rustyeddy/optexec/position"
)

// exitRule is one entry in the ordered exit table. triggered is a pure
// predicate over position state; fire performs the sale and returns the
// action record, or nil when the rule resolves without an order (the
// single-contract trim cases).
type exitRule struct {
	name      ActionType
	triggered func(p *position.Position, now time.Time) bool
	fire      func(ctx context.Context, p *position.Position, now time.Time) *Action
}

// exitRules returns the exit table in priority order. The first rule whose
// predicate matches fires and the rest are skipped, so a position takes at
// most one exit action per cycle. Capital-preservation rules outrank
// profit-taking: hard stop, then time-based closes, then trailing stops,
// then trims. Trim 2 is checked before trim 1: ShouldTrim2 requires trim 1
// to have executed, so a position sitting past both levels walks the ladder
// in order, one step per cycle.
func (ex *Executor) exitRules() []exitRule {
	return []exitRule{
		{
			name: ActionHardStop,
			triggered: func(p *position.Position, now time.Time) bool {
				return p.ShouldHardStop(ex.exits.HardStopPct)
			},
			fire: ex.fireHardStop,
		},
		{
			name: Action0DTEClose,
			triggered: func(p *position.Position, now time.Time) bool {
				return p.Should0DTEForceClose(ex.exits.ForceClose0DTETime, now)
			},
			fire: ex.fire0DTEClose,
		},
		{
			name: ActionDTEClose,
			triggered: func(p *position.Position, now time.Time) bool {
				return p.ShouldForceClose(ex.exits.CloseAtDTE, now)
			},
			fire: ex.fireDTEClose,
		},
		{
			name: ActionATRTrailingStop,
			triggered: func(p *position.Position, now time.Time) bool {
				return p.ShouldATRTrailingStop()
			},
			fire: ex.fireATRTrailingStop,
		},
		{
			name: ActionTrailingStop,
			triggered: func(p *position.Position, now time.Time) bool {
				return p.ShouldTrailingStop(ex.exits.TrailingStopPct)
			},
			fire: ex.fireTrailingStop,
		},
		{
			name: ActionTrim2,
			triggered: func(p *position.Position, now time.Time) bool {
				return p.ShouldTrim2(ex.exits.Trim2.TriggerPct)
			},
			fire: ex.fireTrim2,
		},
		{
			name: ActionTrim1,
			triggered: func(p *position.Position, now time.Time) bool {
				return p.ShouldTrim1(ex.exits.Trim1.TriggerPct)
			},
			fire: ex.fireTrim1,
		},
	}
}

// evaluateLocked walks the exit table for one position and fires the first
// matching rule.
func (ex *Executor) evaluateLocked(ctx context.Context, p *position.Position, now time.Time) *Action {
	for _, rule := range ex.exitRules() {
		if rule.triggered(p, now) {
			return rule.fire(ctx, p, now)
		}
	}
	return nil
}
