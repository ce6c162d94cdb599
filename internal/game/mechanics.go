/*
Package game
File: mechanics.go
Description:
    The accumulation rules applied by one tick:
    1. Recompute every unlocked resource's rate from upgrade levels.
    2. Advance amounts by rate x dt.
    3. Clamp every amount into [0, capacity].
*/

package game

import "time"

// step advances the state by dt. Locked resources are not advanced.
func (e *Engine) step(dt time.Duration) {
	s := e.state
	secs := dt.Seconds()

	for _, id := range s.ResourceOrder {
		r := s.Resources[id]
		if !r.Unlocked {
			continue
		}

		// Rates are derived from scratch so they always match current levels.
		r.Rate = e.rateFor(id)

		// A negative net rate drains, but never below zero.
		if r.Rate != 0 {
			r.Amount += r.Rate * secs
		}
		clamp(r)
	}
}

// rateFor sums every upgrade's per-level contribution to one resource.
func (e *Engine) rateFor(resourceID string) float64 {
	rate := 0.0
	for _, id := range e.state.UpgradeOrder {
		u := e.state.Upgrades[id]
		if u.Count == 0 {
			continue
		}
		for _, eff := range u.Effects {
			rate += rateContribution(eff, resourceID, u.Count)
		}
	}
	return rate
}
