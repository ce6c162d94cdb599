/*
Package game
File: engine.go
Description:
    SimulationEngine. Owns the single State and serializes every mutation through
    Tick / PerformClick / PurchaseUpgrade / PurchaseConversion.

    Every call either fully applies or leaves the state untouched, then notifies
    the observer. The engine itself is not safe for concurrent use; see Session.
*/

package game

import (
	"fmt"
	"maps"
	"math"
	"time"
)

// Engine is the simulation core.
type Engine struct {
	state    *State
	rules    []UnlockRule
	observer Observer

	minInterval time.Duration
	pending     time.Duration // Elapsed time not yet applied by a tick
	ticks       uint64
	seq         uint64
}

// NewEngine validates cfg and builds the initial state. start seeds LastAdvance.
func NewEngine(cfg Config, start time.Time) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	state, err := NewState(cfg, start)
	if err != nil {
		return nil, err
	}
	rules, err := compileRules(cfg.UnlockRules)
	if err != nil {
		return nil, err
	}

	minInterval := cfg.Engine.MinTickInterval
	if minInterval <= 0 {
		minInterval = 100 * time.Millisecond
	}

	return &Engine{
		state:       state,
		rules:       rules,
		minInterval: minInterval,
	}, nil
}

// SetObserver registers the single observer. Use Observers to fan out.
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

func (e *Engine) MinTickInterval() time.Duration { return e.minInterval }

// LastAdvance is the point in time the simulation has been advanced to.
func (e *Engine) LastAdvance() time.Time { return e.state.LastAdvance }

// Advance ticks with the time elapsed since the last accounted instant.
// Drivers call it with a monotonic "now"; the engine owns the bookkeeping.
func (e *Engine) Advance(now time.Time) bool {
	dt := now.Sub(e.state.LastAdvance.Add(e.pending))
	if dt <= 0 {
		return false
	}
	return e.Tick(dt)
}

// Tick accumulates dt and applies one simulation step once at least the minimum
// interval has built up. It reports whether a step was applied.
func (e *Engine) Tick(dt time.Duration) bool {
	if dt <= 0 {
		return false
	}
	e.pending += dt
	if e.pending < e.minInterval {
		return false
	}

	step := e.pending
	e.pending = 0
	e.step(step)
	e.state.LastAdvance = e.state.LastAdvance.Add(step)
	e.ticks++

	unlocked := evaluateRules(e.state, e.rules)
	e.notify(Notification{Reason: ReasonTick}, unlocked...)
	return true
}

// PerformClick adds a flat amount to an unlocked resource, clamped to capacity.
func (e *Engine) PerformClick(resourceID string, amount float64) error {
	r, err := e.resource(resourceID)
	if err != nil {
		return err
	}
	if !finite(amount) {
		return fmt.Errorf("%w: click of %v %s", ErrInvalidAmount, amount, resourceID)
	}

	r.Amount += amount
	clamp(r)

	unlocked := evaluateRules(e.state, e.rules)
	e.notify(Notification{
		Reason:  ReasonClick,
		Entity:  resourceID,
		Message: fmt.Sprintf("Synthesized %s.", r.DisplayName),
	}, unlocked...)
	return nil
}

// Synthesize performs the manual action for a resource using its configured yield
// plus every click boost bought so far.
func (e *Engine) Synthesize(resourceID string) error {
	y, err := e.ClickYield(resourceID)
	if err != nil {
		return err
	}
	return e.PerformClick(resourceID, y)
}

// ClickYield is the amount one Synthesize adds to an unlocked resource.
func (e *Engine) ClickYield(resourceID string) (float64, error) {
	r, err := e.resource(resourceID)
	if err != nil {
		return 0, err
	}
	y := r.ClickYield
	for _, id := range e.state.UpgradeOrder {
		u := e.state.Upgrades[id]
		for _, eff := range u.Effects {
			y += clickContribution(eff, resourceID, u.Count)
		}
	}
	return y, nil
}

// CheckUnlocks runs the unlock rules outside of an action and notifies for each
// rule that fires. It returns how many fired.
func (e *Engine) CheckUnlocks() int {
	unlocked := evaluateRules(e.state, e.rules)
	for _, n := range unlocked {
		e.emit(n)
	}
	return len(unlocked)
}

// ResourceView returns a copy of one resource.
func (e *Engine) ResourceView(id string) (ResourceView, error) {
	r, ok := e.state.Resources[id]
	if !ok {
		return ResourceView{}, fmt.Errorf("%w: resource %q", ErrUnknownEntity, id)
	}
	return resourceView(r), nil
}

// UpgradeView returns a copy of one upgrade, including live affordability.
func (e *Engine) UpgradeView(id string) (UpgradeView, error) {
	u, ok := e.state.Upgrades[id]
	if !ok {
		return UpgradeView{}, fmt.Errorf("%w: upgrade %q", ErrUnknownEntity, id)
	}
	return e.upgradeView(u), nil
}

// Snapshot copies the whole state for rendering.
func (e *Engine) Snapshot() Snapshot {
	s := e.state
	snap := Snapshot{
		Resources:   make([]ResourceView, 0, len(s.ResourceOrder)),
		Upgrades:    make([]UpgradeView, 0, len(s.UpgradeOrder)),
		Conversions: make([]ConversionView, 0, len(s.ConversionOrder)),
		Sections:    append([]string{}, s.SectionOrder...),
		Flags:       maps.Clone(s.Flags),
		Ticks:       e.ticks,
		LastAdvance: s.LastAdvance,
	}
	for _, id := range s.ResourceOrder {
		snap.Resources = append(snap.Resources, resourceView(s.Resources[id]))
	}
	for _, id := range s.UpgradeOrder {
		snap.Upgrades = append(snap.Upgrades, e.upgradeView(s.Upgrades[id]))
	}
	for _, id := range s.ConversionOrder {
		c := s.Conversions[id]
		snap.Conversions = append(snap.Conversions, ConversionView{
			ID:          c.ID,
			DisplayName: c.DisplayName,
			From:        c.From,
			To:          c.To,
			Cost:        c.Cost,
			Yield:       c.Yield,
			Available:   s.Resources[c.From].Unlocked && s.Resources[c.To].Unlocked,
		})
	}
	return snap
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// resource looks up an unlocked resource for an action.
func (e *Engine) resource(id string) (*Resource, error) {
	r, ok := e.state.Resources[id]
	if !ok {
		return nil, fmt.Errorf("%w: resource %q", ErrUnknownEntity, id)
	}
	if !r.Unlocked {
		return nil, fmt.Errorf("%w: resource %q", ErrLockedEntity, id)
	}
	return r, nil
}

func (e *Engine) upgradeView(u *Upgrade) UpgradeView {
	return UpgradeView{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Description: u.Description,
		Count:       u.Count,
		Cost:        maps.Clone(u.Cost),
		Unlocked:    u.Unlocked,
		Affordable:  u.Unlocked && e.state.affordable(u.Cost),
	}
}

func resourceView(r *Resource) ResourceView {
	return ResourceView{
		ID:          r.ID,
		DisplayName: r.DisplayName,
		Amount:      r.Amount,
		Capacity:    r.Capacity,
		Rate:        r.Rate,
		Unlocked:    r.Unlocked,
	}
}

// notify emits the action notification followed by any unlocks it caused.
func (e *Engine) notify(n Notification, unlocked ...Notification) {
	e.emit(n)
	for _, u := range unlocked {
		e.emit(u)
	}
}

func (e *Engine) emit(n Notification) {
	e.seq++
	if e.observer == nil {
		return
	}
	n.Seq = e.seq
	n.Snapshot = e.Snapshot()
	e.observer.OnStateChanged(n)
}
