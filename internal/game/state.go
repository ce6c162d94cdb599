/*
Package game
File: state.go
Description:
    Holds SimulationState: the authoritative resources, upgrades, conversions,
    one-shot unlock flags, and unlocked interface sections.

    A State is built once from a validated Config and is only mutated by the Engine.
*/

package game

import (
	"maps"
	"math"
	"time"
)

// State is the aggregate the engine owns. Order slices keep the configured display order.
type State struct {
	Resources     map[string]*Resource
	ResourceOrder []string

	Upgrades     map[string]*Upgrade
	UpgradeOrder []string

	Conversions     map[string]*Conversion
	ConversionOrder []string

	// Flags guard unlock rules so each fires at most once.
	Flags map[string]bool

	// Sections are interface areas revealed by unlock rules (e.g. "evolution").
	Sections     map[string]bool
	SectionOrder []string

	// LastAdvance is the time the last applied tick accounted up to.
	LastAdvance time.Time
}

// NewState builds the initial state. cfg must already be validated.
func NewState(cfg Config, start time.Time) (*State, error) {
	s := &State{
		Resources:   make(map[string]*Resource, len(cfg.Resources)),
		Upgrades:    make(map[string]*Upgrade, len(cfg.Upgrades)),
		Conversions: make(map[string]*Conversion, len(cfg.Conversions)),
		Flags:       make(map[string]bool, len(cfg.UnlockRules)),
		Sections:    make(map[string]bool),
		LastAdvance: start,
	}

	// 1. Resources, in display order
	for _, rc := range cfg.Resources {
		s.Resources[rc.ID] = &Resource{
			ID:          rc.ID,
			DisplayName: rc.Name,
			Capacity:    rc.Capacity,
			Unlocked:    rc.Unlocked,
			Granularity: rc.Granularity,
			ClickYield:  rc.ClickYield,
		}
		s.ResourceOrder = append(s.ResourceOrder, rc.ID)
	}

	// 2. Upgrades with compiled effects. Costs are copied so the config stays untouched.
	for _, uc := range cfg.Upgrades {
		u := &Upgrade{
			ID:          uc.ID,
			DisplayName: uc.Name,
			Description: uc.Description,
			Cost:        maps.Clone(uc.Cost),
			CostScalar:  uc.CostScalar,
			Unlocked:    uc.Unlocked,
		}
		for _, ec := range uc.Effects {
			eff, err := NewEffect(ec.Kind, ec.Resource, ec.Amount)
			if err != nil {
				return nil, err
			}
			u.Effects = append(u.Effects, eff)
		}
		s.Upgrades[uc.ID] = u
		s.UpgradeOrder = append(s.UpgradeOrder, uc.ID)
	}

	// 3. Conversions
	for _, cc := range cfg.Conversions {
		s.Conversions[cc.ID] = &Conversion{
			ID:          cc.ID,
			DisplayName: cc.Name,
			From:        cc.From,
			To:          cc.To,
			Cost:        cc.Cost,
			Yield:       cc.Yield,
		}
		s.ConversionOrder = append(s.ConversionOrder, cc.ID)
	}

	// 4. Flags start false
	for _, rule := range cfg.UnlockRules {
		s.Flags[rule.Flag] = false
	}

	return s, nil
}

// unlock reveals one target. It never re-locks anything.
func (s *State) unlock(t UnlockTarget) {
	switch t.Kind {
	case TargetResource:
		if r, ok := s.Resources[t.ID]; ok {
			r.Unlocked = true
		}
	case TargetUpgrade:
		if u, ok := s.Upgrades[t.ID]; ok {
			u.Unlocked = true
		}
	case TargetSection:
		if !s.Sections[t.ID] {
			s.Sections[t.ID] = true
			s.SectionOrder = append(s.SectionOrder, t.ID)
		}
	}
}

// affordable reports whether every cost entry is covered by current amounts.
func (s *State) affordable(cost map[string]float64) bool {
	for id, amt := range cost {
		r, ok := s.Resources[id]
		if !ok || r.Amount < amt {
			return false
		}
	}
	return true
}

// clamp restores 0 <= Amount <= Capacity.
func clamp(r *Resource) {
	if math.IsNaN(r.Amount) {
		r.Amount = 0
	}
	if r.Amount > r.Capacity {
		r.Amount = r.Capacity
	}
	if r.Amount < 0 {
		r.Amount = 0
	}
}
