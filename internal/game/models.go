/*
Package game
File: models.go
Description:
    Defines the data structures of the cell simulation: resources, upgrades,
    conversions, and the read-only views handed to renderers.

    Views are value copies. Nothing returned from the engine aliases engine-owned state.
*/

package game

import "time"

// Resource is one accumulating, capacity-bounded quantity.
type Resource struct {
	ID          string
	DisplayName string
	Amount      float64 // 0 <= Amount <= Capacity
	Capacity    float64
	Rate        float64 // Derived every tick from upgrade levels
	Unlocked    bool    // locked -> unlocked only

	Granularity float64 // Pricing unit; costs in this resource are rounded up to a multiple of it
	ClickYield  float64 // Base amount added by a manual synthesis
}

// Upgrade is a repeatable purchase. Count only ever increases.
type Upgrade struct {
	ID          string
	DisplayName string
	Description string
	Cost        map[string]float64 // ResourceID -> Required amount for the next level
	CostScalar  float64            // Growth applied to every cost entry after each purchase
	Effects     []Effect
	Count       int
	Unlocked    bool
}

// Conversion trades a fixed amount of one resource for another (e.g. DNA from RNA).
type Conversion struct {
	ID          string
	DisplayName string
	From        string
	To          string
	Cost        float64
	Yield       float64
}

// ResourceView is the renderer's projection of a Resource.
type ResourceView struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"name"`
	Amount      float64 `json:"amount"`
	Capacity    float64 `json:"capacity"`
	Rate        float64 `json:"rate"`
	Unlocked    bool    `json:"unlocked"`
}

// UpgradeView is the renderer's projection of an Upgrade.
type UpgradeView struct {
	ID          string             `json:"id"`
	DisplayName string             `json:"name"`
	Description string             `json:"description"`
	Count       int                `json:"count"`
	Cost        map[string]float64 `json:"cost"`
	Unlocked    bool               `json:"unlocked"`
	Affordable  bool               `json:"affordable"`
}

// ConversionView is the renderer's projection of a Conversion.
type ConversionView struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"name"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Cost        float64 `json:"cost"`
	Yield       float64 `json:"yield"`
	Available   bool    `json:"available"` // Both ends unlocked
}

// Snapshot is a full, detached copy of the simulation for rendering.
// Resources and upgrades keep their configured display order.
type Snapshot struct {
	Resources   []ResourceView   `json:"resources"`
	Upgrades    []UpgradeView    `json:"upgrades"`
	Conversions []ConversionView `json:"conversions"`
	Sections    []string         `json:"sections"`
	Flags       map[string]bool  `json:"flags"`
	Ticks       uint64           `json:"ticks"`
	LastAdvance time.Time        `json:"last_advance"`
}
