package game

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// EffectKind tags an upgrade effect. New kinds add a type and a case in the switches below.
type EffectKind string

const (
	EffectCapacity EffectKind = "capacity" // Permanent capacity increase, applied at purchase
	EffectRate     EffectKind = "rate"     // Per-level rate contribution, applied by the tick
	EffectClick    EffectKind = "click"    // Per-level bonus to manual synthesis yield
)

// Effect is one operation granted by purchasing an upgrade level.
type Effect interface {
	Kind() EffectKind
	Target() string // Resource ID the effect acts on
}

// CapacityBoost raises a resource's capacity by Amount for every level bought.
type CapacityBoost struct {
	Resource string
	Amount   float64
}

func (CapacityBoost) Kind() EffectKind { return EffectCapacity }
func (e CapacityBoost) Target() string { return e.Resource }

// RateContribution adds AmountPerLevel x Count to a resource's rate.
type RateContribution struct {
	Resource       string
	AmountPerLevel float64
}

func (RateContribution) Kind() EffectKind { return EffectRate }
func (e RateContribution) Target() string { return e.Resource }

// ClickBoost adds AmountPerLevel x Count to the synthesis yield of a resource.
type ClickBoost struct {
	Resource       string
	AmountPerLevel float64
}

func (ClickBoost) Kind() EffectKind { return EffectClick }
func (e ClickBoost) Target() string { return e.Resource }

// NewEffect builds an effect from its configured kind.
func NewEffect(kind EffectKind, resource string, amount float64) (Effect, error) {
	switch kind {
	case EffectCapacity:
		return CapacityBoost{Resource: resource, Amount: amount}, nil
	case EffectRate:
		return RateContribution{Resource: resource, AmountPerLevel: amount}, nil
	case EffectClick:
		return ClickBoost{Resource: resource, AmountPerLevel: amount}, nil
	default:
		return nil, fmt.Errorf("%w: unknown effect kind %q", ErrInvalidConfig, kind)
	}
}

// applyOnPurchase performs the immediate part of an effect when one level is bought.
// Level-scaled effects are read lazily and need nothing here.
func applyOnPurchase(s *State, eff Effect) {
	switch e := eff.(type) {
	case CapacityBoost:
		if r, ok := s.Resources[e.Resource]; ok {
			r.Capacity += e.Amount
			clamp(r)
		}
	case RateContribution, ClickBoost:
	}
}

// rateContribution is what one effect adds to resourceID's rate at the given level.
func rateContribution(eff Effect, resourceID string, count int) float64 {
	switch e := eff.(type) {
	case RateContribution:
		if e.Resource == resourceID {
			return float64(count) * e.AmountPerLevel
		}
	}
	return 0
}

// clickContribution is what one effect adds to resourceID's synthesis yield.
func clickContribution(eff Effect, resourceID string, count int) float64 {
	switch e := eff.(type) {
	case ClickBoost:
		if e.Resource == resourceID {
			return float64(count) * e.AmountPerLevel
		}
	}
	return 0
}

// scaleCost grows one cost entry by scalar and rounds up to the pricing granularity.
// Decimal arithmetic keeps ceil(100 x 1.1) at 110 instead of 111.
func scaleCost(cost, scalar, granularity float64) float64 {
	if granularity <= 0 {
		granularity = 1
	}
	g := decimal.NewFromFloat(granularity)
	scaled := decimal.NewFromFloat(cost).Mul(decimal.NewFromFloat(scalar))
	return scaled.Div(g).Ceil().Mul(g).InexactFloat64()
}
