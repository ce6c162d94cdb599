/*
Package game
File: economy.go
Description:
    Purchases. Upgrades and conversions share one discipline:
    1. Check every cost entry against the pre-purchase state.
    2. Only if all pass, deduct everything and apply the result.

    A failed check never deducts anything.
*/

package game

import (
	"fmt"
	"slices"
	"strings"
)

// PurchaseUpgrade buys one level of an unlocked upgrade.
func (e *Engine) PurchaseUpgrade(upgradeID string) error {
	u, ok := e.state.Upgrades[upgradeID]
	if !ok {
		return fmt.Errorf("%w: upgrade %q", ErrUnknownEntity, upgradeID)
	}
	if !u.Unlocked {
		return fmt.Errorf("%w: upgrade %q", ErrLockedEntity, upgradeID)
	}

	// 1. Affordability
	if missing := e.shortfall(u.Cost); len(missing) > 0 {
		e.emit(Notification{
			Reason:  ReasonInsufficientFunds,
			Entity:  upgradeID,
			Message: "Not enough resources.",
		})
		return fmt.Errorf("%w: upgrade %q needs more %s", ErrInsufficientResources, upgradeID, strings.Join(missing, ", "))
	}

	// 2. Deduct
	for id, amt := range u.Cost {
		r := e.state.Resources[id]
		r.Amount -= amt
		clamp(r)
	}

	// 3. Level up and apply immediate effects. Rate effects are picked up by the next tick.
	u.Count++
	for _, eff := range u.Effects {
		applyOnPurchase(e.state, eff)
	}

	// 4. Scale every cost entry for the next level
	for id, amt := range u.Cost {
		u.Cost[id] = scaleCost(amt, u.CostScalar, e.state.Resources[id].Granularity)
	}

	unlocked := evaluateRules(e.state, e.rules)
	e.notify(Notification{
		Reason:  ReasonPurchase,
		Entity:  upgradeID,
		Message: fmt.Sprintf("%s evolved.", u.DisplayName),
	}, unlocked...)
	return nil
}

// PurchaseConversion spends fixedCost of one resource for a single unit of another.
func (e *Engine) PurchaseConversion(fromID, toID string, fixedCost float64) error {
	return e.convert(fromID, toID, fixedCost, 1, "")
}

// Convert runs a configured conversion by id.
func (e *Engine) Convert(conversionID string) error {
	c, ok := e.state.Conversions[conversionID]
	if !ok {
		return fmt.Errorf("%w: conversion %q", ErrUnknownEntity, conversionID)
	}
	return e.convert(c.From, c.To, c.Cost, c.Yield, c.DisplayName)
}

func (e *Engine) convert(fromID, toID string, cost, yield float64, name string) error {
	if !finite(cost) || cost <= 0 || !finite(yield) || yield <= 0 {
		return fmt.Errorf("%w: conversion %s -> %s costs %v for %v", ErrInvalidAmount, fromID, toID, cost, yield)
	}
	from, err := e.resource(fromID)
	if err != nil {
		return err
	}
	to, err := e.resource(toID)
	if err != nil {
		return err
	}

	if from.Amount < cost {
		e.emit(Notification{
			Reason:  ReasonInsufficientFunds,
			Entity:  toID,
			Message: "Not enough resources.",
		})
		return fmt.Errorf("%w: %s needs %g %s", ErrInsufficientResources, toID, cost, fromID)
	}

	from.Amount -= cost
	clamp(from)
	to.Amount += yield
	clamp(to)

	if name == "" {
		name = to.DisplayName
	}
	unlocked := evaluateRules(e.state, e.rules)
	e.notify(Notification{
		Reason:  ReasonConversion,
		Entity:  toID,
		Message: fmt.Sprintf("Assembled %s.", name),
	}, unlocked...)
	return nil
}

// shortfall lists, in sorted order, the resources that cannot cover their cost entry.
func (e *Engine) shortfall(cost map[string]float64) []string {
	var missing []string
	ids := make([]string, 0, len(cost))
	for id := range cost {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		r, ok := e.state.Resources[id]
		if !ok || r.Amount < cost[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
