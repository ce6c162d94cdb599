package game

import "fmt"

// TargetKind names what an unlock rule reveals.
type TargetKind string

const (
	TargetResource TargetKind = "resource"
	TargetUpgrade  TargetKind = "upgrade"
	TargetSection  TargetKind = "section" // An interface section such as a tab
)

// UnlockTarget is one entity revealed by a rule.
type UnlockTarget struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
}

// Predicate reports whether a rule's triggering condition holds.
type Predicate func(s *State) bool

// UnlockRule reveals its targets the first time When holds, then sets Flag.
// A set flag keeps the rule from firing again.
type UnlockRule struct {
	Flag    string
	When    Predicate
	Unlock  []UnlockTarget
	Message string
}

var comparators = map[string]func(a, b float64) bool{
	"==": func(a, b float64) bool { return a == b },
	"!=": func(a, b float64) bool { return a != b },
	"<":  func(a, b float64) bool { return a < b },
	"<=": func(a, b float64) bool { return a <= b },
	">":  func(a, b float64) bool { return a > b },
	">=": func(a, b float64) bool { return a >= b },
}

// Threshold builds a predicate from a configured condition.
func Threshold(c ConditionConfig) (Predicate, error) {
	cmp, ok := comparators[c.Op]
	if !ok {
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidConfig, c.Op)
	}
	if c.Upgrade != "" {
		return func(s *State) bool {
			u, ok := s.Upgrades[c.Upgrade]
			return ok && cmp(float64(u.Count), c.Value)
		}, nil
	}
	return func(s *State) bool {
		r, ok := s.Resources[c.Resource]
		return ok && cmp(r.Amount, c.Value)
	}, nil
}

func compileRules(cfg []UnlockRuleConfig) ([]UnlockRule, error) {
	rules := make([]UnlockRule, 0, len(cfg))
	for _, rc := range cfg {
		when, err := Threshold(rc.When)
		if err != nil {
			return nil, fmt.Errorf("unlock rule %q: %w", rc.Flag, err)
		}
		targets := make([]UnlockTarget, len(rc.Unlock))
		for i, t := range rc.Unlock {
			targets[i] = UnlockTarget{Kind: t.Kind, ID: t.ID}
		}
		rules = append(rules, UnlockRule{Flag: rc.Flag, When: when, Unlock: targets, Message: rc.Message})
	}
	return rules, nil
}

// evaluateRules runs every rule in declaration order and returns one notification per
// rule that fired. A rule can see what an earlier rule in the same pass unlocked.
func evaluateRules(s *State, rules []UnlockRule) []Notification {
	var fired []Notification
	for _, rule := range rules {
		if s.Flags[rule.Flag] || !rule.When(s) {
			continue
		}
		for _, t := range rule.Unlock {
			s.unlock(t)
		}
		s.Flags[rule.Flag] = true

		fired = append(fired, Notification{
			Reason:   ReasonUnlock,
			Entity:   rule.Flag,
			Unlocked: append([]UnlockTarget(nil), rule.Unlock...),
			Message:  rule.Message,
		})
	}
	return fired
}
