/*
Package game
File: config.go
Description:
    Maps 'protocell.yaml' onto Go structs and validates it.

    Which resources, upgrades, conversions, and unlock rules exist is data, not code.
    A malformed file is rejected here instead of surfacing later as silent no-ops.
*/

package game

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration struct, mapping to the entire 'protocell.yaml' file.
type Config struct {
	Engine      EngineConfig       `yaml:"engine" json:"engine"`
	Resources   []ResourceConfig   `yaml:"resources" json:"resources"`
	Upgrades    []UpgradeConfig    `yaml:"upgrades" json:"upgrades"`
	Conversions []ConversionConfig `yaml:"conversions" json:"conversions"`
	UnlockRules []UnlockRuleConfig `yaml:"unlock_rules" json:"unlock_rules"`
}

// EngineConfig holds the loop and server tuning values.
type EngineConfig struct {
	MinTickInterval time.Duration `yaml:"min_tick_interval" json:"min_tick_interval"` // Smallest dt the engine applies
	DriverInterval  time.Duration `yaml:"driver_interval" json:"driver_interval"`     // How often the driver polls Advance
	ClickRateLimit  float64       `yaml:"click_rate_limit" json:"click_rate_limit"`   // Synthesize calls per second per client
	JournalSize     int           `yaml:"journal_size" json:"journal_size"`           // Message log entries kept
}

type ResourceConfig struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Capacity    float64 `yaml:"capacity" json:"capacity"`
	Unlocked    bool    `yaml:"unlocked" json:"unlocked"`
	Granularity float64 `yaml:"granularity" json:"granularity"`
	ClickYield  float64 `yaml:"click_yield" json:"click_yield"`
}

type UpgradeConfig struct {
	ID          string             `yaml:"id" json:"id"`
	Name        string             `yaml:"name" json:"name"`
	Description string             `yaml:"description" json:"description"`
	Cost        map[string]float64 `yaml:"cost" json:"cost"`
	CostScalar  float64            `yaml:"cost_scalar" json:"cost_scalar"`
	Unlocked    bool               `yaml:"unlocked" json:"unlocked"`
	Effects     []EffectConfig     `yaml:"effects" json:"effects"`
}

type EffectConfig struct {
	Kind     EffectKind `yaml:"kind" json:"kind"`
	Resource string     `yaml:"resource" json:"resource"`
	Amount   float64    `yaml:"amount" json:"amount"`
}

type ConversionConfig struct {
	ID    string  `yaml:"id" json:"id"`
	Name  string  `yaml:"name" json:"name"`
	From  string  `yaml:"from" json:"from"`
	To    string  `yaml:"to" json:"to"`
	Cost  float64 `yaml:"cost" json:"cost"`
	Yield float64 `yaml:"yield" json:"yield"`
}

// UnlockRuleConfig fires once, guarded by Flag, when the condition first holds.
type UnlockRuleConfig struct {
	Flag    string               `yaml:"flag" json:"flag"`
	When    ConditionConfig      `yaml:"when" json:"when"`
	Unlock  []UnlockTargetConfig `yaml:"unlock" json:"unlock"`
	Message string               `yaml:"message" json:"message"`
}

// ConditionConfig compares either a resource amount or an upgrade level against Value.
// Exactly one of Resource and Upgrade is set.
type ConditionConfig struct {
	Resource string  `yaml:"resource" json:"resource,omitempty"`
	Upgrade  string  `yaml:"upgrade" json:"upgrade,omitempty"`
	Op       string  `yaml:"op" json:"op"` // "==", "!=", "<", "<=", ">", ">="
	Value    float64 `yaml:"value" json:"value"`
}

type UnlockTargetConfig struct {
	Kind TargetKind `yaml:"kind" json:"kind"`
	ID   string     `yaml:"id" json:"id"`
}

// LoadConfig reads and parses the YAML file at path.
func LoadConfig(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(f)
}

// ParseConfig decodes YAML strictly and fills defaults. It does not validate.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.MinTickInterval <= 0 {
		c.Engine.MinTickInterval = 100 * time.Millisecond
	}
	if c.Engine.DriverInterval <= 0 {
		c.Engine.DriverInterval = 50 * time.Millisecond
	}
	if c.Engine.ClickRateLimit <= 0 {
		c.Engine.ClickRateLimit = 20
	}
	if c.Engine.JournalSize <= 0 {
		c.Engine.JournalSize = 50
	}
	for i := range c.Resources {
		if c.Resources[i].Granularity == 0 {
			c.Resources[i].Granularity = 1
		}
	}
	for i := range c.Conversions {
		if c.Conversions[i].Yield == 0 {
			c.Conversions[i].Yield = 1
		}
	}
}

// Validate reports every problem in the configuration, each wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	resources := make(map[string]bool, len(c.Resources))
	for _, r := range c.Resources {
		switch {
		case r.ID == "":
			bad("resource with empty id")
			continue
		case resources[r.ID]:
			bad("duplicate resource %q", r.ID)
		}
		resources[r.ID] = true
		if r.Capacity < 0 {
			bad("resource %q has negative capacity", r.ID)
		}
		if r.Granularity <= 0 {
			bad("resource %q needs a positive granularity", r.ID)
		}
		if r.ClickYield < 0 {
			bad("resource %q has negative click_yield", r.ID)
		}
	}

	upgrades := make(map[string]bool, len(c.Upgrades))
	for _, u := range c.Upgrades {
		switch {
		case u.ID == "":
			bad("upgrade with empty id")
			continue
		case upgrades[u.ID]:
			bad("duplicate upgrade %q", u.ID)
		}
		upgrades[u.ID] = true
		if len(u.Cost) == 0 {
			bad("upgrade %q has no cost", u.ID)
		}
		for res, amt := range u.Cost {
			if !resources[res] {
				bad("upgrade %q cost references unknown resource %q", u.ID, res)
			}
			if amt <= 0 {
				bad("upgrade %q cost for %q must be positive", u.ID, res)
			}
		}
		if u.CostScalar <= 1 {
			bad("upgrade %q cost_scalar must be greater than 1", u.ID)
		}
		for _, e := range u.Effects {
			if _, err := NewEffect(e.Kind, e.Resource, e.Amount); err != nil {
				errs = append(errs, fmt.Errorf("upgrade %q: %w", u.ID, err))
			}
			if !resources[e.Resource] {
				bad("upgrade %q effect references unknown resource %q", u.ID, e.Resource)
			}
			if e.Kind == EffectCapacity && e.Amount < 0 {
				bad("upgrade %q capacity effect must not be negative", u.ID)
			}
		}
	}

	conversions := make(map[string]bool, len(c.Conversions))
	for _, cv := range c.Conversions {
		if cv.ID == "" {
			bad("conversion with empty id")
			continue
		}
		if conversions[cv.ID] {
			bad("duplicate conversion %q", cv.ID)
		}
		conversions[cv.ID] = true
		if !resources[cv.From] || !resources[cv.To] {
			bad("conversion %q references unknown resource", cv.ID)
		}
		if cv.Cost <= 0 || cv.Yield <= 0 {
			bad("conversion %q needs positive cost and yield", cv.ID)
		}
	}

	flags := make(map[string]bool, len(c.UnlockRules))
	for _, rule := range c.UnlockRules {
		if rule.Flag == "" {
			bad("unlock rule with empty flag")
			continue
		}
		if flags[rule.Flag] {
			bad("duplicate unlock flag %q", rule.Flag)
		}
		flags[rule.Flag] = true

		w := rule.When
		switch {
		case (w.Resource == "") == (w.Upgrade == ""):
			bad("unlock rule %q must watch exactly one resource or upgrade", rule.Flag)
		case w.Resource != "" && !resources[w.Resource]:
			bad("unlock rule %q watches unknown resource %q", rule.Flag, w.Resource)
		case w.Upgrade != "" && !upgrades[w.Upgrade]:
			bad("unlock rule %q watches unknown upgrade %q", rule.Flag, w.Upgrade)
		}
		if _, ok := comparators[w.Op]; !ok {
			bad("unlock rule %q has unknown operator %q", rule.Flag, w.Op)
		}

		if len(rule.Unlock) == 0 {
			bad("unlock rule %q unlocks nothing", rule.Flag)
		}
		for _, t := range rule.Unlock {
			switch t.Kind {
			case TargetResource:
				if !resources[t.ID] {
					bad("unlock rule %q targets unknown resource %q", rule.Flag, t.ID)
				}
			case TargetUpgrade:
				if !upgrades[t.ID] {
					bad("unlock rule %q targets unknown upgrade %q", rule.Flag, t.ID)
				}
			case TargetSection:
				if t.ID == "" {
					bad("unlock rule %q targets a section with empty id", rule.Flag)
				}
			default:
				bad("unlock rule %q has unknown target kind %q", rule.Flag, t.Kind)
			}
		}
	}

	return errors.Join(errs...)
}
