package workflow

import (
	"context"
	"fmt"
)

// Machine tracks a workflow status and validates transitions against the
// configured transition table.
type Machine interface {
	// Status returns the current status
	Status() Status

	// CanFire returns true if the trigger is permitted in the current status
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new status if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers configured for the current status
	PermittedTriggers() []Trigger
}

// GuardFunc evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// Builder assembles a transition table and builds machine instances from it
type Builder interface {
	// Configure returns the transition configuration for the given status
	Configure(status Status) Configuration

	// Build creates a machine with the given initial status
	Build(initial Status) Machine
}

// Configuration configures outgoing transitions for one status
type Configuration interface {
	// Permit allows a trigger to transition to the target status
	Permit(trigger Trigger, to Status) Configuration

	// PermitIf allows the transition only when the guard passes
	PermitIf(trigger Trigger, to Status, guard GuardFunc) Configuration
}

type transition struct {
	to    Status
	guard GuardFunc
}

type statusConfig struct {
	transitions map[Trigger][]transition
}

type builder struct {
	configs map[Status]*statusConfig
}

// NewBuilder creates an empty transition-table builder
func NewBuilder() Builder {
	return &builder{configs: make(map[Status]*statusConfig)}
}

func (b *builder) Configure(status Status) Configuration {
	if !status.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", status))
	}
	cfg, ok := b.configs[status]
	if !ok {
		cfg = &statusConfig{transitions: make(map[Trigger][]transition)}
		b.configs[status] = cfg
	}
	return &configuration{cfg: cfg}
}

func (b *builder) Build(initial Status) Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial status: %s", initial))
	}
	// Copy the table so machines are unaffected by later Configure calls.
	configs := make(map[Status]*statusConfig, len(b.configs))
	for status, cfg := range b.configs {
		copied := &statusConfig{transitions: make(map[Trigger][]transition, len(cfg.transitions))}
		for trigger, ts := range cfg.transitions {
			copied.transitions[trigger] = append([]transition(nil), ts...)
		}
		configs[status] = copied
	}
	return &machine{current: initial, configs: configs}
}

type configuration struct {
	cfg *statusConfig
}

func (c *configuration) Permit(trigger Trigger, to Status) Configuration {
	return c.PermitIf(trigger, to, nil)
}

func (c *configuration) PermitIf(trigger Trigger, to Status, guard GuardFunc) Configuration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", to))
	}
	c.cfg.transitions[trigger] = append(c.cfg.transitions[trigger], transition{to: to, guard: guard})
	return c
}

type machine struct {
	current Status
	configs map[Status]*statusConfig
}

func (m *machine) Status() Status {
	return m.current
}

func (m *machine) CanFire(trigger Trigger) bool {
	cfg, ok := m.configs[m.current]
	if !ok {
		return false
	}
	return len(cfg.transitions[trigger]) > 0
}

func (m *machine) Fire(ctx context.Context, trigger Trigger) error {
	cfg, ok := m.configs[m.current]
	if !ok {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}
	transitions := cfg.transitions[trigger]
	if len(transitions) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}
	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.to
			return nil
		}
	}
	return fmt.Errorf("%w: trigger %s from %s", ErrGuardFailed, trigger, m.current)
}

func (m *machine) PermittedTriggers() []Trigger {
	cfg, ok := m.configs[m.current]
	if !ok {
		return nil
	}
	triggers := make([]Trigger, 0, len(cfg.transitions))
	for trigger := range cfg.transitions {
		triggers = append(triggers, trigger)
	}
	return triggers
}
