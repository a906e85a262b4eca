package models

import (
	"fmt"
)

// Phase defines one segment of the focus cycle.
type Phase string

const (
	PhaseWork       Phase = "Work"
	PhaseShortBreak Phase = "ShortBreak"
	PhaseLongBreak  Phase = "LongBreak"
	PhaseIdle       Phase = "Idle"
)

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseWork, PhaseShortBreak, PhaseLongBreak, PhaseIdle:
		return true
	}
	return false
}

// Default durations in seconds.
const (
	DefaultWorkDuration      = 25 * 60
	DefaultBreakDuration     = 5 * 60
	DefaultLongBreakDuration = 10 * 60
	DefaultCycles            = 4
	DefaultLongBreakInterval = 2
)

// SessionConfig is the durable timer state shared by every client.
type SessionConfig struct {
	WorkDuration      int   `json:"work_duration"`
	BreakDuration     int   `json:"break_duration"`
	LongBreakDuration int   `json:"long_break_duration"`
	Cycles            int   `json:"cycles"`
	CurrentCycle      int   `json:"current_cycle"`
	IsRunning         bool  `json:"is_running"`
	LongBreakInterval int   `json:"long_break_interval"`
	TimeLeft          int   `json:"time_left"`
	CurrentPhase      Phase `json:"current_phase"`
}

// DefaultSessionConfig returns a fresh, stopped configuration at the start of the first work phase.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		WorkDuration:      DefaultWorkDuration,
		BreakDuration:     DefaultBreakDuration,
		LongBreakDuration: DefaultLongBreakDuration,
		Cycles:            DefaultCycles,
		CurrentCycle:      0,
		IsRunning:         false,
		LongBreakInterval: DefaultLongBreakInterval,
		TimeLeft:          DefaultWorkDuration,
		CurrentPhase:      PhaseWork,
	}
}

// DurationFor returns the configured length of a phase in seconds. Idle has no duration.
func (c SessionConfig) DurationFor(p Phase) int {
	switch p {
	case PhaseWork:
		return c.WorkDuration
	case PhaseShortBreak:
		return c.BreakDuration
	case PhaseLongBreak:
		return c.LongBreakDuration
	default:
		return 0
	}
}

// MaxDuration is the upper bound for TimeLeft.
func (c SessionConfig) MaxDuration() int {
	return max(c.WorkDuration, c.BreakDuration, c.LongBreakDuration)
}

// ValidationError describes a rejected configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks a configuration submitted by a client.
func (c SessionConfig) Validate() error {
	positive := []struct {
		field string
		value int
	}{
		{"work_duration", c.WorkDuration},
		{"break_duration", c.BreakDuration},
		{"long_break_duration", c.LongBreakDuration},
		{"cycles", c.Cycles},
		{"long_break_interval", c.LongBreakInterval},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return &ValidationError{Field: p.field, Reason: "must be greater than 0"}
		}
	}

	if !c.CurrentPhase.Valid() {
		return &ValidationError{Field: "current_phase", Reason: fmt.Sprintf("unknown phase %q", c.CurrentPhase)}
	}
	if c.CurrentCycle < 0 || c.CurrentCycle > c.Cycles {
		return &ValidationError{Field: "current_cycle", Reason: fmt.Sprintf("must be between 0 and %d", c.Cycles)}
	}
	if c.TimeLeft < 0 || c.TimeLeft > c.MaxDuration() {
		return &ValidationError{Field: "time_left", Reason: fmt.Sprintf("must be between 0 and %d", c.MaxDuration())}
	}
	return nil
}

// Normalize repairs a config loaded from disk so the invariants hold.
func (c SessionConfig) Normalize() SessionConfig {
	if !c.CurrentPhase.Valid() {
		c.CurrentPhase = PhaseWork
	}
	if c.CurrentCycle < 0 {
		c.CurrentCycle = 0
	}
	if c.CurrentCycle > c.Cycles {
		c.CurrentCycle = c.Cycles
	}
	if c.TimeLeft < 0 {
		c.TimeLeft = 0
	}
	if m := c.MaxDuration(); c.TimeLeft > m {
		c.TimeLeft = m
	}
	if c.CurrentPhase == PhaseIdle {
		c.IsRunning = false
		c.TimeLeft = 0
	}
	return c
}
