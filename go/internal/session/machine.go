// Package session owns the canonical timer state and the single driver that
// counts it down.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomodoro/go/internal/events"
	"github.com/mcdev12/pomodoro/go/internal/models"
	"github.com/mcdev12/pomodoro/go/internal/store"
	"github.com/rs/zerolog/log"
)

// EffectSink receives phase events. Emit must not block.
type EffectSink interface {
	Emit(event events.PhaseEvent)
}

type nopSink struct{}

func (nopSink) Emit(events.PhaseEvent) {}

// Config contains runtime options for the Machine.
type Config struct {
	// Clock drives the countdown. In production, use clockwork.NewRealClock(). In tests, a FakeClock.
	Clock        clockwork.Clock
	TickInterval time.Duration
}

// Machine is the session state machine. Every operation is a single critical
// section over the shared SessionConfig.
type Machine struct {
	mu      sync.Mutex
	cfg     models.SessionConfig
	store   store.ConfigStore
	effects EffectSink
	options Config

	// driver bookkeeping; driverGen changes whenever a driver is started or
	// stopped so a stale driver can recognise itself and exit
	driverGen    uint64
	driverActive bool
	cancelDriver context.CancelFunc
	drivers      sync.WaitGroup
}

// New creates a Machine around an already loaded config.
func New(cfg models.SessionConfig, st store.ConfigStore, sink EffectSink, options Config) *Machine {
	if options.Clock == nil {
		options.Clock = clockwork.NewRealClock()
	}
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if sink == nil {
		sink = nopSink{}
	}

	return &Machine{
		cfg:     cfg.Normalize(),
		store:   st,
		effects: sink,
		options: options,
	}
}

// Snapshot returns a copy of the current config.
func (m *Machine) Snapshot() models.SessionConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Start marks the session as running and launches the driver if none is active.
// Calling it while a driver is already counting down is a no-op.
func (m *Machine) Start(ctx context.Context) error {
	return m.activate(ctx, "start")
}

// Resume continues a paused session from its remaining time.
func (m *Machine) Resume(ctx context.Context) error {
	return m.activate(ctx, "resume")
}

func (m *Machine) activate(ctx context.Context, op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.CurrentPhase == models.PhaseIdle {
		return ErrSessionFinished
	}
	if m.cfg.IsRunning && m.driverActive {
		return nil
	}

	m.cfg.IsRunning = true
	if m.cfg.TimeLeft == 0 {
		m.cfg.TimeLeft = m.cfg.DurationFor(m.cfg.CurrentPhase)
	}
	err := m.persistLocked(ctx, op)

	if m.startDriverLocked() {
		m.emitLocked(events.EventTypePhaseStarted, "")
	}

	log.Info().
		Str("op", op).
		Str("phase", string(m.cfg.CurrentPhase)).
		Int("time_left", m.cfg.TimeLeft).
		Msg("session running")
	return err
}

// Pause stops the countdown without touching the remaining time.
// Pausing a session that is not running does nothing.
func (m *Machine) Pause(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.IsRunning && !m.driverActive {
		return nil
	}

	m.cfg.IsRunning = false
	m.stopDriverLocked()

	log.Info().Int("time_left", m.cfg.TimeLeft).Msg("session paused")
	return m.persistLocked(ctx, "pause")
}

// ResetProgress rewinds to the first work phase while keeping the configured durations.
func (m *Machine) ResetProgress(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopDriverLocked()
	m.cfg.CurrentCycle = 0
	m.cfg.CurrentPhase = models.PhaseWork
	m.cfg.TimeLeft = m.cfg.WorkDuration
	m.cfg.IsRunning = false
	m.emitLocked(events.EventTypeSessionReset, "")

	log.Info().Msg("session progress reset")
	return m.persistLocked(ctx, "reset_progress")
}

// ResetFull restores every field to its default.
func (m *Machine) ResetFull(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopDriverLocked()
	m.cfg = models.DefaultSessionConfig()
	m.emitLocked(events.EventTypeSessionReset, "")

	log.Info().Msg("session config reset to defaults")
	return m.persistLocked(ctx, "reset_config")
}

// UpdateConfig replaces the whole config. Invalid configs are rejected and the
// previous one is kept.
func (m *Machine) UpdateConfig(ctx context.Context, cfg models.SessionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.Normalize()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg = cfg
	if m.cfg.IsRunning {
		if m.cfg.TimeLeft == 0 {
			m.cfg.TimeLeft = m.cfg.DurationFor(m.cfg.CurrentPhase)
		}
		if m.startDriverLocked() {
			m.emitLocked(events.EventTypePhaseStarted, "")
		}
	} else {
		m.stopDriverLocked()
	}

	log.Info().
		Int("work", cfg.WorkDuration).
		Int("break", cfg.BreakDuration).
		Int("long_break", cfg.LongBreakDuration).
		Int("cycles", cfg.Cycles).
		Msg("session config updated")
	return m.persistLocked(ctx, "update_config")
}

// Recover restarts the driver for a session that was running when the process last stopped.
func (m *Machine) Recover(ctx context.Context) error {
	m.mu.Lock()
	running := m.cfg.IsRunning
	m.mu.Unlock()

	if !running {
		return nil
	}
	log.Info().Msg("resuming session that was running before restart")
	return m.activate(ctx, "recover")
}

// Close stops any active driver and waits for it to exit.
func (m *Machine) Close() {
	m.mu.Lock()
	m.stopDriverLocked()
	m.mu.Unlock()

	m.drivers.Wait()
}

// advancePhaseLocked moves to the next phase and returns it.
func (m *Machine) advancePhaseLocked() models.Phase {
	next, cycle := NextPhase(m.cfg)
	m.cfg.CurrentPhase = next
	m.cfg.CurrentCycle = cycle
	return next
}

// tickLocked removes one second from the current phase. When the phase runs
// out it advances and reports the phase that just ended.
func (m *Machine) tickLocked() (bool, models.Phase) {
	if m.cfg.TimeLeft > 0 {
		m.cfg.TimeLeft--
	}
	if m.cfg.TimeLeft > 0 {
		return false, ""
	}

	previous := m.cfg.CurrentPhase
	m.advancePhaseLocked()
	m.cfg.TimeLeft = 0
	return true, previous
}

func (m *Machine) persistLocked(ctx context.Context, op string) error {
	if err := m.store.Save(ctx, m.cfg); err != nil {
		return &ConfigIOError{Op: op, Err: err}
	}
	return nil
}

func (m *Machine) emitLocked(t events.EventType, previous models.Phase) {
	ev := events.NewPhaseEvent(t, m.cfg, m.options.Clock.Now())
	ev.Previous = previous
	m.effects.Emit(ev)
}
