package session

import (
	"context"
	"time"

	"github.com/mcdev12/pomodoro/go/internal/events"
	"github.com/mcdev12/pomodoro/go/internal/models"
	"github.com/rs/zerolog/log"
)

// tickSaveTimeout bounds the per-tick save so a slow disk cannot stall the lock forever.
const tickSaveTimeout = 5 * time.Second

// startDriverLocked launches a driver unless one is already active.
func (m *Machine) startDriverLocked() bool {
	if m.driverActive {
		return false
	}

	m.driverGen++
	ctx, cancel := context.WithCancel(context.Background())
	m.driverActive = true
	m.cancelDriver = cancel

	m.drivers.Add(1)
	go m.drive(ctx, m.driverGen)

	log.Debug().Uint64("driver", m.driverGen).Msg("timer driver started")
	return true
}

// stopDriverLocked cancels the active driver, if any.
func (m *Machine) stopDriverLocked() {
	if !m.driverActive {
		return
	}
	m.cancelDriver()
	m.cancelDriver = nil
	m.driverActive = false
	m.driverGen++
}

// drive ticks once per interval until step reports the countdown is over.
// The wait happens outside the lock.
func (m *Machine) drive(ctx context.Context, gen uint64) {
	defer m.drivers.Done()

	ticker := m.options.Clock.NewTicker(m.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Uint64("driver", gen).Msg("timer driver cancelled")
			return
		case <-ticker.Chan():
		}

		if !m.step(gen) {
			log.Debug().Uint64("driver", gen).Msg("timer driver stopped")
			return
		}
	}
}

// step performs one tick for driver gen and reports whether it should keep going.
func (m *Machine) step(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.driverActive || gen != m.driverGen {
		return false
	}
	if !m.cfg.IsRunning || m.cfg.CurrentPhase == models.PhaseIdle || m.cfg.TimeLeft == 0 {
		m.stopDriverLocked()
		return false
	}

	changed, previous := m.tickLocked()
	if changed {
		m.reseedLocked()
	}

	ctx, cancel := context.WithTimeout(context.Background(), tickSaveTimeout)
	defer cancel()
	if err := m.persistLocked(ctx, "tick"); err != nil {
		log.Error().Err(err).Int("time_left", m.cfg.TimeLeft).Msg("failed to persist tick")
	}

	if !changed {
		return true
	}

	m.emitLocked(events.EventTypePhaseChanged, previous)
	log.Info().
		Str("from", string(previous)).
		Str("to", string(m.cfg.CurrentPhase)).
		Int("cycle", m.cfg.CurrentCycle).
		Msg("phase changed")

	if m.cfg.CurrentPhase == models.PhaseIdle {
		m.stopDriverLocked()
		return false
	}
	return true
}

// reseedLocked loads the duration of the phase just entered. Entering Idle
// ends the session.
func (m *Machine) reseedLocked() {
	if m.cfg.CurrentPhase == models.PhaseIdle {
		m.cfg.IsRunning = false
		m.cfg.TimeLeft = 0
		return
	}
	m.cfg.TimeLeft = m.cfg.DurationFor(m.cfg.CurrentPhase)
}
