package session

import "github.com/mcdev12/pomodoro/go/internal/models"

// NextPhase computes the phase that follows the current one and the cycle
// counter that goes with it. Only a completed work phase advances the cycle.
func NextPhase(cfg models.SessionConfig) (models.Phase, int) {
	switch cfg.CurrentPhase {
	case models.PhaseWork:
		cycle := cfg.CurrentCycle + 1
		if cycle >= cfg.Cycles {
			return models.PhaseIdle, min(cycle, cfg.Cycles)
		}
		if cfg.LongBreakInterval > 0 && cycle%cfg.LongBreakInterval == 0 {
			return models.PhaseLongBreak, cycle
		}
		return models.PhaseShortBreak, cycle

	case models.PhaseShortBreak, models.PhaseLongBreak:
		if cfg.CurrentCycle >= cfg.Cycles {
			return models.PhaseIdle, cfg.CurrentCycle
		}
		return models.PhaseWork, cfg.CurrentCycle

	default:
		return models.PhaseIdle, cfg.CurrentCycle
	}
}
