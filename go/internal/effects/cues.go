package effects

import (
	"github.com/mcdev12/pomodoro/go/internal/models"
	"github.com/mcdev12/pomodoro/go/internal/platform"
)

type cue struct {
	title   string
	message string
	sound   string
}

func cueFor(phase models.Phase) cue {
	switch phase {
	case models.PhaseWork:
		return cue{"🔨 Working...", "Pomodoro in progress", platform.SoundWorkStart}
	case models.PhaseShortBreak:
		return cue{"☕ Short break...", "Take a short break", platform.SoundBreakStart}
	case models.PhaseLongBreak:
		return cue{"🛌 Long break...", "Take a long break", platform.SoundBreakStart}
	default:
		return cue{"🕒 Pomodoro finished", "All cycles done or waiting", platform.SoundFinished}
	}
}
