// Package events holds the phase-effect events shared by the session state
// machine, the effect dispatcher and the event bus publisher.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/pomodoro/go/internal/models"
)

// EventType identifies what happened to the session.
type EventType string

const (
	// EventTypePhaseStarted fires when the driver starts or resumes counting down a phase.
	EventTypePhaseStarted EventType = "PhaseStarted"
	// EventTypePhaseChanged fires when a phase runs out and the next one begins.
	EventTypePhaseChanged EventType = "PhaseChanged"
	EventTypeSessionReset EventType = "SessionReset"
	EventTypeSoundTest    EventType = "SoundTest"
	// EventTypeSitesChanged fires when the blocked-site list is edited.
	EventTypeSitesChanged EventType = "SitesChanged"
)

// PhaseEvent is the abstract side-effect request emitted at phase boundaries.
type PhaseEvent struct {
	ID        uuid.UUID    `json:"id"`
	Type      EventType    `json:"type"`
	Phase     models.Phase `json:"phase"`
	Previous  models.Phase `json:"previous_phase,omitempty"`
	Cycle     int          `json:"current_cycle"`
	Cycles    int          `json:"cycles"`
	Running   bool         `json:"is_running"`
	TimeLeft  int          `json:"time_left"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewPhaseEvent builds an event for the given config snapshot.
func NewPhaseEvent(t EventType, cfg models.SessionConfig, at time.Time) PhaseEvent {
	return PhaseEvent{
		ID:        uuid.New(),
		Type:      t,
		Phase:     cfg.CurrentPhase,
		Cycle:     cfg.CurrentCycle,
		Cycles:    cfg.Cycles,
		Running:   cfg.IsRunning,
		TimeLeft:  cfg.TimeLeft,
		Timestamp: at,
	}
}
