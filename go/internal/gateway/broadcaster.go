package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomodoro/go/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultBroadcastInterval is how often status is pushed to every client.
const DefaultBroadcastInterval = time.Second

// StatusSource provides the state pushed on each broadcast.
type StatusSource interface {
	Snapshot() models.SessionConfig
}

// Broadcaster periodically pushes a Status response to every observer.
type Broadcaster struct {
	source   StatusSource
	sites    Sites
	registry *ConnectionManager
	clock    clockwork.Clock
	interval time.Duration
}

func NewBroadcaster(source StatusSource, sites Sites, registry *ConnectionManager, clock clockwork.Clock, interval time.Duration) *Broadcaster {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	return &Broadcaster{
		source:   source,
		sites:    sites,
		registry: registry,
		clock:    clock,
		interval: interval,
	}
}

// Run broadcasts once per interval until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := b.clock.NewTicker(b.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", b.interval).Msg("status broadcaster started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("status broadcaster stopped")
			return
		case <-ticker.Chan():
			b.BroadcastOnce()
		}
	}
}

// BroadcastOnce performs a single pass and returns the number of evicted observers.
func (b *Broadcaster) BroadcastOnce() int {
	if b.registry.Count() == 0 {
		return 0
	}

	cfg := b.source.Snapshot()

	var blocked []string
	if b.sites != nil {
		sites, err := b.sites.List()
		if err != nil {
			log.Warn().Err(err).Msg("failed to read blocked sites for broadcast")
		} else {
			blocked = sites
		}
	}

	data, err := json.Marshal(StatusResponse(cfg, blocked))
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal status broadcast")
		return 0
	}

	evicted := b.registry.Broadcast(data)
	log.Trace().
		Int("time_left", cfg.TimeLeft).
		Str("phase", string(cfg.CurrentPhase)).
		Int("evicted", evicted).
		Msg("status broadcast")
	return evicted
}
