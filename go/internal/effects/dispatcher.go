// Package effects turns phase events into notifications, sounds, site
// blocking and event-bus messages, off the state machine's goroutines.
package effects

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomodoro/go/internal/events"
	"github.com/mcdev12/pomodoro/go/internal/models"
	"github.com/mcdev12/pomodoro/go/internal/platform"
	"github.com/rs/zerolog/log"
)

const defaultQueueSize = 64

type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

type Player interface {
	Play(ctx context.Context, file string) error
}

type Blocker interface {
	Block(ctx context.Context) error
	Unblock(ctx context.Context) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.PhaseEvent) error
}

// Config contains the collaborators. Any of them may be nil.
type Config struct {
	Notifier  Notifier
	Player    Player
	Blocker   Blocker
	Publisher Publisher
	Clock     clockwork.Clock
	QueueSize int
}

// Dispatcher queues phase events and runs their side effects in order.
type Dispatcher struct {
	config Config
	queue  chan events.PhaseEvent
}

func NewDispatcher(config Config) *Dispatcher {
	if config.QueueSize <= 0 {
		config.QueueSize = defaultQueueSize
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	return &Dispatcher{
		config: config,
		queue:  make(chan events.PhaseEvent, config.QueueSize),
	}
}

// Emit queues an event. It never blocks; when the queue is full the event is dropped.
func (d *Dispatcher) Emit(event events.PhaseEvent) {
	select {
	case d.queue <- event:
	default:
		log.Warn().
			Str("event_type", string(event.Type)).
			Str("phase", string(event.Phase)).
			Msg("effect queue full, dropping event")
	}
}

// PlayTest queues the test sound.
func (d *Dispatcher) PlayTest() {
	d.Emit(events.PhaseEvent{
		ID:        uuid.New(),
		Type:      events.EventTypeSoundTest,
		Timestamp: d.config.Clock.Now(),
	})
}

// SitesChanged queues a refresh of the hosts section. It only has an effect
// while a running work phase holds the block.
func (d *Dispatcher) SitesChanged(cfg models.SessionConfig) {
	d.Emit(events.NewPhaseEvent(events.EventTypeSitesChanged, cfg, d.config.Clock.Now()))
}

// Run consumes events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Info().Msg("effect dispatcher started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("effect dispatcher stopped")
			return
		case event := <-d.queue:
			d.handle(ctx, event)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, event events.PhaseEvent) {
	logger := log.With().
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Str("phase", string(event.Phase)).
		Logger()

	switch event.Type {
	case events.EventTypePhaseStarted, events.EventTypePhaseChanged:
		cue := cueFor(event.Phase)
		d.notify(ctx, cue.title, cue.message)
		d.play(ctx, cue.sound)
		if event.Phase == models.PhaseWork {
			d.block(ctx)
		} else {
			d.unblock(ctx)
		}
	case events.EventTypeSessionReset:
		d.unblock(ctx)
	case events.EventTypeSoundTest:
		d.play(ctx, platform.SoundBreakStart)
	case events.EventTypeSitesChanged:
		if event.Phase == models.PhaseWork && event.Running {
			d.block(ctx)
		}
	default:
		logger.Warn().Msg("unknown effect event")
		return
	}

	if d.config.Publisher != nil && event.Type != events.EventTypeSitesChanged {
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := d.config.Publisher.Publish(pubCtx, event); err != nil {
			logger.Error().Err(err).Msg("failed to publish phase event")
		}
	}
}

func (d *Dispatcher) notify(ctx context.Context, title, message string) {
	if d.config.Notifier == nil {
		return
	}
	if err := d.config.Notifier.Notify(ctx, title, message); err != nil {
		log.Warn().Err(err).Str("title", title).Msg("notification failed")
	}
}

func (d *Dispatcher) play(ctx context.Context, sound string) {
	if d.config.Player == nil {
		return
	}
	if err := d.config.Player.Play(ctx, sound); err != nil {
		log.Warn().Err(err).Str("sound", sound).Msg("sound playback failed")
	}
}

func (d *Dispatcher) block(ctx context.Context) {
	if d.config.Blocker == nil {
		return
	}
	if err := d.config.Blocker.Block(ctx); err != nil {
		log.Warn().Err(err).Msg("site blocking failed")
	}
}

func (d *Dispatcher) unblock(ctx context.Context) {
	if d.config.Blocker == nil {
		return
	}
	if err := d.config.Blocker.Unblock(ctx); err != nil {
		log.Warn().Err(err).Msg("site unblocking failed")
	}
}
