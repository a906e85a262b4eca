package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mcdev12/pomodoro/go/internal/models"
	"github.com/mcdev12/pomodoro/go/internal/session"
	"github.com/rs/zerolog/log"
)

// Session is the state machine surface the dispatcher drives.
type Session interface {
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	ResetProgress(ctx context.Context) error
	ResetFull(ctx context.Context) error
	UpdateConfig(ctx context.Context, cfg models.SessionConfig) error
	Snapshot() models.SessionConfig
}

// Sites is the blocked-site list.
type Sites interface {
	List() ([]string, error)
	Add(host string) (bool, error)
	Remove(host string) (bool, error)
}

// Effects is the part of the effect dispatcher commands can trigger directly.
type Effects interface {
	PlayTest()
	SitesChanged(cfg models.SessionConfig)
}

// ConfigLocator reports where the durable session config lives.
type ConfigLocator interface {
	Location() string
	Exists(ctx context.Context) (bool, error)
}

// ErrConfigNotFound answers myconfig when nothing has been persisted.
var ErrConfigNotFound = errors.New("❌ Config file not found")

// Dispatcher runs one command at a time against the session.
type Dispatcher struct {
	mu      sync.Mutex
	session Session
	sites   Sites
	effects Effects
	config  ConfigLocator
}

func NewDispatcher(s Session, sites Sites, effects Effects, config ConfigLocator) *Dispatcher {
	return &Dispatcher{
		session: s,
		sites:   sites,
		effects: effects,
		config:  config,
	}
}

// Handle decodes and executes raw. Every outcome, including malformed input,
// is reported as a Response.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) Response {
	req, err := ParseRequest(raw)
	if err != nil {
		log.Warn().Err(err).Msg("rejected client command")
		resp := ErrorResponse(err)
		resp.RequestID = req.RequestID
		return resp
	}

	d.mu.Lock()
	resp := d.execute(ctx, req)
	d.mu.Unlock()

	resp.RequestID = req.RequestID
	return resp
}

func (d *Dispatcher) execute(ctx context.Context, req Request) Response {
	logger := log.With().Str("command", req.Command).Logger()

	switch req.Command {
	case CommandStart:
		return d.mutate(ctx, req, d.session.Start, "▶️ Pomodoro started")
	case CommandPause:
		return d.mutate(ctx, req, d.session.Pause, "⏸️ Pomodoro paused")
	case CommandResume:
		return d.mutate(ctx, req, d.session.Resume, "▶️ Pomodoro resumed")
	case CommandResetProgress:
		return d.mutate(ctx, req, d.session.ResetProgress, "🔄 Progress reset")
	case CommandResetConfig:
		return d.mutate(ctx, req, d.session.ResetFull, "🔄 Config reset to defaults")
	case CommandUpdateConfig:
		update := func(ctx context.Context) error {
			return d.session.UpdateConfig(ctx, *req.NewConfig)
		}
		return d.mutate(ctx, req, update, "✅ Config updated")

	case CommandStatus:
		return StatusResponse(d.session.Snapshot(), d.blockedSites())
	case CommandMyConfig:
		return d.myConfig(ctx)
	case CommandHelp:
		return HelpResponse()
	case CommandTest:
		if d.effects != nil {
			d.effects.PlayTest()
		}
		return MessageResponse("🔊 Test sound played")

	case CommandBlock:
		added, err := d.sites.Add(req.URL)
		if err != nil {
			logger.Warn().Err(err).Str("url", req.URL).Msg("failed to block site")
			return ErrorResponse(err)
		}
		if !added {
			return MessageResponse(fmt.Sprintf("%s is already blocked", req.URL))
		}
		d.sitesChanged()
		return MessageResponse(fmt.Sprintf("🚫 Blocked %s", req.URL))
	case CommandUnblock:
		removed, err := d.sites.Remove(req.URL)
		if err != nil {
			logger.Warn().Err(err).Str("url", req.URL).Msg("failed to unblock site")
			return ErrorResponse(err)
		}
		if !removed {
			return MessageResponse(fmt.Sprintf("%s was not blocked", req.URL))
		}
		d.sitesChanged()
		return MessageResponse(fmt.Sprintf("✅ Unblocked %s", req.URL))
	case CommandListBlocked:
		sites, err := d.sites.List()
		if err != nil {
			logger.Error().Err(err).Msg("failed to list blocked sites")
			return ErrorResponse(err)
		}
		return ListResponse(sites)
	}

	return ErrorResponse(&MalformedCommandError{Err: fmt.Errorf("unknown command %q", req.Command)})
}

func (d *Dispatcher) mutate(ctx context.Context, req Request, op func(context.Context) error, ok string) Response {
	if err := op(ctx); err != nil {
		var ioErr *session.ConfigIOError
		var validation *models.ValidationError
		switch {
		case errors.As(err, &ioErr):
			log.Error().Err(err).Str("command", req.Command).Msg("session change not persisted")
		case errors.As(err, &validation), errors.Is(err, session.ErrSessionFinished):
			log.Info().Err(err).Str("command", req.Command).Msg("command rejected")
		default:
			log.Error().Err(err).Str("command", req.Command).Msg("command failed")
		}
		return ErrorResponse(err)
	}

	log.Info().Str("command", req.Command).Msg("command applied")
	return MessageResponse(ok)
}

func (d *Dispatcher) myConfig(ctx context.Context) Response {
	if d.config == nil {
		return ErrorResponse(ErrConfigNotFound)
	}
	exists, err := d.config.Exists(ctx)
	if err != nil {
		log.Error().Err(err).Str("location", d.config.Location()).Msg("failed to check config location")
		return ErrorResponse(err)
	}
	if !exists {
		return ErrorResponse(ErrConfigNotFound)
	}
	return MessageResponse(fmt.Sprintf("🗂 Config file found at: %s", d.config.Location()))
}

func (d *Dispatcher) blockedSites() []string {
	if d.sites == nil {
		return nil
	}
	sites, err := d.sites.List()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read blocked sites")
		return nil
	}
	return sites
}

func (d *Dispatcher) sitesChanged() {
	if d.effects != nil {
		d.effects.SitesChanged(d.session.Snapshot())
	}
}
