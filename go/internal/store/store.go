// Package store persists the session configuration and the blocked-site list.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/pomodoro/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned by Load when nothing has been persisted yet.
var ErrNotFound = errors.New("session config not found")

// ConfigStore loads and saves the durable session configuration.
type ConfigStore interface {
	Load(ctx context.Context) (models.SessionConfig, error)
	Save(ctx context.Context, cfg models.SessionConfig) error
	// Location describes where the config lives, for display to clients.
	Location() string
	// Exists reports whether a config has been persisted at Location.
	Exists(ctx context.Context) (bool, error)
}

// LoadOrCreate loads the persisted config, creating and saving defaults when none exists.
func LoadOrCreate(ctx context.Context, s ConfigStore) (models.SessionConfig, error) {
	cfg, err := s.Load(ctx)
	if err == nil {
		return cfg.Normalize(), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.SessionConfig{}, fmt.Errorf("failed to load session config: %w", err)
	}

	cfg = models.DefaultSessionConfig()
	if err := s.Save(ctx, cfg); err != nil {
		return cfg, fmt.Errorf("failed to save default session config: %w", err)
	}

	log.Info().Str("location", s.Location()).Msg("created default session config")
	return cfg, nil
}
