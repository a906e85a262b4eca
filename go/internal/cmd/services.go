package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomodoro/go/internal/dbconfig"
	"github.com/mcdev12/pomodoro/go/internal/effects"
	"github.com/mcdev12/pomodoro/go/internal/events"
	"github.com/mcdev12/pomodoro/go/internal/gateway"
	"github.com/mcdev12/pomodoro/go/internal/platform"
	"github.com/mcdev12/pomodoro/go/internal/session"
	"github.com/mcdev12/pomodoro/go/internal/store"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Store   store.ConfigStore
	Sites   *store.SiteList
	Machine *session.Machine
	Effects *effects.Dispatcher
	Gateway *gateway.Service

	closers []func()
}

// Close releases resources in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func setupServices(ctx context.Context, config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Stores → Effects → State machine → Gateway
	services := &Services{}
	clock := clockwork.NewRealClock()

	configStore, err := setupConfigStore(ctx, config, services)
	if err != nil {
		return nil, err
	}
	services.Store = configStore
	services.Sites = store.NewSiteList(filepath.Join(config.Storage.DataDir, store.SitesFileName))

	runner := platform.ExecRunner{Timeout: platform.DefaultToolTimeout}
	effectsConfig := effects.Config{
		Notifier: platform.NewNotifier(runner),
		Player:   platform.NewSoundPlayer(config.Sounds.Dir, runner),
		Blocker:  platform.NewHostsBlocker(config.Blocking.HostsFile, services.Sites, runner, config.ReloadArgs()),
		Clock:    clock,
	}
	publisher := setupPublisher(ctx, config)
	if publisher != nil {
		effectsConfig.Publisher = publisher
		services.closers = append(services.closers, func() { publisher.Close() })
	}
	services.Effects = effects.NewDispatcher(effectsConfig)

	initial, err := store.LoadOrCreate(ctx, configStore)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Machine = session.New(initial, configStore, services.Effects, session.Config{
		Clock:        clock,
		TickInterval: config.Server.TickInterval,
	})
	services.closers = append(services.closers, services.Machine.Close)

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.BroadcastInterval = config.Server.BroadcastInterval
	gatewayConfig.ConfigStore = configStore
	gatewayConfig.Clock = clock
	services.Gateway = gateway.NewService(gatewayConfig, services.Machine, services.Sites, services.Effects)
	registerHealthChecks(services.Gateway.Health(), configStore, services.Sites, publisher)

	log.Info().
		Str("config", configStore.Location()).
		Str("sites", services.Sites.Path()).
		Str("hosts", config.Blocking.HostsFile).
		Bool("events", effectsConfig.Publisher != nil).
		Msg("services ready")
	return services, nil
}

func setupConfigStore(ctx context.Context, config *Config, services *Services) (store.ConfigStore, error) {
	dbCfg := dbconfig.NewConfigFromEnv()
	if !dbCfg.Enabled() {
		return store.NewFileStore(filepath.Join(config.Storage.DataDir, store.ConfigFileName)), nil
	}

	pg, err := store.OpenPostgresStore(ctx, dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres store: %w", err)
	}
	services.closers = append(services.closers, pg.Close)

	log.Info().Str("database", dbCfg.Database).Str("host", dbCfg.Host).Msg("using postgres session store")
	return pg, nil
}

func registerHealthChecks(health *gateway.HealthChecker, configStore store.ConfigStore, sites *store.SiteList, publisher *events.JetStreamPublisher) {
	health.Register("sites", func(context.Context) error {
		_, err := sites.List()
		return err
	})
	if pinger, ok := configStore.(interface{ Ping(context.Context) error }); ok {
		health.Register("postgres", pinger.Ping)
	}
	if publisher != nil {
		health.Register("nats", func(context.Context) error {
			if !publisher.Connected() {
				return errors.New("disconnected")
			}
			return nil
		})
	}
}

// setupPublisher connects to NATS when configured. The server runs fine without it.
func setupPublisher(ctx context.Context, config *Config) *events.JetStreamPublisher {
	if config.Events.NATSURL == "" {
		return nil
	}

	jsCfg := events.DefaultJetStreamConfig()
	jsCfg.URL = config.Events.NATSURL
	publisher, err := events.NewJetStreamPublisher(ctx, jsCfg)
	if err != nil {
		log.Warn().Err(err).Str("nats_url", jsCfg.URL).Msg("phase events will not be published")
		return nil
	}

	log.Info().Str("nats_url", jsCfg.URL).Str("stream", jsCfg.StreamName).Msg("publishing phase events")
	return publisher
}
