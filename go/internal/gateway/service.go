// Package gateway is the client-facing side of the server: the command
// dispatcher, the connection registry, the status broadcaster and the HTTP
// routes that expose them.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig  ConnectionConfig
	BroadcastInterval time.Duration
	ConfigStore       ConfigLocator
	Clock             clockwork.Clock
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig:  DefaultConnectionConfig(),
		BroadcastInterval: DefaultBroadcastInterval,
	}
}

// Service wires the dispatcher, registry and broadcaster together.
type Service struct {
	dispatcher        *Dispatcher
	connectionManager *ConnectionManager
	broadcaster       *Broadcaster
	wsHandler         *WebSocketHandler
	health            *HealthChecker
}

func NewService(config Config, s Session, sites Sites, effects Effects) *Service {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	dispatcher := NewDispatcher(s, sites, effects, config.ConfigStore)
	connectionManager := NewConnectionManager(config.ConnectionConfig, dispatcher, config.Clock)
	broadcaster := NewBroadcaster(s, sites, connectionManager, config.Clock, config.BroadcastInterval)
	health := NewHealthChecker(0)

	return &Service{
		dispatcher:        dispatcher,
		connectionManager: connectionManager,
		broadcaster:       broadcaster,
		wsHandler:         NewWebSocketHandler(connectionManager, s, sites, health),
		health:            health,
	}
}

// Start runs the broadcaster until ctx is cancelled, then disconnects every client.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting gateway service")
	s.broadcaster.Run(ctx)

	s.connectionManager.CloseAll()
	log.Info().Msg("gateway service stopped")
}

// RegisterRoutes registers the HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("gateway routes registered")
}

// Health exposes the checker so callers can register dependency checks.
func (s *Service) Health() *HealthChecker {
	return s.health
}

func (s *Service) Dispatcher() *Dispatcher {
	return s.dispatcher
}

func (s *Service) Connections() *ConnectionManager {
	return s.connectionManager
}
