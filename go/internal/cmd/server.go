package main

import (
	"net/http"
	"time"

	"github.com/mcdev12/pomodoro/go/internal/gateway"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(config *Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowOriginFunc: gateway.IsLoopbackOrigin,
		AllowedHeaders:  []string{"*"},
	})

	// Websocket, status and health routes
	services.Gateway.RegisterRoutes(mux)

	// Wrap with CORS
	handler := c.Handler(mux)

	return &http.Server{
		Addr:              config.Server.Addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
