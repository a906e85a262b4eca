// Command pomodoro runs the focus-timer server and talks to it.
package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	serverURL  string
)

func main() {
	initEnvironment(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// initEnvironment loads .env files, which may set LOG_LEVEL, then configures
// logging and only then reports how the load went.
func initEnvironment(out io.Writer, envFiles ...string) {
	envErr := godotenv.Load(envFiles...)
	setupLogging(out)
	if envErr != nil {
		log.Debug().Err(envErr).Msg("could not load .env file")
	}
}

func setupLogging(out io.Writer) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: out != os.Stderr})

	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pomodoro",
		Short:         "Shared pomodoro timer server and client",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "url", getEnv("POMODORO_URL", "ws://"+defaultAddr+"/ws"), "server websocket URL")

	rootCmd.AddCommand(newServeCmd())
	for _, cmd := range newClientCmds() {
		rootCmd.AddCommand(cmd)
	}
	return rootCmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pomodoro server",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&configPath, "config", getEnv("POMODORO_CONFIG", defaultSettingsPath()), "settings file (YAML)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	config, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := setupServices(ctx, config)
	if err != nil {
		return err
	}
	defer services.Close()

	server := setupServer(config, services)

	// Binding is the one failure the server cannot run without
	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", server.Addr).Msg("failed to bind listen address")
	}

	go services.Effects.Run(ctx)
	go services.Gateway.Start(ctx)

	if err := services.Machine.Recover(ctx); err != nil {
		log.Error().Err(err).Msg("failed to resume running session")
	}

	go func() {
		log.Info().
			Str("addr", listener.Addr().String()).
			Bool("dev_mode", config.DevMode).
			Str("data_dir", config.Storage.DataDir).
			Msg("pomodoro server listening")
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("pomodoro server stopped")
	return nil
}
