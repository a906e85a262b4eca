package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/mcdev12/pomodoro/go/clients/pomodoro"
	"github.com/mcdev12/pomodoro/go/internal/gateway"
	"github.com/mcdev12/pomodoro/go/internal/models"
	"github.com/spf13/cobra"
)

const clientTimeout = 10 * time.Second

var (
	updateWork      int
	updateBreak     int
	updateLongBreak int
	updateCycles    int
	updateLongEvery int
)

func newClientCmds() []*cobra.Command {
	simple := []struct {
		use, command, short string
	}{
		{"start", gateway.CommandStart, "Start the session"},
		{"pause", gateway.CommandPause, "Pause the countdown"},
		{"resume", gateway.CommandResume, "Resume a paused session"},
		{"status", gateway.CommandStatus, "Show the session state"},
		{"myconfig", gateway.CommandMyConfig, "Show where the config is stored"},
		{"reset-progress", gateway.CommandResetProgress, "Go back to the first work phase"},
		{"reset-config", gateway.CommandResetConfig, "Restore default settings"},
		{"test", gateway.CommandTest, "Play the test sound"},
		{"help-server", gateway.CommandHelp, "Show the server command reference"},
		{"list-blocked", gateway.CommandListBlocked, "List blocked sites"},
	}

	var cmds []*cobra.Command
	for _, s := range simple {
		command := s.command
		cmds = append(cmds, &cobra.Command{
			Use:   s.use,
			Short: s.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return sendCommand(cmd, gateway.Request{Command: command})
			},
		})
	}

	for _, s := range []struct{ use, command, short string }{
		{"block URL", gateway.CommandBlock, "Block a site during work phases"},
		{"unblock URL", gateway.CommandUnblock, "Stop blocking a site"},
	} {
		command := s.command
		cmds = append(cmds, &cobra.Command{
			Use:   s.use,
			Short: s.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return sendCommand(cmd, gateway.Request{Command: command, URL: args[0]})
			},
		})
	}

	return append(cmds, newUpdateConfigCmd(), newWatchCmd(), newHealthCmd())
}

func newUpdateConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-config",
		Short: "Change durations and cycles",
		Args:  cobra.NoArgs,
		RunE:  runUpdateConfigCmd,
	}
	cmd.Flags().IntVar(&updateWork, "work", 0, "work duration in seconds")
	cmd.Flags().IntVar(&updateBreak, "break", 0, "short break duration in seconds")
	cmd.Flags().IntVar(&updateLongBreak, "long-break", 0, "long break duration in seconds")
	cmd.Flags().IntVar(&updateCycles, "cycles", 0, "work cycles before the session ends")
	cmd.Flags().IntVar(&updateLongEvery, "long-break-interval", 0, "long break after every N work cycles")
	return cmd
}

func runUpdateConfigCmd(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
	defer cancel()

	client, err := pomodoro.Dial(ctx, serverURL)
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.Command(ctx, gateway.CommandStatus)
	if err != nil {
		return err
	}
	status, err := resp.Status()
	if err != nil {
		return err
	}

	next := mergeConfigFlags(cmd, status.SessionConfig)
	resp, err = client.Do(ctx, gateway.Request{Command: gateway.CommandUpdateConfig, NewConfig: &next})
	if err != nil {
		return err
	}
	return printResponse(cmd.OutOrStdout(), resp)
}

// mergeConfigFlags applies the flags the user set on top of current. Progress
// is restarted when the work duration changes under a fresh work phase.
func mergeConfigFlags(cmd *cobra.Command, current models.SessionConfig) models.SessionConfig {
	next := current
	if cmd.Flags().Changed("work") {
		next.WorkDuration = updateWork
	}
	if cmd.Flags().Changed("break") {
		next.BreakDuration = updateBreak
	}
	if cmd.Flags().Changed("long-break") {
		next.LongBreakDuration = updateLongBreak
	}
	if cmd.Flags().Changed("cycles") {
		next.Cycles = updateCycles
	}
	if cmd.Flags().Changed("long-break-interval") {
		next.LongBreakInterval = updateLongEvery
	}

	if next.CurrentPhase != models.PhaseIdle && !next.IsRunning && next.TimeLeft == current.DurationFor(current.CurrentPhase) {
		next.TimeLeft = next.DurationFor(next.CurrentPhase)
	}
	if limit := next.MaxDuration(); next.TimeLeft > limit {
		next.TimeLeft = limit
	}
	return next
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream status broadcasts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := pomodoro.Dial(cmd.Context(), serverURL)
			if err != nil {
				return err
			}
			defer client.Close()

			err = client.Watch(cmd.Context(), func(resp pomodoro.Response) error {
				status, err := resp.Status()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatStatus(status))
				return nil
			})
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
			defer cancel()

			health, err := pomodoro.NewHTTPClient(httpBaseURL(serverURL)).Health(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d connections)\n", health.Status, health.Connections)
			return nil
		},
	}
}

func sendCommand(cmd *cobra.Command, req gateway.Request) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
	defer cancel()

	client, err := pomodoro.Dial(ctx, serverURL)
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.Do(ctx, req)
	if err != nil {
		return err
	}
	return printResponse(cmd.OutOrStdout(), resp)
}

func printResponse(w io.Writer, resp pomodoro.Response) error {
	switch resp.Type {
	case gateway.ResponseStatus:
		status, err := resp.Status()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, formatStatus(status))
		if len(status.BlockedURLs) > 0 {
			fmt.Fprintf(w, "Blocked: %s\n", strings.Join(status.BlockedURLs, ", "))
		}
	case gateway.ResponseList:
		items, err := resp.List()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(w, "No blocked sites")
		}
		for _, item := range items {
			fmt.Fprintln(w, item)
		}
	case gateway.ResponseError:
		return resp.Err()
	default:
		fmt.Fprintln(w, resp.Text())
	}
	return nil
}

func formatStatus(s gateway.StatusData) string {
	state := "paused"
	if s.IsRunning {
		state = "running"
	}
	return fmt.Sprintf("%-10s %02d:%02d  cycle %d/%d  %s",
		s.CurrentPhase, s.TimeLeft/60, s.TimeLeft%60, s.CurrentCycle, s.Cycles, state)
}

// httpBaseURL maps the websocket URL to the server's HTTP origin.
func httpBaseURL(wsURL string) string {
	u, err := url.Parse(wsURL)
	if err != nil || u.Host == "" {
		return pomodoro.DefaultHTTPURL
	}
	if u.Scheme == "wss" {
		u.Scheme = "https"
	} else {
		u.Scheme = "http"
	}
	u.Path = ""
	u.RawQuery = ""
	return u.String()
}
