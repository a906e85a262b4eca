// Package platform wraps the host tools the server shells out to: desktop
// notifications, sound playback and hosts-file site blocking.
package platform

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultToolTimeout bounds every external tool invocation.
const DefaultToolTimeout = 10 * time.Second

// ToolError reports a failed external tool call. Callers log it and carry on.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Runner executes an external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec, bounded by Timeout.
type ExecRunner struct {
	Timeout time.Duration
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return &ToolError{Tool: name, Err: fmt.Errorf("%w: %s", err, msg)}
		}
		return &ToolError{Tool: name, Err: err}
	}
	return nil
}

func runnerOrDefault(r Runner) Runner {
	if r == nil {
		return ExecRunner{}
	}
	return r
}
