package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status      string            `json:"status"`
	Connections int               `json:"connections"`
	Checks      map[string]string `json:"checks,omitempty"`
	Errors      []string          `json:"errors,omitempty"`
}

// HealthChecker runs the registered checks.
type HealthChecker struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheck
	timeout time.Duration
}

func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthChecker{
		checks:  make(map[string]HealthCheck),
		timeout: timeout,
	}
}

// Register adds or replaces the check called name.
func (h *HealthChecker) Register(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Check runs every check and reports whether all passed.
func (h *HealthChecker) Check(ctx context.Context) (map[string]string, []string, bool) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthCheck, len(h.checks))
	for name, check := range h.checks {
		checks[name] = check
	}
	h.mu.RUnlock()
	sort.Strings(names)

	results := make(map[string]string, len(names))
	var errs []string
	healthy := true
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := checks[name](checkCtx)
		cancel()

		if err != nil {
			healthy = false
			results[name] = "failing"
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		results[name] = "ok"
	}
	return results, errs, healthy
}
