package platform

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	DefaultHostsFile = "/etc/hosts"

	hostsBeginMarker = "# BEGIN pomodoro blocked sites"
	hostsEndMarker   = "# END pomodoro blocked sites"
	blockAddress     = "0.0.0.0"
)

// SiteLister supplies the hostnames to block.
type SiteLister interface {
	List() ([]string, error)
}

// HostsBlocker redirects blocked hostnames to 0.0.0.0 inside a marked
// section of the hosts file. Block and Unblock rewrite that section only,
// so both are idempotent and leave other entries alone.
type HostsBlocker struct {
	mu        sync.Mutex
	path      string
	sites     SiteLister
	runner    Runner
	afterEdit []string
}

// NewHostsBlocker creates a blocker for path. afterEdit, when non-empty, is run
// after every change (for example sudo systemctl restart NetworkManager).
func NewHostsBlocker(path string, sites SiteLister, runner Runner, afterEdit []string) *HostsBlocker {
	if path == "" {
		path = DefaultHostsFile
	}
	return &HostsBlocker{
		path:      path,
		sites:     sites,
		runner:    runnerOrDefault(runner),
		afterEdit: afterEdit,
	}
}

func (b *HostsBlocker) Path() string {
	return b.path
}

// Block writes one redirect line per listed site.
func (b *HostsBlocker) Block(ctx context.Context) error {
	sites, err := b.sites.List()
	if err != nil {
		return &ToolError{Tool: "hosts", Err: fmt.Errorf("failed to list blocked sites: %w", err)}
	}

	section := make([]string, 0, len(sites)+2)
	section = append(section, hostsBeginMarker)
	written := 0
	for _, site := range sites {
		if !hostsSafe(site) {
			log.Warn().Str("site", site).Msg("refusing to write unsafe hostname to hosts file")
			continue
		}
		section = append(section, blockAddress+" "+site)
		written++
	}
	section = append(section, hostsEndMarker)

	changed, err := b.rewrite(section)
	if err != nil {
		return err
	}
	if changed {
		log.Info().Int("sites", written).Str("hosts", b.path).Msg("blocked sites")
		return b.reload(ctx)
	}
	return nil
}

// Unblock removes the marked section.
func (b *HostsBlocker) Unblock(ctx context.Context) error {
	changed, err := b.rewrite(nil)
	if err != nil {
		return err
	}
	if changed {
		log.Info().Str("hosts", b.path).Msg("unblocked sites")
		return b.reload(ctx)
	}
	return nil
}

func (b *HostsBlocker) rewrite(section []string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	mode := os.FileMode(0o644)
	data, err := os.ReadFile(b.path)
	switch {
	case err == nil:
		if info, statErr := os.Stat(b.path); statErr == nil {
			mode = info.Mode().Perm()
		}
	case os.IsNotExist(err):
		data = nil
	default:
		return false, &ToolError{Tool: "hosts", Err: err}
	}

	kept := stripSection(string(data))
	if len(section) > 0 {
		if kept != "" && !strings.HasSuffix(kept, "\n") {
			kept += "\n"
		}
		kept += strings.Join(section, "\n") + "\n"
	}
	if kept == string(data) {
		return false, nil
	}

	if err := os.WriteFile(b.path, []byte(kept), mode); err != nil {
		return false, &ToolError{Tool: "hosts", Err: fmt.Errorf("failed to write %s: %w", b.path, err)}
	}
	return true, nil
}

func (b *HostsBlocker) reload(ctx context.Context) error {
	if len(b.afterEdit) == 0 {
		return nil
	}
	return b.runner.Run(ctx, b.afterEdit[0], b.afterEdit[1:]...)
}

// hostsSafe reports whether site can be written as a single hosts entry.
func hostsSafe(site string) bool {
	if site == "" {
		return false
	}
	for i := 0; i < len(site); i++ {
		c := site[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' && c != '.' {
			return false
		}
	}
	return true
}

// stripSection returns content without the pomodoro section.
func stripSection(content string) string {
	if content == "" {
		return ""
	}

	lines := strings.SplitAfter(content, "\n")
	var out strings.Builder
	inside := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == hostsBeginMarker:
			inside = true
		case trimmed == hostsEndMarker:
			inside = false
		case !inside:
			out.WriteString(line)
		}
	}
	return out.String()
}
