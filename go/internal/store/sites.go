package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/idna"
)

// SitesFileName is the file the SiteList writes inside its data directory.
const SitesFileName = "blocked_sites.json"

// SiteList is the set of hostnames blocked during work phases, persisted as a JSON array.
type SiteList struct {
	mu   sync.Mutex
	path string
}

// NewSiteList creates a SiteList backed by path.
func NewSiteList(path string) *SiteList {
	return &SiteList{path: path}
}

// Path returns the backing file.
func (l *SiteList) Path() string {
	return l.path
}

// List returns the blocked hostnames in sorted order.
func (l *SiteList) List() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	set, err := l.readLocked()
	if err != nil {
		return nil, err
	}
	return sortedHosts(set), nil
}

// Add inserts host and reports whether it was new.
func (l *SiteList) Add(host string) (bool, error) {
	host, err := normalizeHost(host)
	if err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	set, err := l.readLocked()
	if err != nil {
		return false, err
	}
	if _, exists := set[host]; exists {
		return false, nil
	}
	set[host] = struct{}{}
	if err := l.writeLocked(set); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes host and reports whether it was present.
func (l *SiteList) Remove(host string) (bool, error) {
	host, err := normalizeHost(host)
	if err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	set, err := l.readLocked()
	if err != nil {
		return false, err
	}
	if _, exists := set[host]; !exists {
		return false, nil
	}
	delete(set, host)
	if err := l.writeLocked(set); err != nil {
		return false, err
	}
	return true, nil
}

func (l *SiteList) readLocked() (map[string]struct{}, error) {
	set := make(map[string]struct{})

	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return set, nil
		}
		return nil, fmt.Errorf("read blocked sites: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return set, nil
	}

	var hosts []string
	if err := json.Unmarshal(data, &hosts); err != nil {
		return nil, fmt.Errorf("parse blocked sites: %w", err)
	}
	for _, h := range hosts {
		clean, err := normalizeHost(h)
		if err != nil {
			log.Warn().Err(err).Str("file", l.path).Msg("skipping invalid blocked site")
			continue
		}
		set[clean] = struct{}{}
	}
	return set, nil
}

func (l *SiteList) writeLocked(set map[string]struct{}) error {
	data, err := json.MarshalIndent(sortedHosts(set), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal blocked sites: %w", err)
	}
	return writeFileAtomic(l.path, data)
}

func sortedHosts(set map[string]struct{}) []string {
	hosts := make([]string, 0, len(set))
	for h := range set {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

const (
	maxHostLength  = 253
	maxLabelLength = 63
)

// InvalidHostError rejects a hostname that is not a valid RFC 1123 name.
type InvalidHostError struct {
	Host   string
	Reason string
}

func (e *InvalidHostError) Error() string {
	return fmt.Sprintf("invalid hostname %q: %s", e.Host, e.Reason)
}

// normalizeHost lowercases host, strips a scheme and trailing slash, converts
// internationalized names to punycode and checks the result label by label.
// Only [a-z0-9.-] survive, so a stored host is always safe to write into the
// hosts file.
func normalizeHost(raw string) (string, error) {
	host := strings.ToLower(strings.TrimSpace(raw))
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimSuffix(host, "/")
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", &InvalidHostError{Host: raw, Reason: "hostname is required"}
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", &InvalidHostError{Host: raw, Reason: err.Error()}
	}
	if err := checkHostname(ascii); err != nil {
		return "", &InvalidHostError{Host: raw, Reason: err.Error()}
	}
	return ascii, nil
}

func checkHostname(host string) error {
	if len(host) > maxHostLength {
		return fmt.Errorf("longer than %d characters", maxHostLength)
	}
	for _, label := range strings.Split(host, ".") {
		if len(label) == 0 || len(label) > maxLabelLength {
			return fmt.Errorf("label %q must be 1 to %d characters", label, maxLabelLength)
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return fmt.Errorf("label %q starts or ends with a hyphen", label)
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
				return fmt.Errorf("label %q contains %q", label, c)
			}
		}
	}
	return nil
}
