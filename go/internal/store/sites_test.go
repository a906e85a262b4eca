package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteList_AddRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), SitesFileName)
	l := NewSiteList(path)

	hosts, err := l.List()
	require.NoError(t, err)
	assert.Empty(t, hosts)

	added, err := l.Add("reddit.com")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = l.Add("  Reddit.com ")
	require.NoError(t, err)
	assert.False(t, added, "duplicate hostnames are not inserted twice")

	_, err = l.Add("https://news.ycombinator.com/")
	require.NoError(t, err)

	hosts, err = l.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"news.ycombinator.com", "reddit.com"}, hosts)

	removed, err := l.Remove("reddit.com")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = l.Remove("reddit.com")
	require.NoError(t, err)
	assert.False(t, removed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["news.ycombinator.com"]`, string(data))
}

func TestSiteList_ReadsExistingArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), SitesFileName)
	require.NoError(t, os.WriteFile(path, []byte(`["b.com","a.com","b.com"]`), 0o644))

	hosts, err := NewSiteList(path).List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.com", "b.com"}, hosts)
}

func TestSiteList_RejectsInvalidHost(t *testing.T) {
	l := NewSiteList(filepath.Join(t.TempDir(), SitesFileName))

	tests := []struct {
		name string
		host string
	}{
		{name: "empty", host: ""},
		{name: "blank", host: "   "},
		{name: "path", host: "evil.com/'; rm -rf"},
		{name: "space", host: "two words"},
		{name: "newline", host: "a.com\n127.0.0.1 bank.com"},
		{name: "carriage return", host: "a.com\rb.com"},
		{name: "vertical tab", host: "a.com\v127.0.0.1"},
		{name: "nul", host: "b.com\x00"},
		{name: "port", host: "example.com:8080"},
		{name: "underscore", host: "bad_host.com"},
		{name: "empty label", host: "a..com"},
		{name: "leading hyphen", host: "-a.com"},
		{name: "long label", host: strings.Repeat("a", 64) + ".com"},
		{name: "long name", host: strings.Repeat("abcdefghi.", 26) + "com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, err := l.Add(tt.host)
			require.Error(t, err)
			assert.False(t, added)

			var invalid *InvalidHostError
			assert.ErrorAs(t, err, &invalid)
		})
	}

	hosts, err := l.List()
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestSiteList_NormalizesHost(t *testing.T) {
	l := NewSiteList(filepath.Join(t.TempDir(), SitesFileName))

	for _, host := range []string{"HTTPS://Example.COM/", "example.com.", "münchen.de", strings.Repeat("a", 63) + ".com"} {
		added, err := l.Add(host)
		require.NoError(t, err, "host %q", host)
		assert.True(t, added, "host %q", host)
	}

	hosts, err := l.List()
	require.NoError(t, err)
	assert.Equal(t, []string{strings.Repeat("a", 63) + ".com", "example.com", "xn--mnchen-3ya.de"}, hosts)
}

func TestSiteList_SkipsInvalidStoredHosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), SitesFileName)
	require.NoError(t, os.WriteFile(path, []byte(`["ok.com","a.com\n127.0.0.1 bank.com","b.com\u0000"]`), 0o644))

	hosts, err := NewSiteList(path).List()
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.com"}, hosts)
}
