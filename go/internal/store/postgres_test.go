package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/mcdev12/pomodoro/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a real database: POMODORO_TEST_DATABASE_URL=postgres://...
func TestPostgresStore_RoundTrip(t *testing.T) {
	dsn := os.Getenv("POMODORO_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("POMODORO_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := OpenPostgresStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, err = s.pool.Exec(ctx, `DELETE FROM pomodoro_session`)
	require.NoError(t, err)

	_, err = s.Load(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))
	exists, err := s.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	cfg := models.DefaultSessionConfig()
	cfg.CurrentCycle = 3
	cfg.CurrentPhase = models.PhaseShortBreak
	cfg.TimeLeft = 42
	require.NoError(t, s.Save(ctx, cfg))
	require.NoError(t, s.Save(ctx, cfg))
	exists, err = s.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	assert.Contains(t, s.Location(), "pomodoro_session")
}
