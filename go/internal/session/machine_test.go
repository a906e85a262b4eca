package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomodoro/go/internal/events"
	"github.com/mcdev12/pomodoro/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMachine(t *testing.T, cfg models.SessionConfig) (*Machine, *memoryStore, *recordingSink, *clockwork.FakeClock) {
	t.Helper()
	st := &memoryStore{}
	sink := &recordingSink{}
	clock := clockwork.NewFakeClock()
	m := New(cfg, st, sink, Config{Clock: clock, TickInterval: time.Second})
	t.Cleanup(m.Close)
	return m, st, sink, clock
}

func TestMachine_PauseWhenNotRunningIsNoop(t *testing.T) {
	m, st, _, _ := newTestMachine(t, models.DefaultSessionConfig())

	require.NoError(t, m.Pause(context.Background()))
	require.NoError(t, m.Pause(context.Background()))

	assert.Equal(t, 0, st.saveCount())
	assert.False(t, m.Snapshot().IsRunning)
}

func TestMachine_StartThenPause(t *testing.T) {
	m, st, sink, _ := newTestMachine(t, models.DefaultSessionConfig())
	ctx := context.Background()

	require.NoError(t, m.Start(ctx))
	assert.True(t, m.Snapshot().IsRunning)
	assert.True(t, st.saved().IsRunning)
	assert.Equal(t, []events.EventType{events.EventTypePhaseStarted}, sink.types())

	require.NoError(t, m.Pause(ctx))
	snap := m.Snapshot()
	assert.False(t, snap.IsRunning)
	assert.Equal(t, models.DefaultWorkDuration, snap.TimeLeft)
	assert.False(t, st.saved().IsRunning)
}

func TestMachine_StartTwiceEmitsOnce(t *testing.T) {
	m, _, sink, _ := newTestMachine(t, models.DefaultSessionConfig())
	ctx := context.Background()

	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Resume(ctx))

	assert.Len(t, sink.types(), 1)
}

func TestMachine_StartOnIdleFails(t *testing.T) {
	cfg := models.DefaultSessionConfig()
	cfg.CurrentPhase = models.PhaseIdle
	cfg.CurrentCycle = cfg.Cycles
	m, st, _, _ := newTestMachine(t, cfg)

	err := m.Start(context.Background())
	assert.ErrorIs(t, err, ErrSessionFinished)
	err = m.Resume(context.Background())
	assert.ErrorIs(t, err, ErrSessionFinished)

	assert.False(t, m.Snapshot().IsRunning)
	assert.Equal(t, 0, st.saveCount())
}

func TestMachine_ResetProgress(t *testing.T) {
	cfg := models.DefaultSessionConfig()
	cfg.WorkDuration = 600
	cfg.CurrentPhase = models.PhaseLongBreak
	cfg.CurrentCycle = 3
	cfg.TimeLeft = 42
	m, st, sink, _ := newTestMachine(t, cfg)

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.ResetProgress(context.Background()))

	snap := m.Snapshot()
	assert.Equal(t, models.PhaseWork, snap.CurrentPhase)
	assert.Equal(t, 0, snap.CurrentCycle)
	assert.Equal(t, 600, snap.TimeLeft)
	assert.Equal(t, 600, snap.WorkDuration)
	assert.False(t, snap.IsRunning)
	assert.Equal(t, snap, st.saved())
	assert.Equal(t, events.EventTypeSessionReset, sink.last().Type)
}

func TestMachine_ResetFull(t *testing.T) {
	cfg := models.DefaultSessionConfig()
	cfg.WorkDuration = 60
	cfg.Cycles = 8
	cfg.CurrentCycle = 5
	m, st, _, _ := newTestMachine(t, cfg)

	require.NoError(t, m.ResetFull(context.Background()))

	assert.Equal(t, models.DefaultSessionConfig(), m.Snapshot())
	assert.Equal(t, models.DefaultSessionConfig(), st.saved())
}

func TestMachine_UpdateConfigRejectsInvalid(t *testing.T) {
	m, st, _, _ := newTestMachine(t, models.DefaultSessionConfig())

	bad := models.DefaultSessionConfig()
	bad.WorkDuration = 0

	err := m.UpdateConfig(context.Background(), bad)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "work_duration", verr.Field)

	assert.Equal(t, models.DefaultSessionConfig(), m.Snapshot())
	assert.Equal(t, 0, st.saveCount())
}

func TestMachine_UpdateConfig(t *testing.T) {
	m, st, _, _ := newTestMachine(t, models.DefaultSessionConfig())

	next := models.DefaultSessionConfig()
	next.WorkDuration = 900
	next.TimeLeft = 900
	next.Cycles = 2

	require.NoError(t, m.UpdateConfig(context.Background(), next))
	assert.Equal(t, next, m.Snapshot())
	assert.Equal(t, next, st.saved())
}

func TestMachine_SaveFailureKeepsStateChange(t *testing.T) {
	m, st, _, _ := newTestMachine(t, models.DefaultSessionConfig())
	st.err = errors.New("disk full")

	err := m.Start(context.Background())

	var ioErr *ConfigIOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "start", ioErr.Op)
	assert.ErrorContains(t, err, "disk full")
	assert.True(t, m.Snapshot().IsRunning)
}

func TestMachine_RecoverRestartsRunningSession(t *testing.T) {
	cfg := models.DefaultSessionConfig()
	cfg.IsRunning = true
	cfg.TimeLeft = 30
	m, _, sink, _ := newTestMachine(t, cfg)

	require.NoError(t, m.Recover(context.Background()))

	assert.True(t, m.Snapshot().IsRunning)
	assert.Equal(t, 30, m.Snapshot().TimeLeft)
	assert.Equal(t, []events.EventType{events.EventTypePhaseStarted}, sink.types())
}

func TestMachine_RecoverIgnoresStoppedSession(t *testing.T) {
	m, st, sink, _ := newTestMachine(t, models.DefaultSessionConfig())

	require.NoError(t, m.Recover(context.Background()))

	assert.Empty(t, sink.types())
	assert.Equal(t, 0, st.saveCount())
}
