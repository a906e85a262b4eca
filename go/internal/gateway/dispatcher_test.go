package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomodoro/go/internal/models"
	"github.com/mcdev12/pomodoro/go/internal/session"
	"github.com/mcdev12/pomodoro/go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEffects struct {
	mu           sync.Mutex
	tests        int
	sitesChanged int
}

func (f *fakeEffects) PlayTest() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tests++
}

func (f *fakeEffects) SitesChanged(models.SessionConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sitesChanged++
}

type fixture struct {
	machine    *session.Machine
	sites      *store.SiteList
	effects    *fakeEffects
	store      *store.FileStore
	clock      *clockwork.FakeClock
	dispatcher *Dispatcher
	configPath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, store.ConfigFileName)

	st := store.NewFileStore(configPath)
	cfg, err := store.LoadOrCreate(context.Background(), st)
	require.NoError(t, err)

	clock := clockwork.NewFakeClock()
	machine := session.New(cfg, st, nil, session.Config{Clock: clock, TickInterval: time.Second})
	t.Cleanup(machine.Close)

	sites := store.NewSiteList(filepath.Join(dir, store.SitesFileName))
	effects := &fakeEffects{}

	return &fixture{
		machine:    machine,
		sites:      sites,
		effects:    effects,
		store:      st,
		clock:      clock,
		dispatcher: NewDispatcher(machine, sites, effects, st),
		configPath: configPath,
	}
}

func (f *fixture) do(t *testing.T, raw string) Response {
	t.Helper()
	return f.dispatcher.Handle(context.Background(), []byte(raw))
}

func TestDispatcher_Lifecycle(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, `{"command":"start","request_id":"1"}`)
	assert.Equal(t, ResponseMessage, resp.Type)
	assert.Equal(t, "1", resp.RequestID)
	assert.True(t, f.machine.Snapshot().IsRunning)

	resp = f.do(t, `{"command":"pause"}`)
	assert.Equal(t, ResponseMessage, resp.Type)
	assert.False(t, f.machine.Snapshot().IsRunning)

	resp = f.do(t, `{"command":"resume"}`)
	assert.Equal(t, ResponseMessage, resp.Type)
	assert.True(t, f.machine.Snapshot().IsRunning)

	resp = f.do(t, `{"command":"resetprogress"}`)
	assert.Equal(t, ResponseMessage, resp.Type)
	assert.False(t, f.machine.Snapshot().IsRunning)

	resp = f.do(t, `{"command":"status"}`)
	require.Equal(t, ResponseStatus, resp.Type)
	status, ok := resp.Data.(StatusData)
	require.True(t, ok)
	assert.Equal(t, models.PhaseWork, status.CurrentPhase)
}

func TestDispatcher_MalformedDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	before := f.machine.Snapshot()

	resp := f.do(t, `{"command":"launch","request_id":"x"}`)
	assert.Equal(t, ResponseError, resp.Type)
	assert.Equal(t, "x", resp.RequestID)

	resp = f.do(t, `{{{`)
	assert.Equal(t, ResponseError, resp.Type)

	assert.Equal(t, before, f.machine.Snapshot())
}

func TestDispatcher_UpdateConfigValidation(t *testing.T) {
	f := newFixture(t)

	bad := models.DefaultSessionConfig()
	bad.WorkDuration = 0
	payload, err := json.Marshal(map[string]interface{}{"command": "update_config", "new_config": bad})
	require.NoError(t, err)

	resp := f.do(t, string(payload))
	assert.Equal(t, ResponseError, resp.Type)
	assert.Contains(t, resp.Data, "work_duration")
	assert.Equal(t, models.DefaultSessionConfig(), f.machine.Snapshot())

	good := models.DefaultSessionConfig()
	good.WorkDuration = 50
	good.TimeLeft = 50
	payload, err = json.Marshal(map[string]interface{}{"command": "updateconfig", "new_config": good})
	require.NoError(t, err)

	resp = f.do(t, string(payload))
	assert.Equal(t, ResponseMessage, resp.Type)
	assert.Equal(t, 50, f.machine.Snapshot().WorkDuration)
}

func TestDispatcher_StartWhenFinished(t *testing.T) {
	f := newFixture(t)

	idle := models.DefaultSessionConfig()
	idle.CurrentPhase = models.PhaseIdle
	idle.CurrentCycle = idle.Cycles
	idle.TimeLeft = 0
	require.NoError(t, f.machine.UpdateConfig(context.Background(), idle))

	resp := f.do(t, `{"command":"start"}`)
	assert.Equal(t, ResponseError, resp.Type)
	assert.Equal(t, session.ErrSessionFinished.Error(), resp.Data)
}

func TestDispatcher_Sites(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, `{"command":"block","url":"https://Example.com/"}`)
	assert.Equal(t, ResponseMessage, resp.Type)
	resp = f.do(t, `{"command":"block","url":"example.com"}`)
	assert.Equal(t, ResponseMessage, resp.Type)
	assert.Contains(t, resp.Data, "already blocked")
	resp = f.do(t, `{"command":"block","url":"news.ycombinator.com"}`)
	assert.Equal(t, ResponseMessage, resp.Type)

	resp = f.do(t, `{"command":"listblocked"}`)
	require.Equal(t, ResponseList, resp.Type)
	assert.Equal(t, []string{"example.com", "news.ycombinator.com"}, resp.Data)

	resp = f.do(t, `{"command":"unblock","url":"example.com"}`)
	assert.Equal(t, ResponseMessage, resp.Type)
	resp = f.do(t, `{"command":"unblock","url":"example.com"}`)
	assert.Contains(t, resp.Data, "was not blocked")

	resp = f.do(t, `{"command":"block","url":"bad host"}`)
	assert.Equal(t, ResponseError, resp.Type)

	assert.Equal(t, 3, f.effects.sitesChanged)
}

func TestDispatcher_InfoCommands(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, `{"command":"help"}`)
	assert.Equal(t, ResponseHelp, resp.Type)

	resp = f.do(t, `{"command":"myconfig"}`)
	assert.Equal(t, ResponseMessage, resp.Type)
	assert.Contains(t, resp.Data, f.configPath)

	require.NoError(t, os.Remove(f.configPath))
	resp = f.do(t, `{"command":"myconfig"}`)
	assert.Equal(t, ResponseError, resp.Type)
	assert.Equal(t, ErrConfigNotFound.Error(), resp.Data)

	resp = f.do(t, `{"command":"test"}`)
	assert.Equal(t, ResponseMessage, resp.Type)
	assert.Equal(t, 1, f.effects.tests)
}

func TestDispatcher_ResetConfig(t *testing.T) {
	f := newFixture(t)

	custom := models.DefaultSessionConfig()
	custom.Cycles = 9
	require.NoError(t, f.machine.UpdateConfig(context.Background(), custom))

	resp := f.do(t, `{"command":"reset_config"}`)
	assert.Equal(t, ResponseMessage, resp.Type)
	assert.Equal(t, models.DefaultSessionConfig(), f.machine.Snapshot())
}

func TestDispatcher_ConcurrentCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	durations := []int{25, 40, 50}
	commands := make([]string, 0, len(durations)+2)
	commands = append(commands, `{"command":"start","request_id":"%d"}`, `{"command":"pause","request_id":"%d"}`)
	for _, d := range durations {
		cfg := models.DefaultSessionConfig()
		cfg.WorkDuration = d
		cfg.TimeLeft = d
		payload, err := json.Marshal(map[string]interface{}{"command": "update_config", "new_config": cfg})
		require.NoError(t, err)
		commands = append(commands, string(payload[:len(payload)-1])+`,"request_id":"%d"}`)
	}

	const workers = 16
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := w*perWorker + i
				raw := fmt.Sprintf(commands[(w+i)%len(commands)], id)
				resp := f.dispatcher.Handle(ctx, []byte(raw))
				assert.Equal(t, ResponseMessage, resp.Type, "command %s", raw)
				assert.Equal(t, fmt.Sprint(id), resp.RequestID)
			}
		}(w)
	}
	wg.Wait()

	resp := f.do(t, `{"command":"pause"}`)
	require.Equal(t, ResponseMessage, resp.Type)

	final := f.machine.Snapshot()
	assert.False(t, final.IsRunning)
	assert.NoError(t, final.Validate())
	assert.Contains(t, durations, final.WorkDuration)

	saved, err := f.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, final, saved)

	// a single driver is left once the session runs again
	resp = f.do(t, `{"command":"start"}`)
	require.Equal(t, ResponseMessage, resp.Type)
	require.Eventually(t, func() bool {
		waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		return f.clock.BlockUntilContext(waitCtx, 1) == nil
	}, 2*time.Second, 20*time.Millisecond)

	before := f.machine.Snapshot().TimeLeft
	f.clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return f.machine.Snapshot().TimeLeft == before-1
	}, time.Second, 5*time.Millisecond)
}
