package session

import (
	"context"
	"sync"

	"github.com/mcdev12/pomodoro/go/internal/events"
	"github.com/mcdev12/pomodoro/go/internal/models"
	"github.com/mcdev12/pomodoro/go/internal/store"
)

type memoryStore struct {
	mu    sync.Mutex
	cfg   *models.SessionConfig
	saves int
	err   error
}

func (s *memoryStore) Load(context.Context) (models.SessionConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return models.SessionConfig{}, store.ErrNotFound
	}
	return *s.cfg, nil
}

func (s *memoryStore) Save(_ context.Context, cfg models.SessionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves++
	s.cfg = &cfg
	return nil
}

func (s *memoryStore) Location() string { return "memory" }

func (s *memoryStore) Exists(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg != nil, nil
}

func (s *memoryStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *memoryStore) saved() models.SessionConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return models.SessionConfig{}
	}
	return *s.cfg
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.PhaseEvent
}

func (r *recordingSink) Emit(ev events.PhaseEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recordingSink) last() events.PhaseEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return events.PhaseEvent{}
	}
	return r.events[len(r.events)-1]
}
