package session

import (
	"errors"
	"testing"
	"time"

	"github.com/refdesk/refrank/internal/domain"
)

func newTestManager(ttl time.Duration, maxSessions int) *Manager {
	return NewManager(&mockResolver{}, &mockRanker{}, ttl, maxSessions, nil)
}

func TestManager_CreateAndGet(t *testing.T) {
	m := newTestManager(time.Minute, 10)

	s := m.Create()
	if s.ID() == "" {
		t.Fatal("expected a non-empty session ID")
	}

	got, err := m.Get(s.ID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != s {
		t.Error("expected the same session instance")
	}
}

func TestManager_GetUnknownID(t *testing.T) {
	m := newTestManager(time.Minute, 10)

	_, err := m.Get("no-such-session")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_DistinctIDs(t *testing.T) {
	m := newTestManager(time.Minute, 10)

	a := m.Create()
	b := m.Create()
	if a.ID() == b.ID() {
		t.Errorf("expected distinct session IDs, both %q", a.ID())
	}
	if m.Count() != 2 {
		t.Errorf("expected 2 sessions, got %d", m.Count())
	}
}

func TestManager_PurgesIdleSessions(t *testing.T) {
	m := newTestManager(time.Minute, 10)

	s := m.Create()

	// Age the session past the TTL, then trigger an opportunistic purge.
	past := time.Now().Add(-2 * time.Minute)
	s.mu.Lock()
	s.lastActive = past
	s.mu.Unlock()

	m.Create()

	if _, err := m.Get(s.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected the idle session purged, got %v", err)
	}
	if m.Count() != 1 {
		t.Errorf("expected 1 live session, got %d", m.Count())
	}
}

func TestManager_EvictsOldestAtCapacity(t *testing.T) {
	m := newTestManager(time.Hour, 2)

	oldest := m.Create()
	// Make the first session clearly the least recently active.
	oldest.mu.Lock()
	oldest.lastActive = time.Now().Add(-time.Minute)
	oldest.mu.Unlock()

	m.Create()
	third := m.Create()

	if m.Count() != 2 {
		t.Fatalf("expected the session count bounded at 2, got %d", m.Count())
	}
	if _, err := m.Get(oldest.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected the oldest session evicted, got %v", err)
	}
	if _, err := m.Get(third.ID()); err != nil {
		t.Errorf("expected the newest session kept, got %v", err)
	}
}
