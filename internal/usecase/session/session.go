// Package session runs one ranking search per invocation and tracks its
// lifecycle for the HTTP surface.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/refdesk/refrank/internal/domain"
	"github.com/refdesk/refrank/internal/domain/address"
	"github.com/refdesk/refrank/internal/domain/geo"
	domrank "github.com/refdesk/refrank/internal/domain/rank"
	"github.com/refdesk/refrank/internal/metrics"
)

// State is the session lifecycle phase.
type State string

// Session states. Complete and Failed are terminal until the next Begin.
const (
	StateIdle      State = "idle"
	StateResolving State = "resolving"
	StateScoring   State = "scoring"
	StateComplete  State = "complete"
	StateFailed    State = "failed"
)

// Session is one user's search lifecycle: Begin configures a search,
// Execute runs it, CurrentResult exposes the outcome. A session runs one
// search at a time; the mutex serializes its whole lifecycle.
type Session struct {
	id       string
	resolver Resolver
	ranker   Ranker
	logger   *zap.Logger

	mu         sync.Mutex
	state      State
	addr       address.Address
	criteria   domrank.Criteria
	resolution geo.Resolution
	resolved   bool
	result     *domrank.Result
	lastErr    error
	prefs      map[string]string
	lastActive time.Time

	now func() time.Time
}

func newSession(id string, resolver Resolver, ranker Ranker, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		id:       id,
		resolver: resolver,
		ranker:   ranker,
		logger:   logger,
		state:    StateIdle,
		prefs:    make(map[string]string),
		now:      time.Now,
	}
	s.lastActive = s.now()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Begin configures a new search. Any previously stored result and error are
// discarded first, before validation: a stale result must never survive a
// new search attempt, even an invalid one.
func (s *Session) Begin(addr address.Address, criteria domrank.Criteria) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.result = nil
	s.lastErr = nil
	s.resolution = geo.Resolution{}
	s.resolved = false
	s.lastActive = s.now()

	if addr.Normalized() == "" {
		err := fmt.Errorf("%w: search address is required", domain.ErrInvalidInput)
		s.state = StateFailed
		s.lastErr = err
		return err
	}
	if criteria.Weights().Sum() <= 0 {
		err := fmt.Errorf("%w: scoring criteria are required", domain.ErrInvalidInput)
		s.state = StateFailed
		s.lastErr = err
		return err
	}

	s.addr = addr
	s.criteria = criteria
	s.state = StateResolving
	return nil
}

// Execute runs the configured search: resolve, then score. An unresolved
// address fails the session without invoking the scorer. Panics inside the
// pipeline are recovered into a Failed outcome isolated to this session.
func (s *Session) Execute(ctx context.Context) (result *domrank.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.state = StateFailed
			err = fmt.Errorf("search failed: %v", r)
			s.lastErr = err
			result = nil
			metrics.SearchesTotal.WithLabelValues("error").Inc()
			s.logger.Error("Search panicked",
				zap.String("session_id", s.id),
				zap.Any("panic", r),
			)
		}
	}()

	if s.state != StateResolving {
		return nil, fmt.Errorf("%w: session is %s", domain.ErrSearchNotStarted, s.state)
	}
	s.lastActive = s.now()

	res, rerr := s.resolver.Resolve(ctx, s.addr)
	if rerr != nil {
		s.state = StateFailed
		s.lastErr = rerr
		metrics.SearchesTotal.WithLabelValues(resolveOutcome(rerr)).Inc()
		return nil, rerr
	}
	s.resolution = res
	s.resolved = true
	s.state = StateScoring

	ranked, kerr := s.ranker.Rank(res.Coordinate(), s.criteria)
	if kerr != nil {
		s.state = StateFailed
		s.lastErr = kerr
		outcome := "error"
		if errors.Is(kerr, domain.ErrNoMatchingProviders) {
			outcome = "no_matches"
		}
		metrics.SearchesTotal.WithLabelValues(outcome).Inc()
		return nil, kerr
	}

	s.result = ranked
	s.state = StateComplete
	metrics.SearchesTotal.WithLabelValues("complete").Inc()

	s.logger.Info("Search completed",
		zap.String("session_id", s.id),
		zap.Int("placements", ranked.Len()),
	)
	return ranked, nil
}

func resolveOutcome(err error) string {
	if errors.Is(err, domain.ErrLocationNotFound) {
		return "location_not_found"
	}
	return "error"
}

// CurrentResult returns the most recent completed ranking.
func (s *Session) CurrentResult() (*domrank.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return nil, domain.ErrNoResult
	}
	return s.result, nil
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the error that failed the most recent search, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Resolution returns the resolved origin of the most recent search.
func (s *Session) Resolution() (geo.Resolution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolution, s.resolved
}

// EnsurePreference initializes a session-bound preference exactly once.
// Later calls with the same key are no-ops.
func (s *Session) EnsurePreference(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prefs[key]; !ok {
		s.prefs[key] = value
	}
}

// Preference returns a stored preference value.
func (s *Session) Preference(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.prefs[key]
	return v, ok
}

// LastActive returns the last time the session was used.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
