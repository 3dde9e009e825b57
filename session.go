package refrank

import (
	"context"
	"fmt"

	sessionuc "github.com/refdesk/refrank/internal/usecase/session"
)

// Session is one search lifecycle: Begin configures the search, Execute
// runs it, Result returns the outcome. Begin discards any prior result,
// so a session can be reused for consecutive searches.
type Session struct {
	inner *sessionuc.Session
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.inner.ID() }

// State returns the lifecycle phase: idle, resolving, scoring, complete,
// or failed.
func (s *Session) State() string { return string(s.inner.State()) }

// Begin configures a new search, discarding any previous result first.
func (s *Session) Begin(addr Address, opts *SearchOptions) error {
	// Conversion failures still go through the inner Begin so the
	// previous result is discarded before validation rejects them.
	a, _ := toInternalAddress(addr)
	criteria, _ := toCriteria(opts)
	if err := s.inner.Begin(a, criteria); err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	return nil
}

// Execute runs the configured search.
func (s *Session) Execute(ctx context.Context) (*Result, error) {
	result, err := s.inner.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	return fromInternalResult(result), nil
}

// Result returns the most recent completed ranking, or ErrNoResult.
func (s *Session) Result() (*Result, error) {
	result, err := s.inner.CurrentResult()
	if err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}
	return fromInternalResult(result), nil
}

// Resolution returns the resolved origin of the most recent search.
func (s *Session) Resolution() (Resolution, bool) {
	res, ok := s.inner.Resolution()
	if !ok {
		return Resolution{}, false
	}
	return fromInternalResolution(res), true
}

// LastError returns the error that failed the most recent search, if any.
func (s *Session) LastError() error { return s.inner.LastError() }
