package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/refdesk/refrank/internal/domain"
	"github.com/refdesk/refrank/internal/domain/geo"
)

// retryBackoff is the base delay between retry attempts; attempt N waits N times this.
const retryBackoff = 500 * time.Millisecond

// BudgetChecker is the local interface for call budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(calls int64)
}

// Throttled wraps a Geocoder with upstream pacing, bounded retries, and
// call budget enforcement. Upstream calls are serialized process-wide and
// spaced at least minInterval apart (public geocoder usage policy).
type Throttled struct {
	inner       Geocoder
	minInterval time.Duration
	maxAttempts int
	budget      BudgetChecker
	logger      *zap.Logger

	mu       sync.Mutex
	lastCall time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewThrottled wraps a geocoder. budget may be nil (unlimited mode).
func NewThrottled(
	inner Geocoder, minInterval time.Duration, maxAttempts int,
	budget BudgetChecker, logger *zap.Logger,
) *Throttled {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Throttled{
		inner:       inner,
		minInterval: minInterval,
		maxAttempts: maxAttempts,
		budget:      budget,
		logger:      logger,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Resolve delegates to the inner geocoder with pacing and bounded retries.
// Transient upstream failures are retried; a definitive not-found answer is
// not. After the attempt budget is spent the failure escalates to
// ErrLocationNotFound so callers treat the address as unresolvable.
func (t *Throttled) Resolve(ctx context.Context, query string) (geo.Resolution, error) {
	var lastErr error

	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		if t.budget != nil {
			if err := t.budget.Check(ctx); err != nil {
				return geo.Resolution{}, fmt.Errorf("budget check: %w", err)
			}
		}

		res, err := t.callPaced(ctx, query)
		if t.budget != nil {
			// Every upstream call counts, successful or not.
			t.budget.Record(1)
		}
		if err == nil {
			return res, nil
		}

		if errors.Is(err, domain.ErrLocationNotFound) {
			// Definitive empty answer; retrying cannot change it.
			return geo.Resolution{}, err
		}
		if !errors.Is(err, domain.ErrResolutionUnavailable) {
			return geo.Resolution{}, err
		}

		lastErr = err
		t.logger.Warn("Geocoding attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", t.maxAttempts),
			zap.Error(err),
		)

		if attempt < t.maxAttempts {
			if serr := t.sleep(ctx, time.Duration(attempt)*retryBackoff); serr != nil {
				break
			}
		}
	}

	return geo.Resolution{}, fmt.Errorf("%w: %d geocoding attempts failed: %v",
		domain.ErrLocationNotFound, t.maxAttempts, lastErr)
}

// callPaced holds the pacer lock across the upstream call so concurrent
// searches cannot exceed the minimum call interval.
func (t *Throttled) callPaced(ctx context.Context, query string) (geo.Resolution, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lastCall.IsZero() {
		if wait := t.minInterval - t.now().Sub(t.lastCall); wait > 0 {
			if err := t.sleep(ctx, wait); err != nil {
				return geo.Resolution{}, fmt.Errorf("%w: %v", domain.ErrResolutionUnavailable, err)
			}
		}
	}
	t.lastCall = t.now()

	return t.inner.Resolve(ctx, query)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
