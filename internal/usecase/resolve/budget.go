package resolve

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/refdesk/refrank/internal/domain"
	"github.com/refdesk/refrank/internal/metrics"
)

// BudgetAction defines behavior when the call budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore is the persistence interface for budget counters.
// Implementations must be idempotent (IncrBy can be called repeatedly).
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// CallBudget is an in-memory geocoding call budget with optional persistence.
// Hot path (Check) is in-memory only, no round-trip.
// Record updates in-memory first, then write-behind to store.
type CallBudget struct {
	mu             sync.Mutex
	dailyUsed      int64
	monthlyUsed    int64
	dailyLimit     int64
	monthlyLimit   int64
	action         BudgetAction
	lastDayReset   time.Time
	lastMonthReset time.Time
	store          BudgetStore
	logger         *zap.Logger
}

// NewCallBudget creates a call budget with the given limits. A zero limit
// means unlimited for that period.
func NewCallBudget(dailyLimit, monthlyLimit int64, action BudgetAction, logger *zap.Logger) *CallBudget {
	now := time.Now().UTC()
	return &CallBudget{
		dailyLimit:     dailyLimit,
		monthlyLimit:   monthlyLimit,
		action:         action,
		lastDayReset:   truncateToDay(now),
		lastMonthReset: truncateToMonth(now),
		logger:         logger,
	}
}

// WithStore attaches a persistence store and loads current counters.
func (b *CallBudget) WithStore(ctx context.Context, store BudgetStore) *CallBudget {
	b.store = store
	b.loadFromStore(ctx)
	return b
}

func (b *CallBudget) loadFromStore(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()

	if val, err := b.store.Get(ctx, dailyKey(now)); err == nil {
		b.dailyUsed = val
	} else {
		b.logger.Warn("Failed to load daily call budget from store", zap.Error(err))
	}

	if val, err := b.store.Get(ctx, monthlyKey(now)); err == nil {
		b.monthlyUsed = val
	} else {
		b.logger.Warn("Failed to load monthly call budget from store", zap.Error(err))
	}

	b.logger.Info("Geocode call budget loaded from store",
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("monthly_used", b.monthlyUsed),
	)
}

func dailyKey(t time.Time) string {
	return fmt.Sprintf("%susage:geocode:daily:%s", domain.KeyPrefix, t.Format("2006-01-02"))
}

func monthlyKey(t time.Time) string {
	return fmt.Sprintf("%susage:geocode:monthly:%s", domain.KeyPrefix, t.Format("2006-01"))
}

// Check verifies the budget allows a new upstream call. In-memory only (hot path).
func (b *CallBudget) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()

	dailyExceeded := b.dailyLimit > 0 && b.dailyUsed >= b.dailyLimit
	monthlyExceeded := b.monthlyLimit > 0 && b.monthlyUsed >= b.monthlyLimit

	if !dailyExceeded && !monthlyExceeded {
		return nil
	}

	if b.action == BudgetActionReject {
		metrics.GeocodeBudgetRejectedTotal.Inc()
		return domain.ErrGeocodeQuotaExceeded
	}

	// action=warn: log but allow the request through
	b.logger.Warn("Geocode call budget exceeded",
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("daily_limit", b.dailyLimit),
		zap.Int64("monthly_used", b.monthlyUsed),
		zap.Int64("monthly_limit", b.monthlyLimit),
	)
	return nil
}

// Record registers completed upstream calls.
// Updates in-memory counters, then write-behind to store (if attached).
func (b *CallBudget) Record(calls int64) {
	b.mu.Lock()
	b.resetIfNeeded()
	b.dailyUsed += calls
	b.monthlyUsed += calls
	store := b.store
	now := time.Now().UTC()
	dk := dailyKey(now)
	mk := monthlyKey(now)
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Write-behind: fire-and-forget INCRBY to store.
	// Uses background context so store writes don't block the caller.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := store.IncrBy(ctx, dk, calls); err != nil {
		b.logger.Warn("Failed to persist daily call budget", zap.String("key", dk), zap.Error(err))
	}
	if err := store.IncrBy(ctx, mk, calls); err != nil {
		b.logger.Warn("Failed to persist monthly call budget", zap.String("key", mk), zap.Error(err))
	}
}

// RemainingDaily returns calls left in the daily budget (-1 if unlimited).
func (b *CallBudget) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()
	if b.dailyLimit == 0 {
		return -1 // unlimited
	}
	remaining := b.dailyLimit - b.dailyUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingMonthly returns calls left in the monthly budget (-1 if unlimited).
func (b *CallBudget) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()
	if b.monthlyLimit == 0 {
		return -1 // unlimited
	}
	remaining := b.monthlyLimit - b.monthlyUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// DailyLimit returns the daily call cap.
func (b *CallBudget) DailyLimit() int64 { return b.dailyLimit }

// MonthlyLimit returns the monthly call cap.
func (b *CallBudget) MonthlyLimit() int64 { return b.monthlyLimit }

// DailyUsed returns calls made today.
func (b *CallBudget) DailyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	return b.dailyUsed
}

// MonthlyUsed returns calls made this month.
func (b *CallBudget) MonthlyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	return b.monthlyUsed
}

// resetIfNeeded zeroes counters when the day or month rolls over.
func (b *CallBudget) resetIfNeeded() {
	now := time.Now().UTC()
	today := truncateToDay(now)
	thisMonth := truncateToMonth(now)

	if today.After(b.lastDayReset) {
		b.dailyUsed = 0
		b.lastDayReset = today
	}
	if thisMonth.After(b.lastMonthReset) {
		b.monthlyUsed = 0
		b.lastMonthReset = thisMonth
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
