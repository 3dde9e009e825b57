// Package usage holds geocoding usage report value objects.
package usage

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// Budget tracks geocoding call budget state for one period.
type Budget struct {
	callsLimit     int64
	callsRemaining int64
	isExhausted    bool
	resetsAt       int64 // unix millis, converted to ISO 8601 at transport layer
}

// NewBudget creates a Budget snapshot.
func NewBudget(limit, remaining int64, isExhausted bool, resetsAt int64) Budget {
	return Budget{
		callsLimit:     limit,
		callsRemaining: remaining,
		isExhausted:    isExhausted,
		resetsAt:       resetsAt,
	}
}

// CallsLimit returns the call cap (0 = unlimited).
func (b Budget) CallsLimit() int64 { return b.callsLimit }

// CallsRemaining returns calls left (-1 = unlimited).
func (b Budget) CallsRemaining() int64 { return b.callsRemaining }

// IsExhausted reports whether the budget is spent.
func (b Budget) IsExhausted() bool { return b.isExhausted }

// ResetsAt returns the reset timestamp (unix millis).
func (b Budget) ResetsAt() int64 { return b.resetsAt }

// Report is a geocoding usage report for a time period.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	callsUsed   int64
	budget      Budget
}

// NewReport creates a usage report.
func NewReport(period Period, start, end, used int64, b Budget) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		callsUsed:   used,
		budget:      b,
	}
}

// Period returns the aggregation granularity.
func (r Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp (unix millis).
func (r Report) PeriodEnd() int64 { return r.periodEnd }

// CallsUsed returns geocoder calls consumed in the period.
func (r Report) CallsUsed() int64 { return r.callsUsed }

// Budget returns the budget status.
func (r Report) Budget() Budget { return r.budget }
