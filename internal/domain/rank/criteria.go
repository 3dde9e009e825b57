// Package rank holds the scoring criteria and ranked result value objects.
package rank

import (
	"fmt"
	"time"

	"github.com/refdesk/refrank/internal/domain"
)

// Criteria defaults and caps.
const (
	DefaultMaxRadiusMiles   = 25.0
	MaxRadiusMilesCap       = 500.0
	DefaultRecencyWindowDay = 365
)

// Weights is the per-dimension scoring weight set. Only weight ratios
// matter: each dimension is normalized independently before weighting.
type Weights struct {
	distance  float64
	referrals float64
	recency   float64
}

// NewWeights validates a weight set: no negative weight, at least one positive.
func NewWeights(distance, referrals, recency float64) (Weights, error) {
	if distance < 0 || referrals < 0 || recency < 0 {
		return Weights{}, fmt.Errorf("%w: weights must not be negative", domain.ErrInvalidInput)
	}
	if distance+referrals+recency <= 0 {
		return Weights{}, fmt.Errorf("%w: at least one weight must be positive", domain.ErrInvalidInput)
	}
	return Weights{distance: distance, referrals: referrals, recency: recency}, nil
}

// DefaultWeights favors proximity, then referral volume, then recency.
func DefaultWeights() Weights {
	return Weights{distance: 0.5, referrals: 0.3, recency: 0.2}
}

// Distance returns the distance dimension weight.
func (w Weights) Distance() float64 { return w.distance }

// Referrals returns the referral-count dimension weight.
func (w Weights) Referrals() float64 { return w.referrals }

// Recency returns the last-referral recency dimension weight.
func (w Weights) Recency() float64 { return w.recency }

// Sum returns the total weight mass used to normalize the composite.
func (w Weights) Sum() float64 { return w.distance + w.referrals + w.recency }

// Criteria is one search's validated filtering and scoring configuration.
// Supplied fresh per search; never reused from a prior search.
type Criteria struct {
	weights        Weights
	minReferrals   int
	maxRadiusMiles float64
	recencyWindow  time.Duration
	limit          int
}

// NewCriteria validates and normalizes search criteria.
// maxRadiusMiles <= 0 falls back to the default radius and is capped;
// recencyWindowDays <= 0 falls back to one year; limit <= 0 means no limit.
func NewCriteria(weights Weights, minReferrals int, maxRadiusMiles float64, recencyWindowDays, limit int) (Criteria, error) {
	if weights.Sum() <= 0 {
		return Criteria{}, fmt.Errorf("%w: scoring weights are required", domain.ErrInvalidInput)
	}
	if weights.distance < 0 || weights.referrals < 0 || weights.recency < 0 {
		return Criteria{}, fmt.Errorf("%w: weights must not be negative", domain.ErrInvalidInput)
	}
	if minReferrals < 0 {
		return Criteria{}, fmt.Errorf("%w: minimum referral count must not be negative", domain.ErrInvalidInput)
	}
	if maxRadiusMiles <= 0 {
		maxRadiusMiles = DefaultMaxRadiusMiles
	}
	if maxRadiusMiles > MaxRadiusMilesCap {
		maxRadiusMiles = MaxRadiusMilesCap
	}
	if recencyWindowDays <= 0 {
		recencyWindowDays = DefaultRecencyWindowDay
	}
	if limit < 0 {
		limit = 0
	}

	return Criteria{
		weights:        weights,
		minReferrals:   minReferrals,
		maxRadiusMiles: maxRadiusMiles,
		recencyWindow:  time.Duration(recencyWindowDays) * 24 * time.Hour,
		limit:          limit,
	}, nil
}

// DefaultCriteria returns the service defaults: default weights, no referral
// floor, default radius, one-year recency window, no limit.
func DefaultCriteria() Criteria {
	c, _ := NewCriteria(DefaultWeights(), 0, DefaultMaxRadiusMiles, DefaultRecencyWindowDay, 0)
	return c
}

// Weights returns the per-dimension weights.
func (c Criteria) Weights() Weights { return c.weights }

// MinReferrals returns the minimum referral-count threshold.
func (c Criteria) MinReferrals() int { return c.minReferrals }

// MaxRadiusMiles returns the inclusive search radius.
func (c Criteria) MaxRadiusMiles() float64 { return c.maxRadiusMiles }

// RecencyWindow returns the span over which recency decays to zero.
func (c Criteria) RecencyWindow() time.Duration { return c.recencyWindow }

// Limit returns the maximum number of placements to keep (0 = all).
func (c Criteria) Limit() int { return c.limit }
