// Package rank scores the provider snapshot around a resolved origin and
// produces a deterministic ranked result.
package rank

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/refdesk/refrank/internal/domain"
	"github.com/refdesk/refrank/internal/domain/geo"
	domprov "github.com/refdesk/refrank/internal/domain/provider"
	domrank "github.com/refdesk/refrank/internal/domain/rank"
)

// Service handles provider scoring and ranking.
type Service struct {
	source ProviderSource
	logger *zap.Logger
	now    func() time.Time
}

// New creates a ranking service.
func New(source ProviderSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, logger: logger, now: time.Now}
}

// candidate carries per-provider scoring state; index preserves input order
// as the final tie-break.
type candidate struct {
	provider domprov.Provider
	distance float64
	score    float64
	index    int
}

// Rank filters, scores and orders the snapshot. The radius boundary is
// inclusive. An empty filtered set is an error so callers know to relax
// the criteria rather than re-enter the address.
func (s *Service) Rank(origin geo.Coordinate, criteria domrank.Criteria) (*domrank.Result, error) {
	providers, err := s.source.Providers()
	if err != nil {
		return nil, fmt.Errorf("load providers: %w", err)
	}

	candidates := make([]candidate, 0, len(providers))
	for i, p := range providers {
		if p.ReferralCount < criteria.MinReferrals() {
			continue
		}
		d := geo.HaversineMiles(origin, p.Location)
		if d > criteria.MaxRadiusMiles() {
			continue
		}
		candidates = append(candidates, candidate{provider: p, distance: d, index: i})
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no providers within %.1f miles with at least %d referrals",
			domain.ErrNoMatchingProviders, criteria.MaxRadiusMiles(), criteria.MinReferrals())
	}

	// Referral scores are normalized over the surviving set, not the
	// whole dataset.
	maxCount := 0
	for _, c := range candidates {
		if c.provider.ReferralCount > maxCount {
			maxCount = c.provider.ReferralCount
		}
	}

	now := s.now()
	w := criteria.Weights()
	for i := range candidates {
		c := &candidates[i]

		distScore := 1 - c.distance/criteria.MaxRadiusMiles()
		refScore := 0.0
		if maxCount > 0 {
			refScore = float64(c.provider.ReferralCount) / float64(maxCount)
		}
		recScore := recencyScore(c.provider.LastReferral, now, criteria.RecencyWindow())

		c.score = (w.Distance()*distScore + w.Referrals()*refScore + w.Recency()*recScore) / w.Sum()
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.provider.ReferralCount != b.provider.ReferralCount {
			return a.provider.ReferralCount > b.provider.ReferralCount
		}
		return a.index < b.index
	})

	if limit := criteria.Limit(); limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	placements := make([]domrank.Placement, len(candidates))
	for i, c := range candidates {
		placements[i] = domrank.NewPlacement(c.provider, c.score, c.distance)
	}

	s.logger.Debug("Ranking computed",
		zap.Int("dataset_size", len(providers)),
		zap.Int("placements", len(placements)),
		zap.Float64("max_radius_miles", criteria.MaxRadiusMiles()),
	)

	return domrank.NewResult(placements, origin, now), nil
}

// recencyScore decays linearly from 1 (referred just now) to 0 at the
// window edge. Providers with no recorded referral score 0.
func recencyScore(last, now time.Time, window time.Duration) float64 {
	if last.IsZero() || window <= 0 {
		return 0
	}
	age := now.Sub(last)
	if age < 0 {
		age = 0
	}
	frac := float64(age) / float64(window)
	if frac > 1 {
		frac = 1
	}
	return 1 - frac
}
