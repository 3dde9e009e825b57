package rank

import (
	"time"

	"github.com/refdesk/refrank/internal/domain/geo"
	"github.com/refdesk/refrank/internal/domain/provider"
)

// Placement is one scored provider in a ranked result.
type Placement struct {
	provider      provider.Provider
	score         float64
	distanceMiles float64
}

// NewPlacement creates a placement.
func NewPlacement(p provider.Provider, score, distanceMiles float64) Placement {
	return Placement{provider: p, score: score, distanceMiles: distanceMiles}
}

// Provider returns the ranked provider row.
func (p Placement) Provider() provider.Provider { return p.provider }

// Score returns the composite score in [0,1].
func (p Placement) Score() float64 { return p.score }

// DistanceMiles returns the great-circle distance from the search origin.
func (p Placement) DistanceMiles() float64 { return p.distanceMiles }

// Result is one search's ordered ranking. Regenerated on every search;
// a new search fully replaces any previous result.
type Result struct {
	placements  []Placement
	origin      geo.Coordinate
	generatedAt time.Time
}

// NewResult creates a result; placements must already be sorted best-first.
func NewResult(placements []Placement, origin geo.Coordinate, generatedAt time.Time) *Result {
	return &Result{placements: placements, origin: origin, generatedAt: generatedAt}
}

// Placements returns the ranked placements, best first.
func (r *Result) Placements() []Placement { return r.placements }

// Best returns the top placement, or false when the result is empty.
func (r *Result) Best() (Placement, bool) {
	if len(r.placements) == 0 {
		return Placement{}, false
	}
	return r.placements[0], true
}

// Len returns the number of placements.
func (r *Result) Len() int { return len(r.placements) }

// Origin returns the resolved search coordinate.
func (r *Result) Origin() geo.Coordinate { return r.origin }

// GeneratedAt returns when the ranking was computed.
func (r *Result) GeneratedAt() time.Time { return r.generatedAt }
