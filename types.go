package refrank

import (
	"time"

	"github.com/refdesk/refrank/internal/domain/geo"
	domprov "github.com/refdesk/refrank/internal/domain/provider"
	domrank "github.com/refdesk/refrank/internal/domain/rank"
)

// Resolution confidence levels.
const (
	ConfidenceHigh = string(geo.ConfidenceHigh)
	ConfidenceLow  = string(geo.ConfidenceLow)
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Resolution is a geocoded address.
type Resolution struct {
	Coordinate Coordinate
	Confidence string // ConfidenceHigh or ConfidenceLow
	Label      string // display name returned by the geocoder
}

// Address is a search input: structured components, or a single free-form
// line in Text. Text wins when both are set.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
	Text   string
}

// Provider is one row of the provider dataset.
type Provider struct {
	ID            string
	Name          string
	Specialty     string
	Street        string
	City          string
	State         string
	Zip           string
	Lat           float64
	Lon           float64
	ReferralCount int
	LastReferral  time.Time // zero when unknown
}

// Weights control the relative importance of the scoring dimensions.
// Only ratios matter.
type Weights struct {
	Distance  float64
	Referrals float64
	Recency   float64
}

// SearchOptions configure filtering and scoring. Zero values fall back to
// service defaults (25 mile radius, one-year recency window, no limit).
type SearchOptions struct {
	Weights           *Weights
	MinReferrals      int
	MaxRadiusMiles    float64
	RecencyWindowDays int
	Limit             int
}

// Placement is one scored provider in a ranked result.
type Placement struct {
	Provider      Provider
	Score         float64
	DistanceMiles float64
}

// Result is a completed ranking, best placement first.
type Result struct {
	Origin      Coordinate
	GeneratedAt time.Time
	Placements  []Placement
}

// Best returns the top placement, if any.
func (r *Result) Best() (Placement, bool) {
	if r == nil || len(r.Placements) == 0 {
		return Placement{}, false
	}
	return r.Placements[0], true
}

// --- Internal conversions ---

func toInternalProvider(p Provider) (domprov.Provider, error) {
	coord, err := geo.NewCoordinate(p.Lat, p.Lon)
	if err != nil {
		return domprov.Provider{}, err
	}
	return domprov.Provider{
		ID:            p.ID,
		Name:          p.Name,
		Specialty:     p.Specialty,
		Street:        p.Street,
		City:          p.City,
		State:         p.State,
		Zip:           p.Zip,
		Location:      coord,
		ReferralCount: p.ReferralCount,
		LastReferral:  p.LastReferral,
	}, nil
}

func fromInternalProvider(p domprov.Provider) Provider {
	return Provider{
		ID:            p.ID,
		Name:          p.Name,
		Specialty:     p.Specialty,
		Street:        p.Street,
		City:          p.City,
		State:         p.State,
		Zip:           p.Zip,
		Lat:           p.Location.Lat(),
		Lon:           p.Location.Lon(),
		ReferralCount: p.ReferralCount,
		LastReferral:  p.LastReferral,
	}
}

func fromInternalResolution(res geo.Resolution) Resolution {
	return Resolution{
		Coordinate: Coordinate{Lat: res.Coordinate().Lat(), Lon: res.Coordinate().Lon()},
		Confidence: string(res.Confidence()),
		Label:      res.Label(),
	}
}

func fromInternalResult(result *domrank.Result) *Result {
	if result == nil {
		return nil
	}
	placements := make([]Placement, 0, result.Len())
	for _, p := range result.Placements() {
		placements = append(placements, Placement{
			Provider:      fromInternalProvider(p.Provider()),
			Score:         p.Score(),
			DistanceMiles: p.DistanceMiles(),
		})
	}
	return &Result{
		Origin:      Coordinate{Lat: result.Origin().Lat(), Lon: result.Origin().Lon()},
		GeneratedAt: result.GeneratedAt(),
		Placements:  placements,
	}
}
