package geo

// Confidence grades how precisely an address resolved.
type Confidence string

const (
	// ConfidenceHigh means a street-level match.
	ConfidenceHigh Confidence = "high"
	// ConfidenceLow means a city-level or otherwise imprecise match.
	ConfidenceLow Confidence = "low"
)

// Resolution is the outcome of geocoding one address.
type Resolution struct {
	coord      Coordinate
	confidence Confidence
	label      string
}

// NewResolution creates a resolution with the matched display label.
func NewResolution(coord Coordinate, confidence Confidence, label string) Resolution {
	if confidence == "" {
		confidence = ConfidenceHigh
	}
	return Resolution{coord: coord, confidence: confidence, label: label}
}

// Coordinate returns the resolved point.
func (r Resolution) Coordinate() Coordinate { return r.coord }

// Confidence returns the match precision grade.
func (r Resolution) Confidence() Confidence { return r.confidence }

// Label returns the geocoder's display name for the match.
func (r Resolution) Label() string { return r.label }
