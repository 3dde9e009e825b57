// Package geo holds coordinates and great-circle distance math.
package geo

import (
	"fmt"
	"math"

	"github.com/refdesk/refrank/internal/domain"
)

// EarthRadiusMiles is the mean radius of Earth used for Haversine distance.
const EarthRadiusMiles = 3958.8

// Coordinate is a validated (latitude, longitude) pair in decimal degrees.
type Coordinate struct {
	lat float64
	lon float64
}

// NewCoordinate validates latitude in [-90,90] and longitude in [-180,180].
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	if lat < -90 || lat > 90 {
		return Coordinate{}, fmt.Errorf("%w: latitude %v out of range [-90,90]", domain.ErrInvalidInput, lat)
	}
	if lon < -180 || lon > 180 {
		return Coordinate{}, fmt.Errorf("%w: longitude %v out of range [-180,180]", domain.ErrInvalidInput, lon)
	}
	return Coordinate{lat: lat, lon: lon}, nil
}

// Lat returns the latitude in decimal degrees.
func (c Coordinate) Lat() float64 { return c.lat }

// Lon returns the longitude in decimal degrees.
func (c Coordinate) Lon() float64 { return c.lon }

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.lat, c.lon)
}

// HaversineMiles returns the great-circle distance in miles between two points.
func HaversineMiles(from, to Coordinate) float64 {
	lat1r := from.lat * math.Pi / 180
	lat2r := to.lat * math.Pi / 180
	dLat := (to.lat - from.lat) * math.Pi / 180
	dLon := (to.lon - from.lon) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// ValidCoordinates reports whether latitude is in [-90,90] and longitude in [-180,180].
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
