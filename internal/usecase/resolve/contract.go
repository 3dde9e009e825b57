package resolve

import (
	"context"

	"github.com/refdesk/refrank/internal/domain/geo"
)

// Geocoder resolves one normalized address string to a coordinate.
type Geocoder interface {
	Resolve(ctx context.Context, query string) (geo.Resolution, error)
}
