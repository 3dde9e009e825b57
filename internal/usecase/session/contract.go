package session

import (
	"context"

	"github.com/refdesk/refrank/internal/domain/address"
	"github.com/refdesk/refrank/internal/domain/geo"
	domrank "github.com/refdesk/refrank/internal/domain/rank"
)

// Resolver turns an address into coordinates.
type Resolver interface {
	Resolve(ctx context.Context, addr address.Address) (geo.Resolution, error)
}

// Ranker scores the provider snapshot around a resolved origin.
type Ranker interface {
	Rank(origin geo.Coordinate, criteria domrank.Criteria) (*domrank.Result, error)
}
