package session

import (
	"context"
	"testing"
	"time"

	"github.com/refdesk/refrank/internal/domain/address"
	"github.com/refdesk/refrank/internal/domain/geo"
	domprov "github.com/refdesk/refrank/internal/domain/provider"
	domrank "github.com/refdesk/refrank/internal/domain/rank"
)

// --- Mocks ---

type mockResolver struct {
	resolveFn func(ctx context.Context, addr address.Address) (geo.Resolution, error)
	calls     int
}

func (m *mockResolver) Resolve(ctx context.Context, addr address.Address) (geo.Resolution, error) {
	m.calls++
	if m.resolveFn != nil {
		return m.resolveFn(ctx, addr)
	}
	coord, _ := geo.NewCoordinate(38.8159, -76.7497)
	return geo.NewResolution(coord, geo.ConfidenceHigh, "stub match"), nil
}

type mockRanker struct {
	rankFn func(origin geo.Coordinate, criteria domrank.Criteria) (*domrank.Result, error)
	calls  int
}

func (m *mockRanker) Rank(origin geo.Coordinate, criteria domrank.Criteria) (*domrank.Result, error) {
	m.calls++
	if m.rankFn != nil {
		return m.rankFn(origin, criteria)
	}
	return singleResult(origin), nil
}

// --- Helpers ---

func singleResult(origin geo.Coordinate) *domrank.Result {
	coord, _ := geo.NewCoordinate(38.82, -76.75)
	p := domprov.Provider{ID: "p1", Name: "Dr. Adams", Location: coord, ReferralCount: 12}
	placement := domrank.NewPlacement(p, 0.9, 1.2)
	return domrank.NewResult([]domrank.Placement{placement}, origin, time.Now().UTC())
}

func mustAddress(t *testing.T, street, city, state, zip string) address.Address {
	t.Helper()
	a, err := address.New(street, city, state, zip)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	return a
}

func newTestSession(resolver Resolver, ranker Ranker) *Session {
	return newSession("test-session", resolver, ranker, nil)
}
