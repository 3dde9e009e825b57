package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/refdesk/refrank/internal/domain/address"
	"github.com/refdesk/refrank/internal/domain/geo"
)

// --- Mocks ---

type mockGeocoder struct {
	resolveFn func(ctx context.Context, query string) (geo.Resolution, error)
	calls     int
}

func (m *mockGeocoder) Resolve(ctx context.Context, query string) (geo.Resolution, error) {
	m.calls++
	if m.resolveFn != nil {
		return m.resolveFn(ctx, query)
	}
	return geo.Resolution{}, nil
}

type mockBudget struct {
	checkErr error
	checks   int
	recorded int64
}

func (m *mockBudget) Check(_ context.Context) error {
	m.checks++
	return m.checkErr
}

func (m *mockBudget) Record(calls int64) {
	m.recorded += calls
}

// --- Helpers ---

func mustResolution(t *testing.T, lat, lon float64) geo.Resolution {
	t.Helper()
	coord, err := geo.NewCoordinate(lat, lon)
	if err != nil {
		t.Fatalf("coordinate: %v", err)
	}
	return geo.NewResolution(coord, geo.ConfidenceHigh, "test match")
}

func mustAddress(t *testing.T, street, city, state, zip string) address.Address {
	t.Helper()
	a, err := address.New(street, city, state, zip)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	return a
}

// instantThrottled disables real sleeping so retry tests run fast.
func instantThrottled(inner Geocoder, maxAttempts int, budget BudgetChecker) *Throttled {
	th := NewThrottled(inner, 0, maxAttempts, budget, nil)
	th.sleep = func(_ context.Context, _ time.Duration) error { return nil }
	return th
}
