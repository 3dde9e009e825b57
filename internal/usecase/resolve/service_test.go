package resolve

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/refdesk/refrank/internal/domain"
	"github.com/refdesk/refrank/internal/domain/address"
	"github.com/refdesk/refrank/internal/domain/geo"
)

func TestResolve_Success(t *testing.T) {
	want := mustResolution(t, 38.8159, -76.7497)
	var gotQuery string
	gc := &mockGeocoder{
		resolveFn: func(_ context.Context, query string) (geo.Resolution, error) {
			gotQuery = query
			return want, nil
		},
	}

	svc := New(gc, 0, nil)
	addr := mustAddress(t, "14350 Old Marlboro Pike", "Upper Marlboro", "MD", "20772")

	res, err := svc.Resolve(context.Background(), addr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery != "14350 Old Marlboro Pike, Upper Marlboro, MD 20772" {
		t.Errorf("unexpected geocoder query: %q", gotQuery)
	}
	if res.Coordinate() != want.Coordinate() {
		t.Errorf("unexpected coordinate: %+v", res.Coordinate())
	}
	if res.Confidence() != geo.ConfidenceHigh {
		t.Errorf("expected high confidence, got %s", res.Confidence())
	}
}

func TestResolve_EmptyAddressIsInvalidInput(t *testing.T) {
	gc := &mockGeocoder{}
	svc := New(gc, 0, nil)

	_, err := svc.Resolve(context.Background(), address.Address{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if gc.calls != 0 {
		t.Errorf("expected no geocoder calls for empty address, got %d", gc.calls)
	}
}

func TestResolve_NoStreetNumberDowngradesConfidence(t *testing.T) {
	gc := &mockGeocoder{
		resolveFn: func(_ context.Context, _ string) (geo.Resolution, error) {
			return mustResolution(t, 38.9072, -77.0369), nil
		},
	}

	svc := New(gc, 0, nil)
	addr := mustAddress(t, "Old Marlboro Pike", "Upper Marlboro", "MD", "")

	res, err := svc.Resolve(context.Background(), addr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence() != geo.ConfidenceLow {
		t.Errorf("expected low confidence without a street number, got %s", res.Confidence())
	}
}

func TestResolve_GeocoderLowConfidenceKept(t *testing.T) {
	coord, _ := geo.NewCoordinate(38.9, -77.0)
	gc := &mockGeocoder{
		resolveFn: func(_ context.Context, _ string) (geo.Resolution, error) {
			return geo.NewResolution(coord, geo.ConfidenceLow, "Washington"), nil
		},
	}

	svc := New(gc, 0, nil)
	addr := mustAddress(t, "1600 Pennsylvania Ave NW", "Washington", "DC", "")

	res, err := svc.Resolve(context.Background(), addr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence() != geo.ConfidenceLow {
		t.Errorf("expected geocoder confidence preserved, got %s", res.Confidence())
	}
}

func TestResolve_NotFoundPassesThrough(t *testing.T) {
	gc := &mockGeocoder{
		resolveFn: func(_ context.Context, _ string) (geo.Resolution, error) {
			return geo.Resolution{}, fmt.Errorf("%w: no match", domain.ErrLocationNotFound)
		},
	}

	svc := New(gc, 0, nil)
	addr := mustAddress(t, "", "Nowhere", "ZZ", "")

	_, err := svc.Resolve(context.Background(), addr)
	if !errors.Is(err, domain.ErrLocationNotFound) {
		t.Fatalf("expected ErrLocationNotFound, got %v", err)
	}
}

func TestResolve_QuotaPassesThrough(t *testing.T) {
	gc := &mockGeocoder{
		resolveFn: func(_ context.Context, _ string) (geo.Resolution, error) {
			return geo.Resolution{}, fmt.Errorf("budget check: %w", domain.ErrGeocodeQuotaExceeded)
		},
	}

	svc := New(gc, 0, nil)
	addr := mustAddress(t, "", "Washington", "DC", "20001")

	_, err := svc.Resolve(context.Background(), addr)
	if !errors.Is(err, domain.ErrGeocodeQuotaExceeded) {
		t.Fatalf("expected ErrGeocodeQuotaExceeded, got %v", err)
	}
}

func TestResolve_TimeoutBecomesNotFound(t *testing.T) {
	gc := &mockGeocoder{
		resolveFn: func(ctx context.Context, _ string) (geo.Resolution, error) {
			<-ctx.Done()
			return geo.Resolution{}, fmt.Errorf("%w: %v", domain.ErrResolutionUnavailable, ctx.Err())
		},
	}

	svc := New(gc, 10*time.Millisecond, nil)
	addr := mustAddress(t, "", "Washington", "DC", "20001")

	_, err := svc.Resolve(context.Background(), addr)
	if !errors.Is(err, domain.ErrLocationNotFound) {
		t.Fatalf("expected timeout to resolve as ErrLocationNotFound, got %v", err)
	}
}
