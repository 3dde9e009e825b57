package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockDatasetChecker struct {
	loaded bool
}

func (m *mockDatasetChecker) Loaded() bool { return m.loaded }

type mockGeocoderChecker struct {
	err error
}

func (m *mockGeocoderChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockDatasetChecker{loaded: true}, &mockGeocoderChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["database"] != CheckOK {
		t.Errorf("expected database %q, got %q", CheckOK, r.Checks["database"])
	}
	if r.Checks["dataset"] != CheckOK {
		t.Errorf("expected dataset %q, got %q", CheckOK, r.Checks["dataset"])
	}
	if r.Checks["geocoder"] != CheckOK {
		t.Errorf("expected geocoder %q, got %q", CheckOK, r.Checks["geocoder"])
	}
}

func TestCheck_DBError(t *testing.T) {
	svc := New(&mockDBPinger{err: errors.New("conn refused")}, &mockDatasetChecker{loaded: true}, &mockGeocoderChecker{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Errorf("expected database %q, got %q", CheckError, r.Checks["database"])
	}
	if r.Checks["dataset"] != CheckOK {
		t.Errorf("expected dataset %q, got %q", CheckOK, r.Checks["dataset"])
	}
}

func TestCheck_DatasetNotLoaded(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockDatasetChecker{}, &mockGeocoderChecker{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["dataset"] != CheckError {
		t.Errorf("expected dataset %q, got %q", CheckError, r.Checks["dataset"])
	}
}

func TestCheck_GeocoderError(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockDatasetChecker{loaded: true}, &mockGeocoderChecker{err: errors.New("timeout")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["geocoder"] != CheckError {
		t.Errorf("expected geocoder %q, got %q", CheckError, r.Checks["geocoder"])
	}
}

func TestCheck_NoGeocoder(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockDatasetChecker{loaded: true}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["geocoder"]; ok {
		t.Error("geocoder check should be absent when geocoder is nil")
	}
}

func TestCheck_AllFail(t *testing.T) {
	svc := New(
		&mockDBPinger{err: errors.New("db down")},
		&mockDatasetChecker{},
		&mockGeocoderChecker{err: errors.New("geo down")},
	)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Error("expected database error")
	}
	if r.Checks["dataset"] != CheckError {
		t.Error("expected dataset error")
	}
	if r.Checks["geocoder"] != CheckError {
		t.Error("expected geocoder error")
	}
}
