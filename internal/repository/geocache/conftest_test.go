package geocache

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/refdesk/refrank/internal/db"
	"github.com/refdesk/refrank/internal/domain/geo"
)

type mockGeocoder struct {
	res   geo.Resolution
	err   error
	calls int
}

func (m *mockGeocoder) Resolve(_ context.Context, _ string) (geo.Resolution, error) {
	m.calls++
	if m.err != nil {
		return geo.Resolution{}, m.err
	}
	return m.res, nil
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn  func(ctx context.Context, key string) ([]byte, error)
	setFn  func(ctx context.Context, key string, value []byte) error
	delFn  func(ctx context.Context, key string) error
	scanFn func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func (m *mockKVStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockKVStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func mustCoordinate(t *testing.T, lat, lon float64) geo.Coordinate {
	t.Helper()
	c, err := geo.NewCoordinate(lat, lon)
	if err != nil {
		t.Fatalf("coordinate: %v", err)
	}
	return c
}

func newTestCachedResolver(t *testing.T, inner *mockGeocoder) (*CachedResolver, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	cr := New(inner, ms, nil, zap.NewNop())
	return cr, ms
}
