package rank

import (
	"testing"

	"github.com/refdesk/refrank/internal/domain/geo"
	"github.com/refdesk/refrank/internal/domain/provider"
)

func mustOrigin(t *testing.T) geo.Coordinate {
	t.Helper()
	c, err := geo.NewCoordinate(38.0, -76.0)
	if err != nil {
		t.Fatalf("coordinate: %v", err)
	}
	return c
}

func testProvider(id string) provider.Provider {
	return provider.Provider{
		ID:   id,
		Name: "Provider " + id,
	}
}
