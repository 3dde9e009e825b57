package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/refdesk/refrank/internal/domain"
	"github.com/refdesk/refrank/internal/domain/geo"
	domprov "github.com/refdesk/refrank/internal/domain/provider"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestLoadCSV_Success(t *testing.T) {
	path := writeCSV(t, `provider_id,name,specialty,street,city,state,zip,latitude,longitude,referral_count,last_referral_date
p1,Dr. Adams,Orthopedics,1 Main St,Upper Marlboro,md,20772,38.8159,-76.7497,12,2026-06-01
p2,Dr. Brown,Neurology,2 Oak Ave,Washington,DC,20001,38.9072,-77.0369,3,
`)

	repo, err := New(path, "", zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := repo.Providers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	p := rows[0]
	if p.ID != "p1" || p.Name != "Dr. Adams" || p.Specialty != "Orthopedics" {
		t.Errorf("unexpected row: %+v", p)
	}
	if p.State != "MD" {
		t.Errorf("expected uppercased state, got %q", p.State)
	}
	if p.ReferralCount != 12 {
		t.Errorf("expected 12 referrals, got %d", p.ReferralCount)
	}
	if p.LastReferral.IsZero() {
		t.Error("expected parsed last referral date")
	}
	if rows[1].LastReferral.IsZero() != true {
		t.Error("expected zero last referral for empty date")
	}

	info, err := repo.Info()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Rows != 2 || info.Skipped != 0 || info.Format != "csv" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestLoadCSV_SkipsInvalidRows(t *testing.T) {
	path := writeCSV(t, `provider_id,name,latitude,longitude,referral_count
p1,Valid,38.8,-76.7,5
,NoID,38.8,-76.7,5
p3,BadLat,not-a-number,-76.7,5
p4,OutOfRange,95.0,-76.7,5
p5,NoCoords,,,5
`)

	repo, err := New(path, "csv", zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, _ := repo.Providers()
	if len(rows) != 1 {
		t.Fatalf("expected 1 valid row, got %d", len(rows))
	}
	info, _ := repo.Info()
	if info.Skipped != 4 {
		t.Errorf("expected 4 skipped rows, got %d", info.Skipped)
	}
}

func TestLoadCSV_MissingIDColumn(t *testing.T) {
	path := writeCSV(t, "name,latitude,longitude\nX,38.8,-76.7\n")

	repo, err := New(path, "csv", zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Load(context.Background()); err == nil {
		t.Fatal("expected error for missing provider_id column")
	}
}

func TestProviders_NotLoaded(t *testing.T) {
	repo, err := New("providers.csv", "csv", zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := repo.Providers(); !errors.Is(err, domain.ErrDatasetNotLoaded) {
		t.Errorf("expected ErrDatasetNotLoaded, got %v", err)
	}
	if _, err := repo.Info(); !errors.Is(err, domain.ErrDatasetNotLoaded) {
		t.Errorf("expected ErrDatasetNotLoaded, got %v", err)
	}
	if repo.Loaded() {
		t.Error("expected Loaded()=false before Load")
	}
}

func TestNew_UnknownExtension(t *testing.T) {
	if _, err := New("providers.xlsx", "", zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown extension")
	}
}

func TestReload_SwapsSnapshot(t *testing.T) {
	path := writeCSV(t, `provider_id,latitude,longitude,referral_count
p1,38.8,-76.7,5
`)

	repo, err := New(path, "csv", zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Rewrite the file and reload; the snapshot must reflect the new data.
	if err := os.WriteFile(path, []byte(`provider_id,latitude,longitude,referral_count
p1,38.8,-76.7,5
p2,38.9,-77.0,7
`), 0o600); err != nil {
		t.Fatalf("rewrite csv: %v", err)
	}
	if err := repo.Reload(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, _ := repo.Providers()
	if len(rows) != 2 {
		t.Errorf("expected 2 rows after reload, got %d", len(rows))
	}
}

func TestNewStatic(t *testing.T) {
	coord, _ := geo.NewCoordinate(38.8, -76.7)
	repo := NewStatic([]domprov.Provider{
		{ID: "p1", Location: coord, ReferralCount: 1},
	})

	rows, err := repo.Providers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "p1" {
		t.Errorf("unexpected rows: %+v", rows)
	}

	// Load is a no-op for static repositories.
	if err := repo.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// parquetProviderRow mirrors the processed dataset schema for test fixtures.
type parquetProviderRow struct {
	ProviderID       string  `parquet:"provider_id"`
	Name             string  `parquet:"name"`
	Specialty        string  `parquet:"specialty"`
	Street           string  `parquet:"street"`
	City             string  `parquet:"city"`
	State            string  `parquet:"state"`
	Zip              string  `parquet:"zip"`
	Latitude         float64 `parquet:"latitude"`
	Longitude        float64 `parquet:"longitude"`
	ReferralCount    int64   `parquet:"referral_count"`
	LastReferralDate string  `parquet:"last_referral_date"`
}

func writeParquet(t *testing.T, rows []parquetProviderRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.parquet")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create parquet: %v", err)
	}
	w := parquet.NewGenericWriter[parquetProviderRow](f)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write parquet: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestLoadParquet_Success(t *testing.T) {
	path := writeParquet(t, []parquetProviderRow{
		{
			ProviderID: "p1", Name: "Dr. Adams", Specialty: "Orthopedics",
			Street: "1 Main St", City: "Upper Marlboro", State: "MD", Zip: "20772",
			Latitude: 38.8159, Longitude: -76.7497,
			ReferralCount: 12, LastReferralDate: "2026-06-01",
		},
		{
			ProviderID: "p2", Name: "Dr. Brown",
			Latitude: 38.9072, Longitude: -77.0369,
			ReferralCount: 3,
		},
	})

	repo, err := New(path, "", zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := repo.Providers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ID != "p1" || rows[0].ReferralCount != 12 {
		t.Errorf("unexpected row: %+v", rows[0])
	}
	if rows[0].Location.Lat() != 38.8159 {
		t.Errorf("unexpected latitude: %v", rows[0].Location.Lat())
	}
	if rows[0].LastReferral.IsZero() {
		t.Error("expected parsed last referral date")
	}

	info, _ := repo.Info()
	if info.Format != "parquet" || info.Rows != 2 {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestLoadParquet_SkipsInvalidRows(t *testing.T) {
	path := writeParquet(t, []parquetProviderRow{
		{ProviderID: "p1", Latitude: 38.8, Longitude: -76.7, ReferralCount: 5},
		{ProviderID: "", Latitude: 38.8, Longitude: -76.7, ReferralCount: 5},
		{ProviderID: "p3", Latitude: 95.0, Longitude: -76.7, ReferralCount: 5},
	})

	repo, err := New(path, "parquet", zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, _ := repo.Providers()
	if len(rows) != 1 {
		t.Fatalf("expected 1 valid row, got %d", len(rows))
	}
	info, _ := repo.Info()
	if info.Skipped != 2 {
		t.Errorf("expected 2 skipped rows, got %d", info.Skipped)
	}
}
