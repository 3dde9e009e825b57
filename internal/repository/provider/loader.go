package provider

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/refdesk/refrank/internal/domain/geo"
	domprov "github.com/refdesk/refrank/internal/domain/provider"
)

// rawRow is one dataset row before validation. Pointers mark columns that
// may be null in the source file.
type rawRow struct {
	ID            string
	Name          string
	Specialty     string
	Street        string
	City          string
	State         string
	Zip           string
	Latitude      *float64
	Longitude     *float64
	ReferralCount *int64
	LastReferral  string
}

// toProvider validates a raw row. Rows failing validation are skipped by
// the callers, not fatal.
func (r rawRow) toProvider() (domprov.Provider, error) {
	if strings.TrimSpace(r.ID) == "" {
		return domprov.Provider{}, errors.New("missing provider id")
	}
	if r.Latitude == nil || r.Longitude == nil {
		return domprov.Provider{}, fmt.Errorf("provider %s: missing coordinates", r.ID)
	}
	coord, err := geo.NewCoordinate(*r.Latitude, *r.Longitude)
	if err != nil {
		return domprov.Provider{}, fmt.Errorf("provider %s: %w", r.ID, err)
	}

	count := 0
	if r.ReferralCount != nil {
		count = int(*r.ReferralCount)
	}

	var lastReferral time.Time
	if r.LastReferral != "" {
		lastReferral, err = parseReferralDate(r.LastReferral)
		if err != nil {
			return domprov.Provider{}, fmt.Errorf("provider %s: %w", r.ID, err)
		}
	}

	p := domprov.Provider{
		ID:            strings.TrimSpace(r.ID),
		Name:          strings.TrimSpace(r.Name),
		Specialty:     strings.TrimSpace(r.Specialty),
		Street:        strings.TrimSpace(r.Street),
		City:          strings.TrimSpace(r.City),
		State:         strings.ToUpper(strings.TrimSpace(r.State)),
		Zip:           strings.TrimSpace(r.Zip),
		Location:      coord,
		ReferralCount: count,
		LastReferral:  lastReferral,
	}
	if err := p.Validate(); err != nil {
		return domprov.Provider{}, err
	}
	return p, nil
}

func parseReferralDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last referral date %q: %w", s, err)
	}
	return t, nil
}

// --- parquet ---

// providerColumns holds leaf-level column indexes resolved by name.
type providerColumns struct {
	id            int
	name          int
	specialty     int
	street        int
	city          int
	state         int
	zip           int
	latitude      int
	longitude     int
	referralCount int
	lastReferral  int
}

// resolveProviderColumns finds leaf-level column indexes by name.
func resolveProviderColumns(pf *parquet.File) providerColumns {
	cols := providerColumns{
		id: -1, name: -1, specialty: -1, street: -1, city: -1,
		state: -1, zip: -1, latitude: -1, longitude: -1,
		referralCount: -1, lastReferral: -1,
	}
	for i, path := range pf.Schema().Columns() {
		if len(path) == 0 {
			continue
		}
		switch path[0] {
		case "provider_id":
			cols.id = i
		case "name":
			cols.name = i
		case "specialty":
			cols.specialty = i
		case "street":
			cols.street = i
		case "city":
			cols.city = i
		case "state":
			cols.state = i
		case "zip":
			cols.zip = i
		case "latitude":
			cols.latitude = i
		case "longitude":
			cols.longitude = i
		case "referral_count":
			cols.referralCount = i
		case "last_referral_date":
			cols.lastReferral = i
		}
	}
	return cols
}

func readParquet(ctx context.Context, path string) ([]domprov.Provider, int, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, 0, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, 0, fmt.Errorf("open parquet: %w", err)
	}

	cols := resolveProviderColumns(pf)
	if cols.id < 0 {
		return nil, 0, errors.New("provider_id column not found in parquet schema")
	}

	var providers []domprov.Provider
	skipped := 0
	buf := make([]parquet.Row, 1000)

	for _, rg := range pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)

		for {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}

			n, readErr := rows.ReadRows(buf)
			for i := 0; i < n; i++ {
				raw := rowToRaw(buf[i], cols)
				p, err := raw.toProvider()
				if err != nil {
					skipped++
					continue
				}
				providers = append(providers, p)
			}

			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, 0, fmt.Errorf("read rows: %w", readErr)
			}
		}
	}

	return providers, skipped, nil
}

// rowToRaw extracts a rawRow from a generic parquet row by column index.
func rowToRaw(row parquet.Row, cols providerColumns) rawRow {
	var r rawRow

	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case cols.id:
			r.ID = v.String()
		case cols.name:
			r.Name = v.String()
		case cols.specialty:
			r.Specialty = v.String()
		case cols.street:
			r.Street = v.String()
		case cols.city:
			r.City = v.String()
		case cols.state:
			r.State = v.String()
		case cols.zip:
			r.Zip = v.String()
		case cols.latitude:
			f := v.Double()
			r.Latitude = &f
		case cols.longitude:
			f := v.Double()
			r.Longitude = &f
		case cols.referralCount:
			n := v.Int64()
			r.ReferralCount = &n
		case cols.lastReferral:
			r.LastReferral = v.String()
		}
	}

	return r
}

// --- csv ---

func readCSV(ctx context.Context, path string) ([]domprov.Provider, int, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, 0, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := idx["provider_id"]; !ok {
		return nil, 0, errors.New("provider_id column not found in csv header")
	}

	var providers []domprov.Provider
	skipped := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("read record: %w", err)
		}

		raw, err := recordToRaw(record, idx)
		if err != nil {
			skipped++
			continue
		}
		p, err := raw.toProvider()
		if err != nil {
			skipped++
			continue
		}
		providers = append(providers, p)
	}

	return providers, skipped, nil
}

func recordToRaw(record []string, idx map[string]int) (rawRow, error) {
	field := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	r := rawRow{
		ID:           field("provider_id"),
		Name:         field("name"),
		Specialty:    field("specialty"),
		Street:       field("street"),
		City:         field("city"),
		State:        field("state"),
		Zip:          field("zip"),
		LastReferral: field("last_referral_date"),
	}

	if s := field("latitude"); s != "" {
		lat, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return rawRow{}, fmt.Errorf("parse latitude %q: %w", s, err)
		}
		r.Latitude = &lat
	}
	if s := field("longitude"); s != "" {
		lon, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return rawRow{}, fmt.Errorf("parse longitude %q: %w", s, err)
		}
		r.Longitude = &lon
	}
	if s := field("referral_count"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return rawRow{}, fmt.Errorf("parse referral count %q: %w", s, err)
		}
		r.ReferralCount = &n
	}

	return r, nil
}
