package health

import "context"

// DBPinger checks key-value store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// DatasetChecker reports whether the provider dataset is loaded.
type DatasetChecker interface {
	Loaded() bool
}

// GeocoderChecker checks upstream geocoder availability.
type GeocoderChecker interface {
	HealthCheck(ctx context.Context) error
}
