package refrank

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Geocoder turns a normalized address line into coordinates.
// Supply one with WithGeocoder to replace the built-in Nominatim client.
type Geocoder interface {
	Resolve(ctx context.Context, query string) (Resolution, error)
}

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "memory" (default) or "redis"
	addrs    []string
	password string

	datasetPath   string
	datasetFormat string
	providers     []Provider

	geocoder           Geocoder
	nominatimBaseURL   string
	nominatimUserAgent string
	minInterval        time.Duration
	maxAttempts        int
	resolveTimeout     time.Duration

	dailyCallLimit   int64
	monthlyCallLimit int64
	rejectOnBudget   bool

	sessionTTL  time.Duration
	maxSessions int

	logger *zap.Logger
}

// WithRedis configures a Redis-backed geocode cache and usage counters.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithDataset loads providers from a Parquet or CSV file.
// format may be "" to infer from the file extension.
func WithDataset(path, format string) Option {
	return optionFunc(func(c *clientConfig) {
		c.datasetPath = path
		c.datasetFormat = format
	})
}

// WithProviders injects the provider dataset directly, bypassing file loading.
func WithProviders(providers []Provider) Option {
	return optionFunc(func(c *clientConfig) {
		c.providers = providers
	})
}

// WithGeocoder replaces the built-in Nominatim client. The supplied geocoder
// is called directly: no pacing, retries, or call budget are applied.
func WithGeocoder(g Geocoder) Option {
	return optionFunc(func(c *clientConfig) {
		c.geocoder = g
	})
}

// WithNominatim configures the built-in Nominatim client. userAgent is
// required by the Nominatim usage policy.
func WithNominatim(baseURL, userAgent string) Option {
	return optionFunc(func(c *clientConfig) {
		c.nominatimBaseURL = baseURL
		c.nominatimUserAgent = userAgent
	})
}

// WithGeocodeBudget caps upstream geocoding calls. A zero limit is
// unlimited. With reject true, calls over budget fail with
// ErrGeocodeQuotaExceeded; otherwise they are logged and allowed.
func WithGeocodeBudget(dailyLimit, monthlyLimit int64, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyCallLimit = dailyLimit
		c.monthlyCallLimit = monthlyLimit
		c.rejectOnBudget = reject
	})
}

// WithResolveTimeout caps one whole address resolution. Default: 10s.
func WithResolveTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.resolveTimeout = d
	})
}

// WithSessionLimits overrides session TTL and the tracked-session cap.
// Defaults: 30 minutes, 1000 sessions.
func WithSessionLimits(ttl time.Duration, maxSessions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.sessionTTL = ttl
		c.maxSessions = maxSessions
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
