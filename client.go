package refrank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/refdesk/refrank/internal/db"
	dbMemory "github.com/refdesk/refrank/internal/db/memory"
	dbRedis "github.com/refdesk/refrank/internal/db/redis"
	"github.com/refdesk/refrank/internal/domain/address"
	"github.com/refdesk/refrank/internal/domain/geo"
	domprov "github.com/refdesk/refrank/internal/domain/provider"
	domrank "github.com/refdesk/refrank/internal/domain/rank"
	"github.com/refdesk/refrank/internal/metrics"
	"github.com/refdesk/refrank/internal/repository/geocache"
	providerrepo "github.com/refdesk/refrank/internal/repository/provider"
	usagerepo "github.com/refdesk/refrank/internal/repository/usage"
	"github.com/refdesk/refrank/internal/transport/nominatim"
	rankuc "github.com/refdesk/refrank/internal/usecase/rank"
	resolveuc "github.com/refdesk/refrank/internal/usecase/resolve"
	sessionuc "github.com/refdesk/refrank/internal/usecase/session"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the refrank SDK entry point.
type Client struct {
	store      db.Store
	dataset    *providerrepo.Repository
	cache      *geocache.CachedResolver
	resolveSvc *resolveuc.Service
	rankSvc    *rankuc.Service
	sessions   *sessionuc.Manager
}

// New creates a refrank Client: a key-value store (in-memory unless
// WithRedis is given), a provider dataset, and a geocoder chain.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{driver: "memory"}
	for _, o := range opts {
		o.apply(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("refrank: database not ready: %w", err)
	}

	dataset, err := createDataset(ctx, cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	return wireClient(ctx, store, dataset, cfg, logger)
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "memory":
		return dbMemory.NewStore(), nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("refrank: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("refrank: unknown driver %q", cfg.driver)
	}
}

func createDataset(ctx context.Context, cfg *clientConfig, logger *zap.Logger) (*providerrepo.Repository, error) {
	if len(cfg.providers) > 0 {
		rows := make([]domprov.Provider, 0, len(cfg.providers))
		for _, p := range cfg.providers {
			row, err := toInternalProvider(p)
			if err != nil {
				return nil, fmt.Errorf("refrank: provider %q: %w", p.ID, err)
			}
			rows = append(rows, row)
		}
		return providerrepo.NewStatic(rows), nil
	}

	if cfg.datasetPath == "" {
		return nil, errors.New("refrank: dataset required (use WithDataset or WithProviders)")
	}
	dataset, err := providerrepo.New(cfg.datasetPath, cfg.datasetFormat, logger)
	if err != nil {
		return nil, fmt.Errorf("refrank: %w", err)
	}
	if err := dataset.Load(ctx); err != nil {
		return nil, fmt.Errorf("refrank: load dataset: %w", err)
	}
	return dataset, nil
}

func wireClient(
	ctx context.Context,
	store db.Store,
	dataset *providerrepo.Repository,
	cfg *clientConfig,
	logger *zap.Logger,
) (*Client, error) {
	var (
		chain resolveuc.Geocoder
		cache *geocache.CachedResolver
	)
	if cfg.geocoder != nil {
		// User-supplied geocoder: called directly, caller owns rate limits.
		chain = &geocoderAdapter{inner: cfg.geocoder}
	} else {
		baseURL := cfg.nominatimBaseURL
		if baseURL == "" {
			baseURL = "https://nominatim.openstreetmap.org"
		}
		userAgent := cfg.nominatimUserAgent
		if userAgent == "" {
			userAgent = "refrank-sdk/dev"
		}
		base := nominatim.NewClient(&nominatim.Config{
			BaseURL:   baseURL,
			UserAgent: userAgent,
			Logger:    logger,
		})

		var budgetChecker resolveuc.BudgetChecker
		if cfg.dailyCallLimit > 0 || cfg.monthlyCallLimit > 0 {
			action := resolveuc.BudgetActionWarn
			if cfg.rejectOnBudget {
				action = resolveuc.BudgetActionReject
			}
			budget := resolveuc.NewCallBudget(cfg.dailyCallLimit, cfg.monthlyCallLimit, action, logger)
			budget.WithStore(ctx, usagerepo.New(store, 48*time.Hour, 62*24*time.Hour))
			budgetChecker = budget
		}

		minInterval := cfg.minInterval
		if minInterval <= 0 {
			minInterval = time.Second
		}
		maxAttempts := cfg.maxAttempts
		if maxAttempts <= 0 {
			maxAttempts = 3
		}
		throttled := resolveuc.NewThrottled(base, minInterval, maxAttempts, budgetChecker, logger)
		cache = geocache.New(throttled, store, metrics.GeocodeCacheTotal, logger)
		chain = cache
	}

	resolveSvc := resolveuc.New(chain, cfg.resolveTimeout, logger)
	rankSvc := rankuc.New(dataset, logger)

	ttl := cfg.sessionTTL
	if ttl <= 0 {
		ttl = sessionuc.DefaultTTL
	}
	maxSessions := cfg.maxSessions
	if maxSessions <= 0 {
		maxSessions = sessionuc.DefaultMaxSessions
	}
	sessions := sessionuc.NewManager(resolveSvc, rankSvc, ttl, maxSessions, logger)

	return &Client{
		store:      store,
		dataset:    dataset,
		cache:      cache,
		resolveSvc: resolveSvc,
		rankSvc:    rankSvc,
		sessions:   sessions,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Resolve geocodes an address without ranking.
func (c *Client) Resolve(ctx context.Context, addr Address) (Resolution, error) {
	a, err := toInternalAddress(addr)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve: %w", err)
	}
	res, err := c.resolveSvc.Resolve(ctx, a)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve: %w", err)
	}
	return fromInternalResolution(res), nil
}

// Rank scores the dataset around an already-resolved origin, skipping
// geocoding entirely.
func (c *Client) Rank(origin Coordinate, opts *SearchOptions) (*Result, error) {
	coord, err := geo.NewCoordinate(origin.Lat, origin.Lon)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	criteria, err := toCriteria(opts)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	result, err := c.rankSvc.Rank(coord, criteria)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	return fromInternalResult(result), nil
}

// Search runs one whole search: resolve the address, filter and score the
// dataset, return the ranking. A session is created and completed under the
// hood; use NewSession for explicit lifecycle control.
func (c *Client) Search(ctx context.Context, addr Address, opts *SearchOptions) (*Result, error) {
	sess := c.NewSession()
	if err := sess.Begin(addr, opts); err != nil {
		return nil, err
	}
	return sess.Execute(ctx)
}

// NewSession creates a search session for explicit lifecycle control.
func (c *Client) NewSession() *Session {
	return &Session{inner: c.sessions.Create()}
}

// Session looks up an existing session by ID.
func (c *Client) Session(id string) (*Session, error) {
	s, err := c.sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &Session{inner: s}, nil
}

// ReloadDataset re-reads the dataset file and invalidates the geocode cache.
// No-op for injected providers.
func (c *Client) ReloadDataset(ctx context.Context) error {
	if err := c.dataset.Reload(ctx); err != nil {
		return fmt.Errorf("reload dataset: %w", err)
	}
	if c.cache != nil {
		if err := c.cache.Clear(ctx); err != nil {
			return fmt.Errorf("clear geocode cache: %w", err)
		}
	}
	return nil
}

// Providers returns the loaded dataset rows.
func (c *Client) Providers() ([]Provider, error) {
	rows, err := c.dataset.Providers()
	if err != nil {
		return nil, fmt.Errorf("providers: %w", err)
	}
	out := make([]Provider, len(rows))
	for i, p := range rows {
		out[i] = fromInternalProvider(p)
	}
	return out, nil
}

// --- Conversions ---

func toInternalAddress(a Address) (address.Address, error) {
	if a.Text != "" {
		return address.NewFreeform(a.Text)
	}
	return address.New(a.Street, a.City, a.State, a.Zip)
}

func toCriteria(opts *SearchOptions) (domrank.Criteria, error) {
	if opts == nil {
		return domrank.DefaultCriteria(), nil
	}
	w := domrank.DefaultWeights()
	if opts.Weights != nil {
		var err error
		w, err = domrank.NewWeights(opts.Weights.Distance, opts.Weights.Referrals, opts.Weights.Recency)
		if err != nil {
			return domrank.Criteria{}, err
		}
	}
	return domrank.NewCriteria(w, opts.MinReferrals, opts.MaxRadiusMiles, opts.RecencyWindowDays, opts.Limit)
}

// geocoderAdapter wraps the public Geocoder to satisfy the internal one.
type geocoderAdapter struct {
	inner Geocoder
}

func (a *geocoderAdapter) Resolve(ctx context.Context, query string) (geo.Resolution, error) {
	r, err := a.inner.Resolve(ctx, query)
	if err != nil {
		return geo.Resolution{}, err
	}
	coord, err := geo.NewCoordinate(r.Coordinate.Lat, r.Coordinate.Lon)
	if err != nil {
		return geo.Resolution{}, fmt.Errorf("geocoder returned invalid coordinate: %w", err)
	}
	conf := geo.ConfidenceLow
	if r.Confidence == ConfidenceHigh {
		conf = geo.ConfidenceHigh
	}
	return geo.NewResolution(coord, conf, r.Label), nil
}
