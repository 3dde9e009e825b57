// Package chi is the HTTP transport: request decoding, sentinel-to-status
// mapping, and route wiring.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/refdesk/refrank/internal/domain"
	"github.com/refdesk/refrank/internal/domain/address"
	"github.com/refdesk/refrank/internal/domain/geo"
	domrank "github.com/refdesk/refrank/internal/domain/rank"
	domusage "github.com/refdesk/refrank/internal/domain/usage"
	providerrepo "github.com/refdesk/refrank/internal/repository/provider"
	healthuc "github.com/refdesk/refrank/internal/usecase/health"
	sessionuc "github.com/refdesk/refrank/internal/usecase/session"
	usageuc "github.com/refdesk/refrank/internal/usecase/usage"
)

// Error response codes.
type errorCode string

const (
	codeBadRequest          errorCode = "bad_request"
	codeValidationFailed    errorCode = "validation_failed"
	codeLocationNotFound    errorCode = "location_not_found"
	codeNoMatchingProviders errorCode = "no_matching_providers"
	codeGeocodeUnavailable  errorCode = "geocode_unavailable"
	codeQuotaExceeded       errorCode = "quota_exceeded"
	codeSessionNotFound     errorCode = "session_not_found"
	codeSearchNotStarted    errorCode = "search_not_started"
	codeDatasetNotLoaded    errorCode = "dataset_not_loaded"
	codeInternalError       errorCode = "internal_error"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Resolver turns an address into coordinates (resolution-only endpoint).
type Resolver interface {
	Resolve(ctx context.Context, addr address.Address) (geo.Resolution, error)
}

// DatasetAdmin exposes dataset reload and inspection.
type DatasetAdmin interface {
	Reload(ctx context.Context) error
	Info() (providerrepo.Info, error)
}

// CacheClearer invalidates the geocode cache on dataset reload.
type CacheClearer interface {
	Clear(ctx context.Context) error
}

// SearchDefaults fill criteria fields the client omits.
type SearchDefaults struct {
	MaxRadiusMiles    float64
	MinReferrals      int
	RecencyWindowDays int
	Limit             int
}

// Server is the HTTP API server.
type Server struct {
	sessions      *sessionuc.Manager
	resolver      Resolver
	dataset       DatasetAdmin
	cache         CacheClearer
	usage         *usageuc.Service
	health        *healthuc.Service
	defaults      SearchDefaults
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. cache can be nil (memory store mode).
func NewServer(
	sessions *sessionuc.Manager,
	resolver Resolver,
	dataset DatasetAdmin,
	cache CacheClearer,
	usage *usageuc.Service,
	health *healthuc.Service,
	defaults SearchDefaults,
	logger *zap.Logger,
) *Server {
	s := &Server{
		sessions: sessions,
		resolver: resolver,
		dataset:  dataset,
		cache:    cache,
		usage:    usage,
		health:   health,
		defaults: defaults,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrGeocodeQuotaExceeded, http.StatusTooManyRequests, codeQuotaExceeded),
		sentinelHandler(domain.ErrLocationNotFound, http.StatusUnprocessableEntity, codeLocationNotFound),
		sentinelHandler(domain.ErrNoMatchingProviders, http.StatusNotFound, codeNoMatchingProviders),
		sentinelHandler(domain.ErrResolutionUnavailable, http.StatusBadGateway, codeGeocodeUnavailable),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, codeSessionNotFound),
		sentinelHandler(domain.ErrSearchNotStarted, http.StatusConflict, codeSearchNotStarted),
		sentinelHandler(domain.ErrDatasetNotLoaded, http.StatusServiceUnavailable, codeDatasetNotLoaded),
	}
	return s
}

// Routes registers all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Post("/resolve", s.ResolveAddress)
		r.Get("/sessions/{sessionID}", s.GetSession)
		r.Get("/dataset", s.GetDataset)
		r.Post("/dataset/reload", s.ReloadDataset)
		r.Get("/usage", s.GetUsage)
	})
}

// --- Request / response payloads ---

type addressPayload struct {
	Text   string `json:"text,omitempty"`
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

type weightsPayload struct {
	Distance  *float64 `json:"distance,omitempty"`
	Referrals *float64 `json:"referrals,omitempty"`
	Recency   *float64 `json:"recency,omitempty"`
}

type criteriaPayload struct {
	Weights           *weightsPayload `json:"weights,omitempty"`
	MinReferrals      *int            `json:"min_referrals,omitempty"`
	MaxRadiusMiles    *float64        `json:"max_radius_miles,omitempty"`
	RecencyWindowDays *int            `json:"recency_window_days,omitempty"`
	Limit             *int            `json:"limit,omitempty"`
}

type searchRequest struct {
	Address  addressPayload   `json:"address"`
	Criteria *criteriaPayload `json:"criteria,omitempty"`
}

type resolveRequest struct {
	Address addressPayload `json:"address"`
}

type coordinatePayload struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type resolutionResponse struct {
	Coordinate coordinatePayload `json:"coordinate"`
	Confidence string            `json:"confidence"`
	Label      string            `json:"label,omitempty"`
}

type placementResponse struct {
	ProviderID     string     `json:"provider_id"`
	Name           string     `json:"name,omitempty"`
	Specialty      string     `json:"specialty,omitempty"`
	City           string     `json:"city,omitempty"`
	State          string     `json:"state,omitempty"`
	Score          float64    `json:"score"`
	DistanceMiles  float64    `json:"distance_miles"`
	ReferralCount  int        `json:"referral_count"`
	LastReferralAt *time.Time `json:"last_referral_at,omitempty"`
}

type resultResponse struct {
	Origin      coordinatePayload   `json:"origin"`
	GeneratedAt time.Time           `json:"generated_at"`
	Best        *placementResponse  `json:"best,omitempty"`
	Placements  []placementResponse `json:"placements"`
}

type sessionResponse struct {
	SessionID  string              `json:"session_id"`
	State      string              `json:"state"`
	Resolution *resolutionResponse `json:"resolution,omitempty"`
	Result     *resultResponse     `json:"result,omitempty"`
}

type datasetResponse struct {
	Path     string    `json:"path,omitempty"`
	Format   string    `json:"format,omitempty"`
	Rows     int       `json:"rows"`
	Skipped  int       `json:"skipped"`
	LoadedAt time.Time `json:"loaded_at"`
}

type usageResponse struct {
	Period        string     `json:"period"`
	PeriodStartAt *time.Time `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time `json:"period_end_at,omitempty"`
	GeocodeCalls  int64      `json:"geocode_calls"`
	Budget        struct {
		CallsLimit     int64      `json:"calls_limit"`
		CallsRemaining int64      `json:"calls_remaining"`
		IsExhausted    bool       `json:"is_exhausted"`
		ResetsAt       *time.Time `json:"resets_at,omitempty"`
	} `json:"budget"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// --- Handlers ---

// Search handles POST /api/v1/search: create a session, begin and execute
// the full search, return the ranked result.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	addr, err := addressFromPayload(req.Address)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	criteria, err := s.criteriaFromPayload(req.Criteria)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sess := s.sessions.Create()
	if err := sess.Begin(addr, criteria); err != nil {
		s.handleDomainError(w, err)
		return
	}
	if _, err := sess.Execute(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.sessionToResponse(sess))
}

// GetSession handles GET /api/v1/sessions/{sessionID}. A session with no
// completed search yet answers 200 with the result omitted.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.sessionToResponse(sess))
}

// ResolveAddress handles POST /api/v1/resolve: resolution without ranking.
func (s *Server) ResolveAddress(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	addr, err := addressFromPayload(req.Address)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	res, err := s.resolver.Resolve(r.Context(), addr)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resolutionToResponse(res))
}

// GetDataset handles GET /api/v1/dataset.
func (s *Server) GetDataset(w http.ResponseWriter, r *http.Request) {
	info, err := s.dataset.Info()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, datasetToResponse(info))
}

// ReloadDataset handles POST /api/v1/dataset/reload: re-read the dataset
// file and invalidate the geocode cache.
func (s *Server) ReloadDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.dataset.Reload(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}

	if s.cache != nil {
		if err := s.cache.Clear(r.Context()); err != nil {
			// The dataset did reload; a stale cache entry costs one extra lookup.
			s.logger.Warn("Failed to clear geocode cache on reload", zap.Error(err))
		}
	}

	info, err := s.dataset.Info()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, datasetToResponse(info))
}

// GetUsage handles GET /api/v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period := domusage.PeriodDay
	if p := r.URL.Query().Get("period"); p != "" {
		period = domusage.Period(p)
	}

	report := s.usage.GetReport(r.Context(), period)

	var resp usageResponse
	resp.Period = string(report.Period())
	resp.GeocodeCalls = report.CallsUsed()
	resp.Budget.CallsLimit = report.Budget().CallsLimit()
	resp.Budget.CallsRemaining = report.Budget().CallsRemaining()
	resp.Budget.IsExhausted = report.Budget().IsExhausted()

	if report.PeriodStart() > 0 {
		start := time.UnixMilli(report.PeriodStart()).UTC()
		end := time.UnixMilli(report.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}
	if report.Budget().ResetsAt() > 0 {
		resetsAt := time.UnixMilli(report.Budget().ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- Converters ---

func addressFromPayload(p addressPayload) (address.Address, error) {
	if p.Text != "" {
		return address.NewFreeform(p.Text)
	}
	return address.New(p.Street, p.City, p.State, p.Zip)
}

func (s *Server) criteriaFromPayload(p *criteriaPayload) (domrank.Criteria, error) {
	dw := domrank.DefaultWeights()
	distance, referrals, recency := dw.Distance(), dw.Referrals(), dw.Recency()
	minReferrals := s.defaults.MinReferrals
	maxRadius := s.defaults.MaxRadiusMiles
	recencyDays := s.defaults.RecencyWindowDays
	limit := s.defaults.Limit

	if p != nil {
		if p.Weights != nil {
			if p.Weights.Distance != nil {
				distance = *p.Weights.Distance
			}
			if p.Weights.Referrals != nil {
				referrals = *p.Weights.Referrals
			}
			if p.Weights.Recency != nil {
				recency = *p.Weights.Recency
			}
		}
		if p.MinReferrals != nil {
			minReferrals = *p.MinReferrals
		}
		if p.MaxRadiusMiles != nil {
			maxRadius = *p.MaxRadiusMiles
		}
		if p.RecencyWindowDays != nil {
			recencyDays = *p.RecencyWindowDays
		}
		if p.Limit != nil {
			limit = *p.Limit
		}
	}

	weights, err := domrank.NewWeights(distance, referrals, recency)
	if err != nil {
		return domrank.Criteria{}, err
	}
	return domrank.NewCriteria(weights, minReferrals, maxRadius, recencyDays, limit)
}

func (s *Server) sessionToResponse(sess *sessionuc.Session) sessionResponse {
	resp := sessionResponse{
		SessionID: sess.ID(),
		State:     string(sess.State()),
	}

	if res, ok := sess.Resolution(); ok {
		rr := resolutionToResponse(res)
		resp.Resolution = &rr
	}

	if result, err := sess.CurrentResult(); err == nil {
		rr := resultToResponse(result)
		resp.Result = &rr
	}

	return resp
}

func resolutionToResponse(res geo.Resolution) resolutionResponse {
	return resolutionResponse{
		Coordinate: coordinatePayload{
			Lat: res.Coordinate().Lat(),
			Lon: res.Coordinate().Lon(),
		},
		Confidence: string(res.Confidence()),
		Label:      res.Label(),
	}
}

func resultToResponse(result *domrank.Result) resultResponse {
	placements := make([]placementResponse, 0, result.Len())
	for _, p := range result.Placements() {
		placements = append(placements, placementToResponse(p))
	}

	resp := resultResponse{
		Origin: coordinatePayload{
			Lat: result.Origin().Lat(),
			Lon: result.Origin().Lon(),
		},
		GeneratedAt: result.GeneratedAt().UTC(),
		Placements:  placements,
	}
	if len(placements) > 0 {
		resp.Best = &placements[0]
	}
	return resp
}

func placementToResponse(p domrank.Placement) placementResponse {
	prov := p.Provider()
	resp := placementResponse{
		ProviderID:    prov.ID,
		Name:          prov.Name,
		Specialty:     prov.Specialty,
		City:          prov.City,
		State:         prov.State,
		Score:         p.Score(),
		DistanceMiles: p.DistanceMiles(),
		ReferralCount: prov.ReferralCount,
	}
	if !prov.LastReferral.IsZero() {
		t := prov.LastReferral.UTC()
		resp.LastReferralAt = &t
	}
	return resp
}

func datasetToResponse(info providerrepo.Info) datasetResponse {
	return datasetResponse{
		Path:     info.Path,
		Format:   info.Format,
		Rows:     info.Rows,
		Skipped:  info.Skipped,
		LoadedAt: info.LoadedAt.UTC(),
	}
}

// --- Error mapping ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrGeocodeQuotaExceeded,
		domain.ErrLocationNotFound,
		domain.ErrNoMatchingProviders,
		domain.ErrResolutionUnavailable,
		domain.ErrSessionNotFound,
		domain.ErrSearchNotStarted,
		domain.ErrDatasetNotLoaded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
