package refrank

import "github.com/refdesk/refrank/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidInput          = domain.ErrInvalidInput
	ErrLocationNotFound      = domain.ErrLocationNotFound
	ErrNoMatchingProviders   = domain.ErrNoMatchingProviders
	ErrResolutionUnavailable = domain.ErrResolutionUnavailable
	ErrGeocodeQuotaExceeded  = domain.ErrGeocodeQuotaExceeded
	ErrNoResult              = domain.ErrNoResult
	ErrSessionNotFound       = domain.ErrSessionNotFound
	ErrSearchNotStarted      = domain.ErrSearchNotStarted
	ErrDatasetNotLoaded      = domain.ErrDatasetNotLoaded
)
