package domain

import "errors"

var (
	// ErrInvalidInput signals a malformed or empty address / criteria,
	// rejected before any network call.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLocationNotFound signals that geocoding exhausted its attempts
	// without resolving the address.
	ErrLocationNotFound = errors.New("location not found")
	// ErrNoMatchingProviders signals a valid search whose filtered set is empty.
	ErrNoMatchingProviders = errors.New("no matching providers")
	// ErrResolutionUnavailable signals a transient geocoder failure
	// (network, timeout, 429/5xx). Retried internally; escalates to
	// ErrLocationNotFound once attempts are exhausted.
	ErrResolutionUnavailable = errors.New("geocoding service unavailable")
	// ErrGeocodeQuotaExceeded signals an exhausted geocoding call budget.
	ErrGeocodeQuotaExceeded = errors.New("geocoding quota exceeded")
	// ErrNoResult signals that no search has completed in this session.
	ErrNoResult = errors.New("no result yet")
	// ErrSessionNotFound signals an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSearchNotStarted signals Execute called before Begin.
	ErrSearchNotStarted = errors.New("search not started")
	// ErrDatasetNotLoaded signals that the provider dataset has not been loaded.
	ErrDatasetNotLoaded = errors.New("provider dataset not loaded")
)
