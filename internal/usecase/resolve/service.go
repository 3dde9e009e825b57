// Package resolve turns a search address into coordinates through a
// geocoder chain (cache, throttling, upstream client).
package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/refdesk/refrank/internal/domain"
	"github.com/refdesk/refrank/internal/domain/address"
	"github.com/refdesk/refrank/internal/domain/geo"
)

// DefaultTimeout caps one whole address resolution.
const DefaultTimeout = 10 * time.Second

// Service handles address resolution.
type Service struct {
	geocoder Geocoder
	timeout  time.Duration
	logger   *zap.Logger
}

// New creates a resolver service. timeout <= 0 falls back to DefaultTimeout.
func New(geocoder Geocoder, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{geocoder: geocoder, timeout: timeout, logger: logger}
}

// Resolve geocodes the address. A street without a leading house number is
// still attempted but the resolution is downgraded to low confidence.
func (s *Service) Resolve(ctx context.Context, addr address.Address) (geo.Resolution, error) {
	query := addr.Normalized()
	if query == "" {
		return geo.Resolution{}, fmt.Errorf("%w: empty address", domain.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	res, err := s.geocoder.Resolve(ctx, query)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, domain.ErrResolutionUnavailable) {
			// The deadline expired mid-resolution; treat the address as unresolved.
			return geo.Resolution{}, fmt.Errorf("%w: resolution timed out: %v", domain.ErrLocationNotFound, err)
		}
		return geo.Resolution{}, err
	}

	if !addr.HasStreetNumber() && res.Confidence() == geo.ConfidenceHigh {
		res = geo.NewResolution(res.Coordinate(), geo.ConfidenceLow, res.Label())
	}

	s.logger.Debug("Address resolved",
		zap.String("address", query),
		zap.String("confidence", string(res.Confidence())),
		zap.Duration("duration", time.Since(start)),
	)

	return res, nil
}
