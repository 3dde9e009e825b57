// Package provider holds the read-only provider dataset row.
package provider

import (
	"fmt"
	"strings"
	"time"

	"github.com/refdesk/refrank/internal/domain"
	"github.com/refdesk/refrank/internal/domain/geo"
)

// Provider is one row of the processed referral dataset. Rows are loaded
// read-only; the ranking engine never mutates them.
type Provider struct {
	ID            string
	Name          string
	Specialty     string
	Street        string
	City          string
	State         string
	Zip           string
	Location      geo.Coordinate
	ReferralCount int
	// LastReferral is zero when the dataset carries no referral date.
	LastReferral time.Time
}

// Validate checks the identity and statistics columns. The coordinate is
// validated at construction (geo.NewCoordinate).
func (p Provider) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: provider id is required", domain.ErrInvalidInput)
	}
	if p.ReferralCount < 0 {
		return fmt.Errorf("%w: provider %s has negative referral count %d",
			domain.ErrInvalidInput, p.ID, p.ReferralCount)
	}
	return nil
}
