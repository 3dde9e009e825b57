package rank

import (
	domprov "github.com/refdesk/refrank/internal/domain/provider"
)

// ProviderSource supplies the read-only provider snapshot.
type ProviderSource interface {
	Providers() ([]domprov.Provider, error)
}
