package ports

import (
	"context"

	"github.com/fasttag/tag-position-api/internal/core/domain"
)

// LookupInput carries the parameters of a single device lookup.
type LookupInput struct {
	PublicKey string
	// TimePeriod is a vendor-specific selector; adapters that do not
	// understand it ignore it.
	TimePeriod string
}

// VendorAdapter translates one vendor's protocol into the canonical record.
type VendorAdapter interface {
	Vendor() string
	Lookup(ctx context.Context, in LookupInput) (*domain.TagRecord, error)
}

// Authenticator is implemented by adapters that need an explicit login
// before lookups.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

// Lister is implemented by adapters that can enumerate every device visible
// to their credentials. The listing is best-effort: a page failure yields a
// partial Listing, not an error.
type Lister interface {
	ListAll(ctx context.Context) *domain.Listing
}
