package ports

import (
	"context"

	"github.com/fasttag/tag-position-api/internal/core/domain"
)

// LocateInput is the DTO passed from the transport layer to PositionService.
type LocateInput struct {
	Vendor     string
	PublicKey  string
	TimePeriod string
}

// VendorStatus reports whether a registered vendor can serve lookups.
type VendorStatus struct {
	Vendor    string
	Available bool
	Reason    string
}

// PositionService dispatches lookups to the adapter registered for a vendor.
type PositionService interface {
	Locate(ctx context.Context, in LocateInput) (*domain.PositionResponse, error)
	List(ctx context.Context, vendor string) (*domain.Listing, error)
	Vendors() []VendorStatus
}
