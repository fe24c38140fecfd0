package domain

import "errors"

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrTransport       = errors.New("transport error")
	ErrProtocol        = errors.New("protocol error")
	ErrVendorRejection = errors.New("vendor rejection")
	ErrNotFound        = errors.New("device not found")
)

var ErrVendorUnavailable = errors.New("vendor unavailable")
var ErrBulkListingUnsupported = errors.New("bulk listing not supported")

// LookupError carries an adapter failure up to the HTTP boundary. Its
// message is the adapter's own message, unchanged.
type LookupError struct {
	Vendor string
	Err    error
}

func (e *LookupError) Error() string { return e.Err.Error() }

func (e *LookupError) Unwrap() error { return e.Err }

// Kind names the category of err for metrics and audit labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrVendorUnavailable), errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.Is(err, ErrVendorRejection):
		return "vendor_rejection"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "unknown"
	}
}
