package handler

// HeaderPartialResult is set to "true" on a bulk listing that stopped early.
const HeaderPartialResult = "X-Partial-Result"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type locateRequest struct {
	Vendor     string `param:"vendor"     validate:"required,max=32"`
	PublicKey  string `param:"publicKey"  validate:"required,max=128"`
	TimePeriod string `query:"timePeriod" validate:"omitempty,numeric"`
}

type locateDefaultRequest struct {
	PublicKey  string `param:"publicKey"  validate:"required,max=128"`
	TimePeriod string `query:"timePeriod" validate:"omitempty,numeric"`
}

type listRequest struct {
	Vendor string `param:"vendor" validate:"required,max=32"`
}

// --- Response types ---

type vendorStatusResponse struct {
	Vendor    string `json:"vendor"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}
