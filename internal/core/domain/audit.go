package domain

import "time"

// LookupAudit records that a position lookup happened. It never
// holds coordinates.
type LookupAudit struct {
	ID          string
	Vendor      string
	PublicKey   string
	Outcome     string // "ok" or an error Kind
	Error       string
	Duration    time.Duration
	RequestedAt time.Time
}
