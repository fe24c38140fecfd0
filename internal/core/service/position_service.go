package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fasttag/tag-position-api/internal/api/metrics"
	"github.com/fasttag/tag-position-api/internal/core/domain"
	"github.com/fasttag/tag-position-api/internal/core/ports"
)

type PositionService struct {
	registry *Registry
	audit    ports.AuditSink
	logger   zerolog.Logger
	now      func() time.Time
}

// NewPositionService returns a PositionService dispatching through registry.
// audit may be nil, in which case lookups are not audited.
func NewPositionService(registry *Registry, audit ports.AuditSink, logger zerolog.Logger) *PositionService {
	return &PositionService{
		registry: registry,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// Locate resolves the vendor adapter, performs the lookup and attaches the
// map link. Adapter failures come back as *domain.LookupError carrying the
// adapter's message.
func (s *PositionService) Locate(ctx context.Context, in ports.LocateInput) (*domain.PositionResponse, error) {
	start := s.now()

	adapter, err := s.registry.Resolve(in.Vendor)
	if err != nil {
		s.finish(in, "unavailable", start, err)
		return nil, err
	}

	record, err := adapter.Lookup(ctx, ports.LookupInput{PublicKey: in.PublicKey, TimePeriod: in.TimePeriod})
	if err == nil && record == nil {
		err = fmt.Errorf("%w: adapter returned no record for %q", domain.ErrProtocol, in.PublicKey)
	}
	if err == nil {
		err = record.Validate()
	}
	if err != nil {
		s.finish(in, adapter.Vendor(), start, err)
		return nil, &domain.LookupError{Vendor: adapter.Vendor(), Err: err}
	}

	s.finish(in, adapter.Vendor(), start, nil)
	return &domain.PositionResponse{
		TagRecord: *record,
		MapLink:   domain.MapLink(record.Latitude, record.Longitude),
	}, nil
}

// List runs the vendor's bulk listing. An incomplete listing is returned
// as-is with Complete=false.
func (s *PositionService) List(ctx context.Context, vendor string) (*domain.Listing, error) {
	adapter, err := s.registry.Resolve(vendor)
	if err != nil {
		return nil, err
	}

	lister, ok := adapter.(ports.Lister)
	if !ok {
		return nil, fmt.Errorf("%w: vendor %q", domain.ErrBulkListingUnsupported, adapter.Vendor())
	}

	listing := lister.ListAll(ctx)
	if !listing.Complete {
		metrics.ListingsPartialTotal.WithLabelValues(adapter.Vendor()).Inc()
		s.logger.Warn().
			Err(listing.Err).
			Str("vendor", adapter.Vendor()).
			Int("devices", len(listing.Devices)).
			Msg("bulk listing incomplete")
	}
	return listing, nil
}

// Vendors reports the availability of every registered vendor.
func (s *PositionService) Vendors() []ports.VendorStatus {
	return s.registry.Statuses()
}

// finish logs, counts and audits one lookup. vendorLabel is the resolved
// vendor tag so that arbitrary path values never become metric labels.
func (s *PositionService) finish(in ports.LocateInput, vendorLabel string, start time.Time, err error) {
	outcome := domain.Kind(err)
	elapsed := s.now().Sub(start)
	metrics.LookupsTotal.WithLabelValues(vendorLabel, outcome).Inc()

	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("vendor", in.Vendor).
			Str("public_key", in.PublicKey).
			Str("outcome", outcome).
			Msg("position lookup failed")
	} else {
		s.logger.Info().
			Str("vendor", in.Vendor).
			Str("public_key", in.PublicKey).
			Dur("elapsed", elapsed).
			Msg("position lookup served")
	}

	if s.audit == nil {
		return
	}
	entry := domain.LookupAudit{
		ID:          uuid.NewString(),
		Vendor:      in.Vendor,
		PublicKey:   in.PublicKey,
		Outcome:     outcome,
		Duration:    elapsed,
		RequestedAt: start.UTC(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.audit.Record(entry)
}
