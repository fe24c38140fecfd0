package ports

import (
	"context"

	"github.com/fasttag/tag-position-api/internal/core/domain"
)

// AuditRepository persists lookup audit entries.
type AuditRepository interface {
	InsertLookup(ctx context.Context, audit *domain.LookupAudit) error
}

// AuditSink accepts audit entries without blocking the caller.
type AuditSink interface {
	Record(audit domain.LookupAudit)
}
