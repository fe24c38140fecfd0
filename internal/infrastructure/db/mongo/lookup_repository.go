package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fasttag/tag-position-api/internal/core/domain"
	"github.com/fasttag/tag-position-api/internal/core/ports"
)

const lookupAuditCollection = "lookup_audits"

// LookupRepository implements ports.AuditRepository using MongoDB.
type LookupRepository struct {
	coll *mongo.Collection
}

func NewLookupRepository(db *mongo.Database) *LookupRepository {
	return &LookupRepository{coll: db.Collection(lookupAuditCollection)}
}

var _ ports.AuditRepository = (*LookupRepository)(nil)

// EnsureIndexes creates the indexes used to query the audit trail by vendor
// and by device.
func (r *LookupRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "vendor", Value: 1}, {Key: "requested_at", Value: -1}},
			Options: options.Index().SetName("vendor_requested_at"),
		},
		{
			Keys:    bson.D{{Key: "public_key", Value: 1}, {Key: "requested_at", Value: -1}},
			Options: options.Index().SetName("public_key_requested_at"),
		},
	})
	if err != nil {
		return fmt.Errorf("create lookup audit indexes: %w", err)
	}
	return nil
}

// InsertLookup persists one audit entry to the lookup_audits collection.
func (r *LookupRepository) InsertLookup(ctx context.Context, audit *domain.LookupAudit) error {
	_, err := r.coll.InsertOne(ctx, lookupDocument(audit))
	return err
}

func lookupDocument(a *domain.LookupAudit) bson.M {
	doc := bson.M{
		"_id":          a.ID,
		"vendor":       a.Vendor,
		"public_key":   a.PublicKey,
		"outcome":      a.Outcome,
		"duration_ms":  a.Duration.Milliseconds(),
		"requested_at": a.RequestedAt.UTC(),
	}
	if a.Error != "" {
		doc["error"] = a.Error
	}
	return doc
}
