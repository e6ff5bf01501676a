package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/villxfxni/donation-tracking/internal/core/ports"
)

// AuditRepository implements ports.AuditRepository using MongoDB. Every
// transition attempt becomes one document in the transition_audits collection,
// applied or not.
type AuditRepository struct {
	db *mongo.Database
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) ports.AuditRepository {
	return &AuditRepository{db: db}
}

// InsertTransition appends one transition attempt to the audit log.
func (r *AuditRepository) InsertTransition(ctx context.Context, audit *ports.TransitionAudit) error {
	doc := bson.M{
		"donation_id":  audit.DonationID,
		"custodian_id": audit.CustodianID,
		"from":         string(audit.From),
		"to":           string(audit.To),
		"outcome":      audit.Outcome,
		"at":           audit.At.UTC(),
		"recorded_at":  time.Now().UTC(),
	}
	if audit.Position != nil {
		doc["position"] = bson.M{
			"lat": audit.Position.Lat,
			"lng": audit.Position.Lng,
		}
	}

	_, err := r.db.Collection("transition_audits").InsertOne(ctx, doc)
	return err
}
