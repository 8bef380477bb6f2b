package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/showseat/boxoffice/internal/domain"
	"github.com/showseat/boxoffice/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuditLogger records hold and order lifecycle transitions to a mongo
// collection. Auditing is best effort: a write failure is logged and
// swallowed, it never fails the business operation.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type auditDoc struct {
	ID    uuid.UUID         `bson:"_id"`
	Entry domain.AuditEntry `bson:"entry"`
}

func (a *AuditLogger) Record(ctx context.Context, entry domain.AuditEntry) {
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	_, err := a.coll.InsertOne(ctx, auditDoc{ID: uuid.New(), Entry: entry})
	if err != nil {
		a.logger.WithError(err).Error("failed to insert audit log")
	}
}

// RecentForOrder returns the trail of one order, oldest first.
func (a *AuditLogger) RecentForOrder(ctx context.Context, orderID string) ([]domain.AuditEntry, error) {
	cur, err := a.coll.Find(ctx, bson.M{"entry.order_id": orderID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var entries []domain.AuditEntry
	for cur.Next(ctx) {
		var doc auditDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		entries = append(entries, doc.Entry)
	}
	return entries, cur.Err()
}
