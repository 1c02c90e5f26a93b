package db

import (
	"context"
	"fmt"

	"github.com/ukydev/boardcheck/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAuditCollection implements AuditLog for MongoDB.
type MongoAuditCollection struct {
	Collection *mongo.Collection
}

// AppendAudit inserts an audit entry.
func (c *MongoAuditCollection) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err := c.Collection.InsertOne(ctx, entry)
	return err
}

// FindAudit lists the newest audit entries.
func (c *MongoAuditCollection) FindAudit(ctx context.Context, limit int64) ([]models.AuditEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := c.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []models.AuditEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
