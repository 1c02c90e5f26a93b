package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/boardcheck/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAttendanceCollection implements AttendanceCollection for MongoDB.
type MongoAttendanceCollection struct {
	Collection *mongo.Collection
}

// InsertAttendance writes the record as a single document.
func (c *MongoAttendanceCollection) InsertAttendance(ctx context.Context, record models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	if _, err := c.Collection.InsertOne(ctx, record); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindAttendanceByVehicle queries one vehicle's records in a time window.
func (c *MongoAttendanceCollection) FindAttendanceByVehicle(ctx context.Context, vehicleID string, from, to time.Time) ([]models.AttendanceRecord, error) {
	filter := bson.M{
		"vehicle_id": vehicleID,
		"marked_at":  bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "marked_at", Value: 1}})
	return c.find(ctx, filter, opts)
}

// FindAttendanceByRider queries a rider's most recent records.
func (c *MongoAttendanceCollection) FindAttendanceByRider(ctx context.Context, riderID string, limit int64) ([]models.AttendanceRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "marked_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return c.find(ctx, bson.M{"rider_id": riderID}, opts)
}

func (c *MongoAttendanceCollection) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.AttendanceRecord, error) {
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []models.AttendanceRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
