package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/boardcheck/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRiderCollection implements RiderCollection for MongoDB
type MongoRiderCollection struct {
	Collection *mongo.Collection
}

// InsertRider inserts a new rider with no bound device
func (c *MongoRiderCollection) InsertRider(ctx context.Context, rider models.Rider) (*models.Rider, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	now := time.Now()
	if rider.ID.IsZero() {
		rider.ID = primitive.NewObjectID()
	}
	rider.DeviceID = ""
	rider.CreatedAt = now
	rider.UpdatedAt = now

	if _, err := c.Collection.InsertOne(ctx, rider); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("rider %q: %w", rider.Name, ErrDuplicate)
		}
		return nil, err
	}
	return &rider, nil
}

// FindRiderByID finds a rider by their ID
func (c *MongoRiderCollection) FindRiderByID(ctx context.Context, id string) (*models.Rider, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return c.findOne(ctx, bson.M{"_id": objectID})
}

// FindRiderByName finds a rider by their name
func (c *MongoRiderCollection) FindRiderByName(ctx context.Context, name string) (*models.Rider, error) {
	return c.findOne(ctx, bson.M{"name": name})
}

// FindRiderByIdentifier finds a rider by ID or, failing that, by name
func (c *MongoRiderCollection) FindRiderByIdentifier(ctx context.Context, identifier string) (*models.Rider, error) {
	filter := bson.M{"name": identifier}
	if objectID, err := primitive.ObjectIDFromHex(identifier); err == nil {
		filter = bson.M{"$or": bson.A{bson.M{"_id": objectID}, bson.M{"name": identifier}}}
	}
	return c.findOne(ctx, filter)
}

func (c *MongoRiderCollection) findOne(ctx context.Context, filter bson.M) (*models.Rider, error) {
	var rider models.Rider
	err := c.Collection.FindOne(ctx, filter).Decode(&rider)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rider, nil
}

// BindDeviceIfUnset binds deviceID with a single conditional update, so two
// concurrent first uses cannot both succeed. The unique device_id index turns
// a device already held by another rider into ErrDeviceInUse.
func (c *MongoRiderCollection) BindDeviceIfUnset(ctx context.Context, riderID, deviceID string) (string, bool, error) {
	objectID, err := primitive.ObjectIDFromHex(riderID)
	if err != nil {
		return "", false, ErrNotFound
	}

	filter := bson.M{
		"_id": objectID,
		"$or": bson.A{bson.M{"device_id": nil}, bson.M{"device_id": ""}},
	}
	update := bson.M{"$set": bson.M{"device_id": deviceID, "updated_at": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var rider models.Rider
	err = c.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rider)
	if err == nil {
		return rider.DeviceID, true, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return "", false, fmt.Errorf("device %q: %w", deviceID, ErrDeviceInUse)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, err
	}

	// Already bound, or no such rider.
	current, err := c.findOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return "", false, err
	}
	return current.DeviceID, false, nil
}

// ClearDevice removes the bound device and returns the value it had
func (c *MongoRiderCollection) ClearDevice(ctx context.Context, riderID string) (string, error) {
	objectID, err := primitive.ObjectIDFromHex(riderID)
	if err != nil {
		return "", ErrNotFound
	}

	update := bson.M{
		"$unset": bson.M{"device_id": ""},
		"$set":   bson.M{"updated_at": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before models.Rider
	err = c.Collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, update, opts).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return before.DeviceID, nil
}
