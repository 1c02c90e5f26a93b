package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/boardcheck/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMongoUserCollection_InsertUser(t *testing.T) {
	database := integrationDatabase(t)
	ctx := context.Background()
	users := NewMongo(database).Users

	user := models.User{
		Username:     "driver10",
		PasswordHash: "hashedpassword",
		Role:         models.RoleOperator,
		VehicleID:    "Bus-10",
	}
	require.NoError(t, users.InsertUser(ctx, user))

	var found models.User
	err := database.Collection(usersCollectionName).FindOne(ctx, bson.M{"username": "driver10"}).Decode(&found)
	require.NoError(t, err)
	assert.Equal(t, user.Role, found.Role)
	assert.Equal(t, "Bus-10", found.VehicleID)
	assert.True(t, found.IsActive)
	assert.NotZero(t, found.CreatedAt)

	assert.ErrorIs(t, users.InsertUser(ctx, user), ErrDuplicate)
}

func TestMongoUserCollection_FindUserByUsername(t *testing.T) {
	database := integrationDatabase(t)
	ctx := context.Background()
	users := NewMongo(database).Users

	require.NoError(t, users.InsertUser(ctx, models.User{Username: "admin", PasswordHash: "hash", Role: models.RoleAdmin}))

	found, err := users.FindUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, found.Role)

	require.NoError(t, users.UpdateLastLogin(ctx, found.ID.Hex()))
	found, err = users.FindUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.NotNil(t, found.LastLogin)

	_, err = users.FindUserByUsername(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoUserCollection_UpdateLastLogin_InvalidID(t *testing.T) {
	users := &MongoUserCollection{}
	assert.Error(t, users.UpdateLastLogin(context.Background(), "invalid-id"))
}
