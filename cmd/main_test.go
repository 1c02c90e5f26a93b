package main

import (
	"context"
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/boardcheck/internal/auth"
	"github.com/ukydev/boardcheck/internal/config"
	"github.com/ukydev/boardcheck/internal/db"
	"github.com/ukydev/boardcheck/internal/models"
)

func newTestAuthService(t *testing.T) *auth.Service {
	t.Helper()
	s, err := auth.NewService(config.AuthConfig{JWTSecret: "test-secret", JWTExpiry: time.Hour})
	require.NoError(t, err)
	return s
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()

	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"serve", "notify", "create-staff"}, names)

	notifyCmd := app.Command("notify")
	require.NotNil(t, notifyCmd)
	require.Len(t, notifyCmd.Subcommands, 1)
	assert.Equal(t, "run", notifyCmd.Subcommands[0].Name)
}

func TestOpenBackend_Memory(t *testing.T) {
	store, err := openBackend(context.Background(), config.StoreConfig{Backend: config.BackendMemory})
	require.NoError(t, err)

	assert.Nil(t, store.health)
	assert.NotNil(t, store.riders)
	assert.NotNil(t, store.users)
	assert.NoError(t, store.close(context.Background()))
}

func TestCreateStaff(t *testing.T) {
	ctx := context.Background()
	authService := newTestAuthService(t)
	users := db.NewMemory()

	err := createStaff(ctx, authService, users, staffAccount{
		Username:  "driver10",
		Password:  "password123",
		Role:      models.RoleOperator,
		VehicleID: "Bus-10",
	})
	require.NoError(t, err)

	user, err := users.FindUserByUsername(ctx, "driver10")
	require.NoError(t, err)
	assert.Equal(t, models.RoleOperator, user.Role)
	assert.Equal(t, "Bus-10", user.VehicleID)
	assert.True(t, user.IsActive)
	assert.True(t, authService.CheckPassword("password123", user.PasswordHash))

	err = createStaff(ctx, authService, users, staffAccount{
		Username:  "driver10",
		Password:  "password123",
		Role:      models.RoleOperator,
		VehicleID: "Bus-11",
	})
	assert.True(t, isDuplicate(err))
}

func TestCreateStaff_Rejects(t *testing.T) {
	authService := newTestAuthService(t)

	tests := []struct {
		name    string
		account staffAccount
	}{
		{"rider role", staffAccount{Username: "student1", Password: "password123", Role: models.RoleRider}},
		{"unknown role", staffAccount{Username: "someone", Password: "password123", Role: "driver"}},
		{"operator without vehicle", staffAccount{Username: "driver10", Password: "password123", Role: models.RoleOperator}},
		{"short username", staffAccount{Username: "ab", Password: "password123", Role: models.RoleAdmin}},
		{"short password", staffAccount{Username: "admin", Password: "short", Role: models.RoleAdmin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := db.NewMemory()
			err := createStaff(context.Background(), authService, users, tt.account)
			assert.Error(t, err)

			_, err = users.FindUserByUsername(context.Background(), tt.account.Username)
			assert.ErrorIs(t, err, db.ErrNotFound)
		})
	}
}

func TestServe_MemoryBackendShutsDown(t *testing.T) {
	logger := log.New()
	logger.SetOutput(io.Discard)

	cfg := config.Config{
		HTTP: config.HTTPConfig{
			Port:            18089,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
		},
		Store:        config.StoreConfig{Backend: config.BackendMemory},
		Auth:         config.AuthConfig{JWTSecret: "test-secret", JWTExpiry: time.Hour},
		Verification: config.VerificationConfig{Timezone: time.UTC},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, log.NewEntry(logger), "admin", "password123")
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}
