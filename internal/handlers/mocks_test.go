package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/boardcheck/internal/attendance"
	"github.com/ukydev/boardcheck/internal/auth"
	"github.com/ukydev/boardcheck/internal/binding"
	"github.com/ukydev/boardcheck/internal/config"
	"github.com/ukydev/boardcheck/internal/middleware"
	"github.com/ukydev/boardcheck/internal/models"
)

// MockUserCollection is a mock implementation of UserCollection
type MockUserCollection struct {
	mock.Mock
}

func (m *MockUserCollection) InsertUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCollection) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRiderCollection is a mock implementation of RiderCollection
type MockRiderCollection struct {
	mock.Mock
}

func (m *MockRiderCollection) InsertRider(ctx context.Context, rider models.Rider) (*models.Rider, error) {
	args := m.Called(ctx, rider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rider), args.Error(1)
}

func (m *MockRiderCollection) FindRiderByID(ctx context.Context, id string) (*models.Rider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rider), args.Error(1)
}

func (m *MockRiderCollection) FindRiderByName(ctx context.Context, name string) (*models.Rider, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rider), args.Error(1)
}

func (m *MockRiderCollection) FindRiderByIdentifier(ctx context.Context, identifier string) (*models.Rider, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rider), args.Error(1)
}

func (m *MockRiderCollection) BindDeviceIfUnset(ctx context.Context, riderID, deviceID string) (string, bool, error) {
	args := m.Called(ctx, riderID, deviceID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockRiderCollection) ClearDevice(ctx context.Context, riderID string) (string, error) {
	args := m.Called(ctx, riderID)
	return args.String(0), args.Error(1)
}

// MockAuditLog is a mock implementation of AuditLog
type MockAuditLog struct {
	mock.Mock
}

func (m *MockAuditLog) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLog) FindAudit(ctx context.Context, limit int64) ([]models.AuditEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditEntry), args.Error(1)
}

// MockAttendanceService is a mock of the verification engine
type MockAttendanceService struct {
	mock.Mock
}

func (m *MockAttendanceService) Verify(ctx context.Context, a attendance.Attempt) (*models.AttendanceRecord, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttendanceRecord), args.Error(1)
}

func (m *MockAttendanceService) MarkManual(ctx context.Context, vehicleID, identifier string) (*models.AttendanceRecord, error) {
	args := m.Called(ctx, vehicleID, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttendanceRecord), args.Error(1)
}

func (m *MockAttendanceService) Manifest(ctx context.Context, vehicleID string, day time.Time, loc *time.Location) ([]models.ManifestEntry, error) {
	args := m.Called(ctx, vehicleID, day, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ManifestEntry), args.Error(1)
}

func (m *MockAttendanceService) History(ctx context.Context, riderID string) ([]models.AttendanceRecord, error) {
	args := m.Called(ctx, riderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AttendanceRecord), args.Error(1)
}

// MockReporter is a mock position reporter
type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) Report(ctx context.Context, vehicleID string, lat, lng float64) (models.VehiclePosition, error) {
	args := m.Called(ctx, vehicleID, lat, lng)
	return args.Get(0).(models.VehiclePosition), args.Error(1)
}

// MockDeviceResetter is a mock binding authority
type MockDeviceResetter struct {
	mock.Mock
}

func (m *MockDeviceResetter) Reset(ctx context.Context, riderID, reason, actor string) (models.AuditEntry, error) {
	args := m.Called(ctx, riderID, reason, actor)
	return args.Get(0).(models.AuditEntry), args.Error(1)
}

type MockDeviceBinder struct {
	mock.Mock
}

func (m *MockDeviceBinder) CheckAndBind(ctx context.Context, riderID, deviceID string) (binding.Outcome, string, error) {
	args := m.Called(ctx, riderID, deviceID)
	return args.Get(0).(binding.Outcome), args.String(1), args.Error(2)
}

func testLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

func newAuthService(t *testing.T) *auth.Service {
	t.Helper()
	service, err := auth.NewService(config.AuthConfig{JWTSecret: "test-secret", JWTExpiry: time.Hour})
	require.NoError(t, err)
	return service
}

var (
	riderClaims    = &models.Claims{UserID: "652f1c2e9b1e8a0001a1b2c3", Username: "student1", Role: models.RoleRider}
	operatorClaims = &models.Claims{UserID: "652f1c2e9b1e8a0001a1b2c4", Username: "driver10", Role: models.RoleOperator, VehicleID: "Bus-10"}
	adminClaims    = &models.Claims{UserID: "652f1c2e9b1e8a0001a1b2c5", Username: "admin", Role: models.RoleAdmin}
)

// request builds a request authenticated as claims (nil for anonymous).
func request(method, target, body string, claims *models.Claims) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if claims != nil {
		req = req.WithContext(middleware.WithClaims(req.Context(), claims))
	}
	return req
}
