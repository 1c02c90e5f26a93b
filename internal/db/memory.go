package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ukydev/boardcheck/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process implementation of every collection interface, used
// for local runs without MongoDB and for unit tests. A single mutex guards all
// state, which makes BindDeviceIfUnset trivially atomic.
type Memory struct {
	mu         sync.Mutex
	riders     map[primitive.ObjectID]models.Rider
	users      map[string]models.User
	attendance []models.AttendanceRecord
	audit      []models.AuditEntry
}

// NewMemory creates an empty in-memory database.
func NewMemory() *Memory {
	return &Memory{
		riders: make(map[primitive.ObjectID]models.Rider),
		users:  make(map[string]models.User),
	}
}

func (m *Memory) InsertRider(ctx context.Context, rider models.Rider) (*models.Rider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.riders {
		if existing.Name == rider.Name {
			return nil, fmt.Errorf("rider %q: %w", rider.Name, ErrDuplicate)
		}
	}
	now := time.Now()
	if rider.ID.IsZero() {
		rider.ID = primitive.NewObjectID()
	}
	rider.DeviceID = ""
	rider.CreatedAt = now
	rider.UpdatedAt = now
	m.riders[rider.ID] = rider
	return &rider, nil
}

func (m *Memory) FindRiderByID(ctx context.Context, id string) (*models.Rider, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rider, ok := m.riders[objectID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rider, nil
}

func (m *Memory) FindRiderByName(ctx context.Context, name string) (*models.Rider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rider := range m.riders {
		if rider.Name == name {
			return &rider, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindRiderByIdentifier(ctx context.Context, identifier string) (*models.Rider, error) {
	if rider, err := m.FindRiderByID(ctx, identifier); err == nil {
		return rider, nil
	}
	return m.FindRiderByName(ctx, identifier)
}

func (m *Memory) BindDeviceIfUnset(ctx context.Context, riderID, deviceID string) (string, bool, error) {
	objectID, err := primitive.ObjectIDFromHex(riderID)
	if err != nil {
		return "", false, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rider, ok := m.riders[objectID]
	if !ok {
		return "", false, ErrNotFound
	}
	if rider.DeviceID != "" {
		return rider.DeviceID, false, nil
	}
	for id, other := range m.riders {
		if id != objectID && other.DeviceID == deviceID {
			return "", false, fmt.Errorf("device %q: %w", deviceID, ErrDeviceInUse)
		}
	}
	rider.DeviceID = deviceID
	rider.UpdatedAt = time.Now()
	m.riders[objectID] = rider
	return deviceID, true, nil
}

func (m *Memory) ClearDevice(ctx context.Context, riderID string) (string, error) {
	objectID, err := primitive.ObjectIDFromHex(riderID)
	if err != nil {
		return "", ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rider, ok := m.riders[objectID]
	if !ok {
		return "", ErrNotFound
	}
	previous := rider.DeviceID
	rider.DeviceID = ""
	rider.UpdatedAt = time.Now()
	m.riders[objectID] = rider
	return previous, nil
}

func (m *Memory) InsertUser(ctx context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.Username]; ok {
		return fmt.Errorf("user %q: %w", user.Username, ErrDuplicate)
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	user.IsActive = true
	m.users[user.Username] = user
	return nil
}

func (m *Memory) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m *Memory) UpdateLastLogin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, user := range m.users {
		if user.ID.Hex() == id {
			now := time.Now()
			user.LastLogin = &now
			user.UpdatedAt = now
			m.users[name] = user
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) InsertAttendance(ctx context.Context, record models.AttendanceRecord) (*models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	m.attendance = append(m.attendance, record)
	return &record, nil
}

func (m *Memory) FindAttendanceByVehicle(ctx context.Context, vehicleID string, from, to time.Time) ([]models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := []models.AttendanceRecord{}
	for _, r := range m.attendance {
		if r.VehicleID == vehicleID && !r.MarkedAt.Before(from) && r.MarkedAt.Before(to) {
			records = append(records, r)
		}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].MarkedAt.Before(records[j].MarkedAt) })
	return records, nil
}

func (m *Memory) FindAttendanceByRider(ctx context.Context, riderID string, limit int64) ([]models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := []models.AttendanceRecord{}
	for i := len(m.attendance) - 1; i >= 0; i-- {
		if m.attendance[i].RiderID == riderID {
			records = append(records, m.attendance[i])
		}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].MarkedAt.After(records[j].MarkedAt) })
	if limit > 0 && int64(len(records)) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *Memory) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) FindAudit(ctx context.Context, limit int64) ([]models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := []models.AuditEntry{}
	for i := len(m.audit) - 1; i >= 0; i-- {
		entries = append(entries, m.audit[i])
		if limit > 0 && int64(len(entries)) == limit {
			break
		}
	}
	return entries, nil
}
