// Package location holds the volatile, per-vehicle live position cache.
//
// A Store keeps exactly one position per vehicle id. Every Report replaces the
// whole position for that vehicle in one step, so a Lookup observes either a
// complete earlier report or nothing. Entries are never evicted; callers that
// care about freshness compare ReportedAt against their own threshold.
package location

import (
	"context"
	"sort"
	"sync"

	"github.com/ukydev/boardcheck/internal/models"
)

// Store is the live location cache shared by the position reporter and the
// verification engine.
type Store interface {
	// Report overwrites the stored position for pos.VehicleID.
	Report(ctx context.Context, pos models.VehiclePosition) error
	// Lookup returns the latest position for vehicleID, or false if the
	// vehicle has never reported.
	Lookup(ctx context.Context, vehicleID string) (models.VehiclePosition, bool, error)
	// All returns every cached position ordered by vehicle id.
	All(ctx context.Context) ([]models.VehiclePosition, error)
}

// MemoryStore is an in-process Store. Positions are stored by value under a
// lock, so readers never see a partially written position.
type MemoryStore struct {
	mu        sync.RWMutex
	positions map[string]models.VehiclePosition
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{positions: make(map[string]models.VehiclePosition)}
}

func (s *MemoryStore) Report(ctx context.Context, pos models.VehiclePosition) error {
	s.mu.Lock()
	s.positions[pos.VehicleID] = pos
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Lookup(ctx context.Context, vehicleID string) (models.VehiclePosition, bool, error) {
	s.mu.RLock()
	pos, ok := s.positions[vehicleID]
	s.mu.RUnlock()
	return pos, ok, nil
}

func (s *MemoryStore) All(ctx context.Context) ([]models.VehiclePosition, error) {
	s.mu.RLock()
	out := make([]models.VehiclePosition, 0, len(s.positions))
	for _, pos := range s.positions {
		out = append(out, pos)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out, nil
}
