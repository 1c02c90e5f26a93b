package location

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/boardcheck/internal/models"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, 0)
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  newRedisStore(t),
	}
}

func position(vehicleID string, lat, lng float64, at time.Time) models.VehiclePosition {
	return models.VehiclePosition{
		VehicleID:  vehicleID,
		Location:   models.Location{Lat: lat, Lng: lng},
		ReportedAt: at,
	}
}

func TestStore_LookupAbsent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Lookup(context.Background(), "Bus-99")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	first := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Report(ctx, position("Bus-10", 12.9, 77.6, first)))
			require.NoError(t, s.Report(ctx, position("Bus-10", 12.91, 77.61, first.Add(5*time.Second))))
			require.NoError(t, s.Report(ctx, position("Bus-11", 1, 2, first)))

			pos, ok, err := s.Lookup(ctx, "Bus-10")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 12.91, pos.Location.Lat)
			assert.Equal(t, 77.61, pos.Location.Lng)
			assert.True(t, pos.ReportedAt.Equal(first.Add(5*time.Second)))

			all, err := s.All(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "Bus-10", all[0].VehicleID)
			assert.Equal(t, "Bus-11", all[1].VehicleID)
		})
	}
}

// Each writer reports lat == lng == its own index, so any mixed read would
// show different values in the two fields.
func TestStore_ConcurrentWritesNeverTear(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			stop := make(chan struct{})
			torn := make(chan models.VehiclePosition, 1)

			go func() {
				for {
					select {
					case <-stop:
						return
					default:
					}
					pos, ok, err := s.Lookup(ctx, "Bus-10")
					if err != nil || !ok {
						continue
					}
					if pos.Location.Lat != pos.Location.Lng {
						select {
						case torn <- pos:
						default:
						}
					}
				}
			}()

			for w := 0; w < 8; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < 50; i++ {
						v := float64(w*100 + i)
						_ = s.Report(ctx, position("Bus-10", v, v, time.Now()))
					}
				}(w)
			}
			wg.Wait()
			close(stop)

			select {
			case pos := <-torn:
				t.Fatalf("observed partial position: %+v", pos)
			default:
			}

			pos, ok, err := s.Lookup(ctx, "Bus-10")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, pos.Location.Lat, pos.Location.Lng, fmt.Sprintf("final position %+v", pos))
		})
	}
}

func TestRedisStore_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client, time.Minute)
	ctx := context.Background()
	require.NoError(t, s.Report(ctx, position("Bus-10", 1, 1, time.Now())))

	mr.FastForward(2 * time.Minute)

	_, ok, err := s.Lookup(ctx, "Bus-10")
	require.NoError(t, err)
	assert.False(t, ok)
}
