package binding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/boardcheck/internal/db"
	"github.com/ukydev/boardcheck/internal/models"
)

func testLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

func setup(t *testing.T) (*Authority, *db.Memory, string) {
	t.Helper()
	store := db.NewMemory()
	rider, err := store.InsertRider(context.Background(), models.Rider{Name: "student1", VehicleID: "Bus-10"})
	require.NoError(t, err)
	return NewAuthority(store, store, testLogger()), store, rider.ID.Hex()
}

func TestCheckAndBind_FirstUseThenMatchThenReject(t *testing.T) {
	ctx := context.Background()
	a, store, riderID := setup(t)

	outcome, bound, err := a.CheckAndBind(ctx, riderID, "devA")
	require.NoError(t, err)
	assert.Equal(t, AutoBound, outcome)
	assert.Equal(t, "devA", bound)

	outcome, _, err = a.CheckAndBind(ctx, riderID, "devA")
	require.NoError(t, err)
	assert.Equal(t, Matched, outcome)

	outcome, bound, err = a.CheckAndBind(ctx, riderID, "devB")
	require.NoError(t, err)
	assert.Equal(t, Rejected, outcome)
	assert.Equal(t, "devA", bound)

	rider, err := store.FindRiderByID(ctx, riderID)
	require.NoError(t, err)
	assert.Equal(t, "devA", rider.DeviceID, "rejection never mutates the binding")
}

func TestCheckAndBind_DeviceHeldByAnotherRider(t *testing.T) {
	ctx := context.Background()
	a, store, alice := setup(t)
	other, err := store.InsertRider(ctx, models.Rider{Name: "student2", VehicleID: "Bus-10"})
	require.NoError(t, err)
	bob := other.ID.Hex()

	outcome, _, err := a.CheckAndBind(ctx, alice, "devA")
	require.NoError(t, err)
	require.Equal(t, AutoBound, outcome)

	outcome, bound, err := a.CheckAndBind(ctx, bob, "devA")
	require.NoError(t, err)
	assert.Equal(t, Rejected, outcome)
	assert.Empty(t, bound)

	rider, err := store.FindRiderByID(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, rider.DeviceID, "the second rider stays unbound")

	outcome, _, err = a.CheckAndBind(ctx, bob, "devB")
	require.NoError(t, err)
	assert.Equal(t, AutoBound, outcome)
}

func TestCheckAndBind_Errors(t *testing.T) {
	ctx := context.Background()
	a, _, _ := setup(t)

	_, _, err := a.CheckAndBind(ctx, "000000000000000000000000", "devA")
	assert.ErrorIs(t, err, db.ErrNotFound)

	_, _, err = a.CheckAndBind(ctx, "000000000000000000000000", "")
	assert.Error(t, err)
}

func TestCheckAndBind_ConcurrentFirstUse(t *testing.T) {
	ctx := context.Background()
	a, store, riderID := setup(t)

	const n = 50
	outcomes := make([]Outcome, n)
	bounds := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			outcomes[i], bounds[i], err = a.CheckAndBind(ctx, riderID, fmt.Sprintf("dev-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	winner := ""
	autoBound := 0
	for i, o := range outcomes {
		if o == AutoBound {
			autoBound++
			winner = fmt.Sprintf("dev-%d", i)
		}
	}
	require.Equal(t, 1, autoBound)

	for i, o := range outcomes {
		assert.Equal(t, winner, bounds[i], "all callers see one bound value")
		if o != AutoBound {
			assert.Equal(t, Rejected, o)
		}
	}

	rider, err := store.FindRiderByID(ctx, riderID)
	require.NoError(t, err)
	assert.Equal(t, winner, rider.DeviceID)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	a, store, riderID := setup(t)

	_, _, err := a.CheckAndBind(ctx, riderID, "devA")
	require.NoError(t, err)

	entry, err := a.Reset(ctx, riderID, "lost phone", "admin")
	require.NoError(t, err)
	assert.Equal(t, "Device Reset (Old: devA)", entry.Action)
	assert.Equal(t, "devA", entry.PreviousDeviceID)
	assert.Equal(t, "lost phone", entry.Reason)
	assert.Equal(t, "admin", entry.Actor)

	rider, err := store.FindRiderByID(ctx, riderID)
	require.NoError(t, err)
	assert.Empty(t, rider.DeviceID)

	outcome, _, err := a.CheckAndBind(ctx, riderID, "devNew")
	require.NoError(t, err)
	assert.Equal(t, AutoBound, outcome)

	entries, err := store.FindAudit(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReset_TwiceIsSafe(t *testing.T) {
	ctx := context.Background()
	a, store, riderID := setup(t)

	_, _, err := a.CheckAndBind(ctx, riderID, "devA")
	require.NoError(t, err)

	_, err = a.Reset(ctx, riderID, "", "admin")
	require.NoError(t, err)
	second, err := a.Reset(ctx, riderID, "", "admin")
	require.NoError(t, err)
	assert.Equal(t, "Device Reset (Old: None)", second.Action)
	assert.Equal(t, "Not specified", second.Reason)

	entries, err := store.FindAudit(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestReset_UnknownRider(t *testing.T) {
	a, store, _ := setup(t)

	_, err := a.Reset(context.Background(), "000000000000000000000000", "lost phone", "admin")
	assert.ErrorIs(t, err, db.ErrNotFound)

	entries, err := store.FindAudit(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type failingAudit struct{}

func (failingAudit) AppendAudit(context.Context, models.AuditEntry) error {
	return errors.New("audit unavailable")
}

func (failingAudit) FindAudit(context.Context, int64) ([]models.AuditEntry, error) {
	return nil, nil
}

func TestReset_AuditFailure(t *testing.T) {
	store := db.NewMemory()
	rider, err := store.InsertRider(context.Background(), models.Rider{Name: "student1"})
	require.NoError(t, err)
	a := NewAuthority(store, failingAudit{}, testLogger())

	_, err = a.Reset(context.Background(), rider.ID.Hex(), "lost phone", "admin")
	assert.Error(t, err)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "matched", Matched.String())
	assert.Equal(t, "auto_bound", AutoBound.String())
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "unknown", Outcome(0).String())
}
