package internal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"campus-facility-backend/internal/db"
	"campus-facility-backend/internal/facility"
	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/notify"
	"campus-facility-backend/internal/seed"
	"campus-facility-backend/internal/store"
)

// TestCampusLifecycle seeds a SQLite-backed engine, runs a day of facility
// traffic through it, and verifies a fresh engine reloads the same state.
func TestCampusLifecycle(t *testing.T) {
	// --- Test Setup ---
	testDB, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	n := 0
	opts := facility.Options{
		Now: func() time.Time { return now },
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}

	svc, err := facility.Open(ctx, store.NewGormStore(testDB), notify.NewBus(), opts)
	require.NoError(t, err)

	fixture, err := seed.Load("../config/seed.yaml")
	require.NoError(t, err)
	applied, err := seed.Apply(ctx, svc, fixture, false)
	require.NoError(t, err)
	require.True(t, applied)

	// --- Traffic ---
	_, err = svc.AssignRoom(ctx, "STU004", "BLOCK-B-201")
	require.NoError(t, err)

	loan, err := svc.Borrow(ctx, "STU001", "BK001")
	require.NoError(t, err)

	_, err = svc.LibraryEnter(ctx, "STU002")
	require.NoError(t, err)

	now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	_, err = svc.ServeMeal(ctx, "STU003", "lunch", "STF002")
	require.NoError(t, err)

	now = time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC)
	var last facility.GateResult
	for i := 0; i < 3; i++ {
		last, err = svc.GateEntry(ctx, "STU005")
		require.NoError(t, err)
	}
	assert.True(t, last.Suspended)

	// --- Reload from the database ---
	reloaded, err := facility.Open(ctx, store.NewGormStore(testDB), notify.NewBus(), opts)
	require.NoError(t, err)

	sub, err := reloaded.Subjects().Get("STU005")
	require.NoError(t, err)
	assert.True(t, sub.IsSuspended())
	assert.Equal(t, "3 violations: after_hours_entry", sub.SuspensionReason)
	assert.Len(t, reloaded.Violations().Violations("STU005"), 3)

	room, ok := reloaded.Allocator().RoomOf("STU004")
	require.True(t, ok)
	assert.Equal(t, "BLOCK-B-201", room.ID)
	assert.Equal(t, model.RoomFull, room.Status)

	maint, err := reloaded.Allocator().Room("BLOCK-B-202")
	require.NoError(t, err)
	assert.Equal(t, model.RoomMaintenance, maint.Status)

	got, err := reloaded.Allocator().Loan(loan.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive())

	assert.Len(t, reloaded.Meals("STU003", "2025-03-10"), 1)

	// The library visit from the previous day is closed by the sweep.
	report, err := reloaded.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.StaleVisits)
	visits := reloaded.LibraryVisits("STU002", "")
	require.Len(t, visits, 1)
	assert.True(t, visits[0].AutoClosed)

	applied, err = seed.Apply(ctx, reloaded, fixture, false)
	require.NoError(t, err)
	assert.False(t, applied, "seeding a populated store is a no-op")

	// --- Push subscriptions ---
	subs := store.NewSubscriptionStore(testDB)
	require.NoError(t, subs.Upsert(ctx, &model.PushSubscription{Endpoint: "https://push/a", P256DH: "k", Auth: "a", Role: model.RoleDiscipline}))
	require.NoError(t, subs.Upsert(ctx, &model.PushSubscription{Endpoint: "https://push/b", P256DH: "k", Auth: "a", Role: model.RoleCafe}))
	require.NoError(t, subs.Upsert(ctx, &model.PushSubscription{Endpoint: "https://push/c", P256DH: "k", Auth: "a"}))

	targeted, err := subs.ForRole(ctx, model.RoleDiscipline)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"https://push/a", "https://push/c"}, endpoints(targeted))

	require.NoError(t, subs.Upsert(ctx, &model.PushSubscription{Endpoint: "https://push/b", P256DH: "k2", Auth: "a", Role: model.RoleDiscipline}))
	targeted, err = subs.ForRole(ctx, model.RoleDiscipline)
	require.NoError(t, err)
	assert.Len(t, targeted, 3)

	require.NoError(t, subs.Delete(ctx, "https://push/a"))
	_, err = subs.Get(ctx, "https://push/a")
	assert.ErrorIs(t, err, store.ErrSubscriptionNotFound)
}

func endpoints(subs []model.PushSubscription) []string {
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.Endpoint)
	}
	return out
}
