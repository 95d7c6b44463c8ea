package allocation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-facility-backend/internal/apperr"
	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/notify"
	"campus-facility-backend/internal/store"
)

type failingStore struct {
	store.Store
}

func (failingStore) SaveBatch(context.Context, []store.Entry) error {
	return errors.New("write refused")
}

func newAllocator(t *testing.T, rooms []model.Room, items []model.Item) (*Allocator, *int) {
	t.Helper()
	ctx := context.Background()
	bus := notify.NewBus()
	n := 0
	a, err := Open(ctx, store.NewMemoryStore(), bus, 0, func() string {
		n++
		return fmt.Sprintf("loan-%d", n)
	})
	require.NoError(t, err)
	require.NoError(t, a.ReplaceInventory(ctx, []model.Block{{ID: "BLOCK-A", Name: "Block A"}}, rooms, items))

	published := 0
	bus.Subscribe(func() { published++ })
	return a, &published
}

func room(id string, capacity int, occupants ...string) model.Room {
	return model.Room{ID: id, BlockID: "BLOCK-A", Capacity: capacity, Occupants: occupants}
}

func TestDeriveStatus(t *testing.T) {
	testCases := []struct {
		occupants, capacity int
		expected            model.RoomStatus
	}{
		{0, 2, model.RoomVacant},
		{1, 2, model.RoomPartial},
		{2, 2, model.RoomFull},
		{1, 1, model.RoomFull},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d of %d", tc.occupants, tc.capacity), func(t *testing.T) {
			assert.Equal(t, tc.expected, DeriveStatus(tc.occupants, tc.capacity))
		})
	}
}

func TestAllocator_RoomScenario(t *testing.T) {
	ctx := context.Background()
	a, published := newAllocator(t, []model.Room{room("R1", 2, "A")}, nil)

	r, err := a.Room("R1")
	require.NoError(t, err)
	assert.Equal(t, model.RoomPartial, r.Status)

	r, err = a.Assign(ctx, "B", "R1")
	require.NoError(t, err)
	assert.Equal(t, model.RoomFull, r.Status)

	_, err = a.Assign(ctx, "C", "R1")
	assert.Equal(t, apperr.KindCapacityExceeded, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeRoomFull, apperr.CodeOf(err))

	r, err = a.Release(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, model.RoomPartial, r.Status)
	assert.Equal(t, []string{"B"}, r.Occupants)

	assert.Equal(t, 2, *published)
}

func TestAllocator_AssignMovesBetweenRooms(t *testing.T) {
	ctx := context.Background()
	a, published := newAllocator(t, []model.Room{room("R1", 2, "A"), room("R2", 1)}, nil)

	r, err := a.Assign(ctx, "A", "R2")
	require.NoError(t, err)
	assert.Equal(t, model.RoomFull, r.Status)
	assert.Equal(t, 1, *published)

	old, _ := a.Room("R1")
	assert.Empty(t, old.Occupants)
	assert.Equal(t, model.RoomVacant, old.Status)

	got, ok := a.RoomOf("A")
	require.True(t, ok)
	assert.Equal(t, "R2", got.ID)
}

func TestAllocator_FailedAssignKeepsPreviousRoom(t *testing.T) {
	ctx := context.Background()
	a, _ := newAllocator(t, []model.Room{room("R1", 2, "A"), room("R2", 1, "B"), room("R3", 1)}, nil)
	_, err := a.SetMaintenance(ctx, "R3")
	require.NoError(t, err)

	testCases := []struct {
		name   string
		target string
		kind   apperr.Kind
		code   string
	}{
		{name: "unknown room", target: "R9", kind: apperr.KindNotFound, code: apperr.CodeRoomNotFound},
		{name: "full room", target: "R2", kind: apperr.KindCapacityExceeded, code: apperr.CodeRoomFull},
		{name: "maintenance", target: "R3", kind: apperr.KindUnavailable, code: apperr.CodeRoomUnderMaintenance},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Assign(ctx, "A", tc.target)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Equal(t, tc.code, apperr.CodeOf(err))

			got, ok := a.RoomOf("A")
			require.True(t, ok)
			assert.Equal(t, "R1", got.ID)
		})
	}
}

func TestAllocator_AssignSameRoomIsNoop(t *testing.T) {
	a, published := newAllocator(t, []model.Room{room("R1", 1, "A")}, nil)

	r, err := a.Assign(context.Background(), "A", "R1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, r.Occupants)
	assert.Zero(t, *published)
}

func TestAllocator_ReleaseNotAssigned(t *testing.T) {
	a, _ := newAllocator(t, []model.Room{room("R1", 2)}, nil)

	_, err := a.Release(context.Background(), "Z")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeNotAssigned, apperr.CodeOf(err))
}

func TestAllocator_Maintenance(t *testing.T) {
	ctx := context.Background()
	a, _ := newAllocator(t, []model.Room{room("R1", 3, "A", "B")}, nil)

	evicted, err := a.SetMaintenance(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, evicted)

	r, _ := a.Room("R1")
	assert.Equal(t, model.RoomMaintenance, r.Status)
	assert.Empty(t, r.Occupants)
	_, ok := a.RoomOf("A")
	assert.False(t, ok)

	_, err = a.ClearMaintenance(ctx, "R1")
	require.NoError(t, err)
	r, _ = a.Room("R1")
	assert.Equal(t, model.RoomVacant, r.Status)

	_, err = a.ClearMaintenance(ctx, "R1")
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	_, err = a.SetMaintenance(ctx, "R9")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAllocator_CapacityInvariantUnderRandomOps(t *testing.T) {
	ctx := context.Background()
	rooms := []model.Room{room("R1", 2), room("R2", 1), room("R3", 3)}
	a, _ := newAllocator(t, rooms, nil)

	subjects := []string{"S1", "S2", "S3", "S4", "S5", "S6", "S7"}
	roomIDs := []string{"R1", "R2", "R3"}
	for step := 0; step < 200; step++ {
		s := subjects[(step*5)%len(subjects)]
		r := roomIDs[(step*3)%len(roomIDs)]
		switch step % 7 {
		case 0, 1, 2, 3:
			_, _ = a.Assign(ctx, s, r)
		case 4, 5:
			_, _ = a.Release(ctx, s)
		case 6:
			if step%21 == 6 {
				_, _ = a.SetMaintenance(ctx, r)
			} else {
				_, _ = a.ClearMaintenance(ctx, r)
			}
		}

		seen := map[string]bool{}
		for _, rm := range a.Rooms("") {
			require.LessOrEqual(t, len(rm.Occupants), rm.Capacity)
			if rm.Status == model.RoomMaintenance {
				require.Empty(t, rm.Occupants)
			} else {
				require.Equal(t, DeriveStatus(len(rm.Occupants), rm.Capacity), rm.Status)
			}
			for _, o := range rm.Occupants {
				require.False(t, seen[o], "subject %s in two rooms", o)
				seen[o] = true
			}
		}
	}
}

func TestAllocator_Blocks(t *testing.T) {
	rooms := []model.Room{
		{ID: "BLOCK-A-101", BlockID: "BLOCK-A", Floor: 1, Capacity: 2, Occupants: []string{"A"}},
		{ID: "BLOCK-A-203", BlockID: "BLOCK-A", Floor: 2, Capacity: 2},
	}
	a, _ := newAllocator(t, rooms, nil)

	blocks := a.Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, 2, blocks[0].TotalRooms)
	assert.Equal(t, 4, blocks[0].Capacity)
	assert.Equal(t, 1, blocks[0].Occupied)
	assert.Equal(t, 2, blocks[0].MaxFloor)
}

func TestAllocator_ReplaceInventoryRejectsBadRooms(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, store.NewMemoryStore(), notify.NewBus(), 5, func() string { return "x" })
	require.NoError(t, err)

	assert.Error(t, a.ReplaceInventory(ctx, nil, []model.Room{room("R1", 1, "A", "B")}, nil))
	assert.Error(t, a.ReplaceInventory(ctx, nil, []model.Room{room("R1", 0)}, nil))
	assert.Error(t, a.ReplaceInventory(ctx, nil, []model.Room{room("R1", 2, "A"), room("R2", 2, "A")}, nil))
	assert.True(t, a.Empty())
}

func TestAllocator_BorrowAndReturn(t *testing.T) {
	ctx := context.Background()
	a, _ := newAllocator(t, nil, []model.Item{{ID: "I1", Title: "Go"}})
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	period := 14 * 24 * time.Hour

	loan, err := a.Borrow(ctx, "STU001", "I1", now, period)
	require.NoError(t, err)
	assert.Equal(t, now.Add(period), loan.DueAt)
	assert.Equal(t, model.LoanBorrowed, loan.Status)
	assert.False(t, a.Items()[0].Available)

	_, err = a.Borrow(ctx, "STU002", "I1", now, period)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeItemUnavailable, apperr.CodeOf(err))

	returned, err := a.Return(ctx, loan.ID, loan.DueAt.Add(72*time.Hour), decimal.RequireFromString("0.50"))
	require.NoError(t, err)
	assert.Equal(t, model.LoanReturned, returned.Status)
	assert.True(t, returned.Fine.Equal(decimal.RequireFromString("1.50")))
	assert.True(t, a.Items()[0].Available)

	_, err = a.Return(ctx, loan.ID, now, decimal.Zero)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeAlreadyReturned, apperr.CodeOf(err))

	_, err = a.Return(ctx, "nope", now, decimal.Zero)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = a.Borrow(ctx, "STU001", "I9", now, period)
	assert.Equal(t, apperr.CodeItemNotFound, apperr.CodeOf(err))
}

func TestAllocator_BorrowLimitAndOverdue(t *testing.T) {
	ctx := context.Background()
	var items []model.Item
	for i := 1; i <= 7; i++ {
		items = append(items, model.Item{ID: fmt.Sprintf("I%d", i)})
	}
	a, _ := newAllocator(t, nil, items)
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	period := 14 * 24 * time.Hour

	for i := 1; i <= 5; i++ {
		_, err := a.Borrow(ctx, "STU001", fmt.Sprintf("I%d", i), now, period)
		require.NoError(t, err)
	}
	_, err := a.Borrow(ctx, "STU001", "I6", now, period)
	assert.Equal(t, apperr.KindCapacityExceeded, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeBorrowLimitExceeded, apperr.CodeOf(err))

	// Another subject with an overdue loan is blocked.
	_, err = a.Borrow(ctx, "STU002", "I6", now, period)
	require.NoError(t, err)
	late := now.Add(period + time.Hour)
	_, err = a.Borrow(ctx, "STU002", "I7", late, period)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeHasOverdueItem, apperr.CodeOf(err))

	n, err := a.MarkOverdue(ctx, late)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	for _, l := range a.Loans("STU002") {
		assert.Equal(t, model.LoanOverdue, l.Status)
	}
	n, err = a.MarkOverdue(ctx, late)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAllocator_SaveFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	a, published := newAllocator(t, []model.Room{room("R1", 2)}, []model.Item{{ID: "I1"}})
	a.store = failingStore{Store: a.store}

	_, err := a.Assign(ctx, "A", "R1")
	assert.Error(t, err)
	_, ok := a.RoomOf("A")
	assert.False(t, ok)

	_, err = a.Borrow(ctx, "A", "I1", time.Now(), time.Hour)
	assert.Error(t, err)
	assert.True(t, a.Items()[0].Available)
	assert.Empty(t, a.Loans(""))
	assert.Zero(t, *published)
}

func TestAllocator_Reload(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	a, err := Open(ctx, s, notify.NewBus(), 5, func() string { return "loan-1" })
	require.NoError(t, err)
	require.NoError(t, a.ReplaceInventory(ctx, nil, []model.Room{room("R1", 2)}, []model.Item{{ID: "I1"}}))
	_, err = a.Assign(ctx, "A", "R1")
	require.NoError(t, err)
	_, err = a.Borrow(ctx, "A", "I1", time.Now(), time.Hour)
	require.NoError(t, err)

	b, err := Open(ctx, s, notify.NewBus(), 5, func() string { return "loan-2" })
	require.NoError(t, err)
	_, ok := b.RoomOf("A")
	assert.True(t, ok)
	assert.False(t, b.Items()[0].Available)
	assert.Len(t, b.Loans("A"), 1)
}

func TestAllocator_ListenersCanReadState(t *testing.T) {
	ctx := context.Background()
	a, _ := newAllocator(t, []model.Room{room("R1", 2)}, []model.Item{{ID: "I1"}})

	var seenRooms, seenLoans int
	a.bus.Subscribe(func() {
		seenRooms = len(a.Rooms("")[0].Occupants)
		seenLoans = len(a.Loans(""))
		_ = a.Items()
		_ = a.Blocks()
	})

	done := make(chan error, 1)
	go func() {
		if _, err := a.Assign(ctx, "A", "R1"); err != nil {
			done <- err
			return
		}
		_, err := a.Borrow(ctx, "A", "I1", time.Now(), time.Hour)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener reading the allocator blocked the mutation")
	}
	assert.Equal(t, 1, seenRooms)
	assert.Equal(t, 1, seenLoans)
}
