package allocation

import (
	"context"
	"fmt"
	"sync"

	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/notify"
	"campus-facility-backend/internal/store"
)

// DefaultMaxActiveLoans caps concurrent loans per subject.
const DefaultMaxActiveLoans = 5

// Allocator owns every capacity-bounded resource: dormitory rooms and
// single-copy loanable items.
type Allocator struct {
	mu     sync.RWMutex
	blocks []model.Block
	rooms  []model.Room
	items  []model.Item
	loans  []model.Loan

	store          store.Store
	bus            *notify.Bus
	newID          func() string
	maxActiveLoans int
}

// Open loads the allocator aggregates from s.
func Open(ctx context.Context, s store.Store, bus *notify.Bus, maxActiveLoans int, newID func() string) (*Allocator, error) {
	if maxActiveLoans < 1 {
		maxActiveLoans = DefaultMaxActiveLoans
	}
	a := &Allocator{store: s, bus: bus, newID: newID, maxActiveLoans: maxActiveLoans}

	loads := []struct {
		key string
		v   any
	}{
		{store.KeyBlocks, &a.blocks},
		{store.KeyRooms, &a.rooms},
		{store.KeyItems, &a.items},
		{store.KeyLoans, &a.loans},
	}
	for _, l := range loads {
		if _, err := store.LoadJSON(ctx, s, l.key, l.v); err != nil {
			return nil, fmt.Errorf("failed to load allocator state: %w", err)
		}
	}
	return a, nil
}

// MaxActiveLoans returns the configured per-subject loan limit.
func (a *Allocator) MaxActiveLoans() int {
	return a.maxActiveLoans
}

// Empty reports whether no rooms or items have been loaded.
func (a *Allocator) Empty() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.rooms) == 0 && len(a.items) == 0
}

// ReplaceInventory installs blocks, rooms and items, e.g. from a seed fixture.
// Loans are cleared. Room statuses are recomputed from occupancy.
func (a *Allocator) ReplaceInventory(ctx context.Context, blocks []model.Block, rooms []model.Room, items []model.Item) error {
	seen := make(map[string]string)
	nextRooms := cloneRooms(rooms)
	for i := range nextRooms {
		r := &nextRooms[i]
		if r.Capacity < 1 {
			return fmt.Errorf("room %s: capacity must be positive", r.ID)
		}
		if len(r.Occupants) > r.Capacity {
			return fmt.Errorf("room %s: %d occupants exceed capacity %d", r.ID, len(r.Occupants), r.Capacity)
		}
		for _, o := range r.Occupants {
			if prev, dup := seen[o]; dup {
				return fmt.Errorf("subject %s is assigned to both %s and %s", o, prev, r.ID)
			}
			seen[o] = r.ID
		}
		if r.Occupants == nil {
			r.Occupants = []string{}
		}
		if r.Status != model.RoomMaintenance {
			r.Status = DeriveStatus(len(r.Occupants), r.Capacity)
		} else {
			r.Occupants = []string{}
		}
	}

	nextItems := append([]model.Item(nil), items...)
	for i := range nextItems {
		nextItems[i].Available = true
	}
	nextBlocks := append([]model.Block(nil), blocks...)

	a.mu.Lock()
	changed := false
	defer a.unlockAndPublish(&changed)

	if err := a.saveLocked(ctx, map[string]any{
		store.KeyBlocks: nextBlocks,
		store.KeyRooms:  nextRooms,
		store.KeyItems:  nextItems,
		store.KeyLoans:  []model.Loan{},
	}); err != nil {
		return err
	}
	a.blocks, a.rooms, a.items, a.loans = nextBlocks, nextRooms, nextItems, nil
	changed = true
	return nil
}

// unlockAndPublish releases the write lock, then notifies the bus when the
// mutation changed state. Listeners run unlocked and may read the allocator.
func (a *Allocator) unlockAndPublish(changed *bool) {
	a.mu.Unlock()
	if *changed {
		a.bus.Publish()
	}
}

// saveLocked writes the given aggregates in one batch, in a stable key order.
func (a *Allocator) saveLocked(ctx context.Context, aggregates map[string]any) error {
	order := []string{store.KeyBlocks, store.KeyRooms, store.KeyItems, store.KeyLoans}
	entries := make([]store.Entry, 0, len(aggregates))
	for _, key := range order {
		v, ok := aggregates[key]
		if !ok {
			continue
		}
		e, err := store.JSONEntry(key, v)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}
	if err := a.store.SaveBatch(ctx, entries); err != nil {
		return fmt.Errorf("failed to save allocator state: %w", err)
	}
	return nil
}

func cloneRooms(rooms []model.Room) []model.Room {
	out := make([]model.Room, len(rooms))
	for i, r := range rooms {
		out[i] = r
		out[i].Occupants = append(make([]string, 0, len(r.Occupants)), r.Occupants...)
	}
	return out
}
