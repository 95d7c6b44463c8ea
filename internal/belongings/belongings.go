package belongings

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"campus-facility-backend/internal/apperr"
	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/notify"
	"campus-facility-backend/internal/store"
)

// DefaultValidity is how long a registration lasts when none is configured.
const DefaultValidity = 365 * 24 * time.Hour

var validate = validator.New()

// Registry owns the personal items subjects carry through the gate.
type Registry struct {
	wmu   sync.Mutex
	mu    sync.RWMutex
	items []model.PersonalItem

	store store.Store
	bus   *notify.Bus
	newID func() string
}

// Open loads the personal items aggregate from s.
func Open(ctx context.Context, s store.Store, bus *notify.Bus, newID func() string) (*Registry, error) {
	r := &Registry{store: s, bus: bus, newID: newID}
	if _, err := store.LoadJSON(ctx, s, store.KeyPersonalItems, &r.items); err != nil {
		return nil, fmt.Errorf("failed to load personal items: %w", err)
	}
	return r, nil
}

// Register records a new item on campus. Without an explicit expiry the
// registration lasts validity from now.
func (r *Registry) Register(ctx context.Context, item model.PersonalItem, registeredBy string, now time.Time, validity time.Duration) (model.PersonalItem, error) {
	item.SubjectID = strings.TrimSpace(item.SubjectID)
	if err := validate.Struct(item); err != nil {
		return model.PersonalItem{}, err
	}
	if validity <= 0 {
		validity = DefaultValidity
	}

	item.ID = r.newID()
	item.Status = model.PersonalItemActive
	item.RegisteredAt = now
	item.RegisteredBy = registeredBy
	item.LastCheckIn, item.LastCheckOut = nil, nil
	if item.ExpiresAt == nil {
		exp := now.Add(validity)
		item.ExpiresAt = &exp
	}

	err := r.mutate(ctx, func(items []model.PersonalItem) ([]model.PersonalItem, error) {
		return append(items, item), nil
	})
	if err != nil {
		return model.PersonalItem{}, err
	}
	return item, nil
}

// Renew extends a registration by validity from now. An expired item that is
// on campus becomes active again.
func (r *Registry) Renew(ctx context.Context, itemID string, now time.Time, validity time.Duration) (model.PersonalItem, error) {
	if validity <= 0 {
		validity = DefaultValidity
	}
	var renewed model.PersonalItem
	err := r.mutate(ctx, func(items []model.PersonalItem) ([]model.PersonalItem, error) {
		i := indexOf(items, itemID)
		if i < 0 {
			return nil, apperr.NotFound(apperr.CodePersonalItemNotFound, "personal item %s not found", itemID)
		}
		exp := now.Add(validity)
		items[i].ExpiresAt = &exp
		if items[i].Status == model.PersonalItemExpired {
			items[i].Status = model.PersonalItemActive
		}
		renewed = items[i]
		return items, nil
	})
	return renewed, err
}

// Remove deletes a registration.
func (r *Registry) Remove(ctx context.Context, itemID string) error {
	return r.mutate(ctx, func(items []model.PersonalItem) ([]model.PersonalItem, error) {
		i := indexOf(items, itemID)
		if i < 0 {
			return nil, apperr.NotFound(apperr.CodePersonalItemNotFound, "personal item %s not found", itemID)
		}
		return append(items[:i], items[i+1:]...), nil
	})
}

// PrepareGate checks the subject's items through the gate without saving:
// out checks them out, otherwise they are checked back in. The change must be
// committed with the gate pass; nothing is published.
func (r *Registry) PrepareGate(subjectID string, itemIDs []string, out bool, now time.Time) ([]model.PersonalItem, store.Change, error) {
	if len(itemIDs) == 0 {
		return nil, store.Change{}, nil
	}

	next := r.snapshot()
	moved := make([]model.PersonalItem, 0, len(itemIDs))
	seen := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		i := indexOf(next, id)
		if i < 0 {
			return nil, store.Change{}, apperr.NotFound(apperr.CodePersonalItemNotFound, "personal item %s not found", id)
		}
		it := &next[i]
		if it.SubjectID != subjectID {
			return nil, store.Change{}, apperr.InvalidState(apperr.CodePersonalItemNotOwned, "personal item %s is not registered to %s", id, subjectID)
		}
		if out {
			if err := checkOut(it, now); err != nil {
				return nil, store.Change{}, err
			}
		} else if err := checkIn(it, now); err != nil {
			return nil, store.Change{}, err
		}
		moved = append(moved, *it)
	}

	entry, err := store.JSONEntry(store.KeyPersonalItems, next)
	if err != nil {
		return nil, store.Change{}, err
	}
	return moved, store.Change{
		Entries: []store.Entry{entry},
		Apply: func() {
			r.mu.Lock()
			r.items = next
			r.mu.Unlock()
		},
	}, nil
}

func checkOut(it *model.PersonalItem, now time.Time) error {
	switch {
	case it.Status == model.PersonalItemCheckedOut:
		return apperr.InvalidState(apperr.CodePersonalItemCheckedOut, "personal item %s is already checked out", it.ID)
	case it.Status == model.PersonalItemExpired || it.ExpiredAt(now):
		return apperr.InvalidState(apperr.CodePersonalItemExpired, "registration of personal item %s has expired", it.ID)
	}
	it.Status = model.PersonalItemCheckedOut
	it.LastCheckOut = &now
	return nil
}

func checkIn(it *model.PersonalItem, now time.Time) error {
	if it.Status != model.PersonalItemCheckedOut {
		return apperr.InvalidState(apperr.CodePersonalItemOnCampus, "personal item %s is not checked out", it.ID)
	}
	it.LastCheckIn = &now
	it.Status = model.PersonalItemActive
	if it.ExpiredAt(now) {
		it.Status = model.PersonalItemExpired
	}
	return nil
}

// Expire marks registrations of items on campus that lapsed before now.
// Items still checked out expire when they come back.
func (r *Registry) Expire(ctx context.Context, now time.Time) (int, error) {
	expired := 0
	err := r.mutate(ctx, func(items []model.PersonalItem) ([]model.PersonalItem, error) {
		for i := range items {
			if items[i].Status == model.PersonalItemActive && items[i].ExpiredAt(now) {
				items[i].Status = model.PersonalItemExpired
				expired++
			}
		}
		if expired == 0 {
			return nil, nil
		}
		return items, nil
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}

// Item returns a copy of the item.
func (r *Registry) Item(itemID string) (model.PersonalItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := indexOf(r.items, itemID)
	if i < 0 {
		return model.PersonalItem{}, apperr.NotFound(apperr.CodePersonalItemNotFound, "personal item %s not found", itemID)
	}
	return r.items[i], nil
}

// Items lists a subject's items by registration time. An empty ID lists all.
func (r *Registry) Items(subjectID string) []model.PersonalItem {
	r.mu.RLock()
	var out []model.PersonalItem
	for _, it := range r.items {
		if subjectID == "" || it.SubjectID == subjectID {
			out = append(out, it)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out
}

// mutate applies fn to a copy of the items and saves the result. A nil
// result from fn means nothing changed.
func (r *Registry) mutate(ctx context.Context, fn func([]model.PersonalItem) ([]model.PersonalItem, error)) error {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	next, err := fn(r.snapshot())
	if err != nil || next == nil {
		return err
	}
	if err := store.SaveJSON(ctx, r.store, store.KeyPersonalItems, next); err != nil {
		return fmt.Errorf("failed to save personal items: %w", err)
	}
	r.mu.Lock()
	r.items = next
	r.mu.Unlock()

	r.bus.Publish()
	return nil
}

func (r *Registry) snapshot() []model.PersonalItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append(make([]model.PersonalItem, 0, len(r.items)+1), r.items...)
}

func indexOf(items []model.PersonalItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
