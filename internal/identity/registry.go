package identity

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

var validate = validator.New()

// Registry owns the subjects aggregate.
type Registry struct {
	// wmu serializes writers; mu guards the map for readers.
	wmu      sync.Mutex
	mu       sync.RWMutex
	subjects map[string]model.Subject
	store    store.Store
	bus      *notify.Bus
}

// Open loads the subjects aggregate from s.
func Open(ctx context.Context, s store.Store, bus *notify.Bus) (*Registry, error) {
	var list []model.Subject
	if _, err := store.LoadJSON(ctx, s, store.KeySubjects, &list); err != nil {
		return nil, fmt.Errorf("failed to load subjects: %w", err)
	}

	r := &Registry{
		subjects: make(map[string]model.Subject, len(list)),
		store:    s,
		bus:      bus,
	}
	for _, sub := range list {
		r.subjects[sub.ID] = sub
	}
	return r, nil
}

// Exists reports whether subjectID is registered.
func (r *Registry) Exists(subjectID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subjects[subjectID]
	return ok
}

// Get returns a copy of the subject.
func (r *Registry) Get(subjectID string) (model.Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subjects[subjectID]
	if !ok {
		return model.Subject{}, apperr.NotFound(apperr.CodeSubjectNotFound, "subject %s not found", subjectID)
	}
	return sub, nil
}

// List returns subjects ordered by ID. An empty role matches everyone.
func (r *Registry) List(role string) []model.Subject {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Subject, 0, len(r.subjects))
	for _, sub := range r.subjects {
		if role == "" || strings.EqualFold(sub.Role, role) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered subjects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subjects)
}

// Register creates a subject or updates the descriptive fields of an existing one.
// Status fields are never changed here.
func (r *Registry) Register(ctx context.Context, sub model.Subject, registeredBy string, now time.Time) (model.Subject, error) {
	sub.ID = strings.TrimSpace(sub.ID)
	sub.Role = strings.ToLower(strings.TrimSpace(sub.Role))
	if err := validate.Struct(sub); err != nil {
		return model.Subject{}, fmt.Errorf("invalid subject: %w", err)
	}

	r.wmu.Lock()
	defer r.wmu.Unlock()

	r.mu.RLock()
	next, ok := r.subjects[sub.ID]
	r.mu.RUnlock()
	if ok {
		next.Name = sub.Name
		next.Email = sub.Email
		next.Role = sub.Role
	} else {
		next = model.Subject{
			ID:           sub.ID,
			Name:         sub.Name,
			Email:        sub.Email,
			Role:         sub.Role,
			Status:       model.SubjectActive,
			RegisteredAt: now,
			RegisteredBy: registeredBy,
		}
	}

	entry, err := r.entryWith(next)
	if err != nil {
		return model.Subject{}, err
	}
	if err := r.store.SaveBatch(ctx, []store.Entry{entry}); err != nil {
		return model.Subject{}, fmt.Errorf("failed to save subjects: %w", err)
	}
	r.mu.Lock()
	r.subjects[next.ID] = next
	r.mu.Unlock()

	r.bus.Publish()
	return next, nil
}

// Update applies fn to a copy of the subject and commits the result in one
// batch with the other changes. Nothing changes if fn or the save fails.
// Update does not publish; the caller owns the notification.
func (r *Registry) Update(ctx context.Context, subjectID string, fn func(*model.Subject) error, with ...store.Change) (model.Subject, error) {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	r.mu.RLock()
	sub, ok := r.subjects[subjectID]
	r.mu.RUnlock()
	if !ok {
		return model.Subject{}, apperr.NotFound(apperr.CodeSubjectNotFound, "subject %s not found", subjectID)
	}
	if err := fn(&sub); err != nil {
		return model.Subject{}, err
	}

	entry, err := r.entryWith(sub)
	if err != nil {
		return model.Subject{}, err
	}
	own := store.Change{
		Entries: []store.Entry{entry},
		Apply: func() {
			r.mu.Lock()
			r.subjects[sub.ID] = sub
			r.mu.Unlock()
		},
	}
	if err := store.Commit(ctx, r.store, append([]store.Change{own}, with...)...); err != nil {
		return model.Subject{}, fmt.Errorf("failed to save subjects: %w", err)
	}
	return sub, nil
}

// Suspension returns an update that suspends an active subject.
func Suspension(reason string, at time.Time) func(*model.Subject) error {
	return func(s *model.Subject) error {
		if s.IsSuspended() {
			return apperr.InvalidState(apperr.CodeAlreadySuspended, "subject %s is already suspended", s.ID)
		}
		s.Status = model.SubjectSuspended
		s.SuspendedAt = &at
		s.SuspensionReason = reason
		return nil
	}
}

// Reinstatement clears the suspension of a suspended subject.
func Reinstatement(s *model.Subject) error {
	if !s.IsSuspended() {
		return apperr.InvalidState(apperr.CodeSubjectNotSuspended, "subject %s is not suspended", s.ID)
	}
	s.Status = model.SubjectActive
	s.SuspensionReason = ""
	s.SuspendedAt = nil
	return nil
}

// entryWith encodes the subjects aggregate with changed in place.
func (r *Registry) entryWith(changed model.Subject) (store.Entry, error) {
	r.mu.RLock()
	list := make([]model.Subject, 0, len(r.subjects)+1)
	for id, sub := range r.subjects {
		if id != changed.ID {
			list = append(list, sub)
		}
	}
	r.mu.RUnlock()

	list = append(list, changed)
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return store.JSONEntry(store.KeySubjects, list)
}
