package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-facility-backend/internal/apperr"
	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/notify"
	"campus-facility-backend/internal/store"
)

// failingStore rejects every write.
type failingStore struct {
	store.Store
}

func (f failingStore) SaveBatch(context.Context, []store.Entry) error {
	return errors.New("write refused")
}

func newRegistry(t *testing.T) (*Registry, *notify.Bus, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	bus := notify.NewBus()
	r, err := Open(context.Background(), s, bus)
	require.NoError(t, err)
	return r, bus, s
}

func TestRegistry_Register(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		subject   model.Subject
		expectErr bool
	}{
		{name: "valid student", subject: model.Subject{ID: "STU001", Name: "Ada", Role: "Student"}},
		{name: "missing name", subject: model.Subject{ID: "STU002", Role: "student"}, expectErr: true},
		{name: "unknown role", subject: model.Subject{ID: "STU003", Name: "Bo", Role: "janitor"}, expectErr: true},
		{name: "bad email", subject: model.Subject{ID: "STU004", Name: "Cy", Role: "student", Email: "nope"}, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, _, _ := newRegistry(t)
			got, err := r.Register(ctx, tc.subject, "admin", now)
			if tc.expectErr {
				assert.Error(t, err)
				assert.Equal(t, 0, r.Len())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.SubjectActive, got.Status)
			assert.Equal(t, "student", got.Role)
			assert.Equal(t, now, got.RegisteredAt)
			assert.True(t, r.Exists(tc.subject.ID))
		})
	}
}

func TestRegistry_ReRegisterKeepsStatus(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	now := time.Now()

	_, err := r.Register(ctx, model.Subject{ID: "STU001", Name: "Ada", Role: "student"}, "admin", now)
	require.NoError(t, err)
	_, err = r.Update(ctx, "STU001", func(s *model.Subject) error {
		s.Status = model.SubjectSuspended
		s.SuspensionReason = "3 violations: after_hours_entry"
		return nil
	})
	require.NoError(t, err)

	got, err := r.Register(ctx, model.Subject{ID: "STU001", Name: "Ada L.", Role: "student"}, "admin", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.Name)
	assert.Equal(t, model.SubjectSuspended, got.Status)
	assert.Equal(t, now, got.RegisteredAt)
}

func TestRegistry_PersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	r, bus, s := newRegistry(t)
	published := 0
	bus.Subscribe(func() { published++ })

	_, err := r.Register(ctx, model.Subject{ID: "STU001", Name: "Ada", Role: "student"}, "admin", time.Now())
	require.NoError(t, err)
	at := time.Now()
	_, err = r.Update(ctx, "STU001", func(s *model.Subject) error {
		s.LastEntryAt = &at
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, published)

	reloaded, err := Open(ctx, s, notify.NewBus())
	require.NoError(t, err)
	sub, err := reloaded.Get("STU001")
	require.NoError(t, err)
	assert.NotNil(t, sub.LastEntryAt)
}

func TestRegistry_SuspendAndReinstate(t *testing.T) {
	ctx := context.Background()
	r, _, s := newRegistry(t)
	_, err := r.Register(ctx, model.Subject{ID: "STU001", Name: "Ada", Role: "student"}, "admin", time.Now())
	require.NoError(t, err)

	_, err = r.Update(ctx, "STU001", Reinstatement)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeSubjectNotSuspended, apperr.CodeOf(err))

	_, err = r.Update(ctx, "NOPE", Reinstatement)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	extra, err := store.JSONEntry("campus/extra", []string{"x"})
	require.NoError(t, err)
	applied := false
	suspended, err := r.Update(ctx, "STU001", Suspension("3 violations: after_hours_entry", time.Now()),
		store.Change{Entries: []store.Entry{extra}, Apply: func() { applied = true }})
	require.NoError(t, err)
	assert.True(t, suspended.IsSuspended())
	assert.True(t, applied)
	raw, err := s.Load(ctx, "campus/extra")
	require.NoError(t, err)
	assert.JSONEq(t, `["x"]`, string(raw))

	_, err = r.Update(ctx, "STU001", Suspension("again", time.Now()))
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeAlreadySuspended, apperr.CodeOf(err))

	sub, err := r.Update(ctx, "STU001", Reinstatement)
	require.NoError(t, err)
	assert.Equal(t, model.SubjectActive, sub.Status)
	assert.Nil(t, sub.SuspendedAt)
}

func TestRegistry_FailedSaveLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	_, err := r.Register(ctx, model.Subject{ID: "STU001", Name: "Ada", Role: "student"}, "admin", time.Now())
	require.NoError(t, err)

	r.store = failingStore{Store: r.store}
	applied := false
	at := time.Now()
	_, err = r.Update(ctx, "STU001", func(s *model.Subject) error {
		s.LastExitAt = &at
		return nil
	}, store.Change{Apply: func() { applied = true }})
	assert.Error(t, err)
	assert.False(t, applied)

	sub, err := r.Get("STU001")
	require.NoError(t, err)
	assert.Nil(t, sub.LastExitAt)
}

func TestRegistry_List(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	for _, s := range []model.Subject{
		{ID: "STU002", Name: "B", Role: "student"},
		{ID: "SEC001", Name: "G", Role: "security"},
		{ID: "STU001", Name: "A", Role: "student"},
	} {
		_, err := r.Register(ctx, s, "admin", time.Now())
		require.NoError(t, err)
	}

	students := r.List("student")
	require.Len(t, students, 2)
	assert.Equal(t, "STU001", students[0].ID)
	assert.Len(t, r.List(""), 3)
}
