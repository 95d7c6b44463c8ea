package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-facility-backend/internal/apperr"
	"campus-facility-backend/internal/notify"
	"campus-facility-backend/internal/store"
)

type failingStore struct {
	store.Store
}

func (failingStore) Save(context.Context, string, []byte) error {
	return errors.New("write refused")
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("rec-%d", n)
	}
}

func newLedger(t *testing.T) (*Ledger, *int) {
	t.Helper()
	bus := notify.NewBus()
	published := 0
	bus.Subscribe(func() { published++ })
	l, err := Open(context.Background(), store.NewMemoryStore(), bus, seqIDs())
	require.NoError(t, err)
	return l, &published
}

func TestLedger_RecordAndHasOccurred(t *testing.T) {
	ctx := context.Background()
	l, published := newLedger(t)
	now := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)

	assert.False(t, l.HasOccurred("STU001", "breakfast", "2025-03-10"))

	rec, err := l.Record(ctx, "STU001", "breakfast", "2025-03-10", map[string]string{"served_by": "CAFE01"}, now)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, 1, *published)

	testCases := []struct {
		name     string
		subject  string
		kind     string
		period   string
		expected bool
	}{
		{name: "same triple", subject: "STU001", kind: "breakfast", period: "2025-03-10", expected: true},
		{name: "other meal", subject: "STU001", kind: "lunch", period: "2025-03-10", expected: false},
		{name: "other day", subject: "STU001", kind: "breakfast", period: "2025-03-11", expected: false},
		{name: "other subject", subject: "STU002", kind: "breakfast", period: "2025-03-10", expected: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, l.HasOccurred(tc.subject, tc.kind, tc.period))
		})
	}

	// Record is unconditional.
	_, err = l.Record(ctx, "STU001", "breakfast", "2025-03-10", nil, now)
	require.NoError(t, err)
	assert.Len(t, l.Actions(Filter{SubjectID: "STU001"}), 2)
}

func TestLedger_Sessions(t *testing.T) {
	ctx := context.Background()
	l, published := newLedger(t)
	entry := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	_, err := l.CloseSession(ctx, "STU001", "library-visit", "2025-03-10", entry)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeNoOpenSession, apperr.CodeOf(err))

	sess, err := l.OpenSession(ctx, "STU001", "library-visit", "2025-03-10", entry)
	require.NoError(t, err)
	assert.True(t, sess.IsOpen())

	_, err = l.OpenSession(ctx, "STU001", "library-visit", "2025-03-10", entry.Add(time.Minute))
	assert.Equal(t, apperr.KindAlreadyInProgress, apperr.KindOf(err))

	// Different kind or period is independent.
	_, err = l.OpenSession(ctx, "STU001", "library-visit", "2025-03-11", entry)
	require.NoError(t, err)

	closed, err := l.CloseSession(ctx, "STU001", "library-visit", "2025-03-10", entry.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, closed.IsOpen())
	assert.Equal(t, time.Hour, closed.Duration())

	// A new visit may start once the previous one closed.
	_, err = l.OpenSession(ctx, "STU001", "library-visit", "2025-03-10", entry.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Len(t, l.Sessions(Filter{PeriodKey: "2025-03-10"}), 2)
	assert.Equal(t, 4, *published)
}

func TestLedger_CloseStale(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	at := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	_, err := l.OpenSession(ctx, "STU001", "library-visit", "2025-03-09", at)
	require.NoError(t, err)
	_, err = l.OpenSession(ctx, "STU002", "library-visit", "2025-03-10", at)
	require.NoError(t, err)

	n, err := l.CloseStale(ctx, "library-visit", "2025-03-10", at)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, open := l.FindOpenSession("STU001", "library-visit", "2025-03-09")
	assert.False(t, open)
	_, open = l.FindOpenSession("STU002", "library-visit", "2025-03-10")
	assert.True(t, open)

	stale := l.Sessions(Filter{SubjectID: "STU001"})
	require.Len(t, stale, 1)
	assert.True(t, stale[0].AutoClosed)

	n, err = l.CloseStale(ctx, "library-visit", "2025-03-10", at)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLedger_SaveFailureKeepsLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	l, published := newLedger(t)
	l.store = failingStore{Store: l.store}

	_, err := l.Record(ctx, "STU001", "lunch", "2025-03-10", nil, time.Now())
	assert.Error(t, err)
	assert.False(t, l.HasOccurred("STU001", "lunch", "2025-03-10"))

	_, err = l.OpenSession(ctx, "STU001", "library-visit", "2025-03-10", time.Now())
	assert.Error(t, err)
	_, open := l.FindOpenSession("STU001", "library-visit", "2025-03-10")
	assert.False(t, open)
	assert.Zero(t, *published)
}

func TestLedger_Reload(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	l, err := Open(ctx, s, notify.NewBus(), seqIDs())
	require.NoError(t, err)

	_, err = l.Record(ctx, "STU001", "dinner", "2025-03-10", nil, time.Now())
	require.NoError(t, err)
	_, err = l.OpenSession(ctx, "STU001", "library-visit", "2025-03-10", time.Now())
	require.NoError(t, err)

	reloaded, err := Open(ctx, s, notify.NewBus(), seqIDs())
	require.NoError(t, err)
	assert.True(t, reloaded.HasOccurred("STU001", "dinner", "2025-03-10"))
	_, open := reloaded.FindOpenSession("STU001", "library-visit", "2025-03-10")
	assert.True(t, open)
}

func TestLedger_PrepareRecordIsInvisibleUntilApplied(t *testing.T) {
	ctx := context.Background()
	l, published := newLedger(t)

	rec, change, err := l.PrepareRecord("STU001", "gate.entry", "2025-03-01", nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "rec-1", rec.ID)
	assert.False(t, l.HasOccurred("STU001", "gate.entry", "2025-03-01"))

	require.NoError(t, store.Commit(ctx, l.store, change))
	assert.True(t, l.HasOccurred("STU001", "gate.entry", "2025-03-01"))
	assert.Zero(t, *published)

	var saved []map[string]any
	found, err := store.LoadJSON(ctx, l.store, store.KeyActions, &saved)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, saved, 1)
}
