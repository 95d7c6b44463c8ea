package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"campus-facility-backend/internal/apperr"
	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/notify"
	"campus-facility-backend/internal/store"
)

// Filter narrows ledger queries. Empty fields match everything.
type Filter struct {
	SubjectID string
	Kind      string
	PeriodKey string
}

func (f Filter) match(subjectID, kind, period string) bool {
	return (f.SubjectID == "" || f.SubjectID == subjectID) &&
		(f.Kind == "" || f.Kind == kind) &&
		(f.PeriodKey == "" || f.PeriodKey == period)
}

// Ledger is the append-only record of actions and entry/exit sessions.
type Ledger struct {
	mu       sync.RWMutex
	actions  []model.ActionRecord
	sessions []model.SessionRecord
	store    store.Store
	bus      *notify.Bus
	newID    func() string
}

// Open loads both ledger aggregates from s. newID generates record IDs.
func Open(ctx context.Context, s store.Store, bus *notify.Bus, newID func() string) (*Ledger, error) {
	l := &Ledger{store: s, bus: bus, newID: newID}
	if _, err := store.LoadJSON(ctx, s, store.KeyActions, &l.actions); err != nil {
		return nil, fmt.Errorf("failed to load actions: %w", err)
	}
	if _, err := store.LoadJSON(ctx, s, store.KeySessions, &l.sessions); err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	return l, nil
}

// HasOccurred reports whether an action with this triple was ever recorded.
func (l *Ledger) HasOccurred(subjectID, actionKind, periodKey string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, a := range l.actions {
		if a.SubjectID == subjectID && a.ActionKind == actionKind && a.PeriodKey == periodKey {
			return true
		}
	}
	return false
}

// Record appends an action unconditionally. Callers enforce once-per-period
// with HasOccurred.
func (l *Ledger) Record(ctx context.Context, subjectID, actionKind, periodKey string, metadata map[string]string, at time.Time) (model.ActionRecord, error) {
	rec := l.newAction(subjectID, actionKind, periodKey, metadata, at)

	l.mu.Lock()
	next := append(l.actions[:len(l.actions):len(l.actions)], rec)
	if err := store.SaveJSON(ctx, l.store, store.KeyActions, next); err != nil {
		l.mu.Unlock()
		return model.ActionRecord{}, fmt.Errorf("failed to save actions: %w", err)
	}
	l.actions = next
	l.mu.Unlock()

	l.bus.Publish()
	return rec, nil
}

// PrepareRecord builds an action for a batch that also writes other
// aggregates. The action becomes visible only when the change is applied,
// and nothing is published; the committing caller notifies the bus once.
func (l *Ledger) PrepareRecord(subjectID, actionKind, periodKey string, metadata map[string]string, at time.Time) (model.ActionRecord, store.Change, error) {
	rec := l.newAction(subjectID, actionKind, periodKey, metadata, at)

	l.mu.RLock()
	next := append(l.actions[:len(l.actions):len(l.actions)], rec)
	l.mu.RUnlock()

	entry, err := store.JSONEntry(store.KeyActions, next)
	if err != nil {
		return model.ActionRecord{}, store.Change{}, err
	}
	return rec, store.Change{
		Entries: []store.Entry{entry},
		Apply: func() {
			l.mu.Lock()
			l.actions = next
			l.mu.Unlock()
		},
	}, nil
}

func (l *Ledger) newAction(subjectID, actionKind, periodKey string, metadata map[string]string, at time.Time) model.ActionRecord {
	return model.ActionRecord{
		ID:         l.newID(),
		SubjectID:  subjectID,
		ActionKind: actionKind,
		PeriodKey:  periodKey,
		Timestamp:  at,
		Metadata:   metadata,
	}
}

// Actions returns matching action records in insertion order.
func (l *Ledger) Actions(f Filter) []model.ActionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.ActionRecord
	for _, a := range l.actions {
		if f.match(a.SubjectID, a.ActionKind, a.PeriodKey) {
			out = append(out, a)
		}
	}
	return out
}

// OpenSession starts a session. Only one may be open per (subject, kind, period).
func (l *Ledger) OpenSession(ctx context.Context, subjectID, sessionKind, periodKey string, at time.Time) (model.SessionRecord, error) {
	l.mu.Lock()
	if _, ok := l.findOpenLocked(subjectID, sessionKind, periodKey); ok {
		l.mu.Unlock()
		return model.SessionRecord{}, apperr.AlreadyInProgress(apperr.CodeSessionAlreadyOpen,
			"subject %s already has an open %s session for %s", subjectID, sessionKind, periodKey)
	}

	sess := model.SessionRecord{
		ID:          l.newID(),
		SubjectID:   subjectID,
		SessionKind: sessionKind,
		PeriodKey:   periodKey,
		EntryAt:     at,
	}
	next := append(l.sessions[:len(l.sessions):len(l.sessions)], sess)
	if err := l.saveSessionsLocked(ctx, next); err != nil {
		l.mu.Unlock()
		return model.SessionRecord{}, err
	}
	l.mu.Unlock()

	l.bus.Publish()
	return sess, nil
}

// CloseSession stamps the exit time on the open session.
func (l *Ledger) CloseSession(ctx context.Context, subjectID, sessionKind, periodKey string, at time.Time) (model.SessionRecord, error) {
	l.mu.Lock()
	idx, ok := l.findOpenLocked(subjectID, sessionKind, periodKey)
	if !ok {
		l.mu.Unlock()
		return model.SessionRecord{}, apperr.InvalidState(apperr.CodeNoOpenSession,
			"subject %s has no open %s session for %s", subjectID, sessionKind, periodKey)
	}

	next := append([]model.SessionRecord(nil), l.sessions...)
	next[idx].ExitAt = &at
	if err := l.saveSessionsLocked(ctx, next); err != nil {
		l.mu.Unlock()
		return model.SessionRecord{}, err
	}
	sess := next[idx]
	l.mu.Unlock()

	l.bus.Publish()
	return sess, nil
}

// FindOpenSession returns the open session for the triple, if any.
func (l *Ledger) FindOpenSession(subjectID, sessionKind, periodKey string) (model.SessionRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx, ok := l.findOpenLocked(subjectID, sessionKind, periodKey)
	if !ok {
		return model.SessionRecord{}, false
	}
	return l.sessions[idx], true
}

// Sessions returns matching sessions in insertion order.
func (l *Ledger) Sessions(f Filter) []model.SessionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.SessionRecord
	for _, s := range l.sessions {
		if f.match(s.SubjectID, s.SessionKind, s.PeriodKey) {
			out = append(out, s)
		}
	}
	return out
}

// CloseStale closes every open session of kind whose period sorts before
// beforePeriod. Date period keys sort chronologically.
func (l *Ledger) CloseStale(ctx context.Context, sessionKind, beforePeriod string, at time.Time) (int, error) {
	l.mu.Lock()
	next := append([]model.SessionRecord(nil), l.sessions...)
	closed := 0
	for i := range next {
		if next[i].SessionKind == sessionKind && next[i].IsOpen() && next[i].PeriodKey < beforePeriod {
			next[i].ExitAt = &at
			next[i].AutoClosed = true
			closed++
		}
	}
	if closed == 0 {
		l.mu.Unlock()
		return 0, nil
	}
	if err := l.saveSessionsLocked(ctx, next); err != nil {
		l.mu.Unlock()
		return 0, err
	}
	l.mu.Unlock()

	l.bus.Publish()
	return closed, nil
}

func (l *Ledger) findOpenLocked(subjectID, sessionKind, periodKey string) (int, bool) {
	for i := len(l.sessions) - 1; i >= 0; i-- {
		s := l.sessions[i]
		if s.SubjectID == subjectID && s.SessionKind == sessionKind && s.PeriodKey == periodKey && s.IsOpen() {
			return i, true
		}
	}
	return -1, false
}

func (l *Ledger) saveSessionsLocked(ctx context.Context, next []model.SessionRecord) error {
	if err := store.SaveJSON(ctx, l.store, store.KeySessions, next); err != nil {
		return fmt.Errorf("failed to save sessions: %w", err)
	}
	l.sessions = next
	return nil
}
