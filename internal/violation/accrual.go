package violation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"campus-facility-backend/internal/apperr"
	"campus-facility-backend/internal/identity"
	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/notify"
	"campus-facility-backend/internal/store"
)

// DefaultThreshold is the violation count that suspends a subject.
const DefaultThreshold = 3

// Outcome is the result of registering a violation.
type Outcome struct {
	Violation model.ViolationRecord `json:"violation"`
	// Suspended is true only for the violation that caused the transition.
	Suspended bool `json:"suspended"`
}

// SuspendHook runs after a subject has been suspended and persisted.
type SuspendHook func(ctx context.Context, subject model.Subject)

// Accrual counts violations per subject and suspends at the threshold.
type Accrual struct {
	mu        sync.RWMutex
	records   []model.ViolationRecord
	registry  *identity.Registry
	store     store.Store
	bus       *notify.Bus
	threshold int
	newID     func() string
	hooks     []SuspendHook
}

// Open loads the violations aggregate. A threshold below 1 falls back to DefaultThreshold.
func Open(ctx context.Context, s store.Store, bus *notify.Bus, registry *identity.Registry, threshold int, newID func() string) (*Accrual, error) {
	if threshold < 1 {
		log.Printf("violation threshold %d is invalid; defaulting to %d", threshold, DefaultThreshold)
		threshold = DefaultThreshold
	}
	a := &Accrual{
		registry:  registry,
		store:     s,
		bus:       bus,
		threshold: threshold,
		newID:     newID,
	}
	if _, err := store.LoadJSON(ctx, s, store.KeyViolations, &a.records); err != nil {
		return nil, fmt.Errorf("failed to load violations: %w", err)
	}
	return a, nil
}

// Threshold returns the configured suspension threshold.
func (a *Accrual) Threshold() int {
	return a.threshold
}

// OnSuspend registers a hook invoked after each suspension.
func (a *Accrual) OnSuspend(h SuspendHook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, h)
}

// CheckActive is the gate every eligibility-checked action passes first.
func (a *Accrual) CheckActive(subjectID string) error {
	sub, err := a.registry.Get(subjectID)
	if err != nil {
		return err
	}
	if sub.IsSuspended() {
		return apperr.Suspended(sub.ID, sub.SuspensionReason)
	}
	return nil
}

// Pending is a violation prepared for a batch that may also write the subject.
type Pending struct {
	Outcome Outcome
	// Change appends the violation once the batch is committed.
	Change store.Change
	// Suspend is set when this violation reaches the threshold. It must be
	// applied to the subject in the same batch.
	Suspend func(*model.Subject) error
}

// Prepare builds the next violation for subjectID without saving it. Callers
// serialize prepared writes with every other violation writer.
func (a *Accrual) Prepare(subjectID, kind, description string, now time.Time) (Pending, error) {
	sub, err := a.registry.Get(subjectID)
	if err != nil {
		return Pending{}, err
	}

	rec := model.ViolationRecord{
		ID:          a.newID(),
		SubjectID:   subjectID,
		Timestamp:   now,
		Kind:        kind,
		Description: description,
	}
	a.mu.RLock()
	next := append(a.records[:len(a.records):len(a.records)], rec)
	a.mu.RUnlock()

	entry, err := store.JSONEntry(store.KeyViolations, next)
	if err != nil {
		return Pending{}, err
	}
	p := Pending{
		Outcome: Outcome{Violation: rec},
		Change: store.Change{
			Entries: []store.Entry{entry},
			Apply: func() {
				a.mu.Lock()
				a.records = next
				a.mu.Unlock()
			},
		},
	}
	if countFor(next, subjectID) >= a.threshold && !sub.IsSuspended() {
		p.Outcome.Suspended = true
		p.Suspend = identity.Suspension(fmt.Sprintf("%d violations: %s", a.threshold, kind), now)
	}
	return p, nil
}

// Settle runs the suspend hooks for a committed violation that suspended
// sub. It does nothing for a violation below the threshold.
func (a *Accrual) Settle(ctx context.Context, p Pending, sub model.Subject) {
	if !p.Outcome.Suspended {
		return
	}
	log.Printf("Subject %s suspended after %d violations (latest: %s)", sub.ID, a.Count(sub.ID), p.Outcome.Violation.Kind)
	a.RunSuspendHooks(ctx, sub)
}

// RunSuspendHooks notifies the registered hooks that sub was suspended and
// persisted, whatever decided the suspension.
func (a *Accrual) RunSuspendHooks(ctx context.Context, sub model.Subject) {
	a.mu.RLock()
	hooks := a.hooks
	a.mu.RUnlock()
	for _, h := range hooks {
		h(ctx, sub)
	}
}

// RegisterViolation appends a violation and suspends the subject once the
// count reaches the threshold. Suspension is stamped only once.
func (a *Accrual) RegisterViolation(ctx context.Context, subjectID, kind, description string, now time.Time) (Outcome, error) {
	p, err := a.Prepare(subjectID, kind, description, now)
	if err != nil {
		return Outcome{}, err
	}

	var sub model.Subject
	if p.Suspend != nil {
		sub, err = a.registry.Update(ctx, subjectID, p.Suspend, p.Change)
	} else if err = store.Commit(ctx, a.store, p.Change); err != nil {
		err = fmt.Errorf("failed to save violations: %w", err)
	}
	if err != nil {
		return Outcome{}, err
	}

	a.bus.Publish()
	a.Settle(ctx, p, sub)
	return p.Outcome, nil
}

// Count returns the number of violations recorded against subjectID.
func (a *Accrual) Count(subjectID string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return countFor(a.records, subjectID)
}

// Violations returns the subject's violations, oldest first. An empty ID returns all.
func (a *Accrual) Violations(subjectID string) []model.ViolationRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []model.ViolationRecord
	for _, v := range a.records {
		if subjectID == "" || v.SubjectID == subjectID {
			out = append(out, v)
		}
	}
	return out
}

func countFor(records []model.ViolationRecord, subjectID string) int {
	n := 0
	for _, v := range records {
		if v.SubjectID == subjectID {
			n++
		}
	}
	return n
}
