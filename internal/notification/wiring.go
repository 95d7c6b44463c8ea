package notification

import (
	"context"
	"fmt"

	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/notify"
)

// Dispatcher accepts jobs; *WorkerPool implements it.
type Dispatcher interface {
	Dispatch(job Job) bool
}

// ForwardChanges relays every bus publish as a campus.changed job.
// The returned function unsubscribes.
func ForwardChanges(bus *notify.Bus, d Dispatcher) func() {
	return bus.Subscribe(func() {
		d.Dispatch(Job{Event: EventChanged})
	})
}

// SuspensionAlert builds a hook that alerts the discipline office.
func SuspensionAlert(d Dispatcher) func(ctx context.Context, s model.Subject) {
	return func(_ context.Context, s model.Subject) {
		d.Dispatch(Job{
			Event: EventSuspended,
			Role:  model.RoleDiscipline,
			Title: "Subject suspended",
			Body:  fmt.Sprintf("%s (%s): %s", s.Name, s.ID, s.SuspensionReason),
			Data:  map[string]string{"subject_id": s.ID, "reason": s.SuspensionReason},
		})
	}
}
