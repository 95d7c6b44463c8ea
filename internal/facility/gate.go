package facility

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"campus-facility-backend/internal/clock"
	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/store"
	"campus-facility-backend/internal/violation"
)

// GateResult is a permitted gate passage. Violation is set when the passage
// happened outside operating hours.
type GateResult struct {
	Action        model.ActionRecord     `json:"action"`
	Violation     *model.ViolationRecord `json:"violation,omitempty"`
	Suspended     bool                   `json:"suspended"`
	PersonalItems []model.PersonalItem   `json:"personal_items,omitempty"`
}

// GateEntry records an entry scan. Listed personal items are checked back in.
func (s *Service) GateEntry(ctx context.Context, subjectID string, itemIDs ...string) (GateResult, error) {
	return s.gatePass(ctx, subjectID, ActionGateEntry, model.ViolationAfterHoursEntry, "entry", itemIDs)
}

// GateExit records an exit scan. Listed personal items are checked out.
func (s *Service) GateExit(ctx context.Context, subjectID string, itemIDs ...string) (GateResult, error) {
	return s.gatePass(ctx, subjectID, ActionGateExit, model.ViolationAfterHoursExit, "exit", itemIDs)
}

// gatePass saves the action, the subject's last entry or exit, the item
// movements and any after-hours violation in one batch, then publishes once.
func (s *Service) gatePass(ctx context.Context, subjectID, action, violationKind, direction string, itemIDs []string) (GateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.violations.CheckActive(subjectID); err != nil {
		return GateResult{}, err
	}

	now := s.now()
	within := clock.IsWithinOperatingHours(now, s.opts.GateHours)
	meta := map[string]string{
		"session_kind":    SessionGate,
		"direction":       direction,
		"within_hours":    strconv.FormatBool(within),
		"operating_hours": s.opts.GateHours.String(),
	}
	if len(itemIDs) > 0 {
		meta["personal_items"] = strings.Join(itemIDs, ",")
	}

	items, itemChange, err := s.belongings.PrepareGate(subjectID, itemIDs, action == ActionGateExit, now)
	if err != nil {
		return GateResult{}, err
	}
	rec, actionChange, err := s.ledger.PrepareRecord(subjectID, action, clock.DateKey(now), meta, now)
	if err != nil {
		return GateResult{}, err
	}
	changes := []store.Change{actionChange, itemChange}

	update := func(sub *model.Subject) error {
		if action == ActionGateEntry {
			sub.LastEntryAt = &now
		} else {
			sub.LastExitAt = &now
		}
		return nil
	}

	var pending violation.Pending
	if !within {
		desc := fmt.Sprintf("After-hours %s at %s", direction, now.Format("15:04"))
		if pending, err = s.violations.Prepare(subjectID, violationKind, desc, now); err != nil {
			return GateResult{}, err
		}
		changes = append(changes, pending.Change)
		if suspend := pending.Suspend; suspend != nil {
			touch := update
			update = func(sub *model.Subject) error {
				if err := touch(sub); err != nil {
					return err
				}
				return suspend(sub)
			}
		}
	}

	sub, err := s.subjects.Update(ctx, subjectID, update, changes...)
	if err != nil {
		return GateResult{}, err
	}
	s.bus.Publish()
	s.violations.Settle(ctx, pending, sub)

	result := GateResult{Action: rec, PersonalItems: items}
	if !within {
		v := pending.Outcome.Violation
		result.Violation = &v
		result.Suspended = pending.Outcome.Suspended
	}
	return result, nil
}

// GatePasses lists gate actions for a day, or every day when date is empty.
func (s *Service) GatePasses(subjectID, date string) []model.ActionRecord {
	var out []model.ActionRecord
	for _, kind := range []string{ActionGateEntry, ActionGateExit} {
		out = append(out, s.ledger.Actions(ledgerFilter(subjectID, kind, date))...)
	}
	return out
}
