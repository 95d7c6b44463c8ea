package facility

import (
	"context"
	"sort"

	"campus-facility-backend/internal/apperr"
	"campus-facility-backend/internal/clock"
	"campus-facility-backend/internal/ledger"
	"campus-facility-backend/internal/model"
)

// CurrentMeal resolves the meal windows against the current time.
func (s *Service) CurrentMeal() clock.Resolution {
	return clock.Resolve(s.now(), s.opts.MealWindows)
}

// ServeMeal records one meal per subject, meal type and day.
func (s *Service) ServeMeal(ctx context.Context, subjectID, mealType, servedBy string) (model.ActionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.violations.CheckActive(subjectID); err != nil {
		return model.ActionRecord{}, err
	}

	window, ok := clock.Find(s.opts.MealWindows, mealType)
	if !ok {
		return model.ActionRecord{}, apperr.NotFound(apperr.CodeUnknownMeal, "unknown meal type %q", mealType)
	}

	now := s.now()
	period := clock.DateKey(now)
	if s.ledger.HasOccurred(subjectID, mealType, period) {
		return model.ActionRecord{}, apperr.AlreadyInProgress(apperr.CodeMealAlreadyServed,
			"subject %s already had %s on %s", subjectID, mealType, period)
	}
	if !window.Contains(clock.MinuteOfDay(now)) {
		return model.ActionRecord{}, apperr.Unavailable(apperr.CodeOutsideMealWindow,
			"%s is served %s-%s", mealType, clock.FormatMinute(window.Start), clock.FormatMinute(window.End))
	}

	meta := map[string]string{"meal_type": mealType}
	if servedBy != "" {
		meta["served_by"] = servedBy
	}
	return s.ledger.Record(ctx, subjectID, mealType, period, meta, now)
}

// Meals lists meal records, newest first. Empty arguments match everything.
func (s *Service) Meals(subjectID, date string) []model.ActionRecord {
	var out []model.ActionRecord
	for _, w := range s.opts.MealWindows {
		out = append(out, s.ledger.Actions(ledgerFilter(subjectID, w.Kind, date))...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func ledgerFilter(subjectID, kind, period string) ledger.Filter {
	return ledger.Filter{SubjectID: subjectID, Kind: kind, PeriodKey: period}
}
