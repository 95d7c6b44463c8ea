package facility

import (
	"context"

	"campus-facility-backend/internal/clock"
	"campus-facility-backend/internal/model"
)

// LibraryEnter opens today's visit.
func (s *Service) LibraryEnter(ctx context.Context, subjectID string) (model.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.violations.CheckActive(subjectID); err != nil {
		return model.SessionRecord{}, err
	}
	now := s.now()
	return s.ledger.OpenSession(ctx, subjectID, SessionLibraryVisit, clock.DateKey(now), now)
}

// LibraryExit closes today's visit. Suspended subjects may still leave.
func (s *Service) LibraryExit(ctx context.Context, subjectID string) (model.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.subjects.Get(subjectID); err != nil {
		return model.SessionRecord{}, err
	}
	now := s.now()
	return s.ledger.CloseSession(ctx, subjectID, SessionLibraryVisit, clock.DateKey(now), now)
}

// LibraryVisits lists visits for a day, or every day when date is empty.
func (s *Service) LibraryVisits(subjectID, date string) []model.SessionRecord {
	return s.ledger.Sessions(ledgerFilter(subjectID, SessionLibraryVisit, date))
}

// Borrow lends an item for the configured loan period.
func (s *Service) Borrow(ctx context.Context, subjectID, itemID string) (model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.violations.CheckActive(subjectID); err != nil {
		return model.Loan{}, err
	}
	return s.allocator.Borrow(ctx, subjectID, itemID, s.now(), s.opts.LoanPeriod)
}

// Return closes a loan and charges the configured daily fine when late.
// Returns are accepted from suspended subjects.
func (s *Service) Return(ctx context.Context, loanID string) (model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.allocator.Return(ctx, loanID, s.now(), s.opts.DailyFine)
}
