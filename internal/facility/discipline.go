package facility

import (
	"context"

	"campus-facility-backend/internal/discipline"
	"campus-facility-backend/internal/model"
)

// RegisterSubject creates or updates a subject.
func (s *Service) RegisterSubject(ctx context.Context, sub model.Subject, registeredBy string) (model.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.subjects.Register(ctx, sub, registeredBy, s.now())
}

// FileComplaint opens a discipline case against a subject.
func (s *Service) FileComplaint(ctx context.Context, c model.Complaint, reportedBy string) (model.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.office.FileComplaint(ctx, c, reportedBy, s.now())
}

// ReviewComplaint puts a pending complaint under review.
func (s *Service) ReviewComplaint(ctx context.Context, complaintID, note string) (model.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.office.Review(ctx, complaintID, note, s.now())
}

// AddComplaintNote appends a note to a complaint.
func (s *Service) AddComplaintNote(ctx context.Context, complaintID, note string) (model.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.office.AddNote(ctx, complaintID, note, s.now())
}

// DismissComplaint closes an open complaint without action.
func (s *Service) DismissComplaint(ctx context.Context, complaintID, reason string) (model.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.office.Dismiss(ctx, complaintID, reason, s.now())
}

// TakeAction records a sanction on a complaint. A new suspension runs the
// suspend hooks like a violation suspension does.
func (s *Service) TakeAction(ctx context.Context, complaintID string, in discipline.ActionInput, issuedBy string) (discipline.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.office.TakeAction(ctx, complaintID, in, issuedBy, s.now())
	if err != nil {
		return discipline.Result{}, err
	}
	if res.Suspended {
		s.violations.RunSuspendHooks(ctx, *res.Subject)
	}
	return res, nil
}

// FileAppeal contests a disciplinary action.
func (s *Service) FileAppeal(ctx context.Context, actionID, reason string) (model.DisciplinaryAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.office.FileAppeal(ctx, actionID, reason, s.now())
}

// DecideAppeal upholds or overturns a pending appeal.
func (s *Service) DecideAppeal(ctx context.Context, actionID string, decision model.AppealStatus, notes, decidedBy string) (discipline.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.office.DecideAppeal(ctx, actionID, decision, notes, decidedBy, s.now())
}

// Reinstate lifts a suspension through a recorded reinstatement action.
// Violation history is kept.
func (s *Service) Reinstate(ctx context.Context, subjectID, reason, issuedBy string) (discipline.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.office.Reinstate(ctx, subjectID, reason, issuedBy, s.now())
}

// DisciplinarySummary reports a subject's standing, violations included.
func (s *Service) DisciplinarySummary(subjectID string) (model.DisciplinarySummary, error) {
	sub, err := s.subjects.Get(subjectID)
	if err != nil {
		return model.DisciplinarySummary{}, err
	}
	return s.office.Summary(sub, s.violations.Count(subjectID), s.now()), nil
}
