package discipline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"campus-facility-backend/internal/apperr"
	"campus-facility-backend/internal/identity"
	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/notify"
	"campus-facility-backend/internal/store"
)

var validate = validator.New()

// ActionInput describes a sanction decided on a complaint. Reinstatements are
// issued through Reinstate and appeal decisions only.
type ActionInput struct {
	Type        model.ActionType `json:"type" validate:"required,oneof=warning probation suspension dismissal"`
	Description string           `json:"description" validate:"required,max=2000"`
	EndAt       *time.Time       `json:"end_at,omitempty"`
	Appealable  bool             `json:"appealable"`
}

// Result is a recorded action. Subject is set when the action changed the
// subject's eligibility in the same batch; Suspended marks a new suspension.
type Result struct {
	Action    model.DisciplinaryAction `json:"action"`
	Subject   *model.Subject           `json:"subject,omitempty"`
	Suspended bool                     `json:"suspended"`
}

// Filter narrows complaint queries. Empty fields match everything.
type Filter struct {
	SubjectID string
	Status    model.ComplaintStatus
	Source    model.ComplaintSource
	Severity  model.ComplaintSeverity
}

func (f Filter) match(c model.Complaint) bool {
	return (f.SubjectID == "" || f.SubjectID == c.SubjectID) &&
		(f.Status == "" || f.Status == c.Status) &&
		(f.Source == "" || f.Source == c.Source) &&
		(f.Severity == "" || f.Severity == c.Severity)
}

// Office owns discipline cases: complaints and the actions decided on them.
// Suspensions and reinstatements are saved with the subject in one batch.
type Office struct {
	wmu        sync.Mutex
	mu         sync.RWMutex
	complaints []model.Complaint
	actions    []model.DisciplinaryAction

	registry *identity.Registry
	store    store.Store
	bus      *notify.Bus
	newID    func() string
}

// Open loads the complaints and actions aggregates from s.
func Open(ctx context.Context, s store.Store, bus *notify.Bus, registry *identity.Registry, newID func() string) (*Office, error) {
	o := &Office{registry: registry, store: s, bus: bus, newID: newID}
	if _, err := store.LoadJSON(ctx, s, store.KeyComplaints, &o.complaints); err != nil {
		return nil, fmt.Errorf("failed to load complaints: %w", err)
	}
	if _, err := store.LoadJSON(ctx, s, store.KeyDisciplinaryActions, &o.actions); err != nil {
		return nil, fmt.Errorf("failed to load disciplinary actions: %w", err)
	}
	return o, nil
}

// FileComplaint opens a pending case against a registered subject.
func (o *Office) FileComplaint(ctx context.Context, c model.Complaint, reportedBy string, now time.Time) (model.Complaint, error) {
	c.SubjectID = strings.TrimSpace(c.SubjectID)
	c.Source = model.ComplaintSource(strings.ToLower(string(c.Source)))
	c.Severity = model.ComplaintSeverity(strings.ToLower(string(c.Severity)))
	if err := validate.Struct(c); err != nil {
		return model.Complaint{}, err
	}
	if !o.registry.Exists(c.SubjectID) {
		return model.Complaint{}, apperr.NotFound(apperr.CodeSubjectNotFound, "subject %s not found", c.SubjectID)
	}

	o.wmu.Lock()
	defer o.wmu.Unlock()

	c.ID = o.newID()
	c.Status = model.ComplaintPending
	c.Notes = nil
	c.ReportedBy = reportedBy
	c.ReportedAt = now
	c.UpdatedAt = now

	complaints, actions := o.snapshot()
	complaints = append(complaints, c)
	if _, err := o.commit(ctx, complaints, actions, "", nil); err != nil {
		return model.Complaint{}, err
	}
	return c, nil
}

// Review moves a pending complaint under review.
func (o *Office) Review(ctx context.Context, complaintID, note string, now time.Time) (model.Complaint, error) {
	return o.updateComplaint(ctx, complaintID, now, func(c *model.Complaint) error {
		if c.Status != model.ComplaintPending {
			return apperr.InvalidState(apperr.CodeComplaintClosed, "complaint %s is %s, not pending", c.ID, c.Status)
		}
		c.Status = model.ComplaintUnderReview
		addNote(c, note)
		return nil
	})
}

// AddNote appends a note to a complaint in any status.
func (o *Office) AddNote(ctx context.Context, complaintID, note string, now time.Time) (model.Complaint, error) {
	return o.updateComplaint(ctx, complaintID, now, func(c *model.Complaint) error {
		addNote(c, note)
		return nil
	})
}

// Dismiss closes an open complaint without action.
func (o *Office) Dismiss(ctx context.Context, complaintID, reason string, now time.Time) (model.Complaint, error) {
	return o.updateComplaint(ctx, complaintID, now, func(c *model.Complaint) error {
		if !c.Status.IsOpen() {
			return apperr.InvalidState(apperr.CodeComplaintClosed, "complaint %s is already %s", c.ID, c.Status)
		}
		c.Status = model.ComplaintDismissed
		addNote(c, "Dismissed: "+reason)
		return nil
	})
}

// TakeAction records a sanction on an open complaint and closes it. A
// suspension or dismissal suspends the subject in the same batch unless they
// are already suspended.
func (o *Office) TakeAction(ctx context.Context, complaintID string, in ActionInput, issuedBy string, now time.Time) (Result, error) {
	in.Type = model.ActionType(strings.ToLower(string(in.Type)))
	if err := validate.Struct(in); err != nil {
		return Result{}, err
	}

	o.wmu.Lock()
	defer o.wmu.Unlock()

	complaints, actions := o.snapshot()
	ci := indexOfComplaint(complaints, complaintID)
	if ci < 0 {
		return Result{}, apperr.NotFound(apperr.CodeComplaintNotFound, "complaint %s not found", complaintID)
	}
	c := &complaints[ci]
	if !c.Status.IsOpen() {
		return Result{}, apperr.InvalidState(apperr.CodeComplaintClosed, "complaint %s is already %s", c.ID, c.Status)
	}
	sub, err := o.registry.Get(c.SubjectID)
	if err != nil {
		return Result{}, err
	}

	action := model.DisciplinaryAction{
		ID:          o.newID(),
		ComplaintID: c.ID,
		SubjectID:   c.SubjectID,
		Type:        in.Type,
		Description: in.Description,
		StartAt:     now,
		EndAt:       in.EndAt,
		IssuedBy:    issuedBy,
		IssuedAt:    now,
		Appealable:  in.Appealable,
	}
	c.Status = model.ComplaintActionTaken
	c.UpdatedAt = now
	actions = append(actions, action)

	var fn func(*model.Subject) error
	if in.Type.Suspends() && !sub.IsSuspended() {
		fn = identity.Suspension(fmt.Sprintf("%s: %s", in.Type, in.Description), now)
	}
	return o.commit(ctx, complaints, actions, c.SubjectID, fn)
}

// FileAppeal contests an appealable action. The complaint is marked appealed.
func (o *Office) FileAppeal(ctx context.Context, actionID, reason string, now time.Time) (model.DisciplinaryAction, error) {
	o.wmu.Lock()
	defer o.wmu.Unlock()

	complaints, actions := o.snapshot()
	ai := indexOfAction(actions, actionID)
	if ai < 0 {
		return model.DisciplinaryAction{}, apperr.NotFound(apperr.CodeActionNotFound, "disciplinary action %s not found", actionID)
	}
	a := &actions[ai]
	if !a.Appealable {
		return model.DisciplinaryAction{}, apperr.InvalidState(apperr.CodeNotAppealable, "disciplinary action %s cannot be appealed", a.ID)
	}
	if a.Appeal != nil {
		return model.DisciplinaryAction{}, apperr.InvalidState(apperr.CodeAlreadyAppealed, "disciplinary action %s was already appealed", a.ID)
	}

	a.Appeal = &model.Appeal{Reason: reason, FiledAt: now, Status: model.AppealPending}
	if ci := indexOfComplaint(complaints, a.ComplaintID); ci >= 0 {
		complaints[ci].Status = model.ComplaintAppealed
		complaints[ci].UpdatedAt = now
	}
	if _, err := o.commit(ctx, complaints, actions, "", nil); err != nil {
		return model.DisciplinaryAction{}, err
	}
	return *a, nil
}

// DecideAppeal upholds or overturns a pending appeal. Overturning a
// suspension or dismissal ends it and, when the subject is still suspended,
// records a reinstatement that lifts the suspension in the same batch.
func (o *Office) DecideAppeal(ctx context.Context, actionID string, decision model.AppealStatus, notes, decidedBy string, now time.Time) (Result, error) {
	if err := validate.Var(string(decision), "required,oneof=upheld overturned"); err != nil {
		return Result{}, err
	}

	o.wmu.Lock()
	defer o.wmu.Unlock()

	complaints, actions := o.snapshot()
	ai := indexOfAction(actions, actionID)
	if ai < 0 {
		return Result{}, apperr.NotFound(apperr.CodeActionNotFound, "disciplinary action %s not found", actionID)
	}
	a := &actions[ai]
	if a.Appeal == nil || a.Appeal.Status != model.AppealPending {
		return Result{}, apperr.InvalidState(apperr.CodeNoPendingAppeal, "disciplinary action %s has no pending appeal", a.ID)
	}

	appeal := *a.Appeal
	appeal.Status = decision
	appeal.DecidedAt = &now
	appeal.DecidedBy = decidedBy
	appeal.Notes = notes
	a.Appeal = &appeal

	status := model.ComplaintActionTaken
	if decision == model.AppealOverturned {
		status = model.ComplaintDismissed
	}
	if ci := indexOfComplaint(complaints, a.ComplaintID); ci >= 0 {
		complaints[ci].Status = status
		complaints[ci].UpdatedAt = now
	}
	decided := *a

	var fn func(*model.Subject) error
	if decision == model.AppealOverturned && a.Type.Suspends() {
		a.EndAt = &now
		decided = *a
		sub, err := o.registry.Get(a.SubjectID)
		if err != nil {
			return Result{}, err
		}
		if sub.IsSuspended() {
			actions = append(actions, o.reinstatement(a.SubjectID, fmt.Sprintf("Appeal on %s overturned", a.ID), decidedBy, now))
			fn = identity.Reinstatement
		}
	}

	res, err := o.commit(ctx, complaints, actions, a.SubjectID, fn)
	if err != nil {
		return Result{}, err
	}
	// The decided action is the result even when a reinstatement followed it.
	res.Action = decided
	return res, nil
}

// Reinstate lifts a suspension through a recorded reinstatement. Open
// suspensions and dismissals of the subject are ended at now.
func (o *Office) Reinstate(ctx context.Context, subjectID, reason, issuedBy string, now time.Time) (Result, error) {
	o.wmu.Lock()
	defer o.wmu.Unlock()

	sub, err := o.registry.Get(subjectID)
	if err != nil {
		return Result{}, err
	}
	if !sub.IsSuspended() {
		return Result{}, apperr.InvalidState(apperr.CodeSubjectNotSuspended, "subject %s is not suspended", subjectID)
	}
	if strings.TrimSpace(reason) == "" {
		reason = "Reinstated by the discipline office"
	}

	complaints, actions := o.snapshot()
	for i := range actions {
		a := &actions[i]
		if a.SubjectID == subjectID && a.Type.Suspends() && a.ActiveAt(now) {
			a.EndAt = &now
		}
	}
	actions = append(actions, o.reinstatement(subjectID, reason, issuedBy, now))
	return o.commit(ctx, complaints, actions, subjectID, identity.Reinstatement)
}

// Complaint returns a copy of the complaint.
func (o *Office) Complaint(complaintID string) (model.Complaint, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	i := indexOfComplaint(o.complaints, complaintID)
	if i < 0 {
		return model.Complaint{}, apperr.NotFound(apperr.CodeComplaintNotFound, "complaint %s not found", complaintID)
	}
	return cloneComplaints(o.complaints[i : i+1])[0], nil
}

// Complaints returns matching complaints, newest first.
func (o *Office) Complaints(f Filter) []model.Complaint {
	o.mu.RLock()
	var out []model.Complaint
	for i := len(o.complaints) - 1; i >= 0; i-- {
		if f.match(o.complaints[i]) {
			out = append(out, o.complaints[i])
		}
	}
	o.mu.RUnlock()

	out = cloneComplaints(out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReportedAt.After(out[j].ReportedAt) })
	return out
}

// Action returns a copy of the disciplinary action.
func (o *Office) Action(actionID string) (model.DisciplinaryAction, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	i := indexOfAction(o.actions, actionID)
	if i < 0 {
		return model.DisciplinaryAction{}, apperr.NotFound(apperr.CodeActionNotFound, "disciplinary action %s not found", actionID)
	}
	return cloneActions(o.actions[i : i+1])[0], nil
}

// Actions lists a subject's actions, newest first. An empty ID lists all.
func (o *Office) Actions(subjectID string) []model.DisciplinaryAction {
	o.mu.RLock()
	var out []model.DisciplinaryAction
	for i := len(o.actions) - 1; i >= 0; i-- {
		if subjectID == "" || o.actions[i].SubjectID == subjectID {
			out = append(out, o.actions[i])
		}
	}
	o.mu.RUnlock()

	out = cloneActions(out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out
}

// Summary reports the subject's standing at now. violations is the count
// kept by the violation accrual.
func (o *Office) Summary(sub model.Subject, violations int, now time.Time) model.DisciplinarySummary {
	out := model.DisciplinarySummary{
		SubjectID:  sub.ID,
		Status:     sub.Status,
		Violations: violations,
	}

	for _, c := range o.Complaints(Filter{SubjectID: sub.ID}) {
		out.TotalComplaints++
		switch c.Status {
		case model.ComplaintPending, model.ComplaintUnderReview:
			out.PendingComplaints++
		case model.ComplaintActionTaken:
			out.ResolvedComplaints++
		case model.ComplaintDismissed:
			out.DismissedComplaints++
		case model.ComplaintAppealed:
			out.AppealedComplaints++
		}
	}

	actions := o.Actions(sub.ID)
	probation := false
	for _, a := range actions {
		if a.Appeal != nil && a.Appeal.Status == model.AppealPending {
			out.OpenAppeals++
		}
		if a.Overturned() {
			continue
		}
		switch a.Type {
		case model.ActionWarning:
			out.ActiveWarnings++
		case model.ActionDismissal:
			out.Dismissed = true
		case model.ActionProbation:
			probation = probation || a.ActiveAt(now)
		}
	}
	out.OnSuspension = !out.Dismissed && sub.IsSuspended()
	out.OnProbation = !out.Dismissed && !out.OnSuspension && probation
	if len(actions) > 0 {
		out.MostRecentAction = &actions[0]
	}
	return out
}

func (o *Office) reinstatement(subjectID, reason, issuedBy string, now time.Time) model.DisciplinaryAction {
	return model.DisciplinaryAction{
		ID:          o.newID(),
		SubjectID:   subjectID,
		Type:        model.ActionReinstatement,
		Description: reason,
		StartAt:     now,
		IssuedBy:    issuedBy,
		IssuedAt:    now,
	}
}

func (o *Office) updateComplaint(ctx context.Context, complaintID string, now time.Time, fn func(*model.Complaint) error) (model.Complaint, error) {
	o.wmu.Lock()
	defer o.wmu.Unlock()

	complaints, actions := o.snapshot()
	i := indexOfComplaint(complaints, complaintID)
	if i < 0 {
		return model.Complaint{}, apperr.NotFound(apperr.CodeComplaintNotFound, "complaint %s not found", complaintID)
	}
	if err := fn(&complaints[i]); err != nil {
		return model.Complaint{}, err
	}
	complaints[i].UpdatedAt = now
	if _, err := o.commit(ctx, complaints, actions, "", nil); err != nil {
		return model.Complaint{}, err
	}
	return cloneComplaints(complaints[i : i+1])[0], nil
}

// snapshot returns deep copies the caller may edit freely.
func (o *Office) snapshot() ([]model.Complaint, []model.DisciplinaryAction) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return cloneComplaints(o.complaints), cloneActions(o.actions)
}

// commit saves both aggregates, with a subject update when fn is set, and
// publishes once. The last action is reported in the result.
func (o *Office) commit(ctx context.Context, complaints []model.Complaint, actions []model.DisciplinaryAction, subjectID string, fn func(*model.Subject) error) (Result, error) {
	ce, err := store.JSONEntry(store.KeyComplaints, complaints)
	if err != nil {
		return Result{}, err
	}
	ae, err := store.JSONEntry(store.KeyDisciplinaryActions, actions)
	if err != nil {
		return Result{}, err
	}
	change := store.Change{
		Entries: []store.Entry{ce, ae},
		Apply: func() {
			o.mu.Lock()
			o.complaints, o.actions = complaints, actions
			o.mu.Unlock()
		},
	}

	var res Result
	if fn != nil {
		sub, err := o.registry.Update(ctx, subjectID, fn, change)
		if err != nil {
			return Result{}, err
		}
		res.Subject = &sub
		res.Suspended = sub.IsSuspended()
	} else if err := store.Commit(ctx, o.store, change); err != nil {
		return Result{}, fmt.Errorf("failed to save discipline cases: %w", err)
	}

	if len(actions) > 0 {
		res.Action = actions[len(actions)-1]
	}
	o.bus.Publish()
	return res, nil
}

func addNote(c *model.Complaint, note string) {
	if note = strings.TrimSpace(note); note != "" {
		c.Notes = append(c.Notes, note)
	}
}

func indexOfComplaint(list []model.Complaint, id string) int {
	for i, c := range list {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func indexOfAction(list []model.DisciplinaryAction, id string) int {
	for i, a := range list {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func cloneComplaints(in []model.Complaint) []model.Complaint {
	out := make([]model.Complaint, len(in))
	for i, c := range in {
		out[i] = c
		out[i].Evidence = append([]string(nil), c.Evidence...)
		out[i].Notes = append([]string(nil), c.Notes...)
	}
	return out
}

func cloneActions(in []model.DisciplinaryAction) []model.DisciplinaryAction {
	out := make([]model.DisciplinaryAction, len(in))
	for i, a := range in {
		out[i] = a
		if a.Appeal != nil {
			appeal := *a.Appeal
			out[i].Appeal = &appeal
		}
	}
	return out
}
