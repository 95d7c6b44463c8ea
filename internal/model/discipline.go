package model

import "time"

// ComplaintSource is the office that reported a complaint.
type ComplaintSource string

const (
	SourceDormitory ComplaintSource = "dormitory"
	SourceCafeteria ComplaintSource = "cafeteria"
	SourceLibrary   ComplaintSource = "library"
	SourceSecurity  ComplaintSource = "security"
	SourceAcademic  ComplaintSource = "academic"
	SourceOther     ComplaintSource = "other"
)

// ComplaintSeverity grades a complaint.
type ComplaintSeverity string

const (
	SeverityMinor    ComplaintSeverity = "minor"
	SeverityModerate ComplaintSeverity = "moderate"
	SeverityMajor    ComplaintSeverity = "major"
	SeveritySevere   ComplaintSeverity = "severe"
)

// ComplaintStatus is the stage of a discipline case.
type ComplaintStatus string

const (
	ComplaintPending     ComplaintStatus = "pending"
	ComplaintUnderReview ComplaintStatus = "under_review"
	ComplaintActionTaken ComplaintStatus = "action_taken"
	ComplaintDismissed   ComplaintStatus = "dismissed"
	ComplaintAppealed    ComplaintStatus = "appealed"
)

// IsOpen reports whether the case still awaits a decision.
func (s ComplaintStatus) IsOpen() bool {
	return s == ComplaintPending || s == ComplaintUnderReview
}

// Complaint opens a discipline case against a subject.
type Complaint struct {
	ID          string            `json:"id"`
	SubjectID   string            `json:"subject_id" validate:"required,max=64"`
	Source      ComplaintSource   `json:"source" validate:"required,oneof=dormitory cafeteria library security academic other"`
	Severity    ComplaintSeverity `json:"severity" validate:"required,oneof=minor moderate major severe"`
	Description string            `json:"description" validate:"required,max=2000"`
	Evidence    []string          `json:"evidence,omitempty" validate:"max=20"`
	Notes       []string          `json:"notes,omitempty"`
	Status      ComplaintStatus   `json:"status"`
	ReportedBy  string            `json:"reported_by"`
	ReportedAt  time.Time         `json:"reported_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ActionType is the kind of sanction, or the reinstatement that lifts one.
type ActionType string

const (
	ActionWarning       ActionType = "warning"
	ActionProbation     ActionType = "probation"
	ActionSuspension    ActionType = "suspension"
	ActionDismissal     ActionType = "dismissal"
	ActionReinstatement ActionType = "reinstatement"
)

// Suspends reports whether the action takes away eligibility.
func (t ActionType) Suspends() bool {
	return t == ActionSuspension || t == ActionDismissal
}

// AppealStatus is the outcome of an appeal.
type AppealStatus string

const (
	AppealPending    AppealStatus = "pending"
	AppealUpheld     AppealStatus = "upheld"
	AppealOverturned AppealStatus = "overturned"
)

// Appeal contests a disciplinary action.
type Appeal struct {
	Reason    string       `json:"reason"`
	FiledAt   time.Time    `json:"filed_at"`
	Status    AppealStatus `json:"status"`
	DecidedAt *time.Time   `json:"decided_at,omitempty"`
	DecidedBy string       `json:"decided_by,omitempty"`
	Notes     string       `json:"notes,omitempty"`
}

// DisciplinaryAction is a recorded decision against a subject. Reinstatements
// carry no complaint when they lift a violation suspension.
type DisciplinaryAction struct {
	ID          string     `json:"id"`
	ComplaintID string     `json:"complaint_id,omitempty"`
	SubjectID   string     `json:"subject_id"`
	Type        ActionType `json:"type"`
	Description string     `json:"description"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	IssuedBy    string     `json:"issued_by"`
	IssuedAt    time.Time  `json:"issued_at"`
	Appealable  bool       `json:"appealable"`
	Appeal      *Appeal    `json:"appeal,omitempty"`
}

// Overturned reports whether an appeal struck the action down.
func (a DisciplinaryAction) Overturned() bool {
	return a.Appeal != nil && a.Appeal.Status == AppealOverturned
}

// ActiveAt reports whether the action is in force at now.
func (a DisciplinaryAction) ActiveAt(now time.Time) bool {
	if a.Overturned() || a.StartAt.After(now) {
		return false
	}
	return a.EndAt == nil || !a.EndAt.Before(now)
}

// DisciplinarySummary is the standing of one subject with the discipline office.
type DisciplinarySummary struct {
	SubjectID           string              `json:"subject_id"`
	Status              SubjectStatus       `json:"status"`
	Violations          int                 `json:"violations"`
	TotalComplaints     int                 `json:"total_complaints"`
	PendingComplaints   int                 `json:"pending_complaints"`
	ResolvedComplaints  int                 `json:"resolved_complaints"`
	DismissedComplaints int                 `json:"dismissed_complaints"`
	AppealedComplaints  int                 `json:"appealed_complaints"`
	ActiveWarnings      int                 `json:"active_warnings"`
	OpenAppeals         int                 `json:"open_appeals"`
	OnProbation         bool                `json:"on_probation"`
	OnSuspension        bool                `json:"on_suspension"`
	Dismissed           bool                `json:"dismissed"`
	MostRecentAction    *DisciplinaryAction `json:"most_recent_action,omitempty"`
}
