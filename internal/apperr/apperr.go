package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an expected business-rule rejection so callers can branch on it.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindAlreadyInProgress Kind = "already_in_progress"
	KindCapacityExceeded  Kind = "capacity_exceeded"
	KindUnavailable       Kind = "unavailable"
	KindSubjectSuspended  Kind = "subject_suspended"
	KindInvalidState      Kind = "invalid_state"
	// KindInternal is reported for anything that is not an *Error, e.g. a failed save.
	KindInternal Kind = "internal"
)

// Error is returned by every core operation that rejects an action.
// Message is advisory text for display.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another *Error with the same kind and code, so sentinel
// comparisons with errors.Is work on freshly built values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

// New builds an *Error with a formatted message.
func New(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(code, format string, args ...any) *Error {
	return New(KindNotFound, code, format, args...)
}

func AlreadyInProgress(code, format string, args ...any) *Error {
	return New(KindAlreadyInProgress, code, format, args...)
}

func CapacityExceeded(code, format string, args ...any) *Error {
	return New(KindCapacityExceeded, code, format, args...)
}

func Unavailable(code, format string, args ...any) *Error {
	return New(KindUnavailable, code, format, args...)
}

func InvalidState(code, format string, args ...any) *Error {
	return New(KindInvalidState, code, format, args...)
}

// Suspended reports that the subject failed the gating check.
func Suspended(subjectID, reason string) *Error {
	msg := fmt.Sprintf("subject %s is suspended", subjectID)
	if reason != "" {
		msg += ": " + reason
	}
	return &Error{Kind: KindSubjectSuspended, Code: "subject_suspended", Message: msg}
}

// KindOf returns the kind carried by err, or KindInternal when err is not an *Error.
// A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the machine-readable code of err, or "internal_error".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

// Codes used across the engine.
const (
	CodeSubjectNotFound      = "subject_not_found"
	CodeRoomNotFound         = "room_not_found"
	CodeRoomUnderMaintenance = "room_under_maintenance"
	CodeRoomFull             = "room_full"
	CodeRoomNotInMaintenance = "room_not_in_maintenance"
	CodeNotAssigned          = "not_assigned"
	CodeItemNotFound         = "item_not_found"
	CodeItemUnavailable      = "item_unavailable"
	CodeBorrowLimitExceeded  = "borrow_limit_exceeded"
	CodeHasOverdueItem       = "has_overdue_item"
	CodeLoanNotFound         = "loan_not_found"
	CodeAlreadyReturned      = "already_returned"
	CodeSessionAlreadyOpen   = "session_already_open"
	CodeNoOpenSession        = "no_open_session"
	CodeMealAlreadyServed    = "meal_already_served"
	CodeOutsideMealWindow    = "outside_meal_window"
	CodeUnknownMeal          = "unknown_meal"
	CodeSubjectNotSuspended  = "subject_not_suspended"
	CodeAlreadySuspended     = "already_suspended"

	CodeComplaintNotFound      = "complaint_not_found"
	CodeComplaintClosed        = "complaint_closed"
	CodeActionNotFound         = "disciplinary_action_not_found"
	CodeNotAppealable          = "not_appealable"
	CodeAlreadyAppealed        = "already_appealed"
	CodeNoPendingAppeal        = "no_pending_appeal"
	CodePersonalItemNotFound   = "personal_item_not_found"
	CodePersonalItemNotOwned   = "personal_item_not_owned"
	CodePersonalItemExpired    = "personal_item_expired"
	CodePersonalItemCheckedOut = "personal_item_checked_out"
	CodePersonalItemOnCampus   = "personal_item_on_campus"
)
