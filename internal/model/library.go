package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanBorrowed LoanStatus = "borrowed"
	LoanOverdue  LoanStatus = "overdue"
	LoanReturned LoanStatus = "returned"
)

// Item is a single-copy loanable resource.
type Item struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Available bool   `json:"available" yaml:"-"`
}

// Loan is the allocation of an Item to a subject.
type Loan struct {
	ID         string          `json:"id"`
	SubjectID  string          `json:"subject_id"`
	ItemID     string          `json:"item_id"`
	BorrowedAt time.Time       `json:"borrowed_at"`
	DueAt      time.Time       `json:"due_at"`
	ReturnedAt *time.Time      `json:"returned_at,omitempty"`
	Status     LoanStatus      `json:"status"`
	Fine       decimal.Decimal `json:"fine"`
}

// IsActive reports whether the item is still out.
func (l Loan) IsActive() bool {
	return l.ReturnedAt == nil
}

// IsOverdue reports whether an active loan is past due at now.
func (l Loan) IsOverdue(now time.Time) bool {
	return l.IsActive() && now.After(l.DueAt)
}
