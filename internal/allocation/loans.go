package allocation

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"campus-facility-backend/internal/apperr"
	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/penalty"
	"campus-facility-backend/internal/store"
)

// Borrow lends itemID to subjectID until now+loanPeriod.
func (a *Allocator) Borrow(ctx context.Context, subjectID, itemID string, now time.Time, loanPeriod time.Duration) (model.Loan, error) {
	a.mu.Lock()
	changed := false
	defer a.unlockAndPublish(&changed)

	idx := a.itemIndexLocked(itemID)
	if idx < 0 {
		return model.Loan{}, apperr.NotFound(apperr.CodeItemNotFound, "item %s not found", itemID)
	}
	if !a.items[idx].Available {
		return model.Loan{}, apperr.Unavailable(apperr.CodeItemUnavailable, "item %s is not available", itemID)
	}

	active, overdue := 0, false
	for _, l := range a.loans {
		if l.SubjectID != subjectID || !l.IsActive() {
			continue
		}
		active++
		if l.Status == model.LoanOverdue || l.IsOverdue(now) {
			overdue = true
		}
	}
	if active >= a.maxActiveLoans {
		return model.Loan{}, apperr.CapacityExceeded(apperr.CodeBorrowLimitExceeded,
			"subject %s already has %d active loans (limit %d)", subjectID, active, a.maxActiveLoans)
	}
	if overdue {
		return model.Loan{}, apperr.Unavailable(apperr.CodeHasOverdueItem,
			"subject %s has an overdue item and cannot borrow until it is returned", subjectID)
	}

	loan := model.Loan{
		ID:         a.newID(),
		SubjectID:  subjectID,
		ItemID:     itemID,
		BorrowedAt: now,
		DueAt:      now.Add(loanPeriod),
		Status:     model.LoanBorrowed,
		Fine:       decimal.Zero,
	}
	nextItems := append([]model.Item(nil), a.items...)
	nextItems[idx].Available = false
	nextLoans := append(a.loans[:len(a.loans):len(a.loans)], loan)

	if err := a.saveLocked(ctx, map[string]any{store.KeyItems: nextItems, store.KeyLoans: nextLoans}); err != nil {
		return model.Loan{}, err
	}
	a.items, a.loans = nextItems, nextLoans
	changed = true
	return loan, nil
}

// Return closes a loan, charging dailyRate per started day late.
func (a *Allocator) Return(ctx context.Context, loanID string, now time.Time, dailyRate decimal.Decimal) (model.Loan, error) {
	a.mu.Lock()
	changed := false
	defer a.unlockAndPublish(&changed)

	li := a.loanIndexLocked(loanID)
	if li < 0 {
		return model.Loan{}, apperr.NotFound(apperr.CodeLoanNotFound, "loan %s not found", loanID)
	}
	if !a.loans[li].IsActive() {
		return model.Loan{}, apperr.InvalidState(apperr.CodeAlreadyReturned, "loan %s was already returned", loanID)
	}

	nextLoans := append([]model.Loan(nil), a.loans...)
	loan := &nextLoans[li]
	loan.ReturnedAt = &now
	loan.Status = model.LoanReturned
	loan.Fine = penalty.Fine(loan.DueAt, now, dailyRate)

	nextItems := append([]model.Item(nil), a.items...)
	if ii := a.itemIndexLocked(loan.ItemID); ii >= 0 {
		nextItems[ii].Available = true
	}

	if err := a.saveLocked(ctx, map[string]any{store.KeyItems: nextItems, store.KeyLoans: nextLoans}); err != nil {
		return model.Loan{}, err
	}
	a.items, a.loans = nextItems, nextLoans
	changed = true
	return *loan, nil
}

// MarkOverdue flags active loans past due at now. It returns how many changed.
func (a *Allocator) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	a.mu.Lock()
	changed := false
	defer a.unlockAndPublish(&changed)

	nextLoans := append([]model.Loan(nil), a.loans...)
	marked := 0
	for i := range nextLoans {
		if nextLoans[i].Status == model.LoanBorrowed && nextLoans[i].IsOverdue(now) {
			nextLoans[i].Status = model.LoanOverdue
			marked++
		}
	}
	if marked == 0 {
		return 0, nil
	}
	if err := a.saveLocked(ctx, map[string]any{store.KeyLoans: nextLoans}); err != nil {
		return 0, err
	}
	a.loans = nextLoans
	changed = true
	return marked, nil
}

// Items lists the catalog in configured order.
func (a *Allocator) Items() []model.Item {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]model.Item(nil), a.items...)
}

// Loan returns a copy of the loan.
func (a *Allocator) Loan(loanID string) (model.Loan, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	li := a.loanIndexLocked(loanID)
	if li < 0 {
		return model.Loan{}, apperr.NotFound(apperr.CodeLoanNotFound, "loan %s not found", loanID)
	}
	return a.loans[li], nil
}

// Loans lists a subject's loans, newest first. An empty ID lists all loans.
func (a *Allocator) Loans(subjectID string) []model.Loan {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []model.Loan
	for _, l := range a.loans {
		if subjectID == "" || l.SubjectID == subjectID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].BorrowedAt.After(out[j].BorrowedAt) })
	return out
}

func (a *Allocator) itemIndexLocked(itemID string) int {
	for i, it := range a.items {
		if it.ID == itemID {
			return i
		}
	}
	return -1
}

func (a *Allocator) loanIndexLocked(loanID string) int {
	for i, l := range a.loans {
		if l.ID == loanID {
			return i
		}
	}
	return -1
}
