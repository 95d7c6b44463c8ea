package penalty

import (
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// DaysLate counts started days between due and returned; 0 when returned <= due.
func DaysLate(due, returned time.Time) int64 {
	late := returned.Sub(due)
	if late <= 0 {
		return 0
	}
	return int64((late + day - 1) / day)
}

// Fine is the overdue charge: every started day late costs dailyRate.
func Fine(due, returned time.Time, dailyRate decimal.Decimal) decimal.Decimal {
	days := DaysLate(due, returned)
	if days == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(days).Mul(dailyRate)
}
