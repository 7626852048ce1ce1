package domain

import (
	"time"

	"github.com/kevin07696/collections-service/pkg/timeutil"
	"github.com/shopspring/decimal"
)

var (
	// PenaltyRate is the flat late fee, charged once
	PenaltyRate = decimal.RequireFromString("0.02")
	// MonthlyInterestRate accrues linearly per day over a 30-day month
	MonthlyInterestRate = decimal.RequireFromString("0.01")

	daysPerMonth = decimal.NewFromInt(30)
)

// AmountDue is the breakdown of what an invoice costs on a given date
type AmountDue struct {
	Penalty     decimal.Decimal `json:"penalty"`
	Interest    decimal.Decimal `json:"interest"`
	Total       decimal.Decimal `json:"total"`
	OverdueDays int             `json:"overdue_days"`
	IsOverdue   bool            `json:"is_overdue"`
}

// ComputeAmountDue applies the late-payment rules to an invoice as of a
// calendar date. Every figure is rounded half-up to cents; interest is
// base * 0.01 / 30 * days in that order.
func ComputeAmountDue(inv *Invoice, asOf time.Time) AmountDue {
	base := inv.Amount.Round(2)

	days := timeutil.DaysBetween(inv.DueDate, asOf)
	if days <= 0 {
		return AmountDue{
			Penalty:  decimal.Zero,
			Interest: decimal.Zero,
			Total:    base,
		}
	}

	penalty := base.Mul(PenaltyRate).Round(2)
	interest := base.Mul(MonthlyInterestRate).Div(daysPerMonth).Mul(decimal.NewFromInt(int64(days))).Round(2)

	return AmountDue{
		Penalty:     penalty,
		Interest:    interest,
		Total:       base.Add(penalty).Add(interest).Round(2),
		OverdueDays: days,
		IsOverdue:   true,
	}
}

// IsAfterDate reports whether the calendar date of a is strictly after that of b
func IsAfterDate(a, b time.Time) bool {
	return timeutil.DaysBetween(b, a) > 0
}
