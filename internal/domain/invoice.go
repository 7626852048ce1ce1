package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the collection state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// Invoice is a periodic amount owed by a payer. Invoices are generated by
// billing and only ever marked paid by reconciliation.
type Invoice struct {
	StartDate time.Time       `json:"start_date"`
	DueDate   time.Time       `json:"due_date"`
	UpdatedAt time.Time       `json:"updated_at"`
	Amount    decimal.Decimal `json:"amount"`
	Status    InvoiceStatus   `json:"status"`
	Notes     string          `json:"notes,omitempty"`
	ID        int64           `json:"id"`
	PayerID   int64           `json:"payer_id"`
}

// RefreshStatus moves a pending invoice to overdue once today is strictly
// after the due date. It must run before every write. Reports whether the
// status changed.
func (i *Invoice) RefreshStatus(today time.Time) bool {
	if i.Status == InvoiceStatusPending && IsAfterDate(today, i.DueDate) {
		i.Status = InvoiceStatusOverdue
		return true
	}
	return false
}

// IsPaid returns true once settlement has been confirmed
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// IsOverdue reports whether the invoice is past due as of today
func (i *Invoice) IsOverdue(today time.Time) bool {
	return !i.IsPaid() && IsAfterDate(today, i.DueDate)
}

// MarkPaid records confirmed settlement. Reports whether the status changed.
func (i *Invoice) MarkPaid() bool {
	if i.Status == InvoiceStatusPaid {
		return false
	}
	i.Status = InvoiceStatusPaid
	return true
}
