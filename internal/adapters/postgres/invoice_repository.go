package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/collections-service/internal/domain"
	"github.com/kevin07696/collections-service/internal/domain/ports"
)

const invoiceColumns = `id, payer_id, amount, start_date, due_date, status, notes, updated_at`

// InvoiceRepository implements ports.InvoiceRepository
type InvoiceRepository struct {
	pool  *pgxpool.Pool
	today func() time.Time
}

// NewInvoiceRepository creates an invoice repository. today supplies the
// business-calendar date used to re-evaluate overdue status.
func NewInvoiceRepository(db ports.DBPort, today func() time.Time) *InvoiceRepository {
	return &InvoiceRepository{pool: db.GetDB(), today: today}
}

// GetByID loads an invoice. The overdue status is refreshed in memory so
// readers never see a stale pending invoice.
func (r *InvoiceRepository) GetByID(ctx context.Context, db ports.DBTX, id int64) (*domain.Invoice, error) {
	row := conn(r.pool, db).QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return r.scan(row)
}

// GetByIDForUpdate loads and locks an invoice row
func (r *InvoiceRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id int64) (*domain.Invoice, error) {
	row := conn(r.pool, tx).QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
	return r.scan(row)
}

// Save re-evaluates the overdue status and persists status, amount and notes
func (r *InvoiceRepository) Save(ctx context.Context, tx ports.DBTX, invoice *domain.Invoice) error {
	invoice.RefreshStatus(r.today())

	amount, err := decimalToPgNumeric(invoice.Amount)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "save invoice", err)
	}

	err = conn(r.pool, tx).QueryRow(ctx, `
		UPDATE invoices
		SET amount = $2, status = $3, notes = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		invoice.ID, amount, string(invoice.Status), invoice.Notes,
	).Scan(&invoice.UpdatedAt)
	if err != nil {
		return classify(err, domain.ErrInvoiceNotFound, "save invoice")
	}
	return nil
}

func (r *InvoiceRepository) scan(row pgx.Row) (*domain.Invoice, error) {
	var (
		inv    domain.Invoice
		amount pgtype.Numeric
		status string
	)
	err := row.Scan(&inv.ID, &inv.PayerID, &amount, &inv.StartDate, &inv.DueDate, &status, &inv.Notes, &inv.UpdatedAt)
	if err != nil {
		return nil, classify(err, domain.ErrInvoiceNotFound, "get invoice")
	}

	inv.Amount, err = pgNumericToDecimal(amount)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get invoice", err)
	}
	inv.Status = domain.InvoiceStatus(status)
	inv.RefreshStatus(r.today())
	return &inv, nil
}
