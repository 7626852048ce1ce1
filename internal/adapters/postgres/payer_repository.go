package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/collections-service/internal/domain"
	"github.com/kevin07696/collections-service/internal/domain/ports"
)

// PayerRepository implements ports.PayerRepository
type PayerRepository struct {
	pool *pgxpool.Pool
}

// NewPayerRepository creates a new payer repository
func NewPayerRepository(db ports.DBPort) *PayerRepository {
	return &PayerRepository{pool: db.GetDB()}
}

// GetByID loads a payer with its postal address
func (r *PayerRepository) GetByID(ctx context.Context, db ports.DBTX, id int64) (*domain.Payer, error) {
	var (
		p                                                                    domain.Payer
		email, phone, street, number, complement, district, city, state, zip pgtype.Text
	)
	err := conn(r.pool, db).QueryRow(ctx, `
		SELECT id, name, tax_id, email, phone,
		       address_street, address_number, address_complement, address_district,
		       address_city, address_state, address_postal_code
		FROM payers WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.TaxID, &email, &phone,
		&street, &number, &complement, &district, &city, &state, &zip)
	if err != nil {
		return nil, classify(err, domain.ErrPayerNotFound, "get payer")
	}

	p.Email = email.String
	p.Phone = phone.String
	p.Address = domain.Address{
		Street:     street.String,
		Number:     number.String,
		Complement: complement.String,
		District:   district.String,
		City:       city.String,
		State:      state.String,
		PostalCode: zip.String,
	}
	return &p, nil
}
