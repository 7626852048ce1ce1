package mocks

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/collections-service/internal/domain/ports"
)

var _ ports.DBPort = (*MockDBPort)(nil)

// MockDBPort runs transaction callbacks inline with a nil transaction.
// Set Err to make Begin fail.
type MockDBPort struct {
	Err          error
	Transactions int
}

func (m *MockDBPort) GetDB() *pgxpool.Pool {
	return nil
}

func (m *MockDBPort) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if m.Err != nil {
		return m.Err
	}
	m.Transactions++
	return fn(ctx, nil)
}
