package bootstrap

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kevin07696/collections-service/internal/adapters/c6bank"
	"github.com/kevin07696/collections-service/internal/adapters/postgres"
	"github.com/kevin07696/collections-service/internal/config"
	"github.com/kevin07696/collections-service/internal/services/charge"
	"github.com/kevin07696/collections-service/internal/services/reconciliation"
	"github.com/kevin07696/collections-service/pkg/resilience"
	"github.com/kevin07696/collections-service/pkg/timeutil"
)

const connectAttempts = 5

// Services are the application services over one pool and one gateway client
type Services struct {
	Charges        *charge.Service
	Reconciliation *reconciliation.Service
}

// NewPool opens the database pool, retrying while the database comes up
func NewPool(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.ConnectionString())
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns

	var pool *pgxpool.Pool
	err := resilience.Retry(ctx, resilience.DefaultExponentialBackoff(), connectAttempts, func(attempt int) error {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		p, err := postgres.NewPool(connectCtx, poolCfg, logger)
		if err != nil {
			logger.Warn("Database not reachable yet",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Database connection established",
		zap.String("database", cfg.Database.Database),
		zap.String("host", cfg.Database.Host),
	)
	return pool, nil
}

// NewServices wires the repositories and both services. Invoice status is
// evaluated against today's date in loc.
func NewServices(pool *pgxpool.Pool, gateway *c6bank.Client, cfg *config.Config, loc *time.Location, logger *zap.Logger) *Services {
	dbExecutor := postgres.NewDBExecutor(pool)
	today := func() time.Time { return timeutil.Today(timeutil.Now(), loc) }

	invoiceRepo := postgres.NewInvoiceRepository(dbExecutor, today)
	payerRepo := postgres.NewPayerRepository(dbExecutor)
	txnRepo := postgres.NewTransactionRepository(dbExecutor)
	receiptRepo := postgres.NewReceiptRepository(dbExecutor)

	return &Services{
		Charges: charge.NewService(dbExecutor, invoiceRepo, payerRepo, txnRepo, receiptRepo, gateway, ChargeConfig(cfg, loc), logger),
		Reconciliation: reconciliation.NewService(dbExecutor, invoiceRepo, txnRepo, receiptRepo, gateway,
			c6bank.NotificationDecoder{}, nil, logger),
	}
}

// ChargeConfig maps the billing section onto the charge defaults
func ChargeConfig(cfg *config.Config, loc *time.Location) charge.Config {
	chargeCfg := charge.DefaultConfig()
	chargeCfg.PayeeKey = cfg.Gateway.PixKey
	if cfg.Billing.PixExpiration > 0 {
		chargeCfg.InstantTransferExpiration = cfg.Billing.PixExpiration
	}
	if cfg.Billing.CheckoutExpiration > 0 {
		chargeCfg.CheckoutExpiration = cfg.Billing.CheckoutExpiration
	}
	chargeCfg.BankSlipGraceDays = cfg.Billing.BankSlipGraceDays
	chargeCfg.BankSlipValidityDays = cfg.Billing.BankSlipValidityDays
	if cfg.Billing.CardInstallments > 0 {
		chargeCfg.CardInstallments = cfg.Billing.CardInstallments
	}
	chargeCfg.Location = loc
	return chargeCfg
}
