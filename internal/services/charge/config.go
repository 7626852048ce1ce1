package charge

import "time"

// Config holds the charge defaults applied when building gateway requests
type Config struct {
	// PayeeKey is the routing key instant-transfer charges are paid to
	PayeeKey string

	InstantTransferExpiration time.Duration
	CheckoutExpiration        time.Duration

	// BankSlipGraceDays moves the due date of a slip issued for an overdue
	// invoice to today plus this many days
	BankSlipGraceDays int
	// BankSlipValidityDays is how long after its due date a slip stays payable
	BankSlipValidityDays int
	BankSlipInstructions []string

	CardInstallments int
	CardInterest     bool
	CardCapture      bool

	// Location is the business calendar used for "today"
	Location *time.Location
}

// DefaultConfig returns the standard charge defaults
func DefaultConfig() Config {
	return Config{
		InstantTransferExpiration: 1800 * time.Second,
		CheckoutExpiration:        168 * time.Hour,
		BankSlipGraceDays:         3,
		BankSlipValidityDays:      30,
		CardInstallments:          1,
		CardInterest:              false,
		CardCapture:               true,
		Location:                  time.UTC,
	}
}
