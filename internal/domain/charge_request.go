package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	pkgerrors "github.com/kevin07696/collections-service/pkg/errors"
	"github.com/shopspring/decimal"
)

// Gateway field limits and bounds
const (
	InstantTransferDescriptionMax = 140
	CheckoutPayerNameMax          = 50
	BankSlipPayerNameMin          = 2
	BankSlipPayerNameMax          = 100
	BankSlipReferenceMax          = 10
	MaxCardInstallments           = 12
)

var (
	// MinChargeAmount is the smallest transactable unit
	MinChargeAmount = decimal.RequireFromString("0.01")
	// BankSlipMinAmount and BankSlipMaxAmount bound what the gateway issues as a slip
	BankSlipMinAmount = decimal.RequireFromString("5.00")
	BankSlipMaxAmount = decimal.RequireFromString("999999.99")

	slipReferencePattern = regexp.MustCompile(`^[a-zA-Z0-9]{1,10}$`)
)

// ChargeRequest is one of InstantTransfer, BankSlip or CardCheckout. Values are
// only valid when built by their constructors.
type ChargeRequest interface {
	PaymentType() PaymentType
	ChargeAmount() decimal.Decimal
	isChargeRequest()
}

// InstantTransfer asks the gateway for a real-time transfer charge payable to
// the configured payee key. No payer identity is needed.
type InstantTransfer struct {
	Amount      decimal.Decimal
	PayeeKey    string
	Description string
	Expiration  time.Duration
}

func (InstantTransfer) isChargeRequest()                {}
func (InstantTransfer) PaymentType() PaymentType        { return PaymentTypeInstantTransfer }
func (r InstantTransfer) ChargeAmount() decimal.Decimal { return r.Amount }

// NewInstantTransfer validates and builds an instant-transfer charge
func NewInstantTransfer(amount decimal.Decimal, payeeKey, description string, expiration time.Duration) (InstantTransfer, error) {
	if err := validateChargeAmount(amount); err != nil {
		return InstantTransfer{}, err
	}
	if strings.TrimSpace(payeeKey) == "" {
		return InstantTransfer{}, pkgerrors.NewValidationError("payee_key", "no payee routing key is configured")
	}
	if expiration <= 0 {
		return InstantTransfer{}, pkgerrors.NewValidationError("expiration", "must be positive")
	}
	return InstantTransfer{
		Amount:      amount.Round(2),
		PayeeKey:    strings.TrimSpace(payeeKey),
		Description: truncate(strings.TrimSpace(description), InstantTransferDescriptionMax),
		Expiration:  expiration,
	}, nil
}

// PercentRule is a percentage-based late fee the gateway applies itself
type PercentRule struct {
	Percent decimal.Decimal
}

// SlipPayer is the payer identity printed on a bank slip
type SlipPayer struct {
	Name    string
	TaxID   string // digits only
	Email   string
	Address Address
}

// BankSlip asks the gateway to issue a payment slip. When the invoice is
// overdue the gateway computes late fees from Fine and Interest instead of a
// frozen total.
type BankSlip struct {
	Amount            decimal.Decimal
	DueDate           time.Time
	ExternalReference string
	Payer             SlipPayer
	Instructions      []string
	Fine              *PercentRule // flat percentage, once
	Interest          *PercentRule // percentage per month
}

func (BankSlip) isChargeRequest()                {}
func (BankSlip) PaymentType() PaymentType        { return PaymentTypeBankSlip }
func (r BankSlip) ChargeAmount() decimal.Decimal { return r.Amount }

// BankSlipParams carries the inputs to NewBankSlip
type BankSlipParams struct {
	Amount            decimal.Decimal
	DueDate           time.Time
	ExternalReference string
	Payer             Payer
	Instructions      []string
	Overdue           bool
}

// NewBankSlip validates payer identity, address and amount bounds and builds
// a bank-slip charge
func NewBankSlip(p BankSlipParams) (BankSlip, error) {
	amount := p.Amount.Round(2)
	if amount.LessThan(BankSlipMinAmount) {
		return BankSlip{}, pkgerrors.NewValidationError("amount",
			fmt.Sprintf("amount %s is below the bank slip minimum of %s", amount.StringFixed(2), BankSlipMinAmount.StringFixed(2)))
	}
	if amount.GreaterThan(BankSlipMaxAmount) {
		return BankSlip{}, pkgerrors.NewValidationError("amount",
			fmt.Sprintf("amount %s is above the bank slip maximum of %s", amount.StringFixed(2), BankSlipMaxAmount.StringFixed(2)))
	}

	taxID, err := ValidateTaxID("payer.tax_id", p.Payer.TaxID)
	if err != nil {
		return BankSlip{}, err
	}

	name := strings.TrimSpace(p.Payer.Name)
	if n := utf8.RuneCountInString(name); n < BankSlipPayerNameMin || n > BankSlipPayerNameMax {
		return BankSlip{}, pkgerrors.NewValidationError("payer.name",
			fmt.Sprintf("must be between %d and %d characters", BankSlipPayerNameMin, BankSlipPayerNameMax))
	}

	addr, err := validateAddress(p.Payer.Address)
	if err != nil {
		return BankSlip{}, err
	}

	if p.DueDate.IsZero() {
		return BankSlip{}, pkgerrors.NewValidationError("due_date", "is required")
	}
	if !slipReferencePattern.MatchString(p.ExternalReference) {
		return BankSlip{}, pkgerrors.NewValidationError("external_reference_id",
			fmt.Sprintf("must be 1 to %d alphanumeric characters", BankSlipReferenceMax))
	}

	slip := BankSlip{
		Amount:            amount,
		DueDate:           p.DueDate,
		ExternalReference: p.ExternalReference,
		Payer: SlipPayer{
			Name:    name,
			TaxID:   taxID,
			Email:   strings.TrimSpace(p.Payer.Email),
			Address: addr,
		},
		Instructions: p.Instructions,
	}
	if p.Overdue {
		slip.Fine = &PercentRule{Percent: PenaltyRate.Shift(2)}
		slip.Interest = &PercentRule{Percent: MonthlyInterestRate.Shift(2)}
	}
	return slip, nil
}

func validateAddress(a Address) (Address, error) {
	out := Address{
		Street:     strings.TrimSpace(a.Street),
		Number:     strings.TrimSpace(a.Number),
		Complement: strings.TrimSpace(a.Complement),
		District:   strings.TrimSpace(a.District),
		City:       strings.TrimSpace(a.City),
		State:      strings.ToUpper(strings.TrimSpace(a.State)),
		PostalCode: OnlyDigits(a.PostalCode),
	}
	switch {
	case out.Street == "":
		return Address{}, pkgerrors.NewValidationError("payer.address.street", "is required")
	case out.Number == "":
		return Address{}, pkgerrors.NewValidationError("payer.address.number", "is required")
	case out.City == "":
		return Address{}, pkgerrors.NewValidationError("payer.address.city", "is required")
	case len(out.State) != 2:
		return Address{}, pkgerrors.NewValidationError("payer.address.state", "must be a two-letter state code")
	case len(out.PostalCode) != 8:
		return Address{}, pkgerrors.NewValidationError("payer.address.postal_code", "must have 8 digits")
	}
	return out, nil
}

// CheckoutPayer is the payer block of a card checkout
type CheckoutPayer struct {
	Name  string
	TaxID string // digits only
	Email string
	Phone string // digits only
}

// CardCheckout asks the gateway for a hosted card checkout page
type CardCheckout struct {
	Amount            decimal.Decimal
	Description       string
	ExternalReference string
	Payer             CheckoutPayer
	Installments      int
	InterestBearing   bool
	Capture           bool
	Expiration        time.Duration
}

func (CardCheckout) isChargeRequest()                {}
func (CardCheckout) PaymentType() PaymentType        { return PaymentTypeCard }
func (r CardCheckout) ChargeAmount() decimal.Decimal { return r.Amount }

// CardCheckoutParams carries the inputs to NewCardCheckout
type CardCheckoutParams struct {
	Amount            decimal.Decimal
	Description       string
	ExternalReference string
	Payer             Payer
	Installments      int
	InterestBearing   bool
	Capture           bool
	Expiration        time.Duration
}

// NewCardCheckout validates and builds a card checkout charge
func NewCardCheckout(p CardCheckoutParams) (CardCheckout, error) {
	if err := validateChargeAmount(p.Amount); err != nil {
		return CardCheckout{}, err
	}
	name := strings.TrimSpace(p.Payer.Name)
	if name == "" {
		return CardCheckout{}, pkgerrors.NewValidationError("payer.name", "is required")
	}
	if p.Installments < 1 || p.Installments > MaxCardInstallments {
		return CardCheckout{}, pkgerrors.NewValidationError("installments",
			fmt.Sprintf("must be between 1 and %d", MaxCardInstallments))
	}
	if p.Expiration <= 0 {
		return CardCheckout{}, pkgerrors.NewValidationError("expiration", "must be positive")
	}
	return CardCheckout{
		Amount:            p.Amount.Round(2),
		Description:       strings.TrimSpace(p.Description),
		ExternalReference: p.ExternalReference,
		Payer: CheckoutPayer{
			Name:  truncate(name, CheckoutPayerNameMax),
			TaxID: OnlyDigits(p.Payer.TaxID),
			Email: strings.TrimSpace(p.Payer.Email),
			Phone: OnlyDigits(p.Payer.Phone),
		},
		Installments:    p.Installments,
		InterestBearing: p.InterestBearing,
		Capture:         p.Capture,
		Expiration:      p.Expiration,
	}, nil
}

func validateChargeAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.NewValidationError("amount", "must be greater than zero")
	}
	if amount.LessThan(MinChargeAmount) {
		return pkgerrors.NewValidationError("amount", "must be at least 0.01")
	}
	return nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
