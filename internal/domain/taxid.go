package domain

import (
	"strings"

	pkgerrors "github.com/kevin07696/collections-service/pkg/errors"
)

// OnlyDigits strips every non-digit rune (punctuation in tax ids, phones, postal codes)
func OnlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidCPF checks an 11-digit individual tax id using the two-pass
// weighted mod-11 check digits
func IsValidCPF(digits string) bool {
	if len(digits) != 11 || OnlyDigits(digits) != digits || allSameDigit(digits) {
		return false
	}
	first := cpfCheckDigit(digits[:9], 10)
	second := cpfCheckDigit(digits[:10], 11)
	return int(digits[9]-'0') == first && int(digits[10]-'0') == second
}

func cpfCheckDigit(digits string, startWeight int) int {
	sum := 0
	for i, r := range digits {
		sum += int(r-'0') * (startWeight - i)
	}
	rem := (sum * 10) % 11
	if rem == 10 {
		return 0
	}
	return rem
}

var (
	cnpjFirstWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjSecondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// IsValidCNPJ checks a 14-digit company tax id using the two-pass weighted
// mod-11 check digits
func IsValidCNPJ(digits string) bool {
	if len(digits) != 14 || OnlyDigits(digits) != digits || allSameDigit(digits) {
		return false
	}
	first := cnpjCheckDigit(digits[:12], cnpjFirstWeights)
	second := cnpjCheckDigit(digits[:13], cnpjSecondWeights)
	return int(digits[12]-'0') == first && int(digits[13]-'0') == second
}

func cnpjCheckDigit(digits string, weights []int) int {
	sum := 0
	for i, r := range digits {
		sum += int(r-'0') * weights[i]
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

func allSameDigit(s string) bool {
	return strings.Count(s, s[:1]) == len(s)
}

// ValidateTaxID normalises a CPF or CNPJ to digits and validates its check
// digits. The returned error is a *errors.ValidationError naming field.
func ValidateTaxID(field, value string) (string, error) {
	digits := OnlyDigits(value)
	switch len(digits) {
	case 0:
		return "", pkgerrors.NewValidationError(field, "tax id is required")
	case 11:
		if !IsValidCPF(digits) {
			return "", pkgerrors.NewValidationError(field, "tax id (CPF) has invalid check digits")
		}
	case 14:
		if !IsValidCNPJ(digits) {
			return "", pkgerrors.NewValidationError(field, "tax id (CNPJ) has invalid check digits")
		}
	default:
		return "", pkgerrors.NewValidationError(field, "tax id must have 11 (CPF) or 14 (CNPJ) digits")
	}
	return digits, nil
}
