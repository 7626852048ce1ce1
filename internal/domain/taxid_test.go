package domain

import (
	"errors"
	"testing"

	pkgerrors "github.com/kevin07696/collections-service/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidCPF(t *testing.T) {
	tests := []struct {
		digits string
		want   bool
	}{
		{"52998224725", true},
		{"52998224724", false},
		{"52998224715", false},
		{"11111111111", false},
		{"5299822472", false},
		{"5299822472a", false},
	}

	for _, tt := range tests {
		t.Run(tt.digits, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidCPF(tt.digits))
		})
	}
}

func TestIsValidCNPJ(t *testing.T) {
	assert.True(t, IsValidCNPJ("11222333000181"))
	assert.False(t, IsValidCNPJ("11222333000182"))
	assert.False(t, IsValidCNPJ("00000000000000"))
	assert.False(t, IsValidCNPJ("1122233300018"))
}

func TestValidateTaxID(t *testing.T) {
	digits, err := ValidateTaxID("payer.tax_id", "529.982.247-25")
	require.NoError(t, err)
	assert.Equal(t, "52998224725", digits)

	digits, err = ValidateTaxID("payer.tax_id", "11.222.333/0001-81")
	require.NoError(t, err)
	assert.Equal(t, "11222333000181", digits)

	for _, bad := range []string{"", "529.982.247-24", "123", "11.222.333/0001-80"} {
		_, err := ValidateTaxID("payer.tax_id", bad)
		require.Error(t, err, bad)

		var vErr *pkgerrors.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "payer.tax_id", vErr.Field)
	}
}

func TestOnlyDigits(t *testing.T) {
	assert.Equal(t, "11987654321", OnlyDigits("+55 (11) 98765-4321")[2:])
	assert.Equal(t, "01310100", OnlyDigits("01310-100"))
	assert.Equal(t, "", OnlyDigits("abc"))
}
