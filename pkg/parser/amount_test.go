package parser

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAmount(t *testing.T) {
	valid := []string{"", "0", "500", "1.", "1.5", ".5", "0.00735", "0001"}
	for _, v := range valid {
		assert.NoErrorf(t, ValidateAmount(v), "expected %q to be accepted", v)
	}

	invalid := []string{".", "-1", "1e5", "1,5", "1.2.3", "abc", " 1", "+2", "NaN"}
	for _, v := range invalid {
		err := ValidateAmount(v)
		require.Errorf(t, err, "expected %q to be rejected", v)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("1.")
	require.NoError(t, err)
	assert.Equal(t, "1", d.String())

	d, err = ParseAmount(".25")
	require.NoError(t, err)
	assert.Equal(t, "0.25", d.String())

	d, err = ParseAmount("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseAmount("1e3")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestIsZeroAmount(t *testing.T) {
	for _, v := range []string{"", "0", "0.", "0.000", ".0"} {
		assert.Truef(t, IsZeroAmount(v), "%q", v)
	}
	for _, v := range []string{"1", "0.00001", ".5"} {
		assert.Falsef(t, IsZeroAmount(v), "%q", v)
	}
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, "BTC", NormalizeCurrency(" wbtc "))
	assert.Equal(t, "EUR", NormalizeCurrency("eur"))
	assert.Equal(t, "USDT", NormalizeCurrency("USDT"))
}

func TestParseSessionCommand(t *testing.T) {
	tests := []struct {
		line   string
		action Action
		arg    string
	}{
		{"", ActionShow, ""},
		{"buy", ActionBuy, ""},
		{"SELL", ActionSell, ""},
		{"250.5", ActionAmount, "250.5"},
		{"amount 10", ActionAmount, "10"},
		{"amount", ActionAmount, ""},
		{"fiat eur", ActionFiat, "EUR"},
		{"crypto weth", ActionCrypto, "ETH"},
		{"wallet 0xAbC", ActionWallet, "0xAbC"},
		{"confirm", ActionConfirm, ""},
		{"q", ActionQuit, ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, err := ParseSessionCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.action, cmd.Action)
			assert.Equal(t, tt.arg, cmd.Arg)
		})
	}
}

func TestParseSessionCommandErrors(t *testing.T) {
	for _, line := range []string{"fly", "fiat", "buy now", "amount 1 2", "wallet"} {
		_, err := ParseSessionCommand(line)
		require.Errorf(t, err, "expected %q to fail", line)

		// Parse errors carry the call site for verbose logging
		_, traced := err.(interface{ StackTrace() errors.StackTrace })
		assert.Truef(t, traced, "%q error has no stack trace", line)
	}
}
