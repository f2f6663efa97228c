package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		asset   string
		address string
		valid   bool
	}{
		{"ETH", "0x52908400098527886E0F7030069857D2E4169EE7", true},
		{"usdc", "0x8617e340b3d01fa5f11f306f4090fd50e238070d", true},
		{"USDT", "52908400098527886E0F7030069857D2E4169EE7", true},
		{"ETH", "0x1234", false},
		{"ETH", "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", false},
		{"SOL", "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", true},
		{"SOL", "0x52908400098527886E0F7030069857D2E4169EE7", false},
		{"SOL", "not-base58-0OIl", false},
		{"BTC", "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", true},
		{"BTC", "3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy", true},
		{"BTC", "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", true},
		{"BTC", "BC1QAR0SRRR7XFKVY5L643LYDNW9RE59GTZZWF5MDQ", true},
		{"BTC", "BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T4", true},
		{"BTC", "bc1Qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", false},
		{"BTC", "11111111111111111111111111", false},
		{"BTC", "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN3", false},
		{"BTC", "bc1qqqqqqqqqqqqqqqqqq", false},
		{"BTC", "BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T5", false},
		{"BTC", "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx", false},
		{"BTC", "mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn", false},
		{"BTC", "0x52908400098527886E0F7030069857D2E4169EE7", false},
		{"DOGE", "anything-goes", true},
		{"ETH", "   ", false},
		{"DOGE", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.asset+"/"+tt.address, func(t *testing.T) {
			err := Validate(tt.asset, tt.address)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidAddress)
			}
		})
	}
}

func TestNetworkFor(t *testing.T) {
	assert.Equal(t, NetworkBitcoin, NetworkFor("btc"))
	assert.Equal(t, NetworkEVM, NetworkFor("USDT"))
	assert.Equal(t, NetworkSolana, NetworkFor(" sol "))
	assert.Equal(t, NetworkUnknown, NetworkFor("XMR"))
}
