package quote

import (
	"strings"

	"github.com/shopspring/decimal"

	"fiat-ramp/pkg/types"
)

const (
	DefaultFiatPlaces   int32 = 2
	DefaultCryptoPlaces int32 = 5
)

// Precision decides how many fractional digits a derived amount is shown with
type Precision struct {
	Fiat      int32
	Crypto    int32
	Overrides map[string]int32 // Per currency code, e.g. "BTC": 8
}

// DefaultPrecision uses 2 places for fiat and 5 for crypto
func DefaultPrecision() Precision {
	return Precision{
		Fiat:   DefaultFiatPlaces,
		Crypto: DefaultCryptoPlaces,
	}
}

// Places returns the fractional digits for code on the given field
func (p Precision) Places(field types.Field, code string) int32 {
	if places, ok := p.Overrides[strings.ToUpper(code)]; ok && places >= 0 {
		return places
	}
	if field == types.FieldCrypto {
		return p.Crypto
	}
	return p.Fiat
}

// Format rounds half away from zero and pads to a fixed number of places
func (p Precision) Format(amount decimal.Decimal, field types.Field, code string) string {
	return amount.StringFixed(p.Places(field, code))
}
