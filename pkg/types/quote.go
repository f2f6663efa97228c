package types

import "strings"

// Direction is the side of the trade the user is on
type Direction string

const (
	DirectionBuy  Direction = "buy"  // User pays fiat, receives crypto
	DirectionSell Direction = "sell" // User pays crypto, receives fiat
)

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Authoritative returns the amount field the user edits in this direction
func (d Direction) Authoritative() Field {
	if d == DirectionSell {
		return FieldCrypto
	}
	return FieldFiat
}

// Field identifies one of the two amount inputs
type Field string

const (
	FieldFiat   Field = "fiat"
	FieldCrypto Field = "crypto"
)

// Other returns the opposite field
func (f Field) Other() Field {
	if f == FieldFiat {
		return FieldCrypto
	}
	return FieldFiat
}

// Side identifies a currency selector
type Side string

const (
	SideFiat   Side = "fiat"
	SideCrypto Side = "crypto"
)

// QuoteState is the full view of the buy/sell widget
type QuoteState struct {
	Direction      Direction `json:"direction"`
	FiatCurrency   string    `json:"fiat_currency"`
	CryptoCurrency string    `json:"crypto_currency"`
	FiatAmount     string    `json:"fiat_amount"`
	CryptoAmount   string    `json:"crypto_amount"`
	EditedField    Field     `json:"edited_field"`
	RequestEpoch   uint64    `json:"request_epoch"`
	IsLoading      bool      `json:"is_loading"`
	QuoteError     string    `json:"quote_error,omitempty"` // Transient, cleared by the next successful quote
	Rate           string    `json:"rate,omitempty"`        // Fiat price of one crypto unit from the last applied quote
}

// Amount returns the value held by field f
func (s QuoteState) Amount(f Field) string {
	if f == FieldCrypto {
		return s.CryptoAmount
	}
	return s.FiatAmount
}

// AuthoritativeAmount returns the value of the field the user is driving
func (s QuoteState) AuthoritativeAmount() string {
	return s.Amount(s.EditedField)
}

// DerivedField returns the field computed from the authoritative one
func (s QuoteState) DerivedField() Field {
	return s.EditedField.Other()
}

// QuoteRequest is sent to the rate quote service
type QuoteRequest struct {
	Direction      Direction
	FiatCurrency   string
	CryptoCurrency string
	Amount         string // Authoritative amount: fiat when buying, crypto when selling
}

// QuoteResponse is returned by the rate quote service
type QuoteResponse struct {
	ConvertedAmount string // Unrounded amount on the derived side
	Rate            string // Fiat price of one crypto unit, if known
	Source          string
}

// CurrencyOptions holds the selectable codes for each side
type CurrencyOptions struct {
	Fiat   []string
	Crypto []string
}

// DefaultCurrencyOptions mirrors the dropdowns of the buy/sell widget
func DefaultCurrencyOptions() CurrencyOptions {
	return CurrencyOptions{
		Fiat:   []string{"USD", "EUR", "BRL"},
		Crypto: []string{"BTC", "ETH", "USDT", "USDC", "SOL"},
	}
}

// Allows reports whether code is selectable for side
func (o CurrencyOptions) Allows(side Side, code string) bool {
	options := o.Fiat
	if side == SideCrypto {
		options = o.Crypto
	}
	for _, opt := range options {
		if strings.EqualFold(opt, code) {
			return true
		}
	}
	return false
}
