// Package order records confirmed buy and sell quotes.
package order

import (
	"time"

	"github.com/pkg/errors"

	"fiat-ramp/pkg/parser"
	"fiat-ramp/pkg/types"
)

// Status defines where an order is in its lifecycle
type Status string

const (
	StatusPending   Status = "pending"   // Stored, not yet handed off
	StatusSubmitted Status = "submitted" // Accepted for settlement
	StatusFailed    Status = "failed"    // Hand-off failed
)

// Order is a confirmed quote
type Order struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`

	Direction      types.Direction `json:"direction"`
	FiatCurrency   string          `json:"fiat_currency"`
	CryptoCurrency string          `json:"crypto_currency"`
	FiatAmount     string          `json:"fiat_amount"`
	CryptoAmount   string          `json:"crypto_amount"`
	Rate           string          `json:"rate,omitempty"`
	WalletAddress  string          `json:"wallet_address"`

	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Validate checks that the order carries everything settlement needs
func (o *Order) Validate() error {
	if o.ID == "" {
		return errors.New("order id is required")
	}
	if o.UserID == "" {
		return errors.New("user id is required")
	}
	if !o.Direction.Valid() {
		return errors.Errorf("invalid direction %q", o.Direction)
	}
	if o.FiatCurrency == "" || o.CryptoCurrency == "" {
		return errors.New("both currencies are required")
	}
	if parser.IsZeroAmount(o.FiatAmount) {
		return errors.New("fiat amount must be greater than 0")
	}
	if parser.IsZeroAmount(o.CryptoAmount) {
		return errors.New("crypto amount must be greater than 0")
	}
	if o.WalletAddress == "" {
		return errors.New("wallet address is required")
	}
	return nil
}

// Summary is a one-line description for listings
func (o *Order) Summary() string {
	if o.Direction == types.DirectionSell {
		return o.CryptoAmount + " " + o.CryptoCurrency + " -> " + o.FiatAmount + " " + o.FiatCurrency
	}
	return o.FiatAmount + " " + o.FiatCurrency + " -> " + o.CryptoAmount + " " + o.CryptoCurrency
}
