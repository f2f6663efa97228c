// Package rates turns fiat/crypto prices into quotes for the reconciliation engine.
package rates

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"fiat-ramp/pkg/parser"
	"fiat-ramp/pkg/types"
)

var (
	ErrUnsupportedPair = errors.New("unsupported pair")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNoPrice         = errors.New("no price available")
)

// Service answers a quote for one authoritative amount
type Service interface {
	GetQuote(ctx context.Context, req types.QuoteRequest) (*types.QuoteResponse, error)
}

// PriceSource resolves the fiat price of one unit of a crypto asset
type PriceSource interface {
	Name() string
	Price(ctx context.Context, crypto, fiat string) (decimal.Decimal, error)
}

// Converter implements Service on top of a PriceSource
type Converter struct {
	source PriceSource
	spread decimal.Decimal
}

// NewConverter creates a converter. spreadPercent marks buy prices up and
// sell prices down by that percentage.
func NewConverter(source PriceSource, spreadPercent decimal.Decimal) *Converter {
	if spreadPercent.IsNegative() {
		spreadPercent = decimal.Zero
	}
	return &Converter{source: source, spread: spreadPercent}
}

// GetQuote converts req.Amount. The result is not rounded.
func (c *Converter) GetQuote(ctx context.Context, req types.QuoteRequest) (*types.QuoteResponse, error) {
	if !req.Direction.Valid() {
		return nil, errors.Errorf("invalid direction %q", req.Direction)
	}
	amount, err := parser.ParseAmount(strings.TrimSpace(req.Amount))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidAmount, err.Error())
	}

	price, err := c.Price(ctx, req.Direction, req.CryptoCurrency, req.FiatCurrency)
	if err != nil {
		return nil, err
	}

	var converted decimal.Decimal
	if req.Direction == types.DirectionBuy {
		// fiat in, crypto out
		converted = amount.Div(price)
	} else {
		converted = amount.Mul(price)
	}

	return &types.QuoteResponse{
		ConvertedAmount: converted.String(),
		Rate:            price.String(),
		Source:          c.sourceName(req.CryptoCurrency, req.FiatCurrency),
	}, nil
}

// sourceReporter is implemented by sources that delegate to other sources
type sourceReporter interface {
	LastSource(crypto, fiat string) (string, bool)
}

func (c *Converter) sourceName(crypto, fiat string) string {
	if r, ok := c.source.(sourceReporter); ok {
		if name, ok := r.LastSource(crypto, fiat); ok {
			return name
		}
	}
	return c.source.Name()
}

// Price returns the unit price for direction with the spread applied
func (c *Converter) Price(ctx context.Context, direction types.Direction, crypto, fiat string) (decimal.Decimal, error) {
	crypto = parser.NormalizeCurrency(crypto)
	fiat = parser.NormalizeCurrency(fiat)
	if crypto == "" || fiat == "" {
		return decimal.Zero, errors.Wrapf(ErrUnsupportedPair, "%s/%s", crypto, fiat)
	}

	price, err := c.source.Price(ctx, crypto, fiat)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "%s price %s/%s", c.source.Name(), crypto, fiat)
	}
	if !price.IsPositive() {
		return decimal.Zero, errors.Wrapf(ErrNoPrice, "%s returned %s for %s/%s", c.source.Name(), price, crypto, fiat)
	}

	if c.spread.IsZero() {
		return price, nil
	}
	factor := c.spread.Div(decimal.NewFromInt(100))
	if direction == types.DirectionBuy {
		return price.Mul(decimal.NewFromInt(1).Add(factor)), nil
	}
	return price.Mul(decimal.NewFromInt(1).Sub(factor)), nil
}

func pairKey(crypto, fiat string) string {
	return parser.NormalizeCurrency(crypto) + "/" + parser.NormalizeCurrency(fiat)
}
