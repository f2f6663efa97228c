package rates

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// DefaultFixedPrices is the sandbox table used when no prices are configured
var DefaultFixedPrices = map[string]string{
	"BTC/USD":  "68000",
	"BTC/EUR":  "62500",
	"BTC/BRL":  "340000",
	"ETH/USD":  "3400",
	"ETH/EUR":  "3125",
	"ETH/BRL":  "17000",
	"USDT/USD": "1",
	"USDT/EUR": "0.92",
	"USDT/BRL": "5",
	"USDC/USD": "1",
	"USDC/EUR": "0.92",
	"USDC/BRL": "5",
	"SOL/USD":  "150",
	"SOL/EUR":  "138",
	"SOL/BRL":  "750",
}

// FixedSource serves prices from a static table keyed "CRYPTO/FIAT"
type FixedSource struct {
	prices map[string]decimal.Decimal
}

// NewFixedSource parses a price table. Keys are case-insensitive.
func NewFixedSource(table map[string]string) (*FixedSource, error) {
	prices := make(map[string]decimal.Decimal, len(table))
	for pair, raw := range table {
		parts := strings.Split(strings.ReplaceAll(pair, "_", "/"), "/")
		if len(parts) != 2 {
			return nil, errors.Errorf("fixed price %q: pair must look like BTC/USD", pair)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, errors.Wrapf(err, "fixed price %q", pair)
		}
		if !price.IsPositive() {
			return nil, errors.Errorf("fixed price %q must be positive", pair)
		}
		prices[pairKey(parts[0], parts[1])] = price
	}
	return &FixedSource{prices: prices}, nil
}

func (s *FixedSource) Name() string {
	return "fixed"
}

func (s *FixedSource) Price(ctx context.Context, crypto, fiat string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	price, ok := s.prices[pairKey(crypto, fiat)]
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrUnsupportedPair, "%s", pairKey(crypto, fiat))
	}
	return price, nil
}
