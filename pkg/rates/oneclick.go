package rates

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// DefaultStablecoins maps fiat codes to the stablecoin that stands in for them on 1Click
var DefaultStablecoins = map[string]string{
	"USD": "USDC",
}

// UnitPricer quotes one unit of an asset in another asset
type UnitPricer interface {
	UnitPrice(ctx context.Context, from, to, recipient string) (decimal.Decimal, error)
}

// OneClickSource prices crypto in fiat through 1Click dry quotes into a stablecoin
type OneClickSource struct {
	pricer      UnitPricer
	stablecoins map[string]string
	recipient   string
}

// NewOneClickSource creates the source. stablecoins entries are merged over DefaultStablecoins.
func NewOneClickSource(pricer UnitPricer, stablecoins map[string]string, recipient string) *OneClickSource {
	mapped := make(map[string]string, len(DefaultStablecoins)+len(stablecoins))
	for k, v := range DefaultStablecoins {
		mapped[k] = v
	}
	for k, v := range stablecoins {
		mapped[strings.ToUpper(strings.TrimSpace(k))] = strings.ToUpper(strings.TrimSpace(v))
	}
	return &OneClickSource{pricer: pricer, stablecoins: mapped, recipient: recipient}
}

func (s *OneClickSource) Name() string {
	return "oneclick"
}

func (s *OneClickSource) Price(ctx context.Context, crypto, fiat string) (decimal.Decimal, error) {
	stable, ok := s.stablecoins[strings.ToUpper(fiat)]
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrUnsupportedPair, "no stablecoin configured for %s", fiat)
	}
	crypto = strings.ToUpper(crypto)
	if crypto == stable {
		return decimal.NewFromInt(1), nil
	}

	price, err := s.pricer.UnitPrice(ctx, crypto, stable, s.recipient)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "1click %s->%s", crypto, stable)
	}
	return price, nil
}
