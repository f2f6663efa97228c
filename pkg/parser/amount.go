package parser

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for input that is not a plain non-negative decimal
var ErrInvalidAmount = errors.New("invalid amount")

// Matches "1", "1.", "1.5", ".5". Signs, exponents and separators are rejected.
var amountPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// ValidateAmount checks raw input from an amount field. Empty input is valid.
func ValidateAmount(value string) error {
	if value == "" {
		return nil
	}
	if !amountPattern.MatchString(value) {
		return errors.Wrapf(ErrInvalidAmount, "%q", value)
	}
	return nil
}

// ParseAmount converts a validated amount to a decimal. Empty input parses as zero.
func ParseAmount(value string) (decimal.Decimal, error) {
	if err := ValidateAmount(value); err != nil {
		return decimal.Zero, err
	}
	if value == "" {
		return decimal.Zero, nil
	}
	value = strings.TrimSuffix(value, ".")
	if strings.HasPrefix(value, ".") {
		value = "0" + value
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "%q: %v", value, err)
	}
	return d, nil
}

// IsZeroAmount reports whether value is empty or numerically zero.
// Unparsable input counts as zero.
func IsZeroAmount(value string) bool {
	d, err := ParseAmount(value)
	if err != nil {
		return true
	}
	return d.IsZero()
}

// NormalizeCurrency normalizes currency and asset codes to standard format
func NormalizeCurrency(code string) string {
	code = strings.TrimSpace(strings.ToUpper(code))

	// Wrapped assets quote like their underlying
	aliases := map[string]string{
		"WBTC": "BTC",
		"WETH": "ETH",
		"WSOL": "SOL",
	}

	if normalized, exists := aliases[code]; exists {
		return normalized
	}

	return code
}
