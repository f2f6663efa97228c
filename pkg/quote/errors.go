package quote

import "github.com/pkg/errors"

var (
	// ErrInvalidInput is returned when an amount edit is not a plain decimal.
	// The state is left unchanged.
	ErrInvalidInput = errors.New("invalid amount input")

	// ErrInvalidDirection is returned for a direction other than buy or sell.
	ErrInvalidDirection = errors.New("invalid direction")

	// ErrUnsupportedCurrency is returned when a code is not among the side's options.
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrQuoteUnavailable wraps rate service failures, timeouts and malformed responses.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("quote engine closed")
)
