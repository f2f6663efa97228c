// Package quote reconciles the fiat and crypto amounts of a buy/sell widget.
//
// One amount is authoritative (typed by the user) and the other is derived
// from a rate service. Edits are debounced, every scheduled request gets a new
// epoch and responses from superseded epochs are dropped, so the derived
// amount always reflects the most recently initiated edit regardless of the
// order in which responses arrive.
package quote

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"fiat-ramp/pkg/parser"
	"fiat-ramp/pkg/types"
)

const (
	DefaultDebounce       = 800 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
)

// RateService converts an authoritative amount into the derived one
type RateService interface {
	GetQuote(ctx context.Context, req types.QuoteRequest) (*types.QuoteResponse, error)
}

// RateServiceFunc adapts a function to RateService
type RateServiceFunc func(ctx context.Context, req types.QuoteRequest) (*types.QuoteResponse, error)

func (f RateServiceFunc) GetQuote(ctx context.Context, req types.QuoteRequest) (*types.QuoteResponse, error) {
	return f(ctx, req)
}

// Initial seeds the widget state on mount
type Initial struct {
	Direction      types.Direction
	FiatCurrency   string
	CryptoCurrency string
	Amount         string // Goes into the authoritative field of Direction
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces the timer source
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithDebounce sets the quiet period before a quote is requested
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		e.debounce = d
	}
}

// WithRequestTimeout bounds a single rate service call
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithPrecision sets the rounding of derived amounts
func WithPrecision(p Precision) Option {
	return func(e *Engine) {
		e.precision = p
	}
}

// WithCurrencyOptions restricts the selectable currencies
func WithCurrencyOptions(o types.CurrencyOptions) Option {
	return func(e *Engine) {
		e.options = o
	}
}

// WithOnChange installs the change notification hook.
// The hook receives a snapshot after every mutation, in mutation order; it may
// skip intermediate states but never goes backwards. It must not call the
// mutating methods of the engine synchronously.
func WithOnChange(fn func(types.QuoteState)) Option {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// WithLogger installs a custom logger
func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithContext sets the parent of every request context
func WithContext(ctx context.Context) Option {
	return func(e *Engine) {
		e.parent = ctx
	}
}

// Engine owns one QuoteState
type Engine struct {
	mu      sync.Mutex
	state   types.QuoteState
	lastErr error
	pending Timer
	closed  bool
	version uint64

	notifyMu sync.Mutex
	notified uint64

	service   RateService
	clock     Clock
	debounce  time.Duration
	timeout   time.Duration
	precision Precision
	options   types.CurrencyOptions
	onChange  func(types.QuoteState)
	logger    *logrus.Entry

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
}

// New mounts an engine and issues the quote for the seeded amount
func New(service RateService, initial Initial, opts ...Option) (*Engine, error) {
	if service == nil {
		return nil, errors.New("rate service required")
	}

	e := &Engine{
		service:   service,
		clock:     SystemClock(),
		debounce:  DefaultDebounce,
		timeout:   DefaultRequestTimeout,
		precision: DefaultPrecision(),
		options:   types.DefaultCurrencyOptions(),
		logger:    logrus.WithField("component", "quote"),
		parent:    context.Background(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.debounce < 0 {
		e.debounce = 0
	}
	if e.timeout <= 0 {
		e.timeout = DefaultRequestTimeout
	}

	direction := initial.Direction
	if direction == "" {
		direction = types.DirectionBuy
	}
	if !direction.Valid() {
		return nil, errors.Wrapf(ErrInvalidDirection, "%q", initial.Direction)
	}
	fiat := parser.NormalizeCurrency(initial.FiatCurrency)
	if !e.options.Allows(types.SideFiat, fiat) {
		return nil, errors.Wrapf(ErrUnsupportedCurrency, "fiat %q", initial.FiatCurrency)
	}
	crypto := parser.NormalizeCurrency(initial.CryptoCurrency)
	if !e.options.Allows(types.SideCrypto, crypto) {
		return nil, errors.Wrapf(ErrUnsupportedCurrency, "crypto %q", initial.CryptoCurrency)
	}
	if err := parser.ValidateAmount(initial.Amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	e.ctx, e.cancel = context.WithCancel(e.parent)
	e.state = types.QuoteState{
		Direction:      direction,
		FiatCurrency:   fiat,
		CryptoCurrency: crypto,
		EditedField:    direction.Authoritative(),
	}
	e.setAmountLocked(e.state.EditedField, initial.Amount)

	e.mu.Lock()
	e.recomputeLocked()
	snapshot, version := e.snapshotLocked()
	e.mu.Unlock()

	e.notify(snapshot, version)
	return e, nil
}

// SetDirection switches between buy and sell. The field that becomes
// authoritative keeps its displayed value and is re-quoted.
func (e *Engine) SetDirection(direction types.Direction) error {
	if !direction.Valid() {
		return errors.Wrapf(ErrInvalidDirection, "%q", direction)
	}

	return e.mutate(func() {
		e.state.Direction = direction
		e.state.EditedField = direction.Authoritative()
		e.logger.WithFields(logrus.Fields{
			"direction":     direction,
			"authoritative": e.state.EditedField,
		}).Debug("direction changed")
	})
}

// SetAuthoritativeAmount stores raw input typed into the active amount field.
// Input that is not a plain decimal is rejected and leaves the state unchanged.
func (e *Engine) SetAuthoritativeAmount(value string) error {
	if err := parser.ValidateAmount(value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return e.mutate(func() {
		e.setAmountLocked(e.state.EditedField, value)
	})
}

// SetCurrency selects a new code for one side. Currency changes always re-quote.
func (e *Engine) SetCurrency(side types.Side, code string) error {
	code = parser.NormalizeCurrency(code)
	if side != types.SideFiat && side != types.SideCrypto {
		return errors.Errorf("unknown currency side %q", side)
	}
	if !e.options.Allows(side, code) {
		return errors.Wrapf(ErrUnsupportedCurrency, "%s %q", side, code)
	}

	return e.mutate(func() {
		if side == types.SideFiat {
			e.state.FiatCurrency = code
		} else {
			e.state.CryptoCurrency = code
		}
	})
}

// State returns a snapshot of the current state
func (e *Engine) State() types.QuoteState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the failure behind the current QuoteError, if any
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Options returns the selectable currencies
func (e *Engine) Options() types.CurrencyOptions {
	return e.options
}

// Close unmounts the engine. The pending timer is cancelled and responses
// still in flight are dropped.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.stopPendingLocked()
	e.cancel()
}

// mutate applies fn and the recompute it triggers under the lock, then notifies
func (e *Engine) mutate(fn func()) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	fn()
	e.recomputeLocked()
	snapshot, version := e.snapshotLocked()
	e.mu.Unlock()

	e.notify(snapshot, version)
	return nil
}

// recomputeLocked starts a new epoch for the current authoritative value
func (e *Engine) recomputeLocked() {
	e.stopPendingLocked()

	value := e.state.AuthoritativeAmount()
	derived := e.state.DerivedField()

	// Zero never reaches the rate service. The epoch still advances so that a
	// response for an older non-zero value cannot overwrite the "0".
	if parser.IsZeroAmount(value) {
		e.state.RequestEpoch++
		e.setAmountLocked(derived, "0")
		e.state.IsLoading = false
		e.state.QuoteError = ""
		e.lastErr = nil
		return
	}

	e.state.RequestEpoch++
	e.state.IsLoading = true
	epoch := e.state.RequestEpoch

	req := types.QuoteRequest{
		Direction:      e.state.Direction,
		FiatCurrency:   e.state.FiatCurrency,
		CryptoCurrency: e.state.CryptoCurrency,
		Amount:         value,
	}

	e.pending = e.clock.AfterFunc(e.debounce, func() {
		e.fire(epoch, req)
	})
}

// fire runs when the debounce window of epoch closes
func (e *Engine) fire(epoch uint64, req types.QuoteRequest) {
	e.mu.Lock()
	if e.closed || epoch != e.state.RequestEpoch {
		// Superseded between the timer firing and us taking the lock
		e.mu.Unlock()
		return
	}
	e.pending = nil
	ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"epoch":     epoch,
		"direction": req.Direction,
		"pair":      req.CryptoCurrency + "/" + req.FiatCurrency,
		"amount":    req.Amount,
	}).Debug("requesting quote")

	go func() {
		defer cancel()
		resp, err := e.service.GetQuote(ctx, req)
		e.resolve(epoch, req, resp, err)
	}()
}

// resolve applies a response if it belongs to the current epoch
func (e *Engine) resolve(epoch uint64, req types.QuoteRequest, resp *types.QuoteResponse, err error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if epoch != e.state.RequestEpoch {
		current := e.state.RequestEpoch
		e.mu.Unlock()
		e.logger.WithFields(logrus.Fields{
			"epoch":   epoch,
			"current": current,
		}).Debug("discarding stale quote")
		return
	}

	var amount decimal.Decimal
	if err == nil {
		amount, err = convertedAmount(resp)
	}

	derived := req.Direction.Authoritative().Other()
	e.state.IsLoading = false

	if err != nil {
		e.lastErr = fmt.Errorf("%w: %w", ErrQuoteUnavailable, err)
		e.state.QuoteError = e.lastErr.Error()
		e.logger.WithError(err).WithField("epoch", epoch).Warn("quote failed")
	} else {
		code := req.FiatCurrency
		if derived == types.FieldCrypto {
			code = req.CryptoCurrency
		}
		e.setAmountLocked(derived, e.precision.Format(amount, derived, code))
		e.state.Rate = resp.Rate
		e.state.QuoteError = ""
		e.lastErr = nil
	}

	snapshot, version := e.snapshotLocked()
	e.mu.Unlock()

	e.notify(snapshot, version)
}

func convertedAmount(resp *types.QuoteResponse) (decimal.Decimal, error) {
	if resp == nil {
		return decimal.Zero, errors.New("empty quote response")
	}
	raw := strings.TrimSpace(resp.ConvertedAmount)
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "malformed converted amount %q", resp.ConvertedAmount)
	}
	if amount.IsNegative() {
		return decimal.Zero, errors.Errorf("negative converted amount %q", resp.ConvertedAmount)
	}
	return amount, nil
}

func (e *Engine) setAmountLocked(field types.Field, value string) {
	if field == types.FieldCrypto {
		e.state.CryptoAmount = value
	} else {
		e.state.FiatAmount = value
	}
}

func (e *Engine) stopPendingLocked() {
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
}

func (e *Engine) snapshotLocked() (types.QuoteState, uint64) {
	e.version++
	return e.state, e.version
}

func (e *Engine) notify(snapshot types.QuoteState, version uint64) {
	if e.onChange == nil {
		return
	}

	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	if version <= e.notified {
		return
	}
	e.notified = version
	e.onChange(snapshot)
}
