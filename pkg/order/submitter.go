package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"fiat-ramp/pkg/auth"
	"fiat-ramp/pkg/parser"
	"fiat-ramp/pkg/types"
	"fiat-ramp/pkg/wallet"
)

// ErrSubmissionFailed wraps every reason a confirmation did not produce an order
var ErrSubmissionFailed = errors.New("submission failed")

// Dispatcher hands a stored order to settlement
type Dispatcher interface {
	Dispatch(ctx context.Context, order *Order) error
}

// Submitter turns a settled quote into an order
type Submitter struct {
	manager    *Manager
	dispatcher Dispatcher
	logger     *logrus.Entry
}

// SubmitterOption configures a Submitter
type SubmitterOption func(*Submitter)

// WithDispatcher installs the settlement hand-off. Without one, stored
// orders are marked submitted directly.
func WithDispatcher(d Dispatcher) SubmitterOption {
	return func(s *Submitter) {
		s.dispatcher = d
	}
}

// WithSubmitterLogger installs a custom logger
func WithSubmitterLogger(l *logrus.Entry) SubmitterOption {
	return func(s *Submitter) {
		s.logger = l
	}
}

// NewSubmitter creates a submitter backed by manager
func NewSubmitter(manager *Manager, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		manager: manager,
		logger:  logrus.WithField("component", "order"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Submit records state as an order for session. The quote must be settled:
// not loading, no error and both amounts non-zero. state is only read.
func (s *Submitter) Submit(ctx context.Context, session *auth.Session, state types.QuoteState, walletAddress string) (*Order, error) {
	if !session.Authenticated() {
		return nil, failed(auth.ErrNotAuthenticated)
	}
	if err := ctx.Err(); err != nil {
		return nil, failed(err)
	}
	if state.IsLoading {
		return nil, failed(errors.New("quote is still loading"))
	}
	if state.QuoteError != "" {
		return nil, failed(errors.Errorf("quote has an error: %s", state.QuoteError))
	}
	if parser.IsZeroAmount(state.FiatAmount) || parser.IsZeroAmount(state.CryptoAmount) {
		return nil, failed(errors.New("both amounts must be greater than 0"))
	}
	if err := wallet.Validate(state.CryptoCurrency, walletAddress); err != nil {
		return nil, failed(err)
	}

	order := &Order{
		ID:             uuid.New().String(),
		UserID:         session.UserID,
		Direction:      state.Direction,
		FiatCurrency:   state.FiatCurrency,
		CryptoCurrency: state.CryptoCurrency,
		FiatAmount:     state.FiatAmount,
		CryptoAmount:   state.CryptoAmount,
		Rate:           state.Rate,
		WalletAddress:  walletAddress,
		Status:         StatusPending,
	}
	if err := s.manager.Record(order); err != nil {
		return nil, failed(err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"order": order.ID,
		"user":  order.UserID,
	})

	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, order); err != nil {
			log.WithError(err).Warn("order dispatch failed")
			if updateErr := s.manager.SetStatus(order, StatusFailed, err.Error()); updateErr != nil {
				log.WithError(updateErr).Error("failed to mark order as failed")
			}
			return order, failed(err)
		}
	}

	if err := s.manager.SetStatus(order, StatusSubmitted, ""); err != nil {
		return order, failed(err)
	}

	log.WithField("summary", order.Summary()).Info("order submitted")
	return order, nil
}

func failed(err error) error {
	return fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
}
