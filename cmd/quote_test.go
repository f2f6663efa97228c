package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiat-ramp/config"
	"fiat-ramp/pkg/auth"
	"fiat-ramp/pkg/order"
	"fiat-ramp/pkg/quote"
	"fiat-ramp/pkg/rates"
	"fiat-ramp/pkg/types"
)

func newSessionForTest(t *testing.T) (*quoteSession, *bytes.Buffer) {
	t.Helper()
	fixed, err := rates.NewFixedSource(map[string]string{"ETH/USD": "3400", "ETH/EUR": "3125"})
	require.NoError(t, err)

	engine, err := quote.New(rates.NewConverter(fixed, decimal.Zero),
		quote.Initial{FiatCurrency: "USD", CryptoCurrency: "ETH"},
		quote.WithDebounce(time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	var out bytes.Buffer
	return &quoteSession{engine: engine, view: newQuoteView(&out, false, false)}, &out
}

func settled(t *testing.T, e *quote.Engine, want func(types.QuoteState) bool) types.QuoteState {
	t.Helper()
	require.Eventually(t, func() bool {
		s := e.State()
		return !s.IsLoading && want(s)
	}, 2*time.Second, 5*time.Millisecond)
	return e.State()
}

func TestQuoteSessionCommands(t *testing.T) {
	session, out := newSessionForTest(t)
	ctx := context.Background()

	assert.False(t, session.handle(ctx, "1000"))
	state := settled(t, session.engine, func(s types.QuoteState) bool { return s.CryptoAmount == "0.29412" })
	assert.Equal(t, "1000", state.FiatAmount)

	assert.False(t, session.handle(ctx, "fiat eur"))
	state = settled(t, session.engine, func(s types.QuoteState) bool { return s.FiatCurrency == "EUR" })
	assert.Equal(t, "0.32000", state.CryptoAmount)

	assert.False(t, session.handle(ctx, "sell"))
	state = settled(t, session.engine, func(s types.QuoteState) bool { return s.Direction == types.DirectionSell })
	assert.Equal(t, "0.32000", state.CryptoAmount)
	assert.Equal(t, "1000.00", state.FiatAmount)

	assert.False(t, session.handle(ctx, "wallet 0x52908400098527886E0F7030069857D2E4169EE7"))
	assert.Equal(t, "0x52908400098527886E0F7030069857D2E4169EE7", session.wallet)

	assert.True(t, session.handle(ctx, "quit"))
	assert.Contains(t, out.String(), "wallet set to")
}

func TestQuoteSessionRejectsBadInput(t *testing.T) {
	session, out := newSessionForTest(t)
	ctx := context.Background()
	before := session.engine.State()

	session.handle(ctx, "amount abc")
	session.handle(ctx, "crypto doge")
	session.handle(ctx, "teleport")

	assert.Equal(t, before, session.engine.State())
	text := out.String()
	assert.Contains(t, text, "invalid amount input")
	assert.Contains(t, text, "unsupported currency")
	assert.Contains(t, text, "unknown command")
}

func TestQuoteSessionListsCurrencyChoices(t *testing.T) {
	session, out := newSessionForTest(t)

	session.handle(context.Background(), "crypto doge")
	session.handle(context.Background(), "fiat jpy")

	text := out.String()
	assert.Contains(t, text, "choose one of BTC, ETH, USDT, USDC, SOL")
	assert.Contains(t, text, "choose one of USD, EUR, BRL")
}

func TestQuoteViewRendersSettledZero(t *testing.T) {
	var out bytes.Buffer
	view := newQuoteView(&out, false, true)

	zero := types.QuoteState{
		Direction:      types.DirectionBuy,
		FiatCurrency:   "USD",
		CryptoCurrency: "BTC",
		FiatAmount:     "0",
		CryptoAmount:   "0",
		RequestEpoch:   2,
	}
	view.update(zero)
	require.Contains(t, out.String(), "You pay:")

	// The same snapshot is not printed twice
	printed := out.Len()
	view.update(zero)
	assert.Equal(t, printed, out.Len())

	zero.Direction = types.DirectionSell
	zero.RequestEpoch = 3
	view.update(zero)
	assert.Greater(t, out.Len(), printed)
}

func TestNewSubmitterPostsToWebhook(t *testing.T) {
	hits := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- r.Header.Get(order.SignatureHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	prevConfig, prevLogger := appConfig, logger
	t.Cleanup(func() { appConfig, logger = prevConfig, prevLogger })
	appConfig = &config.Config{Orders: config.OrdersConfig{
		WebhookURL:     server.URL,
		WebhookSecret:  "s3cret",
		WebhookTimeout: time.Second,
	}}
	logger = logrus.New()
	logger.SetOutput(io.Discard)

	manager, err := order.NewManager(filepath.Join(t.TempDir(), "orders.json"))
	require.NoError(t, err)

	state := types.QuoteState{
		Direction:      types.DirectionBuy,
		FiatCurrency:   "USD",
		CryptoCurrency: "ETH",
		FiatAmount:     "1000",
		CryptoAmount:   "0.29412",
	}
	session := &auth.Session{UserID: "alice", Role: auth.RoleUser}

	placed, err := newSubmitter(manager).Submit(context.Background(), session, state, "0x52908400098527886E0F7030069857D2E4169EE7")
	require.NoError(t, err)
	assert.Equal(t, order.StatusSubmitted, placed.Status)
	assert.NotEmpty(t, <-hits)
}

func TestQuoteSessionRunStopsAtEOF(t *testing.T) {
	session, _ := newSessionForTest(t)
	session.view.json = true

	err := session.run(context.Background(), strings.NewReader("250\nbuy\n"))
	require.NoError(t, err)
	settled(t, session.engine, func(s types.QuoteState) bool { return s.FiatAmount == "250" })
}

func TestQuoteViewWaitSettled(t *testing.T) {
	var out bytes.Buffer
	view := newQuoteView(&out, false, false)

	view.update(types.QuoteState{IsLoading: true})
	go view.update(types.QuoteState{CryptoAmount: "0.5"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	state, err := view.waitSettled(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.5", state.CryptoAmount)
}

func TestRenderSellSwapsSides(t *testing.T) {
	var out bytes.Buffer
	view := newQuoteView(&out, false, false)
	view.render(types.QuoteState{
		Direction:      types.DirectionSell,
		FiatCurrency:   "EUR",
		CryptoCurrency: "BTC",
		FiatAmount:     "61234.50",
		CryptoAmount:   "2",
		QuoteError:     "quote unavailable: timeout",
	})

	text := out.String()
	payLine := text[strings.Index(text, "You pay:"):]
	payLine = payLine[:strings.Index(payLine, "\n")]
	assert.Contains(t, payLine, "BTC")
	assert.Contains(t, text, "quote unavailable: timeout")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 8))
	assert.Equal(t, "abcde...", truncateString("abcdefghijk", 8))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
	assert.Equal(t, "x", firstNonEmpty("", " ", "x"))
}
