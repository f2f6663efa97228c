package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fiat-ramp/pkg/order"
	"fiat-ramp/pkg/parser"
	"fiat-ramp/pkg/quote"
	"fiat-ramp/pkg/types"
)

var (
	quoteSell   bool
	quoteFiat   string
	quoteCrypto string
	quoteAmount string
	quoteWallet string
	quoteOnce   bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Open an interactive buy/sell quote",
	Long: `Open an interactive quote. The amount you type is authoritative: fiat when
buying, crypto when selling. The other amount is re-quoted 800ms after you stop
typing.

Session commands:
  buy | sell            switch direction (the displayed amounts are kept)
  amount <v> | <v>      set the amount you pay (buy) or sell (sell)
  fiat <code>           select the fiat currency
  crypto <code>         select the crypto asset
  wallet <address>      set the receiving wallet
  show                  print the current quote
  confirm               submit the quote as an order
  help                  list commands
  quit                  leave the session

Examples:
  fiat-ramp quote
  fiat-ramp quote --crypto ETH --amount 1000 --wallet 0x52908400098527886E0F7030069857D2E4169EE7
  fiat-ramp quote --sell --crypto BTC --fiat EUR --amount 2 --once`,
	Args: cobra.NoArgs,
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().BoolVar(&quoteSell, "sell", false, "Start in sell mode")
	quoteCmd.Flags().StringVar(&quoteFiat, "fiat", "", "Fiat currency (default from quote.default_fiat)")
	quoteCmd.Flags().StringVar(&quoteCrypto, "crypto", "", "Crypto asset (default from quote.default_crypto)")
	quoteCmd.Flags().StringVar(&quoteAmount, "amount", "", "Initial amount (default from quote.default_amount)")
	quoteCmd.Flags().StringVar(&quoteWallet, "wallet", "", "Receiving wallet address")
	quoteCmd.Flags().BoolVar(&quoteOnce, "once", false, "Print the settled quote and exit")
}

func runQuote(cmd *cobra.Command, args []string) {
	asJSON := jsonOutput(cmd)

	service, err := newRateService()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	initial := quote.Initial{
		Direction:      types.DirectionBuy,
		FiatCurrency:   firstNonEmpty(quoteFiat, appConfig.Quote.DefaultFiat),
		CryptoCurrency: firstNonEmpty(quoteCrypto, appConfig.Quote.DefaultCrypto),
		Amount:         appConfig.Quote.DefaultAmount,
	}
	if quoteSell {
		initial.Direction = types.DirectionSell
		// The fiat default makes no sense as a crypto amount
		initial.Amount = ""
	}
	if cmd.Flags().Changed("amount") {
		initial.Amount = quoteAmount
	}

	view := newQuoteView(os.Stdout, asJSON, !quoteOnce)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine, err := quote.New(service, initial,
		quote.WithContext(ctx),
		quote.WithDebounce(appConfig.Quote.Debounce),
		quote.WithRequestTimeout(appConfig.Quote.RequestTimeout),
		quote.WithPrecision(quote.Precision{
			Fiat:      quote.DefaultFiatPlaces,
			Crypto:    quote.DefaultCryptoPlaces,
			Overrides: appConfig.Precision,
		}),
		quote.WithCurrencyOptions(appConfig.Currencies),
		quote.WithLogger(logger.WithField("component", "quote")),
		quote.WithOnChange(view.update),
	)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer engine.Close()

	if quoteOnce {
		state, err := view.waitSettled(ctx)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		view.render(state)
		if state.QuoteError != "" {
			os.Exit(1)
		}
		return
	}

	session := &quoteSession{
		engine: engine,
		view:   view,
		wallet: quoteWallet,
	}
	if err := session.run(ctx, os.Stdin); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// quoteSession reads commands and drives the engine
type quoteSession struct {
	engine *quote.Engine
	view   *quoteView
	wallet string
}

func (s *quoteSession) run(ctx context.Context, in io.Reader) error {
	if !s.view.json {
		color.Cyan("\nType an amount to re-quote, 'help' for commands, 'quit' to leave.\n")
		s.view.render(s.engine.State())
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if done := s.handle(ctx, line); done {
				return nil
			}
		}
	}
}

// handle executes one command line and reports whether the session is over
func (s *quoteSession) handle(ctx context.Context, line string) bool {
	command, err := parser.ParseSessionCommand(line)
	if err != nil {
		s.view.notice(err.Error())
		return false
	}

	switch command.Action {
	case parser.ActionQuit:
		return true
	case parser.ActionHelp:
		s.view.help()
	case parser.ActionShow:
		s.view.render(s.engine.State())
	case parser.ActionBuy:
		s.apply(s.engine.SetDirection(types.DirectionBuy))
	case parser.ActionSell:
		s.apply(s.engine.SetDirection(types.DirectionSell))
	case parser.ActionAmount:
		s.apply(s.engine.SetAuthoritativeAmount(command.Arg))
	case parser.ActionFiat:
		s.setCurrency(types.SideFiat, command.Arg)
	case parser.ActionCrypto:
		s.setCurrency(types.SideCrypto, command.Arg)
	case parser.ActionWallet:
		s.wallet = command.Arg
		s.view.notice("wallet set to " + command.Arg)
	case parser.ActionConfirm:
		s.confirm(ctx)
	}
	return false
}

func (s *quoteSession) apply(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, quote.ErrInvalidInput), errors.Is(err, quote.ErrUnsupportedCurrency), errors.Is(err, quote.ErrInvalidDirection):
		s.view.notice(err.Error())
	default:
		printError(err)
	}
}

func (s *quoteSession) setCurrency(side types.Side, code string) {
	err := s.engine.SetCurrency(side, code)
	if errors.Is(err, quote.ErrUnsupportedCurrency) {
		options := s.engine.Options().Fiat
		if side == types.SideCrypto {
			options = s.engine.Options().Crypto
		}
		s.view.notice(fmt.Sprintf("%v (choose one of %s)", err, strings.Join(options, ", ")))
		return
	}
	s.apply(err)
}

func (s *quoteSession) confirm(ctx context.Context) {
	state := s.engine.State()

	session, err := newAuthProvider().CurrentSession(ctx)
	if err != nil {
		printError(fmt.Errorf("%w: %w", order.ErrSubmissionFailed, err))
		return
	}

	manager, err := order.NewManager(appConfig.Orders.StoragePath)
	if err != nil {
		printError(err)
		return
	}
	placed, err := newSubmitter(manager).Submit(ctx, session, state, s.wallet)
	if err != nil {
		printError(err)
		return
	}

	if s.view.json {
		printJSON(placed)
		return
	}
	printSuccess(fmt.Sprintf("✓ Order %s %s: %s", placed.ID, placed.Status, placed.Summary()))
}

// newSubmitter builds the order submitter, posting orders to the settlement
// webhook when one is configured
func newSubmitter(manager *order.Manager) *order.Submitter {
	opts := []order.SubmitterOption{order.WithSubmitterLogger(logger.WithField("component", "order"))}
	if appConfig.Orders.WebhookURL != "" {
		client := &http.Client{Timeout: appConfig.Orders.WebhookTimeout}
		opts = append(opts, order.WithDispatcher(
			order.NewWebhookDispatcher(client, appConfig.Orders.WebhookURL, appConfig.Orders.WebhookSecret)))
	}
	return order.NewSubmitter(manager, opts...)
}

// quoteView renders engine snapshots. Updates arrive from timer goroutines.
type quoteView struct {
	out      io.Writer
	json     bool
	live     bool
	mu       sync.Mutex
	spin     *spinner.Spinner
	latest   types.QuoteState
	rendered types.QuoteState
	ch       chan types.QuoteState
}

func newQuoteView(out io.Writer, asJSON, live bool) *quoteView {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Fetching quote..."
	return &quoteView{
		out:  out,
		json: asJSON,
		live: live,
		spin: s,
		ch:   make(chan types.QuoteState, 1),
	}
}

func (v *quoteView) update(state types.QuoteState) {
	v.mu.Lock()
	v.latest = state
	v.mu.Unlock()

	// Keep only the newest snapshot for waitSettled
	select {
	case <-v.ch:
	default:
	}
	v.ch <- state

	if !v.live {
		return
	}
	if state.IsLoading {
		if !v.json && !v.spin.Active() {
			v.spin.Start()
		}
		return
	}
	if v.spin.Active() {
		v.spin.Stop()
	}

	// Settled snapshots that never passed through loading (zero amounts) render too
	v.mu.Lock()
	fresh := state != v.rendered
	v.mu.Unlock()
	if fresh {
		v.render(state)
	}
}

// waitSettled blocks until the engine is not loading
func (v *quoteView) waitSettled(ctx context.Context) (types.QuoteState, error) {
	v.mu.Lock()
	state := v.latest
	v.mu.Unlock()
	if !state.IsLoading {
		return state, nil
	}

	for {
		select {
		case <-ctx.Done():
			return types.QuoteState{}, ctx.Err()
		case state = <-v.ch:
			if !state.IsLoading {
				return state, nil
			}
		}
	}
}

func (v *quoteView) render(state types.QuoteState) {
	v.mu.Lock()
	v.rendered = state
	v.mu.Unlock()

	if v.json {
		printJSON(state)
		return
	}

	payAmount, payCode := state.FiatAmount, state.FiatCurrency
	getAmount, getCode := state.CryptoAmount, state.CryptoCurrency
	if state.Direction == types.DirectionSell {
		payAmount, payCode, getAmount, getCode = getAmount, getCode, payAmount, payCode
	}
	if payAmount == "" {
		payAmount = "0"
	}
	if getAmount == "" {
		getAmount = "-"
	}

	fmt.Fprintln(v.out)
	fmt.Fprintf(v.out, "  %-12s %s\n", "Mode:", color.CyanString(strings.ToUpper(string(state.Direction))))
	fmt.Fprintf(v.out, "  %-12s %s %s\n", "You pay:", color.YellowString(payAmount), payCode)
	fmt.Fprintf(v.out, "  %-12s ~%s %s\n", "You get:", color.GreenString(getAmount), getCode)
	if state.Rate != "" {
		fmt.Fprintf(v.out, "  %-12s %s %s/%s\n", "Rate:", state.Rate, state.FiatCurrency, state.CryptoCurrency)
	}
	if state.QuoteError != "" {
		fmt.Fprintf(v.out, "  %-12s %s\n", "Quote:", color.RedString(state.QuoteError))
		fmt.Fprintf(v.out, "  %s\n", color.HiBlackString("edit the amount to try again"))
	}
	fmt.Fprintln(v.out)
}

func (v *quoteView) notice(message string) {
	if v.json {
		printJSON(map[string]string{"notice": message})
		return
	}
	fmt.Fprintf(v.out, "  %s\n", color.HiBlackString(message))
}

func (v *quoteView) help() {
	fmt.Fprintln(v.out, `
  buy | sell            switch direction
  amount <v> | <v>      set the amount you pay (buy) or sell (sell)
  fiat <code>           select the fiat currency
  crypto <code>         select the crypto asset
  wallet <address>      set the receiving wallet
  show                  print the current quote
  confirm               submit the quote as an order
  quit                  leave the session`)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
