package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fiat-ramp/pkg/parser"
	"fiat-ramp/pkg/rates"
	"fiat-ramp/pkg/types"
)

var (
	priceFiat     string
	watchPrice    bool
	watchInterval int
)

var priceCmd = &cobra.Command{
	Use:   "price <crypto>",
	Short: "Show the buy and sell price of a crypto asset",
	Long: `Show what one unit of a crypto asset costs (buy) and pays out (sell) in fiat,
using the configured price source and spread.

Examples:
  fiat-ramp price BTC
  fiat-ramp price ETH --fiat EUR
  fiat-ramp price SOL --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runPrice,
}

func init() {
	rootCmd.AddCommand(priceCmd)

	priceCmd.Flags().StringVar(&priceFiat, "fiat", "", "Fiat currency (default from quote.default_fiat)")
	priceCmd.Flags().BoolVarP(&watchPrice, "watch", "w", false, "Keep refreshing the price")
	priceCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

// PriceInfo is one price observation
type PriceInfo struct {
	Crypto    string    `json:"crypto"`
	Fiat      string    `json:"fiat"`
	Buy       string    `json:"buy"`
	Sell      string    `json:"sell"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

func runPrice(cmd *cobra.Command, args []string) {
	asJSON := jsonOutput(cmd)
	crypto := parser.NormalizeCurrency(args[0])
	fiat := parser.NormalizeCurrency(firstNonEmpty(priceFiat, appConfig.Quote.DefaultFiat))

	if !appConfig.Currencies.Allows(types.SideCrypto, crypto) {
		printError(fmt.Errorf("unsupported crypto %q (supported: %s)", crypto, strings.Join(appConfig.Currencies.Crypto, ", ")))
		os.Exit(1)
	}
	if !appConfig.Currencies.Allows(types.SideFiat, fiat) {
		printError(fmt.Errorf("unsupported fiat %q (supported: %s)", fiat, strings.Join(appConfig.Currencies.Fiat, ", ")))
		os.Exit(1)
	}

	converter, err := newRateService()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if watchPrice {
		watchPrices(ctx, converter, crypto, fiat, asJSON)
		return
	}

	info, err := fetchPrice(ctx, converter, crypto, fiat, !asJSON)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if asJSON {
		printJSON(info)
	} else {
		displayPrice(info)
	}
}

func fetchPrice(ctx context.Context, converter *rates.Converter, crypto, fiat string, withSpinner bool) (*PriceInfo, error) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if withSpinner {
		s.Suffix = " Fetching price..."
		s.Start()
		defer s.Stop()
	}

	ctx, cancel := context.WithTimeout(ctx, appConfig.Quote.RequestTimeout)
	defer cancel()

	buy, err := converter.Price(ctx, types.DirectionBuy, crypto, fiat)
	if err != nil {
		return nil, err
	}
	// Served from cache when the source is cached
	sell, err := converter.Price(ctx, types.DirectionSell, crypto, fiat)
	if err != nil {
		return nil, err
	}

	resp, err := converter.GetQuote(ctx, types.QuoteRequest{
		Direction:      types.DirectionSell,
		FiatCurrency:   fiat,
		CryptoCurrency: crypto,
		Amount:         "1",
	})
	if err != nil {
		return nil, err
	}

	return &PriceInfo{
		Crypto:    crypto,
		Fiat:      fiat,
		Buy:       buy.StringFixed(2),
		Sell:      sell.StringFixed(2),
		Source:    resp.Source,
		Timestamp: time.Now().UTC(),
	}, nil
}

func watchPrices(ctx context.Context, converter *rates.Converter, crypto, fiat string, asJSON bool) {
	if watchInterval < 1 {
		watchInterval = 1
	}
	if !asJSON {
		color.Cyan("\nWatching %s/%s every %ds (Ctrl+C to stop)\n", crypto, fiat, watchInterval)
	}

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	for {
		info, err := fetchPrice(ctx, converter, crypto, fiat, false)
		switch {
		case err != nil && ctx.Err() != nil:
			return
		case err != nil:
			printError(err)
		case asJSON:
			printJSON(info)
		default:
			fmt.Printf("  %s  buy %s  sell %s %s  %s\n",
				color.HiBlackString(info.Timestamp.Local().Format("15:04:05")),
				color.GreenString(info.Buy),
				color.YellowString(info.Sell),
				info.Fiat,
				color.HiBlackString(info.Source))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func displayPrice(info *PriceInfo) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	color.Green("              %s / %s", info.Crypto, info.Fiat)
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("\n  Buy 1 %-6s  %s %s\n", info.Crypto, color.GreenString(info.Buy), info.Fiat)
	fmt.Printf("  Sell 1 %-5s  %s %s\n", info.Crypto, color.YellowString(info.Sell), info.Fiat)
	fmt.Printf("  Source:       %s\n\n", color.CyanString(info.Source))
}
