package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fiat-ramp/pkg/client"
	"fiat-ramp/pkg/types"
	"fiat-ramp/pkg/wallet"
)

var (
	showTokens  bool
	filterChain string
)

var currenciesCmd = &cobra.Command{
	Use:     "currencies",
	Aliases: []string{"list-currencies", "ls"},
	Short:   "List the selectable fiat currencies and crypto assets",
	Long: `List the fiat currencies and crypto assets that can be quoted.

With --tokens the 1Click token list is fetched as well, showing on which
chains each configured asset is available.

Examples:
  fiat-ramp currencies
  fiat-ramp currencies --tokens
  fiat-ramp currencies --tokens --chain sol`,
	Args: cobra.NoArgs,
	Run:  runCurrencies,
}

func init() {
	rootCmd.AddCommand(currenciesCmd)

	currenciesCmd.Flags().BoolVar(&showTokens, "tokens", false, "Also list matching 1Click tokens")
	currenciesCmd.Flags().StringVar(&filterChain, "chain", "", "Filter 1Click tokens by blockchain")
}

type currencyListing struct {
	Fiat   []string                 `json:"fiat"`
	Crypto []cryptoListing          `json:"crypto"`
	Tokens []oneclick.TokenResponse `json:"tokens,omitempty"`
}

type cryptoListing struct {
	Symbol  string `json:"symbol"`
	Network string `json:"network"`
}

func runCurrencies(cmd *cobra.Command, args []string) {
	asJSON := jsonOutput(cmd)

	listing := currencyListing{Fiat: appConfig.Currencies.Fiat}
	for _, code := range appConfig.Currencies.Crypto {
		listing.Crypto = append(listing.Crypto, cryptoListing{
			Symbol:  code,
			Network: string(wallet.NetworkFor(code)),
		})
	}

	if showTokens {
		tokens, err := fetchTokens(cmd.Context(), !asJSON)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		listing.Tokens = tokens
	}

	if asJSON {
		printJSON(listing)
		return
	}
	displayCurrencies(listing)
}

func fetchTokens(ctx context.Context, withSpinner bool) ([]oneclick.TokenResponse, error) {
	apiClient := client.NewOneClickClient(appConfig.Rates.OneClick.JWTToken, appConfig.Rates.OneClick.BaseURL)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if withSpinner {
		s.Suffix = " Fetching supported tokens..."
		s.Start()
	}
	tokens, err := apiClient.GetSupportedTokens(ctx)
	if withSpinner {
		s.Stop()
	}
	if err != nil {
		return nil, err
	}

	matched := []oneclick.TokenResponse{}
	if filterChain != "" {
		for _, code := range appConfig.Currencies.Crypto {
			token, err := apiClient.FindTokenOnChain(ctx, code, filterChain)
			if err != nil {
				logger.WithError(err).Debug("token not listed on chain")
				continue
			}
			matched = append(matched, *token)
		}
		return matched, nil
	}

	for _, token := range tokens {
		if appConfig.Currencies.Allows(types.SideCrypto, token.GetSymbol()) {
			matched = append(matched, token)
		}
	}
	return matched, nil
}

func displayCurrencies(listing currencyListing) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                  SUPPORTED CURRENCIES")
	fmt.Println(strings.Repeat("=", 60))

	color.Cyan("\nFIAT")
	fmt.Println(strings.Repeat("-", 60))
	for _, code := range listing.Fiat {
		fmt.Printf("  %s\n", color.YellowString(code))
	}

	color.Cyan("\nCRYPTO")
	fmt.Println(strings.Repeat("-", 60))
	for _, c := range listing.Crypto {
		fmt.Printf("  %-10s  %s\n", color.YellowString(c.Symbol), color.HiBlackString("%s wallet", c.Network))
	}

	if listing.Tokens != nil {
		color.Cyan("\n1CLICK TOKENS")
		fmt.Println(strings.Repeat("-", 60))
		if len(listing.Tokens) == 0 {
			fmt.Println("  No tokens found matching the criteria.")
		}
		for _, token := range listing.Tokens {
			address := token.GetContractAddress()
			// Truncate address if too long
			if len(address) > 30 {
				address = address[:27] + "..."
			}
			fmt.Printf("  %-10s  %-10s  %2.0f decimals  %s\n",
				color.YellowString(token.GetSymbol()),
				token.GetBlockchain(),
				token.GetDecimals(),
				color.HiBlackString(address))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Printf("\nTotal: %d fiat, %d crypto\n\n", len(listing.Fiat), len(listing.Crypto))
}
