package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fiat-ramp/config"
	"fiat-ramp/pkg/auth"
	"fiat-ramp/pkg/rates"
)

var (
	appConfig *config.Config
	logger    *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fiat-ramp",
	Short: "Quote and confirm fiat/crypto buys and sells from the terminal",
	Long: `fiat-ramp quotes crypto purchases and sales in fiat currency. Type the amount
you pay (buy) or the amount you sell (sell) and the other side is kept in sync
with the configured price source.

Examples:
  fiat-ramp quote --fiat USD --crypto ETH --amount 1000
  fiat-ramp quote --sell --crypto BTC --fiat EUR --amount 2
  fiat-ramp price BTC --fiat EUR --watch
  fiat-ramp currencies
  fiat-ramp orders`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

// setup loads configuration and the diagnostic logger before any command runs
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	l, err := config.NewLogger(cfg.Log, verbose, os.Stderr)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}

	appConfig = cfg
	logger = l
	return nil
}

func jsonOutput(cmd *cobra.Command) bool {
	on, _ := cmd.Flags().GetBool("json")
	return on
}

// newRateService builds the configured price source chain
func newRateService() (*rates.Converter, error) {
	registry := rates.NewRegistry(logger.WithField("component", "rates"))
	converter, err := registry.Build(appConfig.Rates)
	if err != nil {
		return nil, fmt.Errorf("building price source: %w", err)
	}
	return converter, nil
}

func newAuthProvider() auth.Provider {
	return auth.NewStaticProvider(appConfig.Auth.UserID, appConfig.Auth.Email, appConfig.Auth.Role)
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "\n%s %v\n\n", color.RedString("Error:"), err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", color.GreenString(message))
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		printError(err)
		return
	}
	fmt.Println(string(data))
}
