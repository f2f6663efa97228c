package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fiat-ramp/pkg/auth"
	"fiat-ramp/pkg/order"
)

var (
	allOrders    bool
	statusFilter string
)

var ordersCmd = &cobra.Command{
	Use:     "orders",
	Aliases: []string{"history"},
	Short:   "List confirmed orders",
	Long: `List the orders you confirmed from a quote session, newest first.

Admins can list the orders of every user with --all.

Examples:
  fiat-ramp orders
  fiat-ramp orders --status failed
  fiat-ramp orders --all`,
	Args: cobra.NoArgs,
	Run:  runOrders,
}

func init() {
	rootCmd.AddCommand(ordersCmd)

	ordersCmd.Flags().BoolVar(&allOrders, "all", false, "List orders of every user (admin only)")
	ordersCmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (pending, submitted, failed)")
}

func runOrders(cmd *cobra.Command, args []string) {
	asJSON := jsonOutput(cmd)

	session, err := newAuthProvider().CurrentSession(cmd.Context())
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if allOrders {
		if err := auth.RequireRole(session, auth.RoleAdmin); err != nil {
			printError(err)
			os.Exit(1)
		}
	}

	manager, err := order.NewManager(appConfig.Orders.StoragePath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	var orders []*order.Order
	if allOrders {
		orders = manager.All()
	} else {
		orders = manager.History(session.UserID)
	}

	if statusFilter != "" {
		filtered := make([]*order.Order, 0, len(orders))
		for _, o := range orders {
			if strings.EqualFold(string(o.Status), statusFilter) {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}

	if asJSON {
		printJSON(orders)
		return
	}

	if len(orders) == 0 {
		color.Yellow("\nNo orders found.\n")
		fmt.Println("\nStart a quote and confirm it:")
		color.Cyan("  fiat-ramp quote --wallet <address>\n")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 110))
	if allOrders {
		color.Green("                                           ALL ORDERS")
	} else {
		color.Green("                                     ORDER HISTORY: %s", session.UserID)
	}
	fmt.Println(strings.Repeat("=", 110))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if allOrders {
		fmt.Fprintln(w, "ID\tUSER\tCREATED\tSIDE\tORDER\tWALLET\tSTATUS")
	} else {
		fmt.Fprintln(w, "ID\tCREATED\tSIDE\tORDER\tWALLET\tSTATUS")
	}
	for _, o := range orders {
		cols := []string{
			truncateString(o.ID, 8),
			o.Created.Local().Format("2006-01-02 15:04"),
			strings.ToUpper(string(o.Direction)),
			o.Summary(),
			truncateString(o.WalletAddress, 16),
			getStatusColor(o.Status),
		}
		if allOrders {
			cols = append([]string{cols[0], o.UserID}, cols[1:]...)
		}
		fmt.Fprintln(w, strings.Join(cols, "\t"))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d orders  (%s)\n\n", len(orders), color.HiBlackString(manager.StoragePath()))
}

func getStatusColor(status order.Status) string {
	switch status {
	case order.StatusSubmitted:
		return color.GreenString(string(status))
	case order.StatusPending:
		return color.YellowString(string(status))
	case order.StatusFailed:
		return color.RedString(string(status))
	default:
		return string(status)
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
