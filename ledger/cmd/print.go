package cmd

import (
	"fmt"
	"time"

	date "github.com/joyt/godate"
	"github.com/plenert/ledger"
	"github.com/plenert/ledger/ledger/shell"
	"github.com/spf13/cobra"
)

var historyLimit int
var sinceString string
var printCSV bool

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "accounts"},
	Args:    cobra.NoArgs,
	Short:   "List every account with its balance",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := checkLoaded(cmd); err != nil {
			return err
		}
		if directory.Len() == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No accounts found in the system.")
			return nil
		}
		shell.WriteAccounts(cmd.OutOrStdout(), directory.ListAccounts(), cfg.CurrencySymbol)
		return nil
	},
}

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:     "history <account>",
	Aliases: []string{"reg", "register"},
	Args:    cobra.ExactArgs(1),
	Short:   "Print the transaction history of an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := authenticate(cmd, args[0])
		if err != nil {
			return err
		}

		txs := acc.Transactions
		if sinceString != "" {
			since, err := parseSince(sinceString)
			if err != nil {
				return err
			}
			txs = transactionsSince(txs, since)
		}
		limit := cfg.HistoryLimit
		if cmd.Flags().Changed("limit") {
			limit = historyLimit
		}
		if limit > 0 && len(txs) > limit {
			txs = txs[len(txs)-limit:]
		}

		if printCSV {
			return shell.WriteCSV(cmd.OutOrStdout(), txs)
		}
		if len(txs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No transactions found.")
			return nil
		}
		shell.WriteHistory(cmd.OutOrStdout(), txs, cfg.CurrencySymbol)
		fmt.Fprintf(cmd.OutOrStdout(), "(Showing %d of %d transactions)\n", len(txs), len(acc.Transactions))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd, historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 10, "Number of most recent transactions to show, 0 for all (default from config).")
	historyCmd.Flags().StringVarP(&sinceString, "since", "s", "", "Only show transactions on or after this date.")
	historyCmd.Flags().BoolVar(&printCSV, "csv", false, "Print as CSV.")
}

// parseSince accepts any date layout godate recognizes and interprets it
// in local time.
func parseSince(s string) (time.Time, error) {
	t, _, err := date.ParseAndGetLayout(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date(%s): %w", s, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local), nil
}

func transactionsSince(txs []ledger.Transaction, since time.Time) []ledger.Transaction {
	for i, tx := range txs {
		if !tx.Date.Before(since) {
			return txs[i:]
		}
	}
	return nil
}
