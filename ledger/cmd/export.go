package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/plenert/ledger"
	"github.com/plenert/ledger/ledger/iif"
	"github.com/plenert/ledger/ledger/qif"
	"github.com/plenert/ledger/ledger/shell"
	"github.com/spf13/cobra"
)

var exportFormat string

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <account> <file|->",
	Args:  cobra.ExactArgs(2),
	Short: "Export the transaction history as QIF, IIF or CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		format := exportFormat
		if format == "" {
			format = strings.TrimPrefix(strings.ToLower(filepath.Ext(args[1])), ".")
		}
		if format != "qif" && format != "csv" && format != "iif" {
			return ErrUnknownFormat
		}

		acc, err := authenticate(cmd, args[0])
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		var f *os.File
		if args[1] != "-" {
			if f, err = os.Create(args[1]); err != nil {
				return err
			}
			w = f
		}

		switch format {
		case "csv":
			err = shell.WriteCSV(w, acc.Transactions)
		case "iif":
			block := iif.SerializeTransactions(iifTransactions(acc))
			err = iif.NewEncoder(w).Encode(&iif.File{Blocks: []iif.Block{block}})
		default:
			err = qif.NewEncoder(w).Encode("Bank", qifRecords(acc))
		}
		if f != nil {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}
		if err != nil {
			return fmt.Errorf("export %s: %w", args[1], err)
		}
		if args[1] != "-" {
			fmt.Fprintf(cmd.OutOrStdout(), "%d transactions written to %s\n", len(acc.Transactions), args[1])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "", "Output format: qif, iif or csv (default from file extension).")
}

// qifRecords converts the account log to QIF bank records. The memo carries
// the resulting balance, the number the first block of the transaction id.
func qifRecords(acc *ledger.Account) []*qif.Transaction {
	out := make([]*qif.Transaction, 0, len(acc.Transactions))
	for _, tx := range acc.Transactions {
		rec := &qif.Transaction{
			Date:    tx.Date.Format(qif.DateLayout),
			Amount:  tx.Signed().StringFixedBank(2),
			Payee:   tx.Kind.String(),
			Memo:    "Balance " + tx.Balance.StringFixedBank(2),
			Cleared: "X",
		}
		if tx.ID != uuid.Nil {
			rec.Num = tx.ID.String()[:8]
		}
		out = append(out, rec)
	}
	return out
}

// counterAccounts names the other side of each kind of transaction in IIF
// splits.
var counterAccounts = map[ledger.Kind]string{
	ledger.Deposit:        "Cash",
	ledger.Withdrawal:     "Cash",
	ledger.InterestCredit: "Interest Income",
	ledger.InitialDeposit: "Opening Balance Equity",
}

// iifTransactions converts the account log to balanced IIF transactions
// with a single split each.
func iifTransactions(acc *ledger.Account) []iif.Transaction {
	account := acc.Type + " " + acc.Number
	out := make([]iif.Transaction, 0, len(acc.Transactions))
	for _, tx := range acc.Transactions {
		trnsType := "DEPOSIT"
		if tx.Kind == ledger.Withdrawal {
			trnsType = "CHECK"
		}
		day := time.Date(tx.Date.Year(), tx.Date.Month(), tx.Date.Day(), 0, 0, 0, 0, time.UTC)
		out = append(out, iif.Transaction{
			Tr: iif.Trns{
				TransactionType: trnsType,
				Date:            day,
				Account:         account,
				Name:            acc.Holder,
				Amount:          tx.Signed(),
				Memo:            tx.Kind.String(),
			},
			Splits: []iif.Spl{{
				TransactionType: trnsType,
				Date:            day,
				Account:         counterAccounts[tx.Kind],
				Name:            acc.Holder,
				Amount:          tx.Signed().Neg(),
				Memo:            "Balance " + tx.Balance.StringFixedBank(2),
			}},
		})
	}
	return out
}
