package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/plenert/ledger"
	"github.com/plenert/ledger/ledger/iif"
	"github.com/plenert/ledger/ledger/qif"
	"github.com/plenert/ledger/ledger/shell"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	ErrNoAmountColumn  = errors.New("unable to find an amount column in the CSV header")
	ErrUnknownFormat   = errors.New("unknown file format, use .qif, .iif or .csv")
	ErrWouldOverdraw   = errors.New("import would overdraw the account")
	ErrNothingImported = errors.New("no transactions found in file")
)

var negateAmount bool
var dryRun bool
var fieldDelimiter string

// entry is one statement line to apply to an account.
type entry struct {
	date   string
	payee  string
	amount decimal.Decimal
}

// Importer reads statement entries from a QIF or CSV file.
type Importer struct {
	filename string
	reader   io.Reader
	symbol   string
}

func NewImporter(filename string, r io.Reader, symbol string) *Importer {
	return &Importer{filename: filename, reader: r, symbol: symbol}
}

// Entries parses the file according to its extension.
func (imp *Importer) Entries() ([]entry, error) {
	var (
		entries []entry
		err     error
	)
	switch strings.ToLower(filepath.Ext(imp.filename)) {
	case ".qif":
		entries, err = imp.importQIF()
	case ".iif":
		entries, err = imp.importIIF()
	case ".csv", ".txt":
		entries, err = imp.importCSV()
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, err
	}
	if negateAmount {
		for i := range entries {
			entries[i].amount = entries[i].amount.Neg()
		}
	}
	return entries, nil
}

func (imp *Importer) importQIF() ([]entry, error) {
	records, err := qif.ParseQIF(imp.reader)
	if err != nil {
		return nil, fmt.Errorf("QIF parse error: %w", err)
	}
	entries := make([]entry, 0, len(records))
	for i, rec := range records {
		amount, err := shell.ParseAmount(rec.Amount, imp.symbol)
		if err != nil {
			return nil, fmt.Errorf("QIF record %d: %w", i+1, err)
		}
		entries = append(entries, entry{date: rec.Date, payee: rec.Payee, amount: amount})
	}
	return entries, nil
}

func (imp *Importer) importIIF() ([]entry, error) {
	f, err := iif.NewDecoder(imp.reader).Decode()
	if err != nil {
		return nil, fmt.Errorf("IIF parse error: %w", err)
	}
	txs, err := f.Transactions()
	if err != nil {
		return nil, fmt.Errorf("IIF parse error: %w", err)
	}
	entries := make([]entry, 0, len(txs))
	for _, tx := range txs {
		payee := tx.Tr.Name
		if tx.Tr.Memo != "" {
			payee = tx.Tr.Memo
		}
		entries = append(entries, entry{
			date:   tx.Tr.Date.Format(qif.DateLayout),
			payee:  payee,
			amount: tx.Tr.Amount,
		})
	}
	return entries, nil
}

func (imp *Importer) importCSV() ([]entry, error) {
	csvReader := csv.NewReader(imp.reader)
	csvReader.Comma, _ = utf8.DecodeRuneInString(fieldDelimiter)
	csvRecords, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSV parse error: %w", err)
	}
	if len(csvRecords) == 0 {
		return nil, nil
	}

	// Find columns from header
	dateColumn, payeeColumn, amountColumn := -1, -1, -1
	for fieldIndex, fieldName := range csvRecords[0] {
		fieldName = strings.ToLower(fieldName)
		switch {
		case strings.Contains(fieldName, "date"):
			dateColumn = fieldIndex
		case strings.Contains(fieldName, "description"), strings.Contains(fieldName, "payee"):
			payeeColumn = fieldIndex
		case strings.Contains(fieldName, "amount"):
			amountColumn = fieldIndex
		}
	}
	if amountColumn < 0 {
		return nil, ErrNoAmountColumn
	}

	column := func(record []string, i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return record[i]
	}
	entries := make([]entry, 0, len(csvRecords)-1)
	for line, record := range csvRecords[1:] {
		amount, err := shell.ParseAmount(column(record, amountColumn), imp.symbol)
		if err != nil {
			return nil, fmt.Errorf("CSV line %d: %w", line+2, err)
		}
		entries = append(entries, entry{
			date:   column(record, dateColumn),
			payee:  column(record, payeeColumn),
			amount: amount,
		})
	}
	return entries, nil
}

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <account> <file.qif|file.iif|file.csv>",
	Args:  cobra.ExactArgs(2),
	Short: "Apply a QIF, IIF or CSV statement as deposits and withdrawals",
	Long: `Positive amounts are deposited and negative amounts withdrawn, in file
order. Nothing is applied when any line is invalid or would overdraw the
account.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		entries, err := NewImporter(args[1], f, cfg.CurrencySymbol).Entries()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return ErrNothingImported
		}

		acc, err := authenticate(cmd, args[0])
		if err != nil {
			return err
		}
		if err := checkEntries(acc.Balance, entries); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, e := range entries {
			verb := "deposit"
			if e.amount.Sign() < 0 {
				verb = "withdraw"
			}
			fmt.Fprintf(w, "%-10s %-30s %-8s %12s\n", e.date, e.payee, verb, money(e.amount.Abs()))
		}
		if dryRun {
			fmt.Fprintf(w, "%d entries checked, nothing applied\n", len(entries))
			return nil
		}

		for _, e := range entries {
			if e.amount.Sign() < 0 {
				err = acc.Withdraw(e.amount.Neg())
			} else {
				err = acc.Deposit(e.amount)
			}
			if err != nil {
				return err
			}
		}
		if err := directory.Save(); err != nil {
			return err
		}
		appLog.Info("statement imported", "account", acc.Number, "entries", len(entries), "file", args[1])
		fmt.Fprintf(w, "%d entries applied. New balance: %s\n", len(entries), money(acc.Balance))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&negateAmount, "neg", false, "Negate amount column value.")
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only validate and print what would be applied.")
	importCmd.Flags().StringVar(&fieldDelimiter, "delimiter", ",", "Field delimiter.")
}

// checkEntries replays entries against balance and rejects zero amounts
// and overdrafts before anything is applied.
func checkEntries(balance decimal.Decimal, entries []entry) error {
	for i, e := range entries {
		amount := ledger.RoundAmount(e.amount)
		if amount.IsZero() {
			return fmt.Errorf("entry %d: %w", i+1, ledger.ErrInvalidAmount)
		}
		balance = balance.Add(amount)
		if balance.Sign() < 0 {
			return fmt.Errorf("entry %d (%s %s): %w", i+1, e.date, e.payee, ErrWouldOverdraw)
		}
	}
	return nil
}
