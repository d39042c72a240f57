package shell

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/alfredxing/calc/compute"
	"github.com/fatih/color"
	"github.com/hako/durafmt"
	"github.com/plenert/ledger"
	"github.com/shopspring/decimal"
)

// ErrEmptyAmount is returned by ParseAmount for blank input.
var ErrEmptyAmount = errors.New("no amount entered")

var (
	colorNeg     = color.New(color.FgRed)
	colorAccount = color.New(color.FgBlue)
	colorHeading = color.New(color.Bold)
	colorOK      = color.New(color.FgGreen)
	colorWarn    = color.New(color.FgYellow)
)

// ParseAmount reads a monetary amount typed by a user. The currency symbol,
// thousands separators and spaces are ignored, and simple arithmetic such
// as "100+25.5" or "(3*40)" is evaluated.
func ParseAmount(input, symbol string) (decimal.Decimal, error) {
	s := strings.TrimSpace(input)
	if symbol != "" {
		s = strings.ReplaceAll(s, symbol, "")
	}
	s = strings.NewReplacer(",", "", " ", "", "_", "").Replace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	if d, err := decimal.NewFromString(s); err == nil {
		return d, nil
	}
	v, err := compute.Evaluate(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", input, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", input, ledger.ErrInvalidAmount)
	}
	return decimal.NewFromFloat(v), nil
}

// Money formats d with two decimals behind symbol.
func Money(symbol string, d decimal.Decimal) string {
	return symbol + d.StringFixedBank(2)
}

// Age returns a short human readable duration such as "2 weeks 3 days".
func Age(created, at time.Time) string {
	d := at.Sub(created)
	if d < time.Minute {
		return "less than a minute"
	}
	return durafmt.Parse(d.Truncate(time.Minute)).LimitFirstN(2).String()
}

func rule(w io.Writer, width int) {
	fmt.Fprintln(w, strings.Repeat("=", width))
}

// WriteAccounts prints the account overview table followed by the total of
// all balances.
func WriteAccounts(out io.Writer, accounts []*ledger.Account, symbol string) {
	buf := bufio.NewWriter(out)
	defer buf.Flush()

	rule(buf, 80)
	colorHeading.Fprintf(buf, "%-15s %-25s %-15s %15s\n", "Account No", "Name", "Type", "Balance")
	rule(buf, 80)
	total := decimal.Zero
	for _, acc := range accounts {
		total = total.Add(acc.Balance)
		colorAccount.Fprintf(buf, "%-15s", acc.Number)
		fmt.Fprintf(buf, " %-25s %-15s %15s\n", acc.Holder, acc.Type, Money(symbol, acc.Balance))
	}
	rule(buf, 80)
	fmt.Fprintf(buf, "%-57s %15s\n", fmt.Sprintf("%d account(s)", len(accounts)), Money(symbol, total))
}

// WriteHistory prints transactions as a register with the running balance.
func WriteHistory(out io.Writer, txs []ledger.Transaction, symbol string) {
	buf := bufio.NewWriter(out)
	defer buf.Flush()

	rule(buf, 80)
	colorHeading.Fprintf(buf, "%-20s %-20s %15s %15s\n", "Date/Time", "Type", "Amount", "Balance")
	rule(buf, 80)
	for _, tx := range txs {
		fmt.Fprintf(buf, "%-20s %-20s ", tx.Date.Format(ledger.TimeLayout), tx.Kind)
		amount := fmt.Sprintf("%15s", Money(symbol, tx.Signed()))
		if tx.Signed().Sign() < 0 {
			colorNeg.Fprint(buf, amount)
		} else {
			fmt.Fprint(buf, amount)
		}
		fmt.Fprintf(buf, " %15s\n", Money(symbol, tx.Balance))
	}
	rule(buf, 80)
}

// WriteCSV writes transactions as CSV with a header row. Amounts are signed
// and carry no currency symbol.
func WriteCSV(out io.Writer, txs []ledger.Transaction) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"date", "id", "description", "amount", "balance"}); err != nil {
		return err
	}
	for _, tx := range txs {
		record := []string{
			tx.Date.Format(ledger.TimeLayout),
			tx.ID.String(),
			tx.Kind.String(),
			tx.Signed().StringFixedBank(2),
			tx.Balance.StringFixedBank(2),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
