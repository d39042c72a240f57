// Package shell implements the interactive menu driven front end of the
// ledger.
package shell

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/plenert/ledger"
	"github.com/plenert/ledger/ledger/config"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const sessionKey = "account"

// Options tune the shell behavior.
type Options struct {
	CurrencySymbol string
	HistoryLimit   int
	InterestRate   float64
	SessionTimeout time.Duration

	// LoginAttempts is the number of failed logins allowed per minute.
	LoginAttempts int

	Logger *slog.Logger
}

// OptionsFromConfig copies the shell related settings out of cfg.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		CurrencySymbol: cfg.CurrencySymbol,
		HistoryLimit:   cfg.HistoryLimit,
		InterestRate:   cfg.InterestRate,
		SessionTimeout: cfg.SessionTimeout,
		LoginAttempts:  cfg.LoginAttempts,
		Logger:         logger,
	}
}

// Shell is an interactive session over a Directory. It is not safe for
// concurrent use.
type Shell struct {
	dir  *ledger.Directory
	in   *lineReader
	out  io.Writer
	opts Options

	session *cache.Cache
	limiter *rate.Limiter
	now     func() time.Time
}

// New returns a Shell reading commands from in and writing to out.
func New(dir *ledger.Directory, in io.Reader, out io.Writer, opts Options) *Shell {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = 5 * time.Minute
	}
	if opts.LoginAttempts <= 0 {
		opts.LoginAttempts = 3
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Shell{
		dir:     dir,
		in:      newLineReader(in, out),
		out:     out,
		opts:    opts,
		session: cache.New(opts.SessionTimeout, 0),
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.LoginAttempts)), opts.LoginAttempts),
		now:     time.Now,
	}
}

// Run shows the main menu until the user exits or the input ends.
func (s *Shell) Run() error {
	s.header("WELCOME TO BANK MANAGEMENT SYSTEM")
	for {
		s.header("BANK MANAGEMENT SYSTEM")
		fmt.Fprintln(s.out, "\n1. Create New Account")
		fmt.Fprintln(s.out, "2. Login to Account")
		fmt.Fprintln(s.out, "3. View All Accounts (Admin)")
		fmt.Fprintln(s.out, "4. Exit")

		choice, err := s.in.ask("\nEnter your choice (1-4): ")
		if err != nil {
			return s.finish(err)
		}
		switch choice {
		case "1":
			err = s.createAccount()
		case "2":
			err = s.login()
		case "3":
			s.listAccounts()
		case "4":
			fmt.Fprintln(s.out, "\nThank you for using Bank Management System!")
			return nil
		default:
			s.fail("Invalid choice. Please try again.")
		}
		if err != nil {
			return s.finish(err)
		}
	}
}

// finish turns the end of input into a clean exit.
func (s *Shell) finish(err error) error {
	if isEOF(err) {
		fmt.Fprintln(s.out, "\nGoodbye!")
		return nil
	}
	return err
}

func (s *Shell) createAccount() error {
	s.header("CREATE NEW ACCOUNT")

	name, err := s.in.ask("\nEnter account holder name: ")
	if err != nil {
		return err
	}
	if name == "" {
		s.fail("Invalid input: %v", ledger.ErrEmptyName)
		return nil
	}
	pin, err := s.in.askSecret("Set 4-digit PIN: ")
	if err != nil {
		return err
	}
	if !ledger.ValidPIN(pin) {
		s.fail("Invalid input: %v", ledger.ErrMalformedPIN)
		return nil
	}
	accountType, err := s.in.ask("Account type (Savings/Current) [Savings]: ")
	if err != nil {
		return err
	}
	input, err := s.in.ask(fmt.Sprintf("Initial deposit amount (%s): ", s.opts.CurrencySymbol))
	if err != nil {
		return err
	}
	deposit := decimal.Zero
	if input != "" {
		if deposit, err = ParseAmount(input, s.opts.CurrencySymbol); err != nil {
			s.fail("Invalid amount entered")
			return nil
		}
	}

	number, err := s.dir.CreateAccount(name, pin, deposit, accountType)
	if err != nil && !errors.Is(err, ledger.ErrNotPersisted) {
		s.fail("Error: %v", err)
		return nil
	}
	s.ok("Account created successfully!")
	fmt.Fprintf(s.out, "Account Number: %s\n", number)
	fmt.Fprintln(s.out, "Please remember your account number and PIN.")
	s.reportSave(err)
	return nil
}

func (s *Shell) login() error {
	s.header("ACCOUNT LOGIN")

	if s.throttled() {
		s.fail("Too many failed login attempts. Please try again later.")
		return nil
	}

	number, err := s.in.ask("\nEnter Account Number: ")
	if err != nil {
		return err
	}
	pin, err := s.in.askSecret("Enter PIN: ")
	if err != nil {
		return err
	}

	acc, err := s.dir.Authenticate(number, pin)
	if err != nil {
		s.limiter.Allow()
		s.opts.Logger.Warn("login failed", "account", number, "error", err)
		s.fail("Login failed: %v", err)
		return nil
	}

	s.session.Set(sessionKey, acc, cache.DefaultExpiration)
	s.ok("Login successful! Welcome, %s", acc.Holder)
	return s.accountMenu()
}

// throttled reports whether the failed login budget is spent, without
// drawing from it.
func (s *Shell) throttled() bool {
	now := time.Now()
	r := s.limiter.ReserveN(now, 1)
	defer r.CancelAt(now)
	return !r.OK() || r.DelayFrom(now) > 0
}

// current returns the logged in account, or nil once the session has
// expired.
func (s *Shell) current() *ledger.Account {
	v, ok := s.session.Get(sessionKey)
	if !ok {
		return nil
	}
	return v.(*ledger.Account)
}

func (s *Shell) expired() {
	s.session.Delete(sessionKey)
	s.warn("Session expired. Please log in again.")
}

func (s *Shell) accountMenu() error {
	for {
		acc := s.current()
		if acc == nil {
			s.expired()
			return nil
		}

		s.header("ACCOUNT MENU - " + acc.Holder)
		fmt.Fprintf(s.out, "\nAccount Number: %s\n", acc.Number)
		fmt.Fprintf(s.out, "Current Balance: %s\n", Money(s.opts.CurrencySymbol, acc.Balance))
		fmt.Fprintln(s.out, "\n1. Deposit Money")
		fmt.Fprintln(s.out, "2. Withdraw Money")
		fmt.Fprintln(s.out, "3. Check Balance")
		fmt.Fprintln(s.out, "4. View Account Details")
		fmt.Fprintln(s.out, "5. View Transaction History")
		fmt.Fprintln(s.out, "6. Calculate Interest")
		fmt.Fprintln(s.out, "7. Update PIN")
		fmt.Fprintln(s.out, "8. Delete Account")
		fmt.Fprintln(s.out, "9. Logout")

		choice, err := s.in.ask("\nEnter your choice (1-9): ")
		if err != nil {
			return err
		}
		if s.current() == nil {
			s.expired()
			return nil
		}
		s.session.Set(sessionKey, acc, cache.DefaultExpiration)

		switch choice {
		case "1":
			err = s.deposit(acc)
		case "2":
			err = s.withdraw(acc)
		case "3":
			fmt.Fprintf(s.out, "\nCurrent Balance: %s\n", Money(s.opts.CurrencySymbol, acc.Balance))
		case "4":
			s.details(acc)
		case "5":
			s.history(acc)
		case "6":
			err = s.interest(acc)
		case "7":
			err = s.updatePIN(acc)
		case "8":
			var deleted bool
			if deleted, err = s.deleteAccount(acc); deleted {
				s.session.Delete(sessionKey)
				return nil
			}
		case "9":
			fmt.Fprintln(s.out, "Logging out...")
			s.session.Delete(sessionKey)
			return nil
		default:
			s.fail("Invalid choice. Please try again.")
		}
		if err != nil {
			return err
		}
	}
}

func (s *Shell) askAmount(prompt string) (decimal.Decimal, bool, error) {
	input, err := s.in.ask(fmt.Sprintf("\n%s (%s): ", prompt, s.opts.CurrencySymbol))
	if err != nil {
		return decimal.Zero, false, err
	}
	amount, err := ParseAmount(input, s.opts.CurrencySymbol)
	if err != nil {
		s.fail("Invalid amount entered")
		return decimal.Zero, false, nil
	}
	return ledger.RoundAmount(amount), true, nil
}

func (s *Shell) deposit(acc *ledger.Account) error {
	amount, ok, err := s.askAmount("Enter amount to deposit")
	if err != nil || !ok {
		return err
	}
	if err := acc.Deposit(amount); err != nil {
		s.fail("Error: %v", err)
		return nil
	}
	s.ok("%s deposited successfully", Money(s.opts.CurrencySymbol, amount))
	fmt.Fprintf(s.out, "New Balance: %s\n", Money(s.opts.CurrencySymbol, acc.Balance))
	s.reportSave(s.dir.Save())
	return nil
}

func (s *Shell) withdraw(acc *ledger.Account) error {
	amount, ok, err := s.askAmount("Enter amount to withdraw")
	if err != nil || !ok {
		return err
	}
	if err := acc.Withdraw(amount); err != nil {
		var insufficient *ledger.InsufficientBalanceError
		if errors.As(err, &insufficient) {
			s.fail("Error: insufficient balance. Available: %s", Money(s.opts.CurrencySymbol, insufficient.Available))
		} else {
			s.fail("Error: %v", err)
		}
		return nil
	}
	s.ok("%s withdrawn successfully", Money(s.opts.CurrencySymbol, amount))
	fmt.Fprintf(s.out, "New Balance: %s\n", Money(s.opts.CurrencySymbol, acc.Balance))
	s.reportSave(s.dir.Save())
	return nil
}

func (s *Shell) details(acc *ledger.Account) {
	fmt.Fprintln(s.out)
	rule(s.out, 60)
	fmt.Fprintf(s.out, "Account Number: %s\n", acc.Number)
	fmt.Fprintf(s.out, "Account Holder: %s\n", acc.Holder)
	fmt.Fprintf(s.out, "Account Type: %s\n", acc.Type)
	fmt.Fprintf(s.out, "Current Balance: %s\n", Money(s.opts.CurrencySymbol, acc.Balance))
	fmt.Fprintf(s.out, "Account Created: %s (%s ago)\n", acc.Created.Format(ledger.TimeLayout), Age(acc.Created, s.now()))
	fmt.Fprintf(s.out, "Total Transactions: %d\n", len(acc.Transactions))
	rule(s.out, 60)
}

func (s *Shell) history(acc *ledger.Account) {
	if len(acc.Transactions) == 0 {
		fmt.Fprintln(s.out, "\nNo transactions found.")
		return
	}
	recent := acc.Recent(s.opts.HistoryLimit)
	fmt.Fprintln(s.out)
	WriteHistory(s.out, recent, s.opts.CurrencySymbol)
	fmt.Fprintf(s.out, "(Showing last %d transactions)\n", len(recent))
}

func (s *Shell) interest(acc *ledger.Account) error {
	def := strconv.FormatFloat(s.opts.InterestRate, 'f', -1, 64)
	input, err := s.in.ask(fmt.Sprintf("\nEnter interest rate (%%) [%s]: ", def))
	if err != nil {
		return err
	}
	rateValue := s.opts.InterestRate
	if input != "" {
		rateValue, err = strconv.ParseFloat(strings.TrimSuffix(input, "%"), 64)
		if err != nil || ledger.ValidRate(rateValue) != nil {
			s.fail("Invalid rate entered")
			return nil
		}
	}

	interest := acc.CalculateInterest(rateValue)
	fmt.Fprintf(s.out, "\nCalculated Interest: %s\n", Money(s.opts.CurrencySymbol, interest))

	answer, err := s.in.ask("Do you want to add this interest to account? (y/n): ")
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") {
		return nil
	}
	credited, err := acc.AddInterest(rateValue)
	if err != nil {
		s.fail("Error: %v", err)
		return nil
	}
	if credited.IsZero() {
		s.warn("No interest to add.")
		return nil
	}
	s.ok("Interest of %s added successfully", Money(s.opts.CurrencySymbol, credited))
	fmt.Fprintf(s.out, "New Balance: %s\n", Money(s.opts.CurrencySymbol, acc.Balance))
	s.reportSave(s.dir.Save())
	return nil
}

func (s *Shell) updatePIN(acc *ledger.Account) error {
	old, err := s.in.askSecret("\nEnter current PIN: ")
	if err != nil {
		return err
	}
	if !acc.VerifyPIN(old) {
		s.fail("Error: incorrect current PIN")
		return nil
	}
	newPIN, err := s.in.askSecret("Enter new 4-digit PIN: ")
	if err != nil {
		return err
	}
	if !ledger.ValidPIN(newPIN) {
		s.fail("Error: %v", ledger.ErrMalformedPIN)
		return nil
	}
	confirm, err := s.in.askSecret("Confirm new PIN: ")
	if err != nil {
		return err
	}
	if newPIN != confirm {
		s.fail("Error: PINs don't match")
		return nil
	}
	if err := acc.UpdatePIN(newPIN); err != nil {
		s.fail("Error: %v", err)
		return nil
	}
	s.ok("PIN updated successfully")
	s.reportSave(s.dir.Save())
	return nil
}

func (s *Shell) deleteAccount(acc *ledger.Account) (bool, error) {
	s.warn("\n⚠ WARNING: This action cannot be undone!")
	confirm, err := s.in.ask("Type 'DELETE' to confirm account deletion: ")
	if err != nil {
		return false, err
	}
	if confirm != "DELETE" {
		fmt.Fprintln(s.out, "Account deletion cancelled")
		return false, nil
	}
	pin, err := s.in.askSecret("Enter PIN to confirm: ")
	if err != nil {
		return false, err
	}

	err = s.dir.DeleteAccount(acc.Number, pin)
	if err != nil && !errors.Is(err, ledger.ErrNotPersisted) {
		s.fail("Error: %v", err)
		return false, nil
	}
	s.ok("Account deleted successfully")
	s.reportSave(err)
	return true, nil
}

func (s *Shell) listAccounts() {
	s.header("ALL ACCOUNTS")
	if s.dir.Len() == 0 {
		fmt.Fprintln(s.out, "No accounts found in the system.")
		return
	}
	fmt.Fprintln(s.out)
	WriteAccounts(s.out, s.dir.ListAccounts(), s.opts.CurrencySymbol)
}

// reportSave warns about a failed save. The session carries on with the
// in-memory state.
func (s *Shell) reportSave(err error) {
	if err != nil {
		s.warn("Warning: changes could not be saved: %v", err)
	}
}

func (s *Shell) header(title string) {
	fmt.Fprintln(s.out)
	rule(s.out, 60)
	pad := (60 - len([]rune(title))) / 2
	if pad < 0 {
		pad = 0
	}
	colorHeading.Fprintln(s.out, strings.Repeat(" ", pad)+title)
	rule(s.out, 60)
}

func (s *Shell) ok(format string, args ...any) {
	colorOK.Fprintf(s.out, "✓ "+format+"\n", args...)
}

func (s *Shell) fail(format string, args ...any) {
	colorNeg.Fprintf(s.out, format+"\n", args...)
}

func (s *Shell) warn(format string, args ...any) {
	colorWarn.Fprintf(s.out, format+"\n", args...)
}
