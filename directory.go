package ledger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DefaultPrefix is prepended to every generated account number.
	DefaultPrefix = "ACC"

	firstNumber = 1001
)

// Storage persists the complete set of accounts. Load returns no accounts
// and no error when nothing has been stored yet. Accounts that cannot be
// decoded are reported as joined *RecordError values alongside the ones
// that could.
type Storage interface {
	Load() ([]*Account, error)
	Save(accounts []*Account) error
}

// Directory owns every account, generates account numbers and gates access
// to accounts behind their PIN.
type Directory struct {
	storage Storage
	logger  *slog.Logger
	prefix  string

	accounts map[string]*Account
	order    []string
	// numbers of stored accounts that could not be read
	reserved []string
}

// Option configures a Directory.
type Option func(*Directory)

// WithLogger sets the logger used to report load and save activity.
func WithLogger(l *slog.Logger) Option {
	return func(d *Directory) {
		d.logger = l
	}
}

// WithPrefix sets the account number prefix.
func WithPrefix(prefix string) Option {
	return func(d *Directory) {
		d.prefix = prefix
	}
}

// NewDirectory returns a Directory populated from storage. A load failure is
// logged and leaves the directory empty.
func NewDirectory(storage Storage, opts ...Option) *Directory {
	d, _ := Open(storage, opts...)
	return d
}

// Open is like NewDirectory but also returns the load error. The returned
// Directory is usable, and empty, when the error is non-nil.
func Open(storage Storage, opts ...Option) (*Directory, error) {
	d := &Directory{
		storage:  storage,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		prefix:   DefaultPrefix,
		accounts: make(map[string]*Account),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, d.Load()
}

// Load replaces the in-memory accounts with the stored ones. When the
// storage cannot be read at all the directory is left empty and the error is
// returned. Unreadable accounts are skipped, their numbers are never handed
// out again, and the returned error wraps ErrPartialLoad.
func (d *Directory) Load() error {
	d.accounts = make(map[string]*Account)
	d.order = nil
	d.reserved = nil

	accounts, err := d.storage.Load()
	if err != nil {
		skipped := recordErrors(err)
		if len(skipped) == 0 {
			d.logger.Error("unable to load ledger, starting empty", "error", err)
			return fmt.Errorf("load ledger: %w", err)
		}
		for _, re := range skipped {
			d.logger.Warn("skipping unreadable account", "account", re.Number, "error", re.Err)
			d.reserved = append(d.reserved, re.Number)
		}
		err = fmt.Errorf("load ledger: %w: %w", ErrPartialLoad, err)
	}
	for _, acc := range accounts {
		if _, dup := d.accounts[acc.Number]; dup {
			d.logger.Warn("duplicate account number in ledger, keeping first", "account", acc.Number)
			continue
		}
		if verr := acc.Verify(); verr != nil {
			d.logger.Warn("account history inconsistent", "account", acc.Number, "error", verr)
		}
		d.insert(acc)
	}
	if len(d.accounts) == 0 {
		d.logger.Info("no existing accounts, starting fresh")
	} else {
		d.logger.Info("loaded accounts", "count", len(d.accounts))
	}
	return err
}

func recordErrors(err error) []*RecordError {
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	var out []*RecordError
	for _, e := range errs {
		var re *RecordError
		if errors.As(e, &re) {
			out = append(out, re)
		}
	}
	return out
}

// Save writes every account to storage. A failure is returned to the
// caller; the in-memory state is left as is.
func (d *Directory) Save() error {
	if err := d.storage.Save(d.ListAccounts()); err != nil {
		d.logger.Error("unable to save ledger", "error", err)
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	d.logger.Debug("ledger saved", "accounts", len(d.accounts))
	return nil
}

// GenerateIdentifier returns the next account number: the prefix followed
// by one more than the highest number in use, or 1001 for an empty
// directory. Gaps left by deletion are not filled.
func (d *Directory) GenerateIdentifier() string {
	highest, seen := 0, false
	for _, number := range append(slices.Collect(maps.Keys(d.accounts)), d.reserved...) {
		if n, ok := d.suffix(number); ok && (!seen || n > highest) {
			highest, seen = n, true
		}
	}
	if !seen {
		return d.prefix + strconv.Itoa(firstNumber)
	}
	return d.prefix + strconv.Itoa(highest+1)
}

// CreateAccount opens a new account and saves the directory. A non-empty
// number returned with an error wrapping ErrNotPersisted means the account
// exists in memory but could not be saved.
func (d *Directory) CreateAccount(name, pin string, initialDeposit decimal.Decimal, accountType string) (string, error) {
	if initialDeposit.Sign() < 0 {
		return "", ErrInvalidAmount
	}
	initialDeposit = RoundAmount(initialDeposit)

	acc, err := NewAccount(d.GenerateIdentifier(), name, pin, accountType)
	if err != nil {
		return "", err
	}
	if initialDeposit.Sign() > 0 {
		acc.credit(InitialDeposit, initialDeposit)
	}
	d.insert(acc)
	d.logger.Info("account created", "account", acc.Number, "type", acc.Type)

	return acc.Number, d.Save()
}

// Authenticate returns the account identified by number if pin matches.
func (d *Directory) Authenticate(number, pin string) (*Account, error) {
	acc, ok := d.accounts[number]
	if !ok {
		return nil, ErrInvalidAccount
	}
	if !acc.VerifyPIN(pin) {
		return nil, ErrInvalidPIN
	}
	return acc, nil
}

// DeleteAccount removes an account after authenticating it and saves the
// directory.
func (d *Directory) DeleteAccount(number, pin string) error {
	if _, err := d.Authenticate(number, pin); err != nil {
		return err
	}
	delete(d.accounts, number)
	d.order = slices.DeleteFunc(d.order, func(n string) bool { return n == number })
	d.logger.Info("account deleted", "account", number)

	return d.Save()
}

// ListAccounts returns every account in display order. It is an operator
// capability and does not check PINs.
func (d *Directory) ListAccounts() []*Account {
	out := make([]*Account, 0, len(d.order))
	for _, number := range d.order {
		out = append(out, d.accounts[number])
	}
	return out
}

// Len returns the number of accounts.
func (d *Directory) Len() int {
	return len(d.accounts)
}

func (d *Directory) insert(acc *Account) {
	d.accounts[acc.Number] = acc
	d.order = append(d.order, acc.Number)
}

func (d *Directory) suffix(number string) (int, bool) {
	digits, found := strings.CutPrefix(number, d.prefix)
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
