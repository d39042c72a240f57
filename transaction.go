package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAccount      = errors.New("account not found")
	ErrInvalidPIN          = errors.New("incorrect PIN")
	ErrMalformedPIN        = errors.New("PIN must be exactly 4 digits")
	ErrEmptyName           = errors.New("name cannot be empty")
	ErrBalanceMismatch     = errors.New("transaction log does not match balance")
	ErrUnknownKind         = errors.New("unknown transaction kind")
	ErrNotPersisted        = errors.New("ledger not persisted")
	ErrPartialLoad         = errors.New("some accounts could not be read")
)

// RecordError reports a stored account that could not be decoded. Storage
// returns one per unreadable account, joined, next to the accounts it read.
type RecordError struct {
	Number string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("account %s: %v", e.Number, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// InsufficientBalanceError is returned by Withdraw when the requested amount
// exceeds the balance. It matches ErrInsufficientBalance with errors.Is.
type InsufficientBalanceError struct {
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s", e.Available.StringFixedBank(2))
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

var kindLabels = map[Kind]string{
	Deposit:        "Deposit",
	Withdrawal:     "Withdrawal",
	InterestCredit: "Interest Credit",
	InitialDeposit: "Initial Deposit",
}

// String returns the label used in persisted files and on screen.
func (k Kind) String() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(label string) (Kind, error) {
	for k, l := range kindLabels {
		if l == label {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, label)
}

// Signed returns the effect of the transaction on the balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == Withdrawal {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Verify replays the transaction log from a zero balance and returns an
// error if any recorded resulting balance, or the final account balance,
// disagrees with the replay.
func (a *Account) Verify() error {
	running := decimal.Zero
	for i, t := range a.Transactions {
		if _, ok := kindLabels[t.Kind]; !ok {
			return fmt.Errorf("transaction %d: %w", i, ErrUnknownKind)
		}
		if t.Amount.Sign() <= 0 {
			return fmt.Errorf("transaction %d: %w", i, ErrInvalidAmount)
		}
		running = running.Add(t.Signed())
		if running.Sign() < 0 {
			return fmt.Errorf("transaction %d: balance below zero: %w", i, ErrBalanceMismatch)
		}
		if !running.Equal(t.Balance) {
			return fmt.Errorf("transaction %d: replayed %s, recorded %s: %w",
				i, running.StringFixedBank(2), t.Balance.StringFixedBank(2), ErrBalanceMismatch)
		}
	}
	if !running.Equal(a.Balance) {
		return fmt.Errorf("replayed %s, balance %s: %w",
			running.StringFixedBank(2), a.Balance.StringFixedBank(2), ErrBalanceMismatch)
	}
	return nil
}
