package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultInterestRate is the percentage used when no rate is given.
	DefaultInterestRate = 3.5

	// DefaultAccountType is assigned when an account is created without one.
	DefaultAccountType = "Savings"

	// TimeLayout is the second-precision layout used for timestamps.
	TimeLayout = "2006-01-02 15:04:05"
)

var hundred = decimal.NewFromInt(100)

// now is replaced in tests.
var now = func() time.Time {
	return time.Now().Truncate(time.Second)
}

// RoundAmount rounds a monetary amount to cents using banker's rounding.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// NewAccount returns an empty account after validating holder and PIN.
func NewAccount(number, holder, pin, accountType string) (*Account, error) {
	holder, err := validateHolder(holder, pin)
	if err != nil {
		return nil, err
	}
	if accountType == "" {
		accountType = DefaultAccountType
	}
	return &Account{
		Number:  number,
		Holder:  holder,
		PIN:     pin,
		Type:    accountType,
		Balance: decimal.Zero,
		Created: now(),
	}, nil
}

// Deposit adds amount to the balance and records a Deposit.
func (a *Account) Deposit(amount decimal.Decimal) error {
	amount = RoundAmount(amount)
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	a.credit(Deposit, amount)
	return nil
}

// Withdraw subtracts amount from the balance and records a Withdrawal.
// The balance never goes below zero.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	amount = RoundAmount(amount)
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(a.Balance) {
		return &InsufficientBalanceError{Available: a.Balance}
	}
	a.Balance = a.Balance.Sub(amount)
	a.record(Withdrawal, amount)
	return nil
}

// ValidRate reports ErrInvalidAmount for a negative or non-finite
// interest rate.
func ValidRate(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return fmt.Errorf("rate %v: %w", rate, ErrInvalidAmount)
	}
	return nil
}

// CalculateInterest returns balance * rate / 100 without changing the account.
// A rate rejected by ValidRate yields zero.
func (a *Account) CalculateInterest(rate float64) decimal.Decimal {
	if ValidRate(rate) != nil {
		return decimal.Zero
	}
	return a.Balance.Mul(decimal.NewFromFloat(rate)).Div(hundred)
}

// AddInterest credits interest at rate, rounded to cents, and returns the
// credited amount. Nothing is recorded when the interest rounds to zero.
func (a *Account) AddInterest(rate float64) (decimal.Decimal, error) {
	if err := ValidRate(rate); err != nil {
		return decimal.Zero, err
	}
	interest := RoundAmount(a.CalculateInterest(rate))
	if interest.Sign() <= 0 {
		return decimal.Zero, nil
	}
	a.credit(InterestCredit, interest)
	return interest, nil
}

// VerifyPIN reports whether candidate matches the stored PIN.
func (a *Account) VerifyPIN(candidate string) bool {
	return a.PIN == candidate
}

// UpdatePIN replaces the stored PIN. The caller is expected to have
// verified the current PIN already.
func (a *Account) UpdatePIN(newPIN string) error {
	if err := validatePIN(newPIN); err != nil {
		return err
	}
	a.PIN = newPIN
	return nil
}

// Recent returns up to n of the latest transactions, oldest first.
// A non-positive n returns the whole log.
func (a *Account) Recent(n int) []Transaction {
	if n <= 0 || n >= len(a.Transactions) {
		return a.Transactions
	}
	return a.Transactions[len(a.Transactions)-n:]
}

func (a *Account) credit(kind Kind, amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
	a.record(kind, amount)
}

func (a *Account) record(kind Kind, amount decimal.Decimal) {
	a.Transactions = append(a.Transactions, Transaction{
		ID:      uuid.New(),
		Kind:    kind,
		Amount:  amount,
		Balance: a.Balance,
		Date:    now(),
	})
}
