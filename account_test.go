package ledger

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = orig })
}

func newTestAccount(t *testing.T) *Account {
	t.Helper()
	acc, err := NewAccount("ACC1001", "Alice", "1234", "")
	require.NoError(t, err)
	return acc
}

func TestNewAccount(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)
	freezeClock(t, at)

	t.Run("SuccessfulCreation", func(t *testing.T) {
		acc, err := NewAccount("ACC1001", "  Alice  ", "0042", "Current")
		require.NoError(t, err)
		assert.Equal(t, "ACC1001", acc.Number)
		assert.Equal(t, "Alice", acc.Holder)
		assert.Equal(t, "0042", acc.PIN)
		assert.Equal(t, "Current", acc.Type)
		assert.True(t, acc.Balance.IsZero())
		assert.Equal(t, at, acc.Created)
		assert.Empty(t, acc.Transactions)
	})

	t.Run("DefaultType", func(t *testing.T) {
		acc, err := NewAccount("ACC1001", "Alice", "1234", "")
		require.NoError(t, err)
		assert.Equal(t, DefaultAccountType, acc.Type)
	})

	tests := []struct {
		name    string
		holder  string
		pin     string
		wantErr error
	}{
		{"empty name", "", "1234", ErrEmptyName},
		{"blank name", "   ", "1234", ErrEmptyName},
		{"short pin", "Alice", "123", ErrMalformedPIN},
		{"long pin", "Alice", "12345", ErrMalformedPIN},
		{"letters in pin", "Alice", "12a4", ErrMalformedPIN},
		{"signed pin", "Alice", "+123", ErrMalformedPIN},
		{"decimal pin", "Alice", "1.23", ErrMalformedPIN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAccount("ACC1001", tt.holder, tt.pin, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAccount_Deposit(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)
	freezeClock(t, at)
	acc := newTestAccount(t)

	require.NoError(t, acc.Deposit(dec("50.00")))
	require.NoError(t, acc.Deposit(dec("0.10")))

	assert.True(t, acc.Balance.Equal(dec("50.10")), "balance %s", acc.Balance)
	require.Len(t, acc.Transactions, 2)
	last := acc.Transactions[1]
	assert.Equal(t, Deposit, last.Kind)
	assert.True(t, last.Amount.Equal(dec("0.10")))
	assert.True(t, last.Balance.Equal(dec("50.10")))
	assert.Equal(t, at, last.Date)
	assert.NotEqual(t, acc.Transactions[0].ID, last.ID)
}

func TestAccount_InvalidAmountLeavesStateUnchanged(t *testing.T) {
	acc := newTestAccount(t)
	require.NoError(t, acc.Deposit(dec("10")))

	for _, amount := range []string{"0", "-5", "0.001", "-0.01"} {
		assert.ErrorIs(t, acc.Deposit(dec(amount)), ErrInvalidAmount, "deposit %s", amount)
		assert.ErrorIs(t, acc.Withdraw(dec(amount)), ErrInvalidAmount, "withdraw %s", amount)
	}
	assert.True(t, acc.Balance.Equal(dec("10")))
	assert.Len(t, acc.Transactions, 1)
}

func TestAccount_Withdraw(t *testing.T) {
	acc := newTestAccount(t)
	require.NoError(t, acc.Deposit(dec("100")))

	require.NoError(t, acc.Withdraw(dec("30.25")))
	assert.True(t, acc.Balance.Equal(dec("69.75")))
	assert.Equal(t, Withdrawal, acc.Transactions[1].Kind)
	assert.True(t, acc.Transactions[1].Balance.Equal(dec("69.75")))

	err := acc.Withdraw(dec("69.76"))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	var ibe *InsufficientBalanceError
	require.True(t, errors.As(err, &ibe))
	assert.True(t, ibe.Available.Equal(dec("69.75")))
	assert.Contains(t, err.Error(), "69.75")
	assert.Len(t, acc.Transactions, 2)

	require.NoError(t, acc.Withdraw(dec("69.75")))
	assert.True(t, acc.Balance.IsZero())
}

func TestAccount_Interest(t *testing.T) {
	acc := newTestAccount(t)
	require.NoError(t, acc.Deposit(dec("150")))

	assert.True(t, acc.CalculateInterest(DefaultInterestRate).Equal(dec("5.25")))
	assert.Len(t, acc.Transactions, 1, "CalculateInterest must not mutate")

	interest, err := acc.AddInterest(DefaultInterestRate)
	require.NoError(t, err)
	assert.True(t, interest.Equal(dec("5.25")))
	assert.True(t, acc.Balance.Equal(dec("155.25")))
	last := acc.Transactions[len(acc.Transactions)-1]
	assert.Equal(t, InterestCredit, last.Kind)
	assert.True(t, last.Amount.Equal(dec("5.25")))

	// 155.25 * 3.5% = 5.43375, credited as 5.43
	interest, err = acc.AddInterest(DefaultInterestRate)
	require.NoError(t, err)
	assert.True(t, interest.Equal(dec("5.43")), "interest %s", interest)
	assert.True(t, acc.Balance.Equal(dec("160.68")))
	assert.NoError(t, acc.Verify())

	for _, rate := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err = acc.AddInterest(rate)
		assert.ErrorIs(t, err, ErrInvalidAmount, "rate %v", rate)
		assert.True(t, acc.CalculateInterest(rate).IsZero(), "rate %v", rate)
	}
	assert.True(t, acc.Balance.Equal(dec("160.68")))

	empty := newTestAccount(t)
	interest, err = empty.AddInterest(DefaultInterestRate)
	require.NoError(t, err)
	assert.True(t, interest.IsZero())
	assert.Empty(t, empty.Transactions)
}

func TestAccount_PIN(t *testing.T) {
	acc := newTestAccount(t)
	assert.True(t, acc.VerifyPIN("1234"))
	assert.False(t, acc.VerifyPIN("4321"))
	assert.False(t, acc.VerifyPIN(""))

	assert.ErrorIs(t, acc.UpdatePIN("99"), ErrMalformedPIN)
	assert.True(t, acc.VerifyPIN("1234"))

	require.NoError(t, acc.UpdatePIN("9876"))
	assert.True(t, acc.VerifyPIN("9876"))
	assert.False(t, acc.VerifyPIN("1234"))
}

func TestAccount_Recent(t *testing.T) {
	acc := newTestAccount(t)
	for i := 1; i <= 12; i++ {
		require.NoError(t, acc.Deposit(decimal.NewFromInt(int64(i))))
	}

	recent := acc.Recent(10)
	require.Len(t, recent, 10)
	assert.True(t, recent[0].Amount.Equal(decimal.NewFromInt(3)))
	assert.True(t, recent[9].Amount.Equal(decimal.NewFromInt(12)))
	assert.Len(t, acc.Recent(0), 12)
	assert.Len(t, acc.Recent(50), 12)
}

func TestAccount_BalanceNeverNegative(t *testing.T) {
	acc := newTestAccount(t)
	ops := []struct {
		withdraw bool
		amount   string
	}{
		{false, "20"}, {true, "5.50"}, {true, "20"}, {false, "0.75"},
		{true, "15.25"}, {true, "0.01"}, {false, "3"}, {true, "3"},
	}
	for _, op := range ops {
		if op.withdraw {
			_ = acc.Withdraw(dec(op.amount))
		} else {
			_ = acc.Deposit(dec(op.amount))
		}
		assert.GreaterOrEqual(t, acc.Balance.Sign(), 0)
	}
	assert.NoError(t, acc.Verify())
}

func TestAccount_NoFloatDrift(t *testing.T) {
	acc := newTestAccount(t)
	for i := 0; i < 1000; i++ {
		require.NoError(t, acc.Deposit(dec("0.10")))
	}
	assert.Equal(t, "100.00", acc.Balance.StringFixed(2))
	assert.True(t, acc.Balance.Equal(dec("100")))
}
