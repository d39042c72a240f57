package shell

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/plenert/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"100", "100"},
		{" 42.5 ", "42.5"},
		{"₹1,250.50", "1250.5"},
		{"1 000", "1000"},
		{"100+25.5", "125.5"},
		{"(3*40)", "120"},
		{"10/4", "2.5"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input, "₹")
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}

	_, err := ParseAmount("  ", "₹")
	assert.ErrorIs(t, err, ErrEmptyAmount)
	_, err = ParseAmount("₹", "₹")
	assert.ErrorIs(t, err, ErrEmptyAmount)

	for _, input := range []string{"1/0", "-1/0", "0/0"} {
		_, err = ParseAmount(input, "₹")
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount, input)
	}
	for _, input := range []string{"inf", "nan"} {
		_, err = ParseAmount(input, "₹")
		assert.Error(t, err, input)
	}
}

func TestAge(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "less than a minute", Age(created, created.Add(20*time.Second)))
	assert.Equal(t, "2 days 1 hour", Age(created, created.Add(49*time.Hour+30*time.Second)))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "₹155.25", Money("₹", decimal.RequireFromString("155.25")))
	assert.Equal(t, "$0.00", Money("$", decimal.Zero))
	assert.Equal(t, "0.12", Money("", decimal.RequireFromString("0.125")))
}

func TestWriteCSV(t *testing.T) {
	at := time.Date(2024, 3, 2, 10, 0, 1, 0, time.Local)
	id := uuid.MustParse("6f1c2f52-3d5e-4a7b-9c1d-2e3f4a5b6c7d")
	txs := []ledger.Transaction{
		{ID: id, Kind: ledger.Deposit, Amount: decimal.RequireFromString("50"), Balance: decimal.RequireFromString("150"), Date: at},
		{ID: id, Kind: ledger.Withdrawal, Amount: decimal.RequireFromString("20.5"), Balance: decimal.RequireFromString("129.5"), Date: at},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, txs))
	want := "date,id,description,amount,balance\n" +
		"2024-03-02 10:00:01,6f1c2f52-3d5e-4a7b-9c1d-2e3f4a5b6c7d,Deposit,50.00,150.00\n" +
		"2024-03-02 10:00:01,6f1c2f52-3d5e-4a7b-9c1d-2e3f4a5b6c7d,Withdrawal,-20.50,129.50\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteHistory(t *testing.T) {
	at := time.Date(2024, 3, 2, 10, 0, 1, 0, time.Local)
	txs := []ledger.Transaction{
		{Kind: ledger.Withdrawal, Amount: decimal.RequireFromString("20.5"), Balance: decimal.RequireFromString("129.5"), Date: at},
	}
	var buf bytes.Buffer
	WriteHistory(&buf, txs, "₹")
	assert.Contains(t, buf.String(), "2024-03-02 10:00:01  Withdrawal")
	assert.Contains(t, buf.String(), "₹-20.50")
	assert.Contains(t, buf.String(), "₹129.50")
}
