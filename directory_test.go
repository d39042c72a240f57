package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	accounts []*Account
	loadErr  error
	saveErr  error
	saves    int
}

func (m *memStorage) Load() ([]*Account, error) {
	return m.accounts, m.loadErr
}

func (m *memStorage) Save(accounts []*Account) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.accounts = accounts
	return nil
}

func TestDirectory_Scenario(t *testing.T) {
	store := &memStorage{}
	d := NewDirectory(store)

	number, err := d.CreateAccount("Alice", "1234", dec("100.00"), "")
	require.NoError(t, err)
	assert.Equal(t, "ACC1001", number)
	assert.Equal(t, 1, store.saves)

	acc, err := d.Authenticate(number, "1234")
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(dec("100.00")))
	require.Len(t, acc.Transactions, 1)
	assert.Equal(t, InitialDeposit, acc.Transactions[0].Kind)
	assert.True(t, acc.Transactions[0].Amount.Equal(dec("100.00")))
	assert.True(t, acc.Transactions[0].Balance.Equal(dec("100.00")))
	assert.Equal(t, DefaultAccountType, acc.Type)

	require.NoError(t, acc.Deposit(dec("50.00")))
	assert.True(t, acc.Balance.Equal(dec("150.00")))

	err = acc.Withdraw(dec("200.00"))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.True(t, acc.Balance.Equal(dec("150.00")))

	interest, err := acc.AddInterest(3.5)
	require.NoError(t, err)
	assert.True(t, interest.Equal(dec("5.25")))
	assert.True(t, acc.Balance.Equal(dec("155.25")))
	require.Len(t, acc.Transactions, 3)
	assert.Equal(t, InterestCredit, acc.Transactions[2].Kind)
	assert.True(t, acc.Transactions[2].Amount.Equal(dec("5.25")))

	require.NoError(t, d.Save())
	assert.Equal(t, 2, store.saves)
	assert.NoError(t, acc.Verify())
}

func TestDirectory_CreateAccountValidation(t *testing.T) {
	store := &memStorage{}
	d := NewDirectory(store)

	tests := []struct {
		name    string
		holder  string
		pin     string
		deposit string
		wantErr error
	}{
		{"negative deposit", "Alice", "1234", "-1", ErrInvalidAmount},
		{"sub-cent negative deposit", "Alice", "1234", "-0.004", ErrInvalidAmount},
		{"empty name", "", "1234", "0", ErrEmptyName},
		{"malformed pin", "Alice", "12", "0", ErrMalformedPIN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			number, err := d.CreateAccount(tt.holder, tt.pin, dec(tt.deposit), "")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, number)
		})
	}
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, 0, store.saves)

	number, err := d.CreateAccount("Bob", "0000", decimal.Zero, "Current")
	require.NoError(t, err)
	acc, err := d.Authenticate(number, "0000")
	require.NoError(t, err)
	assert.Empty(t, acc.Transactions, "zero initial deposit records nothing")
	assert.Equal(t, "Current", acc.Type)
}

func TestDirectory_GenerateIdentifier(t *testing.T) {
	d := NewDirectory(&memStorage{})
	assert.Equal(t, "ACC1001", d.GenerateIdentifier())

	a, err := d.CreateAccount("A", "1111", decimal.Zero, "")
	require.NoError(t, err)
	b, err := d.CreateAccount("B", "2222", decimal.Zero, "")
	require.NoError(t, err)
	require.NoError(t, d.DeleteAccount(a, "1111"))
	c, err := d.CreateAccount("C", "3333", decimal.Zero, "")
	require.NoError(t, err)

	assert.Equal(t, "ACC1001", a)
	assert.Equal(t, "ACC1002", b)
	assert.Equal(t, "ACC1003", c)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, b, c)

	// gaps below the highest number are never filled
	require.NoError(t, d.DeleteAccount(b, "2222"))
	assert.Equal(t, "ACC1004", d.GenerateIdentifier())
}

func TestDirectory_GenerateIdentifierNonContiguous(t *testing.T) {
	store := &memStorage{accounts: []*Account{
		{Number: "ACC1005", Holder: "A", PIN: "1111", Balance: decimal.Zero},
		{Number: "ACC2001", Holder: "B", PIN: "2222", Balance: decimal.Zero},
		{Number: "LEGACY", Holder: "C", PIN: "3333", Balance: decimal.Zero},
	}}
	d := NewDirectory(store)
	assert.Equal(t, "ACC2002", d.GenerateIdentifier())

	custom := NewDirectory(&memStorage{}, WithPrefix("SB"))
	assert.Equal(t, "SB1001", custom.GenerateIdentifier())
}

func TestDirectory_Authenticate(t *testing.T) {
	d := NewDirectory(&memStorage{})
	number, err := d.CreateAccount("Alice", "1234", dec("10"), "")
	require.NoError(t, err)

	_, err = d.Authenticate("ACC9999", "1234")
	assert.ErrorIs(t, err, ErrInvalidAccount)

	_, err = d.Authenticate(number, "4321")
	assert.ErrorIs(t, err, ErrInvalidPIN)

	acc, err := d.Authenticate(number, "1234")
	require.NoError(t, err)
	assert.Equal(t, number, acc.Number)
}

func TestDirectory_DeleteAccount(t *testing.T) {
	store := &memStorage{}
	d := NewDirectory(store)
	number, err := d.CreateAccount("Alice", "1234", dec("10"), "")
	require.NoError(t, err)

	assert.ErrorIs(t, d.DeleteAccount("ACC0000", "1234"), ErrInvalidAccount)
	assert.ErrorIs(t, d.DeleteAccount(number, "0000"), ErrInvalidPIN)
	assert.Equal(t, 1, d.Len())

	require.NoError(t, d.DeleteAccount(number, "1234"))
	assert.Equal(t, 0, d.Len())
	assert.Empty(t, d.ListAccounts())
	assert.Empty(t, store.accounts)

	_, err = d.Authenticate(number, "1234")
	assert.ErrorIs(t, err, ErrInvalidAccount)
}

func TestDirectory_ListAccountsOrder(t *testing.T) {
	d := NewDirectory(&memStorage{})
	for _, name := range []string{"A", "B", "C"} {
		_, err := d.CreateAccount(name, "1234", decimal.Zero, "")
		require.NoError(t, err)
	}
	require.NoError(t, d.DeleteAccount("ACC1002", "1234"))

	var holders []string
	for _, acc := range d.ListAccounts() {
		holders = append(holders, acc.Holder)
	}
	assert.Equal(t, []string{"A", "C"}, holders)
}

func TestDirectory_LoadFailureStartsEmpty(t *testing.T) {
	store := &memStorage{loadErr: errors.New("disk on fire")}
	d := NewDirectory(store)
	assert.Equal(t, 0, d.Len())

	err := d.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")

	number, err := d.CreateAccount("Alice", "1234", decimal.Zero, "")
	require.NoError(t, err)
	assert.Equal(t, "ACC1001", number)
}

func TestOpen_ReturnsLoadError(t *testing.T) {
	d, err := Open(&memStorage{loadErr: errors.New("disk on fire")}, WithPrefix("SB"))
	require.Error(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, "SB1001", d.GenerateIdentifier())

	d, err = Open(&memStorage{})
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())
}

func TestDirectory_LoadSkipsUnreadableAccounts(t *testing.T) {
	good, err := NewAccount("ACC1001", "Alice", "1234", "")
	require.NoError(t, err)
	store := &memStorage{
		accounts: []*Account{good},
		loadErr:  errors.Join(
			&RecordError{Number: "ACC1005", Err: ErrUnknownKind},
			&RecordError{Number: "ACC1002", Err: errors.New("bad date")},
		),
	}

	d, err := Open(store)
	require.ErrorIs(t, err, ErrPartialLoad)
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, "ACC1006", d.GenerateIdentifier())

	_, err = d.Authenticate("ACC1005", "1234")
	assert.ErrorIs(t, err, ErrInvalidAccount)
}

func TestDirectory_LoadKeepsInconsistentAccounts(t *testing.T) {
	store := &memStorage{accounts: []*Account{
		{Number: "ACC1001", Holder: "A", PIN: "1111", Balance: dec("10")},
		{Number: "ACC1001", Holder: "dup", PIN: "2222", Balance: decimal.Zero},
	}}
	d := NewDirectory(store)
	require.Equal(t, 1, d.Len())
	acc, err := d.Authenticate("ACC1001", "1111")
	require.NoError(t, err)
	assert.Equal(t, "A", acc.Holder)
}

func TestDirectory_SaveFailureKeepsMutation(t *testing.T) {
	store := &memStorage{saveErr: errors.New("read-only file system")}
	d := NewDirectory(store)

	number, err := d.CreateAccount("Alice", "1234", dec("25"), "")
	require.ErrorIs(t, err, ErrNotPersisted)
	assert.Equal(t, "ACC1001", number)

	acc, err := d.Authenticate(number, "1234")
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(dec("25")))

	require.NoError(t, acc.Deposit(dec("5")))
	assert.ErrorIs(t, d.Save(), ErrNotPersisted)
	assert.True(t, acc.Balance.Equal(dec("30")))

	err = d.DeleteAccount(number, "1234")
	assert.ErrorIs(t, err, ErrNotPersisted)
	assert.Equal(t, 0, d.Len())
}

func TestDirectory_ReplayAfterMixedHistory(t *testing.T) {
	freezeClock(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local))
	d := NewDirectory(&memStorage{})
	for i, name := range []string{"A", "B", "C"} {
		number, err := d.CreateAccount(name, "1234", decimal.NewFromInt(int64(100*(i+1))), "")
		require.NoError(t, err)
		acc, err := d.Authenticate(number, "1234")
		require.NoError(t, err)
		require.NoError(t, acc.Deposit(dec("12.34")))
		_ = acc.Withdraw(dec("150"))
		_, err = acc.AddInterest(2.75)
		require.NoError(t, err)
	}
	for _, acc := range d.ListAccounts() {
		assert.NoError(t, acc.Verify(), acc.Number)
		assert.GreaterOrEqual(t, acc.Balance.Sign(), 0)
	}
}
