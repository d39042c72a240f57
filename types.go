package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies how a transaction changed an account balance.
type Kind int

const (
	Deposit Kind = iota + 1
	Withdrawal
	InterestCredit
	InitialDeposit
)

// Account holds the identity, credentials and balance of a single account
// along with its transaction log. Accounts are owned by the Directory that
// created or loaded them.
type Account struct {
	Number  string
	Holder  string
	PIN     string
	Type    string
	Balance decimal.Decimal
	Created time.Time

	Transactions []Transaction
}

// Transaction is an immutable entry in an account log. Balance is the
// account balance immediately after the transaction was applied.
type Transaction struct {
	ID      uuid.UUID
	Kind    Kind
	Amount  decimal.Decimal
	Balance decimal.Decimal
	Date    time.Time
}
