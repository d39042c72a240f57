package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/plenert/ledger"
	"github.com/shopspring/decimal"
)

// Amount is a decimal that is written as a bare JSON number with two
// decimal places, and as a string in text based formats.
type Amount struct {
	decimal.Decimal
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.StringFixed(2)), nil
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.StringFixed(2)), nil
}

type accountRecord struct {
	AccountNumber string              `json:"account_number" toml:"account_number"`
	Name          string              `json:"name" toml:"name"`
	PIN           string              `json:"pin" toml:"pin"`
	Balance       Amount              `json:"balance" toml:"balance"`
	AccountType   string              `json:"account_type" toml:"account_type"`
	CreationDate  string              `json:"creation_date" toml:"creation_date"`
	Transactions  []transactionRecord `json:"transactions" toml:"transactions"`
}

type transactionRecord struct {
	ID      string `json:"id,omitempty" toml:"id,omitempty"`
	Type    string `json:"type" toml:"type"`
	Amount  Amount `json:"amount" toml:"amount"`
	Balance Amount `json:"balance" toml:"balance"`
	Date    string `json:"date" toml:"date"`
}

// fileRecord is the whole persisted ledger keyed by account number.
type fileRecord map[string]accountRecord

func toRecord(acc *ledger.Account) accountRecord {
	rec := accountRecord{
		AccountNumber: acc.Number,
		Name:          acc.Holder,
		PIN:           acc.PIN,
		Balance:       Amount{acc.Balance},
		AccountType:   acc.Type,
		CreationDate:  acc.Created.Format(ledger.TimeLayout),
		Transactions:  make([]transactionRecord, 0, len(acc.Transactions)),
	}
	for _, t := range acc.Transactions {
		tr := transactionRecord{
			Type:    t.Kind.String(),
			Amount:  Amount{t.Amount},
			Balance: Amount{t.Balance},
			Date:    t.Date.Format(ledger.TimeLayout),
		}
		if t.ID != uuid.Nil {
			tr.ID = t.ID.String()
		}
		rec.Transactions = append(rec.Transactions, tr)
	}
	return rec
}

// fromRecord rebuilds an account, rounding amounts to cents so files
// written with binary floats load exactly.
func fromRecord(number string, rec accountRecord) (*ledger.Account, error) {
	created, err := parseTime(rec.CreationDate)
	if err != nil {
		return nil, fmt.Errorf("creation_date: %w", err)
	}
	acc := &ledger.Account{
		Number:  number,
		Holder:  rec.Name,
		PIN:     rec.PIN,
		Type:    rec.AccountType,
		Balance: ledger.RoundAmount(rec.Balance.Decimal),
		Created: created,
	}
	for i, tr := range rec.Transactions {
		kind, err := ledger.ParseKind(tr.Type)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		date, err := parseTime(tr.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: date: %w", i, err)
		}
		var id uuid.UUID
		if tr.ID != "" {
			if id, err = uuid.Parse(tr.ID); err != nil {
				return nil, fmt.Errorf("transaction %d: id: %w", i, err)
			}
		}
		acc.Transactions = append(acc.Transactions, ledger.Transaction{
			ID:      id,
			Kind:    kind,
			Amount:  ledger.RoundAmount(tr.Amount.Decimal),
			Balance: ledger.RoundAmount(tr.Balance.Decimal),
			Date:    date,
		})
	}
	return acc, nil
}

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(ledger.TimeLayout, s, time.Local)
}
