package iif

import (
	"fmt"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the QuickBooks IIF date format.
const DateLayout = "1/2/2006"

const (
	TypeTrns    RecordType = "TRNS"
	TypeSpl     RecordType = "SPL"
	TypeEndTrns RecordType = "ENDTRNS"
)

type Transaction struct {
	Tr     Trns  `type:"TRNS"`
	Splits []Spl `type:"SPL"`
}

type Trns struct {
	TransactionType string          `iif:"TRNSTYPE"`
	Date            time.Time       `iif:"DATE"`
	Account         string          `iif:"ACCNT"`
	Name            string          `iif:"NAME"`
	Class           string          `iif:"CLASS"`
	Amount          decimal.Decimal `iif:"AMOUNT"`
	Memo            string          `iif:"MEMO"`
}

type Spl struct {
	TransactionType string          `iif:"TRNSTYPE"`
	Date            time.Time       `iif:"DATE"`
	Account         string          `iif:"ACCNT"`
	Name            string          `iif:"NAME"`
	Class           string          `iif:"CLASS"`
	Amount          decimal.Decimal `iif:"AMOUNT"`
	Memo            string          `iif:"MEMO"`
}

// Transactions returns the transactions of every TRNS block in f; blocks
// of other lists, such as accounts or customers, are skipped.
func (f *File) Transactions() ([]Transaction, error) {
	var out []Transaction
	for _, b := range f.Blocks {
		if len(b.Headers) == 0 || b.Headers[0].Type != TypeTrns {
			continue
		}
		txs, err := DeserializeTransactions(b)
		if err != nil {
			return nil, err
		}
		out = append(out, txs...)
	}
	return out, nil
}

// SerializeTransactions builds a TRNS/SPL/ENDTRNS block. Every transaction
// needs at least one split for the block to decode again.
func SerializeTransactions(txs []Transaction) Block {
	b := Block{Headers: []Header{
		{Type: TypeTrns, Fields: fieldNames(reflect.TypeOf(Trns{}))},
		{Type: TypeSpl, Fields: fieldNames(reflect.TypeOf(Spl{}))},
		{Type: TypeEndTrns, Fields: []string{}},
	}}
	for _, tx := range txs {
		group := []Record{{Type: TypeTrns, Fields: recordFields(reflect.ValueOf(tx.Tr))}}
		for _, spl := range tx.Splits {
			group = append(group, Record{Type: TypeSpl, Fields: recordFields(reflect.ValueOf(spl))})
		}
		group = append(group, Record{Type: TypeEndTrns, Fields: map[string]string{}})
		b.Records = append(b.Records, group)
	}
	return b
}

func fieldNames(t reflect.Type) []string {
	var names []string
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("iif"); tag != "" {
			names = append(names, tag)
		}
	}
	return names
}

func recordFields(v reflect.Value) map[string]string {
	t := v.Type()
	m := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("iif"); tag != "" {
			m[tag] = formatFieldValue(v.Field(i))
		}
	}
	return m
}

func formatFieldValue(fv reflect.Value) string {
	switch val := fv.Interface().(type) {
	case string:
		return val
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format(DateLayout)
	case decimal.Decimal:
		return val.StringFixedBank(2)
	default:
		return fmt.Sprint(val)
	}
}

func DeserializeTransactions(b Block) ([]Transaction, error) {
	var out []Transaction

	for _, recGroup := range b.Records {
		if len(recGroup) == 0 {
			continue
		}

		var tx Transaction
		if err := DeserializeRecordGroup(&tx, recGroup); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}

	return out, nil
}

func DeserializeRecordGroup(tx any, recs []Record) error {
	for _, r := range recs {
		if err := applyRecord(tx, r); err != nil {
			return err
		}
	}
	return nil
}

func applyRecord(tx any, r Record) error {
	txVal := reflect.ValueOf(tx).Elem()
	txType := txVal.Type()

	for i := 0; i < txType.NumField(); i++ {
		field := txType.Field(i)
		tag := field.Tag.Get("type")
		if tag == "" || string(r.Type) != tag {
			continue
		}

		fv := txVal.Field(i)

		if fv.Kind() == reflect.Slice {
			elemType := fv.Type().Elem()
			elemPtr := reflect.New(elemType).Elem()

			if err := populateStructFromRecord(elemPtr, r); err != nil {
				return err
			}

			fv.Set(reflect.Append(fv, elemPtr))
			return nil
		}
		if fv.Kind() == reflect.Struct {
			if err := populateStructFromRecord(fv, r); err != nil {
				return err
			}
			return nil
		}
	}
	return nil
}

func populateStructFromRecord(v reflect.Value, r Record) error {
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("populateStructFromRecord: expected struct, got %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("iif")
		if tag == "" {
			continue
		}

		raw, ok := r.Fields[tag]
		if !ok {
			continue
		}

		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}

		if err := setFieldValueFromString(fv, raw); err != nil {
			return fmt.Errorf("field %s: %w", sf.Name, err)
		}
	}

	return nil
}

// setFieldValueFromString converts the string representation from a Record
// into the appropriate Go type and assigns it to fv.
func setFieldValueFromString(fv reflect.Value, s string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(s)
		return nil
	case reflect.Struct:
		switch fv.Type() {
		case reflect.TypeOf(time.Time{}):
			if s == "" {
				return nil
			}
			t, err := time.Parse(DateLayout, s)
			if err != nil {
				return err
			}
			fv.Set(reflect.ValueOf(t))
			return nil
		case reflect.TypeOf(decimal.Decimal{}):
			if s == "" {
				fv.Set(reflect.ValueOf(decimal.Zero))
				return nil
			}
			d, err := decimal.NewFromString(s)
			if err != nil {
				return err
			}
			fv.Set(reflect.ValueOf(d))
			return nil
		default:
			return fmt.Errorf("unsupported struct type %s", fv.Type())
		}
	default:
		return fmt.Errorf("unsupported kind %s", fv.Kind())
	}
}
