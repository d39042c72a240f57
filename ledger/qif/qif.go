package qif

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DateLayout is the US style date used in QIF records.
const DateLayout = "01/02/2006"

var ErrUnterminated = errors.New("qif: unexpected EOF while reading transaction")

// Transaction is a non-investment QIF record. Only the fields a bank
// statement needs are modeled.
type Transaction struct {
	// Account type from the most recent "!Type:" header, e.g. "Bank"
	Type string

	Date     string // D
	Amount   string // T, or U when present
	Num      string // N - reference
	Payee    string // P
	Memo     string // M, multiple lines joined with '\n'
	Cleared  string // C
	Category string // L

	// RawLines holds the field lines of the record, without the '^'.
	RawLines []string
}

// Decoder reads QIF records from an input stream.
type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads every record from the underlying reader.
func (d *Decoder) Decode() ([]*Transaction, error) {
	var (
		transactions []*Transaction
		currentType  string
	)
	for {
		line, err := d.readLine()
		if err == io.EOF {
			return transactions, nil
		}
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			continue
		}

		if t, ok := strings.CutPrefix(line, "!Type:"); ok {
			currentType = strings.TrimSpace(t)
			continue
		}
		if line[0] == '!' {
			// other directives such as !Account are not modeled
			continue
		}

		tx, err := d.decodeTransaction(currentType, line)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
}

// decodeTransaction reads fields, starting with first, until the '^'
// record terminator.
func (d *Decoder) decodeTransaction(txType, first string) (*Transaction, error) {
	tx := &Transaction{Type: txType}
	line := first
	for {
		if line == "^" || strings.HasPrefix(line, "^") {
			return tx, nil
		}
		if len(line) > 0 {
			tx.assign(line)
		}

		var err error
		line, err = d.readLine()
		if err == io.EOF {
			return nil, ErrUnterminated
		}
		if err != nil {
			return nil, err
		}
	}
}

func (tx *Transaction) assign(line string) {
	tx.RawLines = append(tx.RawLines, line)

	value := line[1:]
	switch line[0] {
	case 'D':
		tx.Date = value
	case 'T', 'U':
		tx.Amount = value
	case 'N':
		tx.Num = value
	case 'P':
		tx.Payee = value
	case 'M':
		if tx.Memo == "" {
			tx.Memo = value
		} else {
			tx.Memo += "\n" + value
		}
	case 'C':
		tx.Cleared = value
	case 'L':
		tx.Category = value
	}
}

// readLine returns the next line without its line ending. io.EOF is only
// returned once no characters remain.
func (d *Decoder) readLine() (string, error) {
	line, err := d.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if err == io.EOF && len(line) == 0 {
		return "", io.EOF
	}
	return line, nil
}

// ParseQIF parses all records from reader.
func ParseQIF(reader io.Reader) ([]*Transaction, error) {
	return NewDecoder(reader).Decode()
}

// Encoder writes QIF records.
type Encoder struct {
	w *bufio.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes a "!Type:" header for accountType followed by every
// transaction, then flushes.
func (e *Encoder) Encode(accountType string, transactions []*Transaction) error {
	fmt.Fprintf(e.w, "!Type:%s\n", accountType)
	for _, tx := range transactions {
		e.field('D', tx.Date)
		e.field('T', tx.Amount)
		e.field('C', tx.Cleared)
		e.field('N', tx.Num)
		e.field('P', tx.Payee)
		for _, m := range strings.Split(tx.Memo, "\n") {
			e.field('M', m)
		}
		e.field('L', tx.Category)
		e.w.WriteString("^\n")
	}
	return e.w.Flush()
}

func (e *Encoder) field(code byte, value string) {
	if value == "" {
		return
	}
	e.w.WriteByte(code)
	e.w.WriteString(value)
	e.w.WriteByte('\n')
}
