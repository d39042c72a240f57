// Package iif reads and writes Intuit Interchange Format files: tab
// separated blocks of "!TYPE" header lines followed by records of the
// header types.
package iif

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

var (
	ErrMismatchedRecords = errors.New("iif: row does not match expected header")
	ErrUnknownRecordType = errors.New("iif: unknown record type")
	ErrEmptyHeader       = errors.New("iif: empty header")
)

type RecordType string

type Header struct {
	Type   RecordType
	Fields []string
}

type Record struct {
	Type   RecordType
	Fields map[string]string
}

// Block is a run of headers and the record groups that follow them. Each
// record group holds at least one record per header, in header order.
type Block struct {
	Records [][]Record
	Headers []Header
}

type File struct {
	Blocks []Block
}

type Decoder struct {
	r        *csv.Reader
	err      error
	IsHeader bool
	Type     RecordType
	Fields   []string
}

func NewDecoder(r io.Reader) *Decoder {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = false
	reader.FieldsPerRecord = -1
	d := Decoder{r: reader}
	d.Next()
	return &d
}

// Next advances to the following line.
func (d *Decoder) Next() {
	line, err := d.r.Read()
	d.err = err
	if err == nil {
		d.IsHeader = strings.HasPrefix(line[0], "!")
		if d.IsHeader {
			d.Type = RecordType(line[0][1:])
		} else {
			d.Type = RecordType(line[0])
		}
		d.Fields = line[1:]
	}
}

// Error returns the read error, if any, other than io.EOF.
func (d *Decoder) Error() error {
	if d.err != io.EOF {
		return d.err
	}
	return nil
}

func (d *Decoder) Done() bool {
	return d.err != nil
}

func (f *File) Load(d *Decoder) error {
	for !d.Done() {
		b := Block{}
		if err := b.Load(d); err != nil {
			return err
		}
		f.Blocks = append(f.Blocks, b)
	}
	return d.Error()
}

func (h Header) MapFields(fields []string) map[string]string {
	m := make(map[string]string, len(fields))
	for i, f := range h.Fields {
		if i >= len(fields) {
			break
		}
		m[f] = fields[i]
	}
	return m
}

func (b *Block) Load(d *Decoder) error {
	if d.Done() {
		return d.Error()
	}
	for !d.Done() && d.IsHeader {
		b.Headers = append(b.Headers, Header{
			Type:   d.Type,
			Fields: trimLine(d.Fields),
		})
		d.Next()
	}
	if d.Error() != nil {
		return d.Error()
	}

	for !d.Done() && !d.IsHeader {
		// At least one record per header
		if len(b.Headers) == 0 {
			return ErrEmptyHeader
		}
		r := []Record{}
		for _, h := range b.Headers {
			if d.Done() {
				return d.Error()
			}
			if d.Type != h.Type {
				return ErrMismatchedRecords
			}
			for !d.Done() && !d.IsHeader && d.Type == h.Type {
				r = append(r, Record{
					Type:   d.Type,
					Fields: h.MapFields(d.Fields),
				})
				d.Next()
			}
		}
		b.Records = append(b.Records, r)
	}
	return nil
}

func (b *Block) header(t RecordType) (Header, bool) {
	for _, h := range b.Headers {
		if h.Type == t {
			return h, true
		}
	}
	return Header{}, false
}

func trimLine(records []string) []string {
	for i, r := range records {
		if r == "" {
			return records[:i]
		}
	}
	return records
}

func (d *Decoder) Decode() (*File, error) {
	f := File{}
	if err := f.Load(d); err != nil {
		return nil, err
	}
	return &f, nil
}

type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes every block of f: the header lines, then each record with
// its fields in header order.
func (e *Encoder) Encode(f *File) error {
	w := csv.NewWriter(e.w)
	w.Comma = '\t'
	for _, b := range f.Blocks {
		for _, h := range b.Headers {
			if err := w.Write(append([]string{"!" + string(h.Type)}, h.Fields...)); err != nil {
				return err
			}
		}
		for _, group := range b.Records {
			for _, r := range group {
				h, ok := b.header(r.Type)
				if !ok {
					return ErrUnknownRecordType
				}
				row := make([]string, 0, len(h.Fields)+1)
				row = append(row, string(r.Type))
				for _, name := range h.Fields {
					row = append(row, r.Fields[name])
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
	}
	w.Flush()
	return w.Error()
}
