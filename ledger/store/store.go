// Package store persists a ledger directory to a single flat file.
//
// The format is chosen from the file name: ".toml" selects TOML, anything
// else JSON. A trailing ".br" compresses either with brotli, so
// "bank_data.json.br" is brotli-compressed JSON.
package store

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/plenert/ledger"
)

// FileStore reads and rewrites the whole ledger file on every call.
// Accounts that could not be decoded by the last Load are written back
// unchanged by Save unless a loaded account took their number.
type FileStore struct {
	path       string
	codec      codec
	compressed bool
	skipped    fileRecord
}

// New returns a FileStore for path. The file does not need to exist.
func New(path string) *FileStore {
	s := &FileStore{path: path}
	name := strings.ToLower(filepath.Base(path))
	if base, ok := strings.CutSuffix(name, ".br"); ok {
		s.compressed = true
		name = base
	}
	if filepath.Ext(name) == ".toml" {
		s.codec = tomlCodec{}
	} else {
		s.codec = jsonCodec{}
	}
	return s
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string {
	return s.path
}

// Format names the encoding in use, e.g. "json" or "toml+brotli".
func (s *FileStore) Format() string {
	if s.compressed {
		return s.codec.name() + "+brotli"
	}
	return s.codec.name()
}

// Load reads every account from the file, ordered by account number.
// A missing file yields no accounts and no error. Accounts that cannot be
// decoded are left out and reported as joined *ledger.RecordError values.
func (s *FileStore) Load() ([]*ledger.Account, error) {
	s.skipped = nil
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if s.compressed {
		r = brotli.NewReader(f)
	}
	records, err := s.codec.decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	accounts := make([]*ledger.Account, 0, len(records))
	var errs []error
	for number, rec := range records {
		acc, err := fromRecord(number, rec)
		if err != nil {
			if s.skipped == nil {
				s.skipped = make(fileRecord)
			}
			s.skipped[number] = rec
			errs = append(errs, &ledger.RecordError{Number: number, Err: err})
			continue
		}
		accounts = append(accounts, acc)
	}
	slices.SortFunc(accounts, func(a, b *ledger.Account) int {
		return compareNumbers(a.Number, b.Number)
	})
	slices.SortFunc(errs, func(a, b error) int {
		return compareNumbers(a.(*ledger.RecordError).Number, b.(*ledger.RecordError).Number)
	})
	return accounts, errors.Join(errs...)
}

// Save encodes accounts and replaces the file contents in one write.
func (s *FileStore) Save(accounts []*ledger.Account) error {
	records := make(fileRecord, len(accounts))
	for _, acc := range accounts {
		records[acc.Number] = toRecord(acc)
	}
	for number, rec := range s.skipped {
		if _, taken := records[number]; !taken {
			records[number] = rec
		}
	}

	var buf bytes.Buffer
	if s.compressed {
		bw := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
		if err := s.codec.encode(bw, records); err != nil {
			return err
		}
		if err := bw.Close(); err != nil {
			return err
		}
	} else if err := s.codec.encode(&buf, records); err != nil {
		return err
	}

	return os.WriteFile(s.path, buf.Bytes(), 0o600)
}

// compareNumbers orders account numbers by their trailing digits, falling
// back to plain string order.
func compareNumbers(a, b string) int {
	na, oka := trailingNumber(a)
	nb, okb := trailingNumber(b)
	if oka && okb && na != nb {
		return cmp.Compare(na, nb)
	}
	return strings.Compare(a, b)
}

func trailingNumber(s string) (int, bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	n, err := strconv.Atoi(s[i:])
	return n, err == nil
}
