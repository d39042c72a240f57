package store

import (
	"encoding/json"
	"io"

	"github.com/pelletier/go-toml"
)

type codec interface {
	name() string
	encode(w io.Writer, records fileRecord) error
	decode(r io.Reader) (fileRecord, error)
}

type jsonCodec struct{}

func (jsonCodec) name() string { return "json" }

func (jsonCodec) encode(w io.Writer, records fileRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(records)
}

func (jsonCodec) decode(r io.Reader) (fileRecord, error) {
	var records fileRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

// tomlDocument nests the records under an accounts table.
type tomlDocument struct {
	Accounts fileRecord `toml:"accounts"`
}

type tomlCodec struct{}

func (tomlCodec) name() string { return "toml" }

func (tomlCodec) encode(w io.Writer, records fileRecord) error {
	return toml.NewEncoder(w).Encode(tomlDocument{Accounts: records})
}

func (tomlCodec) decode(r io.Reader) (fileRecord, error) {
	var doc tomlDocument
	if err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Accounts, nil
}
