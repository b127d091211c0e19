package cryptotax

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// this file contains functions to convert exchange exports into transactions.
// Every exchange has its own JSON shape, so the conversion is driven by a
// FieldMapping of jsonpath expressions, usually kept in a YAML file:
//
//	records: $.data[*]
//	source: exchange_api
//	fields:
//	  id: $.tradeId
//	  type: $.side
//	  asset: $.base
//	  amount: $.size
//	  value: $.usdTotal
//	  timestamp: $.createdAt

// importNamespace derives ids for records that have none.
var importNamespace = uuid.MustParse("6f1d7c1e-3c44-4a7e-9d7a-2b8f0e0c5a11")

// FieldMapping tells [ImportJSON] where to find transaction fields in an export.
type FieldMapping struct {
	// Records selects the list of records in the document.
	Records string `yaml:"records"`
	// Source is written to every imported transaction.
	Source SourceType `yaml:"source"`
	// Fields maps a transaction field name to a jsonpath evaluated on each
	// record. Names are the JSONL ledger keys: id, type, subtype, notes,
	// asset, amount, price, value, incomingAsset, incomingAmount,
	// incomingValue, wallet, counterparty, chain, txHash, status, timestamp.
	Fields map[string]string `yaml:"fields"`
}

// LoadFieldMapping reads a YAML field mapping from r.
func LoadFieldMapping(r io.Reader) (FieldMapping, error) {
	var m FieldMapping
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return FieldMapping{}, fmt.Errorf("cannot decode field mapping: %w", err)
	}
	if m.Records == "" {
		m.Records = "$[*]"
	}
	if m.Source == "" {
		m.Source = SourceExchangeAPI
	}
	for name := range m.Fields {
		if _, ok := fieldSetters[name]; !ok {
			return FieldMapping{}, fmt.Errorf("unknown transaction field %q in field mapping", name)
		}
	}
	return m, nil
}

// ReadFieldMappingFile loads a field mapping file, see [LoadFieldMapping].
func ReadFieldMappingFile(filename string) (FieldMapping, error) {
	f, err := os.Open(filename)
	if err != nil {
		return FieldMapping{}, fmt.Errorf("cannot open field mapping %q: %w", filename, err)
	}
	defer f.Close()
	m, err := LoadFieldMapping(f)
	if err != nil {
		return FieldMapping{}, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}

type fieldSetter func(tx *Transaction, v string) error

func setDecimal(dst *decimal.Decimal) func(string) error {
	return func(v string) (err error) {
		*dst, err = decimal.NewFromString(v)
		return err
	}
}

func setNullDecimal(dst *decimal.NullDecimal) func(string) error {
	return func(v string) error {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		*dst = decimal.NewNullDecimal(d)
		return nil
	}
}

var fieldSetters = map[string]fieldSetter{
	"id":             func(tx *Transaction, v string) error { tx.ID = v; return nil },
	"type":           func(tx *Transaction, v string) error { tx.Type = v; return nil },
	"subtype":        func(tx *Transaction, v string) error { tx.Subtype = v; return nil },
	"notes":          func(tx *Transaction, v string) error { tx.Notes = v; return nil },
	"asset":          func(tx *Transaction, v string) error { tx.AssetSymbol = v; return nil },
	"amount":         func(tx *Transaction, v string) error { return setDecimal(&tx.AmountValue)(v) },
	"price":          func(tx *Transaction, v string) error { return setNullDecimal(&tx.PricePerUnit)(v) },
	"value":          func(tx *Transaction, v string) error { return setDecimal(&tx.ValueUSD)(v) },
	"incomingAsset":  func(tx *Transaction, v string) error { tx.IncomingAssetSymbol = v; return nil },
	"incomingAmount": func(tx *Transaction, v string) error { return setNullDecimal(&tx.IncomingAmountValue)(v) },
	"incomingValue":  func(tx *Transaction, v string) error { return setNullDecimal(&tx.IncomingValueUSD)(v) },
	"wallet":         func(tx *Transaction, v string) error { tx.WalletAddress = v; return nil },
	"counterparty":   func(tx *Transaction, v string) error { tx.CounterpartyAddress = v; return nil },
	"chain":          func(tx *Transaction, v string) error { tx.Chain = v; return nil },
	"txHash":         func(tx *Transaction, v string) error { tx.TxHash = v; return nil },
	"status":         func(tx *Transaction, v string) error { tx.Status = v; return nil },
	"timestamp": func(tx *Transaction, v string) (err error) {
		if secs, perr := strconv.ParseInt(v, 10, 64); perr == nil {
			tx.Timestamp = time.Unix(secs, 0).UTC()
			return nil
		}
		tx.Timestamp, err = ParseTimestamp(v)
		return err
	},
}

// ImportJSON converts a JSON export read from r into transactions using m.
//
// Records that cannot be converted are skipped, the others are still returned
// along with an error joining every record failure. Records without an id get
// a stable one derived from their content.
func ImportJSON(r io.Reader, m FieldMapping) ([]Transaction, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("not a valid json document: %w", err)
	}

	records := m.Records
	if records == "" {
		records = "$[*]"
	}
	jval, err := jsonpath.Get(records, doc)
	if err != nil {
		return nil, fmt.Errorf("cannot select records with %q: %w", records, err)
	}
	jlist, ok := jval.([]any)
	if !ok {
		jlist = []any{jval}
	}

	var txs []Transaction
	var errs []error
	for i, rec := range jlist {
		tx, err := importRecord(rec, m)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i+1, err))
			continue
		}
		txs = append(txs, tx)
	}
	return txs, errors.Join(errs...)
}

func importRecord(rec any, m FieldMapping) (Transaction, error) {
	tx := Transaction{SourceType: m.Source}
	for name, path := range m.Fields {
		set, ok := fieldSetters[name]
		if !ok {
			return Transaction{}, fmt.Errorf("unknown transaction field %q", name)
		}
		jval, err := jsonpath.Get(path, rec)
		if err != nil {
			// absent from this record
			continue
		}
		// because jsonpath is never clear about wheter it returns a list of 1 answer, or a single answer:
		// by this call I keep the first one if any
		if jlist, ok := jval.([]any); ok {
			if len(jlist) == 0 {
				continue
			}
			jval = jlist[0]
		}
		v, ok := scalar(jval)
		if !ok || v == "" {
			continue
		}
		if err := set(&tx, v); err != nil {
			return Transaction{}, fmt.Errorf("field %q (%s): %w", name, path, err)
		}
	}
	if tx.ID == "" {
		raw, err := json.Marshal(rec)
		if err != nil {
			return Transaction{}, err
		}
		tx.ID = uuid.NewSHA1(importNamespace, raw).String()
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, fmt.Errorf("%s: %w", tx.ID, err)
	}
	return tx, nil
}

// scalar returns the string form of a JSON scalar.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}
