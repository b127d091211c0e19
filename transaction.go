package cryptotax

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/js1499/cryptotax/date"
	"github.com/shopspring/decimal"
)

// SourceType identifies the ingestion pipeline that produced a transaction.
type SourceType string

const (
	SourceWalletAPI   SourceType = "wallet_api"
	SourceCSVImport   SourceType = "csv_import"
	SourceExchangeAPI SourceType = "exchange_api"
)

// Transaction is a raw record as supplied by the ingestion layer.
//
// Transactions are never modified by this package. AmountValue may be signed
// or unsigned depending on the source, and ValueUSD is signed: a negative value
// is a cash outflow.
type Transaction struct {
	ID      string
	Type    string // free text, e.g. "Buy", "Swap", "Stake"
	Subtype string
	Notes   string

	AssetSymbol  string
	AmountValue  decimal.Decimal
	PricePerUnit decimal.NullDecimal
	ValueUSD     decimal.Decimal

	// Incoming side of a swap.
	IncomingAssetSymbol string
	IncomingAmountValue decimal.NullDecimal
	IncomingValueUSD    decimal.NullDecimal

	WalletAddress       string
	CounterpartyAddress string

	Chain      string
	TxHash     string
	SourceType SourceType
	Status     string
	Timestamp  time.Time

	// RawTimestamp keeps a timestamp that could not be parsed. Timestamp is
	// then zero and the transaction is invalid.
	RawTimestamp string
}

var (
	errMissingTimestamp = errors.New("missing timestamp")
	errMissingAsset     = errors.New("missing asset symbol")
)

// Validate reports structural problems that prevent a transaction from being
// used in a report.
func (tx Transaction) Validate() error {
	var errs []error
	switch {
	case tx.Timestamp.IsZero() && tx.RawTimestamp != "":
		errs = append(errs, fmt.Errorf("invalid timestamp %q", tx.RawTimestamp))
	case tx.Timestamp.IsZero():
		errs = append(errs, errMissingTimestamp)
	}
	if strings.TrimSpace(tx.AssetSymbol) == "" {
		errs = append(errs, errMissingAsset)
	}
	if tx.PricePerUnit.Valid && tx.PricePerUnit.Decimal.IsNegative() {
		errs = append(errs, fmt.Errorf("negative price per unit %s", tx.PricePerUnit.Decimal))
	}
	return errors.Join(errs...)
}

// Asset returns the normalized symbol of the asset given up or received.
func (tx Transaction) Asset() string { return assetKey(tx.AssetSymbol) }

// IncomingAsset returns the normalized symbol of the incoming side of a swap.
func (tx Transaction) IncomingAsset() string { return assetKey(tx.IncomingAssetSymbol) }

// Amount returns the unsigned quantity of the transaction.
func (tx Transaction) Amount() decimal.Decimal { return tx.AmountValue.Abs() }

// Value returns the USD value of the transaction: ValueUSD, or the price per
// unit times the amount when ValueUSD is zero. It is never estimated from
// external prices and is zero when the record carries no price at all.
func (tx Transaction) Value() decimal.Decimal {
	if !tx.ValueUSD.IsZero() {
		return tx.ValueUSD
	}
	if tx.PricePerUnit.Valid {
		return tx.PricePerUnit.Decimal.Mul(tx.Amount())
	}
	return decimal.Zero
}

// MissingPrice reports whether the transaction moves a quantity without any
// USD value attached.
func (tx Transaction) MissingPrice() bool {
	return tx.Value().IsZero() && !tx.AmountValue.IsZero()
}

// On returns the UTC calendar day of the transaction.
func (tx Transaction) On() date.Date { return date.Of(tx.Timestamp) }

// MarshalJSON writes the transaction with a stable field order, omitting empty fields.
func (tx Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("id", tx.ID)
	w.Append("type", tx.Type)
	w.Optional("subtype", tx.Subtype)
	w.Optional("notes", tx.Notes)
	w.Append("asset", tx.AssetSymbol)
	w.Append("amount", tx.AmountValue)
	w.OptionalDecimal("price", tx.PricePerUnit)
	w.Append("value", tx.ValueUSD)
	w.Optional("incomingAsset", tx.IncomingAssetSymbol)
	w.OptionalDecimal("incomingAmount", tx.IncomingAmountValue)
	w.OptionalDecimal("incomingValue", tx.IncomingValueUSD)
	w.Optional("wallet", tx.WalletAddress)
	w.Optional("counterparty", tx.CounterpartyAddress)
	w.Optional("chain", tx.Chain)
	w.Optional("txHash", tx.TxHash)
	w.Optional("source", string(tx.SourceType))
	w.Optional("status", tx.Status)
	if tx.Timestamp.IsZero() && tx.RawTimestamp != "" {
		w.Append("timestamp", tx.RawTimestamp)
	} else {
		w.Append("timestamp", tx.Timestamp.UTC().Format(time.RFC3339))
	}
	return w.MarshalJSON()
}

// jsonTransaction is the wire form of a Transaction.
type jsonTransaction struct {
	ID                  string              `json:"id"`
	Type                string              `json:"type"`
	Subtype             string              `json:"subtype"`
	Notes               string              `json:"notes"`
	AssetSymbol         string              `json:"asset"`
	AmountValue         decimal.Decimal     `json:"amount"`
	PricePerUnit        decimal.NullDecimal `json:"price"`
	ValueUSD            decimal.Decimal     `json:"value"`
	IncomingAssetSymbol string              `json:"incomingAsset"`
	IncomingAmountValue decimal.NullDecimal `json:"incomingAmount"`
	IncomingValueUSD    decimal.NullDecimal `json:"incomingValue"`
	WalletAddress       string              `json:"wallet"`
	CounterpartyAddress string              `json:"counterparty"`
	Chain               string              `json:"chain"`
	TxHash              string              `json:"txHash"`
	SourceType          SourceType          `json:"source"`
	Status              string              `json:"status"`
	Timestamp           string              `json:"timestamp"`
}

func (tx *Transaction) UnmarshalJSON(b []byte) error {
	var j jsonTransaction
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	// An invalid timestamp is reported by Validate, not here: one bad record
	// must not prevent reading the rest of a ledger.
	var ts time.Time
	var raw string
	if j.Timestamp != "" {
		var err error
		if ts, err = ParseTimestamp(j.Timestamp); err != nil {
			raw = j.Timestamp
		}
	}
	*tx = Transaction{
		ID:                  j.ID,
		Type:                j.Type,
		Subtype:             j.Subtype,
		Notes:               j.Notes,
		AssetSymbol:         j.AssetSymbol,
		AmountValue:         j.AmountValue,
		PricePerUnit:        j.PricePerUnit,
		ValueUSD:            j.ValueUSD,
		IncomingAssetSymbol: j.IncomingAssetSymbol,
		IncomingAmountValue: j.IncomingAmountValue,
		IncomingValueUSD:    j.IncomingValueUSD,
		WalletAddress:       j.WalletAddress,
		CounterpartyAddress: j.CounterpartyAddress,
		Chain:               j.Chain,
		TxHash:              j.TxHash,
		SourceType:          j.SourceType,
		Status:              j.Status,
		Timestamp:           ts,
		RawTimestamp:        raw,
	}
	return nil
}

// timestampLayouts are the accepted timestamp formats, most precise first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	date.DateFormat,
}

// ParseTimestamp parses a timestamp in RFC 3339 or a shorter ISO form. Times
// without a zone are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// assetKey normalizes an asset symbol so that "btc" and "BTC " share one inventory.
func assetKey(symbol string) string { return strings.ToUpper(strings.TrimSpace(symbol)) }
