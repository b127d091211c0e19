package cryptotax

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func TestDecodeTransactions(t *testing.T) {
	ledger := `{"id":"b1","type":"Buy","asset":"BTC","amount":1,"value":-20000,"timestamp":"2023-01-01T10:00:00Z"}

{"id":"w1","type":"Swap","asset":"BTC","amount":"0.5","value":15000,"incomingAsset":"ETH","incomingAmount":8,"incomingValue":15000,"chain":"ethereum","timestamp":"2023-03-01"}
`
	txs, err := DecodeTransactions(strings.NewReader(ledger))
	if err != nil {
		t.Fatalf("DecodeTransactions() error = %v", err)
	}
	want := []Transaction{
		{ID: "b1", Type: "Buy", AssetSymbol: "BTC", AmountValue: dec("1"), ValueUSD: dec("-20000"), Timestamp: day("2023-01-01").Add(-2 * time.Hour)},
		{
			ID: "w1", Type: "Swap", AssetSymbol: "BTC", AmountValue: dec("0.5"), ValueUSD: dec("15000"),
			IncomingAssetSymbol: "ETH", IncomingAmountValue: decimal.NewNullDecimal(dec("8")), IncomingValueUSD: decimal.NewNullDecimal(dec("15000")),
			Chain: "ethereum", Timestamp: day("2023-03-01").Add(-12 * time.Hour),
		},
	}
	if diff := cmp.Diff(want, txs, decimalEqual); diff != "" {
		t.Errorf("DecodeTransactions() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeTransactionsError(t *testing.T) {
	ledger := `{"id":"b1","type":"Buy","asset":"BTC","amount":1,"value":1,"timestamp":"2023-01-01"}
{"id":"b2","type":"Buy","asset":"BTC","amount":"one","value":1,"timestamp":"2023-01-02"}
`
	_, err := DecodeTransactions(strings.NewReader(ledger))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("DecodeTransactions() error = %v, want an error on line 2", err)
	}
}

// A record with an unreadable timestamp is decoded, invalid, and written back
// unchanged.
func TestDecodeTransactionsInvalidTimestamp(t *testing.T) {
	ledger := `{"id":"b1","type":"Buy","asset":"BTC","amount":1,"value":1,"timestamp":"2023-01-01T00:00:00Z"}
{"id":"b2","type":"Buy","asset":"BTC","amount":1,"value":1,"timestamp":"01/02/2023"}
`
	txs, err := DecodeTransactions(strings.NewReader(ledger))
	if err != nil {
		t.Fatalf("DecodeTransactions() error = %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if err := txs[0].Validate(); err != nil {
		t.Errorf("b1.Validate() error = %v", err)
	}
	bad := txs[1]
	if !bad.Timestamp.IsZero() || bad.RawTimestamp != "01/02/2023" {
		t.Errorf("b2 timestamp = %v %q, want zero and the raw text", bad.Timestamp, bad.RawTimestamp)
	}
	if err := bad.Validate(); err == nil || !strings.Contains(err.Error(), "01/02/2023") {
		t.Errorf("b2.Validate() error = %v, want an invalid timestamp", err)
	}

	var buf bytes.Buffer
	if err := EncodeTransactions(&buf, txs); err != nil {
		t.Fatalf("EncodeTransactions() error = %v", err)
	}
	if diff := cmp.Diff(ledger, buf.String()); diff != "" {
		t.Errorf("EncodeTransactions() mismatch (-want +got):\n%s", diff)
	}
}

// Encoding is canonical: decoding then encoding a canonical ledger is the identity.
func TestEncodeTransactions(t *testing.T) {
	ledger := `{"id":"b1","type":"Buy","asset":"BTC","amount":1,"price":20000,"value":-20000,"source":"csv_import","timestamp":"2023-01-01T10:00:00Z"}
{"id":"r1","type":"Receive","notes":"from a friend","asset":"ETH","amount":0.5,"value":1000,"wallet":"0xa","counterparty":"0xb","chain":"ethereum","txHash":"0xabc","status":"confirmed","timestamp":"2023-02-01T00:00:00Z"}
`
	txs, err := DecodeTransactions(strings.NewReader(ledger))
	if err != nil {
		t.Fatalf("DecodeTransactions() error = %v", err)
	}
	var buf bytes.Buffer
	if err := EncodeTransactions(&buf, txs); err != nil {
		t.Fatalf("EncodeTransactions() error = %v", err)
	}
	if diff := cmp.Diff(ledger, buf.String()); diff != "" {
		t.Errorf("EncodeTransactions() mismatch (-want +got):\n%s", diff)
	}
}
