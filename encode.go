package cryptotax

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// maxLineSize bounds a single JSONL line, notes can be long.
const maxLineSize = 1 << 20

// This file contains code to persist a transaction ledger as JSONL: one
// transaction per line, human readable and git friendly. Empty lines are
// ignored.

// DecodeTransactions decodes a JSONL ledger from r, in file order.
func DecodeTransactions(r io.Reader) ([]Transaction, error) {
	var txs []Transaction
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	i := 0
	for scanner.Scan() {
		i++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue // Skip empty lines
		}
		var tx Transaction
		if err := json.Unmarshal(line, &tx); err != nil {
			return nil, fmt.Errorf("line %d: not a valid transaction: %w", i, err)
		}
		txs = append(txs, tx)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", i, err)
	}
	return txs, nil
}

// EncodeTransactions writes txs to w as JSONL, in the given order.
func EncodeTransactions(w io.Writer, txs []Transaction) error {
	bw := bufio.NewWriter(w)
	for _, tx := range txs {
		b, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("cannot encode transaction %q: %w", tx.ID, err)
		}
		bw.Write(b)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadLedgerFile reads a JSONL ledger file.
func ReadLedgerFile(filename string) ([]Transaction, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open ledger %q: %w", filename, err)
	}
	defer f.Close()
	txs, err := DecodeTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return txs, nil
}

// WriteLedgerFile writes txs to filename as JSONL, replacing its content.
func WriteLedgerFile(filename string, txs []Transaction) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create ledger %q: %w", filename, err)
	}
	if err := EncodeTransactions(f, txs); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", filename, err)
	}
	return f.Close()
}
