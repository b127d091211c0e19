package cryptotax

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// IncomeType is the kind of ordinary income recognized on receipt.
type IncomeType string

const (
	IncomeStaking IncomeType = "staking"
	IncomeOther   IncomeType = "other"
)

// IncomeEvent is ordinary income valued at fair market value on receipt.
type IncomeEvent struct {
	TransactionID string          `json:"transactionId,omitempty"`
	Date          time.Time       `json:"date"`
	Asset         string          `json:"asset"`
	Amount        decimal.Decimal `json:"amount"`
	ValueUSD      decimal.Decimal `json:"valueUsd"`
	Type          IncomeType      `json:"type"`
	Chain         string          `json:"chain,omitempty"`
	TxHash        string          `json:"txHash,omitempty"`
}

// IncomeRecognizer decides which inflows are income.
//
// Staking rewards are income. Receives are income unless they are self
// transfers: the counterparty is one of the user's wallets (or the receiving
// wallet itself), or the notes mention an internal move. The notes test is a
// best-effort heuristic, free text cannot prove a self transfer.
type IncomeRecognizer struct {
	wallets map[string]bool
	vocab   *Vocabulary
}

// NewIncomeRecognizer returns a recognizer for a user owning wallets. v may be
// nil for the default vocabulary.
func NewIncomeRecognizer(wallets []string, v *Vocabulary) *IncomeRecognizer {
	if v == nil {
		v = DefaultVocabulary()
	}
	r := &IncomeRecognizer{wallets: make(map[string]bool, len(wallets)), vocab: v}
	for _, w := range wallets {
		if w = normalizeAddress(w); w != "" {
			r.wallets[w] = true
		}
	}
	return r
}

func normalizeAddress(a string) string { return strings.ToLower(strings.TrimSpace(a)) }

// IsSelfTransfer reports whether tx moves assets between the user's own wallets.
func (r *IncomeRecognizer) IsSelfTransfer(tx Transaction) bool {
	if cp := normalizeAddress(tx.CounterpartyAddress); cp != "" {
		if r.wallets[cp] || cp == normalizeAddress(tx.WalletAddress) {
			return true
		}
	}
	return containsAny(strings.ToLower(tx.Notes), r.vocab.SelfTransfer)
}

// Recognize returns the income event of tx, if any.
func (r *IncomeRecognizer) Recognize(tx Transaction, c Classification) (IncomeEvent, bool) {
	var typ IncomeType
	switch {
	case c.Category == CategoryStaking && c.Subtype == SubtypeReward:
		typ = IncomeStaking
	case c.Category == CategoryTransfer && c.FinalType == TypeReceive && c.Subtype != SubtypeBridge:
		if r.IsSelfTransfer(tx) {
			return IncomeEvent{}, false
		}
		typ = IncomeOther
	default:
		return IncomeEvent{}, false
	}
	return IncomeEvent{
		TransactionID: tx.ID,
		Date:          tx.Timestamp,
		Asset:         tx.Asset(),
		Amount:        tx.Amount(),
		ValueUSD:      tx.Value().Abs(),
		Type:          typ,
		Chain:         tx.Chain,
		TxHash:        tx.TxHash,
	}, true
}
