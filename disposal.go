package cryptotax

import (
	"errors"
	"time"

	"github.com/js1499/cryptotax/date"
	"github.com/shopspring/decimal"
)

// HoldingPeriod is the short or long term bucket of a gain or loss.
type HoldingPeriod string

const (
	ShortTerm HoldingPeriod = "short"
	LongTerm  HoldingPeriod = "long"
)

// HoldingPeriodOf returns the holding period of an asset acquired and disposed
// at the given instants. It is long term when the disposal day is on or after
// the first anniversary of the acquisition day, both taken in UTC.
func HoldingPeriodOf(acquired, disposed time.Time) HoldingPeriod {
	if date.Of(disposed).Before(date.Of(acquired).AddYears(1)) {
		return ShortTerm
	}
	return LongTerm
}

// TaxableEvent is a realized gain or loss. A disposal whose lots fall in both
// holding periods yields two events.
type TaxableEvent struct {
	TransactionID string
	Category      Category
	Date          time.Time
	Asset         string
	Amount        decimal.Decimal
	Proceeds      decimal.Decimal
	CostBasis     decimal.Decimal
	GainLoss      decimal.Decimal
	HoldingPeriod HoldingPeriod
	Chain         string
	TxHash        string
	// WashSaleDisallowed is set on losses disallowed by the wash-sale rule.
	WashSaleDisallowed bool
	// AcquiredAt is the earliest acquisition among Matches, zero when the whole
	// amount was unmatched.
	AcquiredAt time.Time
	Matches    []LotMatch
	// UnmatchedAmount is the quantity disposed of with a zero cost basis.
	UnmatchedAmount decimal.Decimal
}

// IsLoss reports whether the event realized a loss.
func (e TaxableEvent) IsLoss() bool { return e.GainLoss.IsNegative() }

// DisallowedLoss returns the loss amount disallowed by the wash-sale rule, as a
// positive number.
func (e TaxableEvent) DisallowedLoss() decimal.Decimal {
	if !e.WashSaleDisallowed || !e.IsLoss() {
		return decimal.Zero
	}
	return e.GainLoss.Neg()
}

func (e TaxableEvent) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("transactionId", e.TransactionID)
	w.Append("category", e.Category)
	w.Append("date", e.Date.UTC().Format(time.RFC3339))
	w.Append("asset", e.Asset)
	w.Append("amount", e.Amount)
	w.Append("proceeds", e.Proceeds)
	w.Append("costBasis", e.CostBasis)
	w.Append("gainLoss", e.GainLoss)
	w.Append("holdingPeriod", e.HoldingPeriod)
	w.Optional("chain", e.Chain)
	w.Optional("txHash", e.TxHash)
	w.Append("washSaleDisallowed", e.WashSaleDisallowed)
	if !e.AcquiredAt.IsZero() {
		w.Append("acquiredAt", e.AcquiredAt.UTC().Format(time.RFC3339))
	}
	w.Optional("matches", e.Matches)
	w.NonZero("unmatchedAmount", e.UnmatchedAmount)
	return w.MarshalJSON()
}

// Disposal is a transaction that gives up Amount units of Asset for Proceeds USD.
type Disposal struct {
	TransactionID string
	Category      Category
	Asset         string
	Amount        decimal.Decimal
	Proceeds      decimal.Decimal
	Date          time.Time
	Chain         string
	TxHash        string
}

// NewDisposal builds the disposal of the asset given up by tx. For swaps this
// is the outgoing side: proceeds are the value given up, not received.
func NewDisposal(tx Transaction, c Classification) Disposal {
	return Disposal{
		TransactionID: tx.ID,
		Category:      c.Category,
		Asset:         tx.Asset(),
		Amount:        tx.Amount(),
		Proceeds:      tx.Value().Abs(),
		Date:          tx.Timestamp,
		Chain:         tx.Chain,
		TxHash:        tx.TxHash,
	}
}

// DisposalProcessor turns disposals into taxable events by consuming lots.
type DisposalProcessor struct {
	// IncomeReceived reports whether the asset was received as income on or
	// before the given day. It tells an expected zero basis from a gap in the
	// history. A nil function means no income is known.
	IncomeReceived func(asset string, on date.Date) bool
}

// bucket accumulates the matched lots of one holding period.
type bucket struct {
	period    HoldingPeriod
	amount    decimal.Decimal
	cost      decimal.Decimal
	unmatched decimal.Decimal
	acquired  time.Time
	matches   []LotMatch
}

func (b *bucket) add(m LotMatch) {
	b.amount = b.amount.Add(m.Amount)
	b.cost = b.cost.Add(m.CostBasis)
	if b.acquired.IsZero() || m.AcquiredAt.Before(b.acquired) {
		b.acquired = m.AcquiredAt
	}
	b.matches = append(b.matches, m)
}

// Process consumes lots from inv for d under method and returns one taxable
// event per holding period involved, short term first.
//
// The part of the amount that no lot covers gets a zero cost basis, is
// reported short term and produces a diagnostic. inv may be nil when no lot
// was ever opened for the asset.
func (p DisposalProcessor) Process(d Disposal, inv *Inventory, method MatchingMethod) ([]TaxableEvent, []Diagnostic) {
	var diags []Diagnostic
	if !d.Amount.IsPositive() {
		return nil, []Diagnostic{{
			Kind:          DiagInvalidTransaction,
			Severity:      SeverityWarning,
			TransactionID: d.TransactionID,
			Asset:         d.Asset,
			Message:       "disposal without a positive amount is ignored",
		}}
	}

	var matches []LotMatch
	unmatched := d.Amount
	if inv != nil {
		var err error
		matches, err = inv.Consume(d.Amount, method)
		var short *InsufficientLotsError
		switch {
		case errors.As(err, &short):
			unmatched = short.Shortfall()
		case err != nil:
			// only an invalid method, rejected before reaching here
			return nil, []Diagnostic{{Kind: DiagInvalidTransaction, Severity: SeverityWarning, TransactionID: d.TransactionID, Asset: d.Asset, Message: err.Error()}}
		default:
			unmatched = decimal.Zero
		}
	}

	buckets := []*bucket{{period: ShortTerm}, {period: LongTerm}}
	for _, m := range matches {
		if HoldingPeriodOf(m.AcquiredAt, d.Date) == LongTerm {
			buckets[1].add(m)
		} else {
			buckets[0].add(m)
		}
	}
	if unmatched.IsPositive() {
		buckets[0].amount = buckets[0].amount.Add(unmatched)
		buckets[0].unmatched = unmatched
		diags = append(diags, p.zeroBasis(d, unmatched))
	}

	var used []*bucket
	for _, b := range buckets {
		if b.amount.IsPositive() {
			used = append(used, b)
		}
	}

	events := make([]TaxableEvent, 0, len(used))
	allocated := decimal.Zero
	for i, b := range used {
		proceeds := d.Proceeds.Sub(allocated)
		if i < len(used)-1 {
			proceeds = d.Proceeds.Mul(b.amount).Div(d.Amount).Round(2)
		}
		allocated = allocated.Add(proceeds)
		events = append(events, TaxableEvent{
			TransactionID:   d.TransactionID,
			Category:        d.Category,
			Date:            d.Date,
			Asset:           d.Asset,
			Amount:          b.amount,
			Proceeds:        proceeds,
			CostBasis:       b.cost,
			GainLoss:        proceeds.Sub(b.cost),
			HoldingPeriod:   b.period,
			Chain:           d.Chain,
			TxHash:          d.TxHash,
			AcquiredAt:      b.acquired,
			Matches:         b.matches,
			UnmatchedAmount: b.unmatched,
		})
	}
	return events, diags
}

func (p DisposalProcessor) zeroBasis(d Disposal, unmatched decimal.Decimal) Diagnostic {
	diag := Diagnostic{
		Kind:          DiagZeroBasisUnexpected,
		Severity:      SeverityWarning,
		TransactionID: d.TransactionID,
		Asset:         d.Asset,
	}
	if p.IncomeReceived != nil && p.IncomeReceived(d.Asset, date.Of(d.Date)) {
		diag.Kind = DiagZeroBasisExpected
		diag.Severity = SeverityInfo
		diag.Message = "no lot for " + unmatched.String() + " " + d.Asset + ", received as income: zero cost basis"
		return diag
	}
	diag.Message = "no lot for " + unmatched.String() + " " + d.Asset + ", acquisition missing from history: zero cost basis"
	return diag
}
