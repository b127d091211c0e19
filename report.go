package cryptotax

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/js1499/cryptotax/date"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidYear is returned for a tax year outside 1970-9999.
	ErrInvalidYear = errors.New("invalid tax year")
	// ErrInvalidRate is returned for a negative liability rate.
	ErrInvalidRate = errors.New("invalid liability rate")
)

// Supported tax years.
const (
	MinYear = 1970
	MaxYear = 9999
)

// ValidateYear returns ErrInvalidYear when year is outside [MinYear, MaxYear].
func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return nil
}

// DefaultLiabilityRate is the flat rate applied to net gains and income when
// [Options.LiabilityRate] is not set.
var DefaultLiabilityRate = decimal.RequireFromString("0.25")

// Options tunes a report calculation. The zero value is ready to use.
type Options struct {
	// Wallets are the user's own addresses, receives from them are not income.
	Wallets []string
	// LiabilityRate replaces DefaultLiabilityRate when valid.
	LiabilityRate decimal.NullDecimal
	// Vocabulary replaces the default classifier keywords when not nil.
	Vocabulary *Vocabulary
	// Logger receives debug traces, nothing is logged when nil.
	Logger *slog.Logger
}

// TaxReport is the result of [CalculateTaxReport]. It is computed from scratch
// on each call and never shared.
type TaxReport struct {
	Year          int            `json:"year"`
	Method        MatchingMethod `json:"method"`
	TaxableEvents []TaxableEvent `json:"taxableEvents"`
	IncomeEvents  []IncomeEvent  `json:"incomeEvents"`
	Form8949      Form8949       `json:"form8949"`
	Summary       Summary        `json:"summary"`
	Assets        []AssetSummary `json:"assets"`
	// OpenLots is the inventory left at the end of the year.
	OpenLots    []Lot        `json:"openLots"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Summary holds the report totals. Losses are positive amounts and exclude
// losses disallowed by the wash-sale rule.
type Summary struct {
	ShortTermProceeds  decimal.Decimal `json:"shortTermProceeds"`
	ShortTermCostBasis decimal.Decimal `json:"shortTermCostBasis"`
	ShortTermGains     decimal.Decimal `json:"shortTermGains"`
	ShortTermLosses    decimal.Decimal `json:"shortTermLosses"`
	NetShortTerm       decimal.Decimal `json:"netShortTerm"`
	LongTermProceeds   decimal.Decimal `json:"longTermProceeds"`
	LongTermCostBasis  decimal.Decimal `json:"longTermCostBasis"`
	LongTermGains      decimal.Decimal `json:"longTermGains"`
	LongTermLosses     decimal.Decimal `json:"longTermLosses"`
	NetLongTerm        decimal.Decimal `json:"netLongTerm"`
	NetGains           decimal.Decimal `json:"netGains"`
	DisallowedLosses   decimal.Decimal `json:"disallowedLosses"`
	StakingIncome      decimal.Decimal `json:"stakingIncome"`
	OtherIncome        decimal.Decimal `json:"otherIncome"`
	TotalIncome        decimal.Decimal `json:"totalIncome"`
	LiabilityRate      decimal.Decimal `json:"liabilityRate"`
	EstimatedLiability decimal.Decimal `json:"estimatedLiability"`
}

// entry is a valid transaction and its classification.
type entry struct {
	tx    Transaction
	class Classification
}

// CalculateTaxReport computes the tax report of year from the full
// transaction history txs, matching lots with method.
//
// Lots are built from every acquisition up to the end of the year, prior
// years included, and the history is replayed in chronological order so that
// a lot consumed by an earlier disposal is unavailable to a later one.
// Transactions with the same timestamp keep their order in txs.
//
// Only contract violations return an error: a year outside 1970-9999
// (ErrInvalidYear), an unknown method (ErrUnknownMethod) or a negative rate
// (ErrInvalidRate). Data-quality problems are reported in
// [TaxReport.Diagnostics].
//
// txs is not modified. The result only depends on the arguments.
func CalculateTaxReport(txs []Transaction, year int, method MatchingMethod, opts Options) (*TaxReport, error) {
	if err := ValidateYear(year); err != nil {
		return nil, err
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, int(method))
	}
	rate := DefaultLiabilityRate
	if opts.LiabilityRate.Valid {
		rate = opts.LiabilityRate.Decimal
		if rate.IsNegative() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRate, rate)
		}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	classifier := NewClassifier(opts.Vocabulary)
	recognizer := NewIncomeRecognizer(opts.Wallets, opts.Vocabulary)
	period := date.Year(year)
	yearEnd := period.End()

	r := &TaxReport{
		Year:          year,
		Method:        method,
		TaxableEvents: []TaxableEvent{},
		IncomeEvents:  []IncomeEvent{},
		Diagnostics:   []Diagnostic{},
	}

	// Classify valid transactions, in chronological order.
	entries := make([]entry, 0, len(txs))
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			msg := strings.ReplaceAll(err.Error(), "\n", "; ")
			r.Diagnostics = append(r.Diagnostics, warning(DiagInvalidTransaction, tx, "excluded: %s", msg))
			continue
		}
		entries = append(entries, entry{tx: tx, class: classifier.ClassifyTransaction(tx)})
	}
	slices.SortStableFunc(entries, func(a, b entry) int { return a.tx.Timestamp.Compare(b.tx.Timestamp) })
	history := lo.Filter(entries, func(e entry, _ int) bool { return e.tx.Timestamp.Before(yearEnd) })
	log.Debug("classified transactions", "year", year, "valid", len(entries), "invalid", len(txs)-len(entries), "history", len(history))

	// Income is recognized over the whole history: a zero basis is expected
	// for assets received as income in any prior year.
	incomeDays := make(map[string][]date.Date)
	for _, e := range history {
		in := period.Contains(e.tx.On())
		if in {
			r.Diagnostics = append(r.Diagnostics, qualityDiagnostics(e)...)
		}
		ev, ok := recognizer.Recognize(e.tx, e.class)
		if !ok {
			continue
		}
		incomeDays[ev.Asset] = append(incomeDays[ev.Asset], e.tx.On())
		if in {
			r.IncomeEvents = append(r.IncomeEvents, ev)
		}
	}
	processor := DisposalProcessor{
		IncomeReceived: func(asset string, on date.Date) bool {
			return slices.ContainsFunc(incomeDays[asset], func(d date.Date) bool { return !d.After(on) })
		},
	}

	// Replay acquisitions and disposals.
	inventories := NewInventories()
	var events []TaxableEvent
	for _, e := range history {
		in := period.Contains(e.tx.On())
		if e.class.IsDisposal() {
			d := NewDisposal(e.tx, e.class)
			evs, diags := processor.Process(d, inventories.Get(d.Asset), method)
			if in {
				events = append(events, evs...)
				r.Diagnostics = append(r.Diagnostics, diags...)
			}
		}
		if l, ok := lotOf(e); ok {
			if err := inventories.Get(l.asset).AddCost(l.amount, l.cost, e.tx.Timestamp, e.tx.ID); err != nil && in {
				r.Diagnostics = append(r.Diagnostics, warning(DiagInvalidTransaction, e.tx, "no lot opened: %v", err))
			}
		}
	}

	// Repurchases after the end of the year still disallow a loss.
	r.TaxableEvents = ApplyWashSaleRule(events, purchases(entries))
	for _, ev := range r.TaxableEvents {
		if ev.WashSaleDisallowed {
			r.Diagnostics = append(r.Diagnostics, Diagnostic{
				Kind:          DiagWashSale,
				Severity:      SeverityInfo,
				TransactionID: ev.TransactionID,
				Asset:         ev.Asset,
				Message:       fmt.Sprintf("loss of %s disallowed, %s repurchased within %d days", ev.GainLoss.Neg().StringFixed(2), ev.Asset, WashSaleWindow),
			})
		}
	}
	if r.TaxableEvents == nil {
		r.TaxableEvents = []TaxableEvent{}
	}

	r.Summary = summarize(r.TaxableEvents, r.IncomeEvents, rate)
	r.Form8949 = NewForm8949(r.TaxableEvents)
	r.OpenLots = inventories.OpenLots()
	r.Assets = assetSummaries(r.TaxableEvents, r.IncomeEvents, inventories)

	log.Debug("tax report computed", "year", year, "method", method,
		"taxableEvents", len(r.TaxableEvents), "incomeEvents", len(r.IncomeEvents),
		"diagnostics", len(r.Diagnostics), "netGains", r.Summary.NetGains.String())
	return r, nil
}

// qualityDiagnostics returns the warnings about a classified transaction itself.
func qualityDiagnostics(e entry) []Diagnostic {
	var diags []Diagnostic
	if !e.class.Identified {
		diags = append(diags, warning(DiagUnidentified, e.tx, "type %q not recognized, treated as a buy", e.tx.Type))
	}
	if e.tx.MissingPrice() && e.class.Category != CategorySpam {
		diags = append(diags, warning(DiagMissingPrice, e.tx, "%s %s has no USD value", e.tx.Amount(), e.tx.Asset()))
	}
	return diags
}

type openLot struct {
	asset        string
	amount, cost decimal.Decimal
}

// lotOf returns the lot opened by e: the asset itself for acquisitions, the
// incoming asset for swaps.
func lotOf(e entry) (openLot, bool) {
	tx := e.tx
	var l openLot
	switch {
	case e.class.IsAcquisition():
		l = openLot{asset: tx.Asset(), amount: tx.Amount(), cost: tx.Value().Abs()}
	case e.class.Category == CategorySwap && tx.IncomingAsset() != "" && tx.IncomingAmountValue.Valid:
		l = openLot{asset: tx.IncomingAsset(), amount: tx.IncomingAmountValue.Decimal.Abs(), cost: tx.Value().Abs()}
		if tx.IncomingValueUSD.Valid && !tx.IncomingValueUSD.Decimal.IsZero() {
			l.cost = tx.IncomingValueUSD.Decimal.Abs()
		}
	default:
		return openLot{}, false
	}
	return l, l.amount.IsPositive()
}

// purchases lists every repurchase candidate for the wash-sale rule.
func purchases(entries []entry) []Acquisition {
	var acqs []Acquisition
	for _, e := range entries {
		if !e.class.isPurchase() && e.class.Category != CategorySwap {
			continue
		}
		if l, ok := lotOf(e); ok {
			acqs = append(acqs, Acquisition{TransactionID: e.tx.ID, Asset: l.asset, Date: e.tx.Timestamp, Amount: l.amount})
		}
	}
	return acqs
}

func summarize(events []TaxableEvent, incomes []IncomeEvent, rate decimal.Decimal) Summary {
	s := Summary{LiabilityRate: rate}
	for _, e := range events {
		gain := e.GainLoss.IsPositive()
		allowedLoss := e.IsLoss() && !e.WashSaleDisallowed
		switch e.HoldingPeriod {
		case LongTerm:
			s.LongTermProceeds = s.LongTermProceeds.Add(e.Proceeds)
			s.LongTermCostBasis = s.LongTermCostBasis.Add(e.CostBasis)
			if gain {
				s.LongTermGains = s.LongTermGains.Add(e.GainLoss)
			} else if allowedLoss {
				s.LongTermLosses = s.LongTermLosses.Sub(e.GainLoss)
			}
		default:
			s.ShortTermProceeds = s.ShortTermProceeds.Add(e.Proceeds)
			s.ShortTermCostBasis = s.ShortTermCostBasis.Add(e.CostBasis)
			if gain {
				s.ShortTermGains = s.ShortTermGains.Add(e.GainLoss)
			} else if allowedLoss {
				s.ShortTermLosses = s.ShortTermLosses.Sub(e.GainLoss)
			}
		}
		s.DisallowedLosses = s.DisallowedLosses.Add(e.DisallowedLoss())
	}
	s.NetShortTerm = s.ShortTermGains.Sub(s.ShortTermLosses)
	s.NetLongTerm = s.LongTermGains.Sub(s.LongTermLosses)
	s.NetGains = s.NetShortTerm.Add(s.NetLongTerm)

	for _, in := range incomes {
		if in.Type == IncomeStaking {
			s.StakingIncome = s.StakingIncome.Add(in.ValueUSD)
		} else {
			s.OtherIncome = s.OtherIncome.Add(in.ValueUSD)
		}
	}
	s.TotalIncome = s.StakingIncome.Add(s.OtherIncome)
	taxable := decimal.Max(s.NetGains, decimal.Zero).Add(s.TotalIncome)
	s.EstimatedLiability = taxable.Mul(rate).Round(2)
	return s
}

// AssetSummary is the per-asset view of a report.
type AssetSummary struct {
	Asset          string          `json:"asset"`
	Disposed       decimal.Decimal `json:"disposed"`
	Proceeds       decimal.Decimal `json:"proceeds"`
	CostBasis      decimal.Decimal `json:"costBasis"`
	ShortTerm      decimal.Decimal `json:"shortTerm"`
	LongTerm       decimal.Decimal `json:"longTerm"`
	DisallowedLoss decimal.Decimal `json:"disallowedLoss"`
	IncomeAmount   decimal.Decimal `json:"incomeAmount"`
	Income         decimal.Decimal `json:"income"`
	// Held and HeldCost describe the open lots at the end of the year.
	Held     decimal.Decimal `json:"held"`
	HeldCost decimal.Decimal `json:"heldCost"`
}

func assetSummaries(events []TaxableEvent, incomes []IncomeEvent, inventories *Inventories) []AssetSummary {
	eventsByAsset := lo.GroupBy(events, func(e TaxableEvent) string { return e.Asset })
	incomeByAsset := lo.GroupBy(incomes, func(in IncomeEvent) string { return in.Asset })
	assets := lo.Uniq(slices.Concat(lo.Keys(eventsByAsset), lo.Keys(incomeByAsset), inventories.Assets()))
	slices.Sort(assets)

	out := make([]AssetSummary, 0, len(assets))
	for _, a := range assets {
		s := AssetSummary{Asset: a}
		for _, e := range eventsByAsset[a] {
			s.Disposed = s.Disposed.Add(e.Amount)
			s.Proceeds = s.Proceeds.Add(e.Proceeds)
			s.CostBasis = s.CostBasis.Add(e.CostBasis)
			s.DisallowedLoss = s.DisallowedLoss.Add(e.DisallowedLoss())
			// Disallowed losses do not count.
			gl := e.GainLoss.Add(e.DisallowedLoss())
			if e.HoldingPeriod == LongTerm {
				s.LongTerm = s.LongTerm.Add(gl)
			} else {
				s.ShortTerm = s.ShortTerm.Add(gl)
			}
		}
		for _, in := range incomeByAsset[a] {
			s.IncomeAmount = s.IncomeAmount.Add(in.Amount)
			s.Income = s.Income.Add(in.ValueUSD)
		}
		inv := inventories.Get(a)
		s.Held, s.HeldCost = inv.Remaining(), inv.Cost()
		out = append(out, s)
	}
	return out
}
