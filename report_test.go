package cryptotax

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func mustReport(t *testing.T, txs []Transaction, year int, method MatchingMethod, opts Options) *TaxReport {
	t.Helper()
	r, err := CalculateTaxReport(txs, year, method, opts)
	if err != nil {
		t.Fatalf("CalculateTaxReport() error = %v", err)
	}
	return r
}

func hasDiagnostic(r *TaxReport, kind DiagnosticKind, txID string) bool {
	return slices.ContainsFunc(r.Diagnostics, func(d Diagnostic) bool { return d.Kind == kind && d.TransactionID == txID })
}

func TestCalculateTaxReportScenario(t *testing.T) {
	txs := []Transaction{
		tx("b1", "Buy", "BTC", "1", "20000", "2023-01-01"),
		tx("s1", "Sell", "BTC", "1", "25000", "2023-06-01"),
	}
	r := mustReport(t, txs, 2023, FIFO, Options{})

	if len(r.TaxableEvents) != 1 {
		t.Fatalf("TaxableEvents = %d, want 1", len(r.TaxableEvents))
	}
	e := r.TaxableEvents[0]
	if !e.Proceeds.Equal(dec("25000")) || !e.CostBasis.Equal(dec("20000")) || !e.GainLoss.Equal(dec("5000")) || e.HoldingPeriod != ShortTerm {
		t.Errorf("event = %v %v %v %s, want 25000 20000 5000 short", e.Proceeds, e.CostBasis, e.GainLoss, e.HoldingPeriod)
	}
	if !r.Summary.ShortTermGains.Equal(dec("5000")) || !r.Summary.NetGains.Equal(dec("5000")) {
		t.Errorf("Summary = %+v, want short term gains of 5000", r.Summary)
	}
	if !r.Summary.EstimatedLiability.Equal(dec("1250")) {
		t.Errorf("EstimatedLiability = %v, want 1250", r.Summary.EstimatedLiability)
	}
	if len(r.Form8949.ShortTerm.Rows) != 1 || len(r.Form8949.LongTerm.Rows) != 0 {
		t.Errorf("Form8949 = %d short rows, %d long rows, want 1 and 0", len(r.Form8949.ShortTerm.Rows), len(r.Form8949.LongTerm.Rows))
	}
	if len(r.OpenLots) != 0 {
		t.Errorf("OpenLots = %v, want none", r.OpenLots)
	}
}

func TestCalculateTaxReportIdempotent(t *testing.T) {
	txs := []Transaction{
		tx("b1", "Buy", "BTC", "1", "20000", "2022-01-01"),
		tx("b2", "Buy", "BTC", "1", "30000", "2023-02-01"),
		tx("r1", "Staking Reward", "ETH", "0.1", "200", "2023-03-01"),
		tx("s1", "Sell", "BTC", "1.5", "36000", "2023-06-01"),
		swap("w1", "BTC", "0.5", "11000", "ETH", "6", "2023-07-01"),
	}
	orig := slices.Clone(txs)

	r1 := mustReport(t, txs, 2023, HIFO, Options{})
	r2 := mustReport(t, txs, 2023, HIFO, Options{})
	if diff := cmp.Diff(r1, r2, decimalEqual, cmp.AllowUnexported(Lot{})); diff != "" {
		t.Errorf("CalculateTaxReport() not idempotent (-first +second):\n%s", diff)
	}
	j1, _ := json.Marshal(r1)
	j2, _ := json.Marshal(r2)
	if string(j1) != string(j2) {
		t.Errorf("json reports differ:\n%s\n%s", j1, j2)
	}
	if diff := cmp.Diff(orig, txs, decimalEqual); diff != "" {
		t.Errorf("CalculateTaxReport() modified its input (-want +got):\n%s", diff)
	}
}

// Lots acquired in prior years are matched, and prior-year disposals consume
// lots without being reported.
func TestCalculateTaxReportPriorYears(t *testing.T) {
	txs := []Transaction{
		tx("b1", "Buy", "ETH", "1", "1000", "2021-03-01"),
		tx("b2", "Buy", "ETH", "1", "3000", "2022-11-01"),
		tx("s0", "Sell", "ETH", "1", "2500", "2022-12-01"),
		tx("s1", "Sell", "ETH", "1", "2000", "2023-06-01"),
		tx("s2", "Sell", "ETH", "1", "1900", "2024-01-15"),
	}
	r := mustReport(t, txs, 2023, FIFO, Options{})
	if len(r.TaxableEvents) != 1 {
		t.Fatalf("TaxableEvents = %v, want only s1", r.TaxableEvents)
	}
	e := r.TaxableEvents[0]
	if e.TransactionID != "s1" || !e.CostBasis.Equal(dec("3000")) || !e.GainLoss.Equal(dec("-1000")) || e.HoldingPeriod != ShortTerm {
		t.Errorf("event = %s cost %v gain %v %s, want s1 cost 3000 gain -1000 short", e.TransactionID, e.CostBasis, e.GainLoss, e.HoldingPeriod)
	}
	if !r.Summary.ShortTermLosses.Equal(dec("1000")) || !r.Summary.NetGains.Equal(dec("-1000")) {
		t.Errorf("Summary losses %v net %v, want 1000 -1000", r.Summary.ShortTermLosses, r.Summary.NetGains)
	}
	if !r.Summary.EstimatedLiability.IsZero() {
		t.Errorf("EstimatedLiability = %v, want 0 on a net loss", r.Summary.EstimatedLiability)
	}
}

func TestCalculateTaxReportLongTerm(t *testing.T) {
	txs := []Transaction{
		tx("b1", "Buy", "BTC", "1", "20000", "2023-01-01"),
		tx("s1", "Sell", "BTC", "1", "40000", "2024-01-01"),
	}
	r := mustReport(t, txs, 2024, FIFO, Options{})
	if len(r.TaxableEvents) != 1 || r.TaxableEvents[0].HoldingPeriod != LongTerm {
		t.Fatalf("TaxableEvents = %v, want one long term event", r.TaxableEvents)
	}
	if !r.Summary.LongTermGains.Equal(dec("20000")) || len(r.Form8949.LongTerm.Rows) != 1 {
		t.Errorf("long term gains %v, %d Part II rows, want 20000 and 1", r.Summary.LongTermGains, len(r.Form8949.LongTerm.Rows))
	}
}

func TestCalculateTaxReportWashSale(t *testing.T) {
	txs := []Transaction{
		tx("b1", "Buy", "BTC", "1", "30000", "2023-01-01"),
		tx("s1", "Sell", "BTC", "1", "20000", "2023-06-01"),
		tx("b2", "Buy", "BTC", "1", "21000", "2023-06-20"),
	}
	r := mustReport(t, txs, 2023, FIFO, Options{})
	if len(r.TaxableEvents) != 1 || !r.TaxableEvents[0].WashSaleDisallowed {
		t.Fatalf("TaxableEvents = %v, want one disallowed loss", r.TaxableEvents)
	}
	s := r.Summary
	if !s.ShortTermLosses.IsZero() || !s.DisallowedLosses.Equal(dec("10000")) || !s.NetGains.IsZero() {
		t.Errorf("Summary losses %v disallowed %v net %v, want 0 10000 0", s.ShortTermLosses, s.DisallowedLosses, s.NetGains)
	}
	row := r.Form8949.ShortTerm.Rows[0]
	if row.Code != WashSaleCode || !row.Adjustment.Equal(dec("10000")) || !row.GainLoss.IsZero() {
		t.Errorf("Form8949 row = %+v, want code W, adjustment 10000, gain 0", row)
	}
	if !hasDiagnostic(r, DiagWashSale, "s1") {
		t.Errorf("Diagnostics = %v, want a wash_sale diagnostic", r.Diagnostics)
	}
}

// A repurchase after the end of the year still disallows the loss.
func TestCalculateTaxReportWashSaleNextYear(t *testing.T) {
	txs := []Transaction{
		tx("b1", "Buy", "ETH", "1", "3000", "2023-06-01"),
		tx("s1", "Sell", "ETH", "1", "2000", "2023-12-20"),
		tx("b2", "Buy", "ETH", "1", "2100", "2024-01-10"),
	}
	r := mustReport(t, txs, 2023, FIFO, Options{})
	if !r.TaxableEvents[0].WashSaleDisallowed {
		t.Error("loss not disallowed by a repurchase in the next year")
	}
}

// The part of a recent purchase that the loss sale leaves over is a
// replacement, whatever the matching method.
func TestCalculateTaxReportWashSalePartialLot(t *testing.T) {
	t.Run("remainder of the sold lot", func(t *testing.T) {
		txs := []Transaction{
			tx("b1", "Buy", "BTC", "2", "200", "2023-01-01"),
			tx("s1", "Sell", "BTC", "1", "50", "2023-01-21"),
		}
		for _, m := range []MatchingMethod{FIFO, LIFO, HIFO} {
			r := mustReport(t, txs, 2023, m, Options{})
			if len(r.TaxableEvents) != 1 || !r.TaxableEvents[0].WashSaleDisallowed {
				t.Errorf("%s: TaxableEvents = %v, want one disallowed loss", m, r.TaxableEvents)
				continue
			}
			if !r.Summary.DisallowedLosses.Equal(dec("50")) {
				t.Errorf("%s: DisallowedLosses = %v, want 50", m, r.Summary.DisallowedLosses)
			}
		}
	})

	t.Run("whole lot sold", func(t *testing.T) {
		txs := []Transaction{
			tx("b1", "Buy", "BTC", "1", "100", "2023-01-01"),
			tx("s1", "Sell", "BTC", "1", "50", "2023-01-21"),
		}
		r := mustReport(t, txs, 2023, FIFO, Options{})
		if r.TaxableEvents[0].WashSaleDisallowed {
			t.Error("loss disallowed by the lot it sold")
		}
	})
}

func TestCalculateTaxReportIncome(t *testing.T) {
	txs := []Transaction{
		tx("r1", "Staking Reward", "SOL", "2", "40", "2023-02-01"),
		tx("r2", "Receive", "USDC", "100", "100", "2023-03-01"),
		tx("r3", "Receive", "USDC", "500", "500", "2023-03-02"),
		tx("r4", "Staking Reward", "SOL", "1", "25", "2022-12-31"),
	}
	txs[2].Notes = "self transfer"
	r := mustReport(t, txs, 2023, FIFO, Options{LiabilityRate: decimal.NewNullDecimal(dec("0.3"))})

	if len(r.IncomeEvents) != 2 {
		t.Fatalf("IncomeEvents = %v, want r1 and r2", r.IncomeEvents)
	}
	s := r.Summary
	if !s.StakingIncome.Equal(dec("40")) || !s.OtherIncome.Equal(dec("100")) || !s.TotalIncome.Equal(dec("140")) {
		t.Errorf("income staking %v other %v total %v, want 40 100 140", s.StakingIncome, s.OtherIncome, s.TotalIncome)
	}
	if !s.EstimatedLiability.Equal(dec("42")) {
		t.Errorf("EstimatedLiability = %v, want 42", s.EstimatedLiability)
	}
}

func TestCalculateTaxReportSwap(t *testing.T) {
	txs := []Transaction{
		tx("b1", "Buy", "ETH", "1", "1000", "2023-01-01"),
		swap("w1", "ETH", "1", "1500", "BTC", "0.05", "2023-02-01"),
		tx("s1", "Sell", "BTC", "0.05", "1400", "2023-08-01"),
	}
	r := mustReport(t, txs, 2023, FIFO, Options{})
	if len(r.TaxableEvents) != 2 {
		t.Fatalf("TaxableEvents = %v, want 2", r.TaxableEvents)
	}
	eth, btc := r.TaxableEvents[0], r.TaxableEvents[1]
	if eth.Asset != "ETH" || eth.Category != CategorySwap || !eth.GainLoss.Equal(dec("500")) {
		t.Errorf("swap event = %s %s %v, want ETH swap 500", eth.Asset, eth.Category, eth.GainLoss)
	}
	if btc.Asset != "BTC" || !btc.CostBasis.Equal(dec("1500")) || !btc.GainLoss.Equal(dec("-100")) {
		t.Errorf("sell event = %s cost %v gain %v, want BTC 1500 -100", btc.Asset, btc.CostBasis, btc.GainLoss)
	}
}

func TestCalculateTaxReportZeroBasis(t *testing.T) {
	txs := []Transaction{
		tx("r1", "Staking Reward", "ETH", "1", "2000", "2023-02-01"),
		tx("s1", "Sell", "ETH", "1", "2500", "2023-03-01"),
		tx("s2", "Sell", "DOGE", "100", "10", "2023-03-01"),
	}
	r := mustReport(t, txs, 2023, FIFO, Options{})
	if !hasDiagnostic(r, DiagZeroBasisExpected, "s1") {
		t.Errorf("Diagnostics = %v, want zero_basis_expected for s1", r.Diagnostics)
	}
	if !hasDiagnostic(r, DiagZeroBasisUnexpected, "s2") {
		t.Errorf("Diagnostics = %v, want zero_basis_unexpected for s2", r.Diagnostics)
	}
	if got := r.Form8949.ShortTerm.Rows[0].DateAcquired; got != AcquiredUnknown {
		t.Errorf("DateAcquired = %q, want %q", got, AcquiredUnknown)
	}
}

// One bad record never blocks the whole report.
func TestCalculateTaxReportInvalidTransactions(t *testing.T) {
	missingAsset := tx("bad1", "Buy", "", "1", "100", "2023-01-01")
	missingTime := Transaction{ID: "bad2", Type: "Sell", AssetSymbol: "BTC", AmountValue: dec("1"), ValueUSD: dec("100")}
	badTime := Transaction{ID: "bad3", Type: "Sell", AssetSymbol: "BTC", AmountValue: dec("1"), ValueUSD: dec("100"), RawTimestamp: "yesterday"}
	mystery := tx("m1", "Mystery", "BTC", "1", "10", "2023-01-05")
	unpriced := tx("p1", "Buy", "BTC", "1", "0", "2023-01-06")

	txs := []Transaction{
		missingAsset,
		missingTime,
		badTime,
		tx("b1", "Buy", "BTC", "1", "20000", "2023-01-01"),
		mystery,
		unpriced,
		tx("s1", "Sell", "BTC", "1", "25000", "2023-06-01"),
	}
	r := mustReport(t, txs, 2023, FIFO, Options{})
	if len(r.TaxableEvents) != 1 {
		t.Fatalf("TaxableEvents = %v, want 1", r.TaxableEvents)
	}
	for _, want := range []struct {
		kind DiagnosticKind
		id   string
	}{
		{DiagInvalidTransaction, "bad1"},
		{DiagInvalidTransaction, "bad2"},
		{DiagInvalidTransaction, "bad3"},
		{DiagUnidentified, "m1"},
		{DiagMissingPrice, "p1"},
	} {
		if !hasDiagnostic(r, want.kind, want.id) {
			t.Errorf("Diagnostics = %v, want %s for %s", r.Diagnostics, want.kind, want.id)
		}
	}
	// The unidentified record is treated as a buy and leaves a lot.
	if len(r.OpenLots) != 1 || r.OpenLots[0].SourceTransactionID != "m1" {
		t.Errorf("OpenLots = %v, want the m1 lot", r.OpenLots)
	}
}

// Transactions with the same timestamp keep their input order.
func TestCalculateTaxReportTies(t *testing.T) {
	txs := []Transaction{
		tx("b1", "Buy", "BTC", "1", "100", "2023-01-01"),
		tx("s1", "Sell", "BTC", "1", "150", "2023-01-01"),
	}
	r := mustReport(t, txs, 2023, FIFO, Options{})
	if len(r.TaxableEvents) != 1 || !r.TaxableEvents[0].CostBasis.Equal(dec("100")) {
		t.Errorf("TaxableEvents = %v, want the sell matched with b1", r.TaxableEvents)
	}
}

func TestCalculateTaxReportContract(t *testing.T) {
	if _, err := CalculateTaxReport(nil, 1969, FIFO, Options{}); !errors.Is(err, ErrInvalidYear) {
		t.Errorf("year 1969: error = %v, want ErrInvalidYear", err)
	}
	if _, err := CalculateTaxReport(nil, 2023, MatchingMethod(7), Options{}); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("method 7: error = %v, want ErrUnknownMethod", err)
	}
	if _, err := CalculateTaxReport(nil, 2023, FIFO, Options{LiabilityRate: decimal.NewNullDecimal(dec("-1"))}); !errors.Is(err, ErrInvalidRate) {
		t.Errorf("rate -1: error = %v, want ErrInvalidRate", err)
	}
	r, err := CalculateTaxReport(nil, 2023, FIFO, Options{})
	if err != nil {
		t.Fatalf("empty history: error = %v", err)
	}
	if len(r.TaxableEvents) != 0 || !r.Summary.EstimatedLiability.IsZero() {
		t.Errorf("empty history report = %+v, want an empty report", r)
	}
}

func TestCalculateTaxReportAssets(t *testing.T) {
	txs := []Transaction{
		tx("b1", "Buy", "BTC", "2", "40000", "2023-01-01"),
		tx("s1", "Sell", "BTC", "1", "25000", "2023-06-01"),
		tx("r1", "Staking Reward", "ETH", "0.1", "200", "2023-03-01"),
	}
	r := mustReport(t, txs, 2023, FIFO, Options{})
	want := []AssetSummary{
		{Asset: "BTC", Disposed: dec("1"), Proceeds: dec("25000"), CostBasis: dec("20000"), ShortTerm: dec("5000"), Held: dec("1"), HeldCost: dec("20000")},
		{Asset: "ETH", IncomeAmount: dec("0.1"), Income: dec("200")},
	}
	if diff := cmp.Diff(want, r.Assets, decimalEqual); diff != "" {
		t.Errorf("Assets mismatch (-want +got):\n%s", diff)
	}
}
