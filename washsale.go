package cryptotax

import (
	"slices"
	"time"

	"github.com/js1499/cryptotax/date"
	"github.com/shopspring/decimal"
)

// WashSaleWindow is the number of calendar days before and after a loss sale
// during which a repurchase disallows the loss.
const WashSaleWindow = 30

// Acquisition is a purchase of an asset, as seen by the wash-sale rule.
type Acquisition struct {
	TransactionID string
	Asset         string
	Date          time.Time
	Amount        decimal.Decimal
}

// ApplyWashSaleRule returns a copy of events where every loss with a
// repurchase of the same asset within [WashSaleWindow] days before or after
// the disposal day is flagged as disallowed. Both window ends are inclusive.
//
// The part of an acquisition consumed by the disposal itself is not a
// repurchase: an acquisition counts only while some of its amount is left
// over. Acquisitions of the disposal transaction itself never count.
func ApplyWashSaleRule(events []TaxableEvent, acquisitions []Acquisition) []TaxableEvent {
	byAsset := make(map[string][]Acquisition)
	for _, a := range acquisitions {
		byAsset[a.Asset] = append(byAsset[a.Asset], a)
	}
	consumed := consumedLots(events)

	out := slices.Clone(events)
	for i, e := range out {
		if !e.IsLoss() {
			continue
		}
		window := date.Around(date.Of(e.Date), WashSaleWindow)
		for _, a := range byAsset[e.Asset] {
			if a.TransactionID != "" {
				if a.TransactionID == e.TransactionID {
					continue
				}
				used := consumed[consumption{disposal: e.TransactionID, source: a.TransactionID}]
				if !a.Amount.GreaterThan(used) {
					continue
				}
			}
			if window.Contains(date.Of(a.Date)) {
				out[i].WashSaleDisallowed = true
				break
			}
		}
	}
	return out
}

type consumption struct {
	disposal, source string
}

// consumedLots sums, per disposal transaction, the amount taken from the lots
// of every source transaction. A disposal split into short and long term
// events is summed over all of them.
func consumedLots(events []TaxableEvent) map[consumption]decimal.Decimal {
	consumed := make(map[consumption]decimal.Decimal)
	for _, e := range events {
		for _, m := range e.Matches {
			if m.SourceTransactionID == "" {
				continue
			}
			k := consumption{disposal: e.TransactionID, source: m.SourceTransactionID}
			consumed[k] = consumed[k].Add(m.Amount)
		}
	}
	return consumed
}
