package cryptotax

import (
	"fmt"

	"github.com/js1499/cryptotax/date"
	"github.com/shopspring/decimal"
)

// Form 8949 values of the date acquired column that are not dates.
const (
	AcquiredVarious = "VARIOUS"
	AcquiredUnknown = "UNKNOWN"
)

// WashSaleCode is the Form 8949 adjustment code of a disallowed wash-sale loss.
const WashSaleCode = "W"

// form8949DateFormat is the date layout used on the form.
const form8949DateFormat = "01/02/2006"

// Form8949Row is one line of Form 8949.
type Form8949Row struct {
	TransactionID string          `json:"transactionId,omitempty"`
	Description   string          `json:"description"`
	DateAcquired  string          `json:"dateAcquired"`
	DateSold      string          `json:"dateSold"`
	Proceeds      decimal.Decimal `json:"proceeds"`
	CostBasis     decimal.Decimal `json:"costBasis"`
	Code          string          `json:"code,omitempty"`
	Adjustment    decimal.Decimal `json:"adjustment"`
	GainLoss      decimal.Decimal `json:"gainLoss"`
}

// Form8949Part is Part I (short term) or Part II (long term) of the form.
type Form8949Part struct {
	Rows       []Form8949Row   `json:"rows"`
	Proceeds   decimal.Decimal `json:"proceeds"`
	CostBasis  decimal.Decimal `json:"costBasis"`
	Adjustment decimal.Decimal `json:"adjustment"`
	GainLoss   decimal.Decimal `json:"gainLoss"`
}

func (p *Form8949Part) add(row Form8949Row) {
	p.Rows = append(p.Rows, row)
	p.Proceeds = p.Proceeds.Add(row.Proceeds)
	p.CostBasis = p.CostBasis.Add(row.CostBasis)
	p.Adjustment = p.Adjustment.Add(row.Adjustment)
	p.GainLoss = p.GainLoss.Add(row.GainLoss)
}

// Form8949 groups taxable events by holding period.
type Form8949 struct {
	ShortTerm Form8949Part `json:"shortTerm"`
	LongTerm  Form8949Part `json:"longTerm"`
}

// NewForm8949 builds the form rows of events, in event order.
//
// A disallowed wash-sale loss gets code W and an adjustment equal to the loss,
// so that its gain or loss column is zero.
func NewForm8949(events []TaxableEvent) Form8949 {
	f := Form8949{
		ShortTerm: Form8949Part{Rows: []Form8949Row{}},
		LongTerm:  Form8949Part{Rows: []Form8949Row{}},
	}
	for _, e := range events {
		row := Form8949Row{
			TransactionID: e.TransactionID,
			Description:   fmt.Sprintf("%s %s", e.Amount, e.Asset),
			DateAcquired:  dateAcquired(e),
			DateSold:      date.Of(e.Date).Format(form8949DateFormat),
			Proceeds:      e.Proceeds,
			CostBasis:     e.CostBasis,
			GainLoss:      e.GainLoss,
		}
		if adj := e.DisallowedLoss(); adj.IsPositive() {
			row.Code = WashSaleCode
			row.Adjustment = adj
			row.GainLoss = e.GainLoss.Add(adj)
		}
		if e.HoldingPeriod == LongTerm {
			f.LongTerm.add(row)
		} else {
			f.ShortTerm.add(row)
		}
	}
	return f
}

// dateAcquired returns the single acquisition day of an event, VARIOUS when
// several days are involved and UNKNOWN when no lot was matched.
func dateAcquired(e TaxableEvent) string {
	days := make(map[date.Date]bool)
	for _, m := range e.Matches {
		days[date.Of(m.AcquiredAt)] = true
	}
	switch {
	case len(days) == 0:
		return AcquiredUnknown
	case len(days) > 1 || e.UnmatchedAmount.IsPositive():
		return AcquiredVarious
	}
	return date.Of(e.AcquiredAt).Format(form8949DateFormat)
}
