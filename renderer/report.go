package renderer

import (
	"bytes"
	"fmt"

	"github.com/js1499/cryptotax"
	md "github.com/nao1215/markdown"
)

// ReportMarkdown renders a tax report: summary, Form 8949 parts, income,
// per-asset view and diagnostics.
func ReportMarkdown(r *cryptotax.TaxReport) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Tax Report %d", r.Year))
	doc.PlainText(fmt.Sprintf("Matching method: %s", r.Method))

	s := r.Summary
	doc.H2("Summary")
	doc.Table(md.TableSet{
		Header:    []string{"", "Short Term", "Long Term", "Total"},
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
		Rows: [][]string{
			{"Proceeds", USD(s.ShortTermProceeds), USD(s.LongTermProceeds), USD(s.ShortTermProceeds.Add(s.LongTermProceeds))},
			{"Cost Basis", USD(s.ShortTermCostBasis), USD(s.LongTermCostBasis), USD(s.ShortTermCostBasis.Add(s.LongTermCostBasis))},
			{"Gains", USD(s.ShortTermGains), USD(s.LongTermGains), USD(s.ShortTermGains.Add(s.LongTermGains))},
			{"Losses", USD(s.ShortTermLosses), USD(s.LongTermLosses), USD(s.ShortTermLosses.Add(s.LongTermLosses))},
			{md.Bold("Net"), md.Bold(SignedUSD(s.NetShortTerm)), md.Bold(SignedUSD(s.NetLongTerm)), md.Bold(SignedUSD(s.NetGains))},
		},
	})
	doc.Table(md.TableSet{
		Header:    []string{"Income", "Amount"},
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Rows: [][]string{
			{"Staking", USD(s.StakingIncome)},
			{"Other", USD(s.OtherIncome)},
			{md.Bold("Total Income"), md.Bold(USD(s.TotalIncome))},
			{"Disallowed Losses (wash sales)", USD(s.DisallowedLosses)},
			{fmt.Sprintf("Estimated Liability (%s%%)", s.LiabilityRate.Shift(2).String()), md.Bold(USD(s.EstimatedLiability))},
		},
	})

	doc.H2("Form 8949")
	form8949Part(doc, "Part I: Short-Term", r.Form8949.ShortTerm)
	form8949Part(doc, "Part II: Long-Term", r.Form8949.LongTerm)

	if len(r.IncomeEvents) > 0 {
		doc.H2("Income")
		table := md.TableSet{
			Header:    []string{"Date", "Asset", "Amount", "Type", "Value"},
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignLeft, md.AlignRight},
		}
		for _, in := range r.IncomeEvents {
			table.Rows = append(table.Rows, []string{
				in.Date.UTC().Format("2006-01-02"), in.Asset, Amount(in.Amount), string(in.Type), USD(in.ValueUSD),
			})
		}
		doc.Table(table)
	}

	if len(r.Assets) > 0 {
		doc.H2("Assets")
		table := md.TableSet{
			Header:    []string{"Asset", "Disposed", "Proceeds", "Cost Basis", "Short Term", "Long Term", "Income", "Held", "Held Cost"},
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight},
		}
		for _, a := range r.Assets {
			table.Rows = append(table.Rows, []string{
				a.Asset, Amount(a.Disposed), USD(a.Proceeds), USD(a.CostBasis),
				SignedUSD(a.ShortTerm), SignedUSD(a.LongTerm), USD(a.Income),
				Amount(a.Held), USD(a.HeldCost),
			})
		}
		doc.Table(table)
	}

	if len(r.Diagnostics) > 0 {
		doc.H2("Diagnostics")
		items := make([]string, 0, len(r.Diagnostics))
		for _, d := range r.Diagnostics {
			items = append(items, d.String())
		}
		doc.BulletList(items...)
	}

	return doc.String()
}

func form8949Part(doc *md.Markdown, title string, p cryptotax.Form8949Part) {
	doc.H3(title)
	if len(p.Rows) == 0 {
		doc.PlainText("No transactions.")
		return
	}
	table := md.TableSet{
		Header:    []string{"Description", "Date Acquired", "Date Sold", "Proceeds", "Cost Basis", "Code", "Adjustment", "Gain or Loss"},
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignLeft, md.AlignRight, md.AlignRight},
	}
	for _, row := range p.Rows {
		adj := ""
		if !row.Adjustment.IsZero() {
			adj = USD(row.Adjustment)
		}
		table.Rows = append(table.Rows, []string{
			row.Description, row.DateAcquired, row.DateSold, USD(row.Proceeds), USD(row.CostBasis), row.Code, adj, SignedUSD(row.GainLoss),
		})
	}
	table.Rows = append(table.Rows, []string{
		md.Bold("Totals"), "", "", md.Bold(USD(p.Proceeds)), md.Bold(USD(p.CostBasis)), "", md.Bold(USD(p.Adjustment)), md.Bold(SignedUSD(p.GainLoss)),
	})
	doc.Table(table)
}
