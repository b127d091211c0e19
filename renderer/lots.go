package renderer

import (
	"bytes"
	"fmt"

	"github.com/js1499/cryptotax"
	md "github.com/nao1215/markdown"
)

// LotsMarkdown renders the open lots left at the end of year.
func LotsMarkdown(year int, method cryptotax.MatchingMethod, lots []cryptotax.Lot) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Open Lots at the End of %d", year))
	doc.PlainText(fmt.Sprintf("Matching method: %s", method))
	if len(lots) == 0 {
		doc.PlainText("No open lot.")
		return doc.String()
	}

	table := md.TableSet{
		Header:    []string{"Asset", "Acquired", "Amount", "Remaining", "Unit Cost", "Cost Basis", "Source"},
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignLeft},
	}
	for _, l := range lots {
		table.Rows = append(table.Rows, []string{
			l.Asset,
			l.AcquiredAt.UTC().Format("2006-01-02"),
			Amount(l.Amount),
			Amount(l.Remaining),
			USD(l.UnitCost),
			USD(l.Cost()),
			l.SourceTransactionID,
		})
	}
	doc.Table(table)
	return doc.String()
}
