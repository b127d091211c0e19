package renderer

import (
	"bytes"
	"fmt"

	"github.com/js1499/cryptotax"
	md "github.com/nao1215/markdown"
)

// Classified is a transaction and the outcome of its classification.
type Classified struct {
	Transaction    cryptotax.Transaction
	Classification cryptotax.Classification
	// Suggested is a category proposed for a manual review, with the Reason
	// given for it. It is empty when nothing was suggested.
	Suggested cryptotax.Category
	Reason    string
}

// ClassificationsMarkdown renders classified transactions. Unidentified ones
// are listed first, in a section of their own, since they need a manual review.
func ClassificationsMarkdown(rows []Classified) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	var review, identified []Classified
	suggested := false
	for _, c := range rows {
		suggested = suggested || c.Suggested != ""
		if c.Classification.Identified {
			identified = append(identified, c)
		} else {
			review = append(review, c)
		}
	}

	doc.H1("Transaction Classification")
	doc.PlainText(fmt.Sprintf("%d transactions, %d to review.", len(rows), len(review)))

	if len(review) > 0 {
		doc.H2("Manual Review")
		doc.Table(classificationTable(review, suggested))
	}
	if len(identified) > 0 {
		doc.H2("Identified")
		doc.Table(classificationTable(identified, false))
	}
	return doc.String()
}

func classificationTable(rows []Classified, suggested bool) md.TableSet {
	table := md.TableSet{
		Header:    []string{"Date", "ID", "Type", "Asset", "Amount", "Value", "Category", "Final Type", "Subtype", "Rule"},
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft},
	}
	if suggested {
		table.Header = append(table.Header, "Suggested", "Reason")
		table.Alignment = append(table.Alignment, md.AlignLeft, md.AlignLeft)
	}
	for _, r := range rows {
		tx, c := r.Transaction, r.Classification
		line := []string{
			tx.On().String(), tx.ID, tx.Type, tx.Asset(), Amount(tx.AmountValue), SignedUSD(tx.Value()),
			string(c.Category), c.FinalType, c.Subtype, c.Rule,
		}
		if suggested {
			line = append(line, string(r.Suggested), r.Reason)
		}
		table.Rows = append(table.Rows, line)
	}
	return table
}
