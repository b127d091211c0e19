package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/google/subcommands"
	"github.com/js1499/cryptotax"
	"github.com/js1499/cryptotax/agent"
	"github.com/js1499/cryptotax/renderer"
	"github.com/samber/lo"
	"google.golang.org/genai"
)

type classifyCmd struct {
	review  bool
	suggest bool
	format string
	output string
}

func (*classifyCmd) Name() string     { return "classify" }
func (*classifyCmd) Synopsis() string { return "show how each transaction is classified" }
func (*classifyCmd) Usage() string {
	return `taxlot classify [-review] [-format md|json] [-o <file>]

  Classifies every transaction of the ledger and lists the outcome. The
  transactions no rule identified are listed first: they are treated as buys
  and need a manual review.

    taxlot classify -review

  With -suggest, an AI reviewer proposes a category for each transaction to
  review. Suggestions are only displayed: the ledger and the reports are
  unchanged. The Gemini client is configured by the environment, e.g.
  GEMINI_API_KEY.
`
}

func (c *classifyCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.review, "review", false, "Only list the transactions that need a manual review")
	f.BoolVar(&c.suggest, "suggest", false, "Ask an AI reviewer for a category for the transactions to review")
	f.StringVar(&c.format, "format", "md", "Output format (md, json)")
	f.StringVar(&c.output, "o", "", "Output file, stdout when empty or '-'")
}

func (c *classifyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.format != "md" && c.format != "json" {
		fmt.Fprintf(os.Stderr, "Unknown format %q\n", c.format)
		return subcommands.ExitUsageError
	}
	opts, err := reportOptions()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	txs, err := DecodeLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	rows := classifyAll(txs, cryptotax.NewClassifier(opts.Vocabulary))
	if c.review {
		rows = lo.Filter(rows, func(r renderer.Classified, _ int) bool { return !r.Classification.Identified })
	}
	if c.suggest {
		client, err := genai.NewClient(ctx, nil)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
			return subcommands.ExitFailure
		}
		reviewer := agent.NewReviewer()
		if err := reviewer.Start(ctx, client); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		if err := suggestCategories(ctx, reviewer, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Error asking for suggestions: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	if c.format == "md" && (c.output == "" || c.output == "-") {
		printMarkdown(renderer.ClassificationsMarkdown(rows))
		return subcommands.ExitSuccess
	}
	w, closer, err := openOutput(c.output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening output: %v\n", err)
		return subcommands.ExitFailure
	}
	err = writeClassifications(w, rows, c.format)
	if cerr := closer(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing classification: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// classifyAll classifies txs in chronological order.
func classifyAll(txs []cryptotax.Transaction, classifier *cryptotax.Classifier) []renderer.Classified {
	rows := make([]renderer.Classified, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, renderer.Classified{Transaction: tx, Classification: classifier.ClassifyTransaction(tx)})
	}
	slices.SortStableFunc(rows, func(a, b renderer.Classified) int {
		return a.Transaction.Timestamp.Compare(b.Transaction.Timestamp)
	})
	return rows
}

// suggestCategories fills the suggested category of the rows to review.
func suggestCategories(ctx context.Context, reviewer agent.Asker, rows []renderer.Classified) error {
	review := lo.FilterMap(rows, func(r renderer.Classified, _ int) (cryptotax.Transaction, bool) {
		return r.Transaction, !r.Classification.Identified
	})
	suggestions, err := agent.Suggest(ctx, reviewer, review)
	if err != nil {
		return err
	}
	byID := lo.KeyBy(suggestions, func(s agent.Suggestion) string { return s.ID })
	for i, r := range rows {
		if s, ok := byID[r.Transaction.ID]; ok && !r.Classification.Identified {
			rows[i].Suggested, rows[i].Reason = s.Category, s.Reason
		}
	}
	return nil
}

type classificationLine struct {
	ID string `json:"id"`
	cryptotax.Classification
	Suggested cryptotax.Category `json:"suggested,omitempty"`
	Reason    string             `json:"reason,omitempty"`
}

func writeClassifications(w io.Writer, rows []renderer.Classified, format string) error {
	if format == "md" {
		_, err := io.WriteString(w, renderer.ClassificationsMarkdown(rows))
		return err
	}
	enc := json.NewEncoder(w)
	for _, r := range rows {
		line := classificationLine{ID: r.Transaction.ID, Classification: r.Classification, Suggested: r.Suggested, Reason: r.Reason}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}
