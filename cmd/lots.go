package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/js1499/cryptotax"
	"github.com/js1499/cryptotax/renderer"
	"github.com/samber/lo"
)

type lotsCmd struct {
	year   int
	method string
	asset  string
	output string
}

func (*lotsCmd) Name() string     { return "lots" }
func (*lotsCmd) Synopsis() string { return "list the open lots at the end of a year" }
func (*lotsCmd) Usage() string {
	return `taxlot lots -year <year> [-method fifo|lifo|hifo] [-asset <symbol>] [-o <file>]

  Lists the lots still held at the end of the year, with their remaining
  amount and cost basis.
`
}

func (c *lotsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", 0, "Tax year")
	f.StringVar(&c.method, "method", method, "Lot matching method (fifo, lifo, hifo)")
	f.StringVar(&c.asset, "asset", "", "Only list the lots of this asset")
	f.StringVar(&c.output, "o", "", "Output file, stdout when empty or '-'")
}

func (c *lotsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	m, err := cryptotax.ParseMatchingMethod(c.method)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
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

	r, err := cryptotax.CalculateTaxReport(txs, c.year, m, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error calculating lots: %v\n", err)
		return subcommands.ExitUsageError
	}
	lots := r.OpenLots
	if c.asset != "" {
		asset := strings.ToUpper(strings.TrimSpace(c.asset))
		lots = lo.Filter(lots, func(l cryptotax.Lot, _ int) bool { return l.Asset == asset })
	}

	md := renderer.LotsMarkdown(r.Year, r.Method, lots)
	if c.output == "" || c.output == "-" {
		printMarkdown(md)
		return subcommands.ExitSuccess
	}
	w, closer, err := openOutput(c.output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening output: %v\n", err)
		return subcommands.ExitFailure
	}
	_, err = io.WriteString(w, md)
	if cerr := closer(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing lots: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
