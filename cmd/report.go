package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/subcommands"
	"github.com/js1499/cryptotax"
	"github.com/js1499/cryptotax/renderer"
	"golang.org/x/sync/errgroup"
)

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	years  string
	method string
	format string
	output string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "compute the tax report of one or more years" }
func (*reportCmd) Usage() string {
	return `taxlot report -year <years> [-method fifo|lifo|hifo] [-format md|json] [-o <file>]

  Computes the capital gains, income, Form 8949 and estimated liability of each
  tax year, from the whole ledger history.

  Years are a comma separated list, ranges are allowed:

    taxlot report -year 2023
    taxlot report -year 2021-2023 -method hifo -format json -o reports.json
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.years, "year", "", "Tax years to report, e.g. 2023 or 2021-2023 or 2021,2023")
	f.StringVar(&c.method, "method", method, "Lot matching method (fifo, lifo, hifo)")
	f.StringVar(&c.format, "format", "md", "Output format (md, json)")
	f.StringVar(&c.output, "o", "", "Output file, stdout when empty or '-'")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	years, err := parseYears(c.years)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing years: %v\n", err)
		return subcommands.ExitUsageError
	}
	m, err := cryptotax.ParseMatchingMethod(c.method)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
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

	reports, err := calculateReports(ctx, txs, years, m, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error calculating report: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.format == "md" && (c.output == "" || c.output == "-") {
		for _, r := range reports {
			printMarkdown(renderer.ReportMarkdown(r))
		}
		return subcommands.ExitSuccess
	}

	w, closer, err := openOutput(c.output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening output: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := writeReports(w, reports, c.format); err != nil {
		closer()
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := closer(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// calculateReports computes the reports of each year concurrently, in years order.
func calculateReports(ctx context.Context, txs []cryptotax.Transaction, years []int, m cryptotax.MatchingMethod, opts cryptotax.Options) ([]*cryptotax.TaxReport, error) {
	reports := make([]*cryptotax.TaxReport, len(years))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, year := range years {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := cryptotax.CalculateTaxReport(txs, year, m, opts)
			if err != nil {
				return fmt.Errorf("%d: %w", year, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// writeReports writes markdown reports one after the other, and json reports as
// a single object, or an array when there are several.
func writeReports(w io.Writer, reports []*cryptotax.TaxReport, format string) error {
	if format == "md" {
		for _, r := range reports {
			if _, err := io.WriteString(w, renderer.ReportMarkdown(r)); err != nil {
				return err
			}
		}
		return nil
	}
	var v any = reports
	if len(reports) == 1 {
		v = reports[0]
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseYears parses a comma separated list of years or year ranges. Every
// year must be a supported tax year.
func parseYears(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("missing -year")
	}
	var years []int
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		from, to, isRange := strings.Cut(item, "-")
		start, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", item)
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(strings.TrimSpace(to)); err != nil || end < start {
				return nil, fmt.Errorf("invalid year range %q", item)
			}
		}
		for _, y := range []int{start, end} {
			if err := cryptotax.ValidateYear(y); err != nil {
				return nil, err
			}
		}
		for y := start; y <= end; y++ {
			years = append(years, y)
		}
	}
	return years, nil
}
