package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/subcommands"
	"github.com/js1499/cryptotax"
)

type importCmd struct {
	mapping string
	dryRun  bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import exchange JSON exports into the ledger" }
func (*importCmd) Usage() string {
	return `taxlot import [-mapping <file>] [-n] <export.json>...

  Converts the records of JSON exports into transactions, using a YAML field
  mapping of jsonpath expressions, and appends them to the ledger.

  Transactions already in the ledger, by id, are skipped. Invalid records are
  reported and skipped.

  See 'taxlot topic import' for the mapping format.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.mapping, "mapping", *mappingFile, "YAML field mapping file")
	f.BoolVar(&c.dryRun, "n", false, "Print the imported transactions instead of appending them to the ledger")
}

func (c *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "import requires at least one JSON file")
		return subcommands.ExitUsageError
	}
	if c.mapping == "" {
		fmt.Fprintln(os.Stderr, "import requires a -mapping file")
		return subcommands.ExitUsageError
	}
	m, err := cryptotax.ReadFieldMappingFile(c.mapping)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	known := make(map[string]bool)
	existing, err := DecodeLedger()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("ledger does not exist, it will be created", "ledger", *ledgerFile)
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error loading ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	for _, tx := range existing {
		known[tx.ID] = true
	}

	status := subcommands.ExitSuccess
	var imported []cryptotax.Transaction
	for _, name := range f.Args() {
		txs, err := importFile(name, m)
		if err != nil {
			// Valid records are still imported.
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			status = subcommands.ExitFailure
		}
		for _, tx := range txs {
			if known[tx.ID] {
				slog.Debug("skipping known transaction", "id", tx.ID, "file", name)
				continue
			}
			known[tx.ID] = true
			imported = append(imported, tx)
		}
	}

	if c.dryRun {
		if err := cryptotax.EncodeTransactions(os.Stdout, imported); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		return status
	}
	if err := appendTransactions(*ledgerFile, imported); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "%d transactions imported into %s\n", len(imported), *ledgerFile)
	return status
}

func importFile(name string, m cryptotax.FieldMapping) ([]cryptotax.Transaction, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return cryptotax.ImportJSON(f, m)
}

// appendTransactions appends txs to the ledger file, creating it if it doesn't exist.
func appendTransactions(filename string, txs []cryptotax.Transaction) error {
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error opening ledger file %q: %w", filename, err)
	}
	if err := cryptotax.EncodeTransactions(f, txs); err != nil {
		f.Close()
		return fmt.Errorf("error writing ledger file %q: %w", filename, err)
	}
	return f.Close()
}
