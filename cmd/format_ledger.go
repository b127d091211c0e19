package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/google/subcommands"
	"github.com/js1499/cryptotax"
)

type formatLedgerCmd struct {
	output string
}

func (*formatLedgerCmd) Name() string     { return "format-ledger" }
func (*formatLedgerCmd) Synopsis() string { return "formats the ledger file into a canonical form" }
func (*formatLedgerCmd) Usage() string {
	return `taxlot format-ledger [-o <file>]

  Rewrites the ledger in chronological order, one canonical JSON object per
  line. Transactions of the same instant keep their order.
`
}

func (p *formatLedgerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.output, "o", "", "Output file, the ledger file itself when empty, stdout for '-'")
}

func (p *formatLedgerCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	txs, err := DecodeLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	slices.SortStableFunc(txs, func(a, b cryptotax.Transaction) int { return a.Timestamp.Compare(b.Timestamp) })

	switch p.output {
	case "-":
		err = cryptotax.EncodeTransactions(os.Stdout, txs)
	case "":
		err = cryptotax.WriteLedgerFile(*ledgerFile, txs)
	default:
		err = cryptotax.WriteLedgerFile(p.output, txs)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	if p.output == "" {
		fmt.Printf("Ledger file '%s' has been formatted.\n", *ledgerFile)
	}
	return subcommands.ExitSuccess
}
