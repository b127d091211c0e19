// Package cmd implements the taxlot command line application.
package cmd

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/js1499/cryptotax"
	"github.com/js1499/cryptotax/config"
	"github.com/shopspring/decimal"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&reportCmd{}, "reports")
	c.Register(&lotsCmd{}, "reports")
	c.Register(&classifyCmd{}, "reports")
	c.Register(&assistCmd{}, "reports")

	c.Register(&importCmd{}, "ledger")
	c.Register(&formatLedgerCmd{}, "ledger")

	c.Register(&topicCmd{}, "help")
}

// Commands are the names of the registered subcommands.
var Commands = []string{"help", "flags", "commands", "report", "lots", "classify", "assist", "import", "format-ledger", "topic"}

// IsCommand reports whether name is a builtin subcommand.
func IsCommand(name string) bool { return slices.Contains(Commands, name) }

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var ledgerFile = flag.String("ledger-file", "transactions.jsonl", "Path to the ledger file containing transactions (JSONL format)")
var vocabularyFile = flag.String("vocabulary-file", "", "Path to a YAML file overriding the classifier keywords")
var wallets = flag.String("wallets", "", "Comma separated list of the user's wallet addresses")
var liabilityRate = flag.String("liability-rate", "", "Tax rate used to estimate the liability, e.g. 0.25")
var mappingFile = flag.String("mapping-file", "", "Path to the YAML field mapping used by import")

// Verbose enables debug logs.
var Verbose = flag.Bool("v", false, "Enable debug logs")

// method is the default matching method of the commands.
var method = "fifo"

// Configure sets the global flag defaults from cfg. It must be called before flag.Parse.
func Configure(cfg *config.Config) {
	*ledgerFile = cfg.LedgerFile
	*vocabularyFile = cfg.VocabularyFile
	*wallets = strings.Join(cfg.Wallets, ",")
	*mappingFile = cfg.MappingFile
	if cfg.LiabilityRate.Valid {
		*liabilityRate = cfg.LiabilityRate.Decimal.String()
	}
	if cfg.Method != "" {
		method = cfg.Method
	}
}

// DecodeLedger reads the transactions of the ledger file.
func DecodeLedger() ([]cryptotax.Transaction, error) {
	return cryptotax.ReadLedgerFile(*ledgerFile)
}

// reportOptions builds the report options from the global flags.
func reportOptions() (cryptotax.Options, error) {
	opts := cryptotax.Options{Logger: slog.Default()}
	for _, w := range strings.Split(*wallets, ",") {
		if w = strings.TrimSpace(w); w != "" {
			opts.Wallets = append(opts.Wallets, w)
		}
	}
	if *liabilityRate != "" {
		rate, err := decimal.NewFromString(*liabilityRate)
		if err != nil {
			return opts, fmt.Errorf("invalid liability rate %q: %w", *liabilityRate, err)
		}
		opts.LiabilityRate = decimal.NewNullDecimal(rate)
	}
	if *vocabularyFile != "" {
		v, err := cryptotax.ReadVocabularyFile(*vocabularyFile)
		if err != nil {
			return opts, err
		}
		opts.Vocabulary = v
	}
	return opts, nil
}

// openOutput returns the writer for an output flag: stdout for "" or "-".
func openOutput(output string) (*os.File, func() error, error) {
	if output == "" || output == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// printMarkdown renders markdown for the terminal, falling back to the raw text.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
