// Command taxlot computes the crypto tax reports of a transaction ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/google/subcommands"
	"github.com/js1499/cryptotax"
	"github.com/js1499/cryptotax/cmd"
	"github.com/js1499/cryptotax/config"
	"github.com/js1499/cryptotax/docs"
	"github.com/js1499/cryptotax/logger"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// completion describes the command line for shell completion.
func completion() *complete.Command {
	methods := predict.Set{}
	for _, m := range cryptotax.Methods {
		methods = append(methods, strings.ToLower(m.String()))
	}
	formats := predict.Set{"md", "json"}
	topics, _ := docs.GetAllTopics()

	return &complete.Command{
		Sub: map[string]*complete.Command{
			"report": {Flags: map[string]complete.Predictor{
				"method": methods,
				"format": formats,
				"o":      predict.Files("*"),
			}},
			"lots": {Flags: map[string]complete.Predictor{
				"method": methods,
				"o":      predict.Files("*.md"),
			}},
			"classify": {Flags: map[string]complete.Predictor{
				"format":  formats,
				"o":       predict.Files("*"),
				"review":  predict.Nothing,
				"suggest": predict.Nothing,
			}},
			"assist": {},
			"import": {
				Flags: map[string]complete.Predictor{"mapping": predict.Files("*.yaml")},
				Args:  predict.Files("*.json"),
			},
			"format-ledger": {Flags: map[string]complete.Predictor{"o": predict.Files("*.jsonl")}},
			"topic":         {Args: predict.Set(topics)},
		},
		Flags: map[string]complete.Predictor{
			"ledger-file":     predict.Files("*.jsonl"),
			"vocabulary-file": predict.Files("*.yaml"),
			"mapping-file":    predict.Files("*.yaml"),
		},
	}
}

func main() {
	completion().Complete("taxlot")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(subcommands.ExitUsageError))
	}
	cmd.Configure(cfg)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	cmd.Register(commander)
	flag.Parse()

	level := cfg.LogLevel
	if *cmd.Verbose {
		level = "debug"
	}
	logger.Init(os.Stderr, level, cfg.LogFormat)

	if name := flag.Arg(0); name != "" && !cmd.IsCommand(name) {
		if found, code := cmd.RunExtension(name, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}
	os.Exit(int(commander.Execute(context.Background())))
}
