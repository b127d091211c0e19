package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"

	"github.com/js1499/cryptotax/config"
)

// EnvVerbose tells extensions whether debug logs are enabled.
const EnvVerbose = "CRYPTOTAX_VERBOSE"

// extensionEnv returns the global flags as the environment variables read by
// config.Load, so that extensions share the taxlot configuration.
func extensionEnv() []string {
	return []string{
		config.EnvLedgerFile + "=" + *ledgerFile,
		config.EnvMethod + "=" + method,
		config.EnvLiabilityRate + "=" + *liabilityRate,
		config.EnvWallets + "=" + *wallets,
		config.EnvVocabularyFile + "=" + *vocabularyFile,
		config.EnvMappingFile + "=" + *mappingFile,
		EnvVerbose + "=" + strconv.FormatBool(*Verbose),
	}
}

// RunExtension attempts to find and execute an external taxlot-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found.
func RunExtension(subcommand string, args []string) (bool, int) {
	externalCmdName := "taxlot-" + subcommand

	lp, err := exec.LookPath(externalCmdName)
	if err != nil {
		slog.Debug("external command not found", "command", externalCmdName, "error", err)
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), extensionEnv()...)

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return true, exitError.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", externalCmdName, err)
		return true, 1
	}
	return true, 0
}
