package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/js1499/cryptotax/config"
)

func TestExtensionMechanism(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available")
	}
	tempDir := t.TempDir()

	// taxlot-hello prints the configuration it receives.
	helloSource := fmt.Sprintf(`
package main

import (
	"fmt"
	"os"
)

func main() {
	for _, k := range []string{%q, %q, %q, %q} {
		fmt.Printf("%%s=%%s\n", k, os.Getenv(k))
	}
	fmt.Printf("args=%%v\n", os.Args[1:])
}
`, config.EnvLedgerFile, config.EnvWallets, config.EnvLiabilityRate, EnvVerbose)

	helloPath := filepath.Join(tempDir, "taxlot-hello")
	srcFile := helloPath + ".go"
	if err := os.WriteFile(srcFile, []byte(helloSource), 0644); err != nil {
		t.Fatalf("Failed to write taxlot-hello source: %v", err)
	}
	build := exec.Command("go", "build", "-o", helloPath, srcFile)
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		t.Fatalf("Failed to compile taxlot-hello: %v", err)
	}

	taxlotPath := filepath.Join(tempDir, "taxlot")
	build = exec.Command("go", "build", "-o", taxlotPath, "../taxlot")
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		t.Fatalf("Failed to compile taxlot: %v", err)
	}

	expectedLedgerFile := filepath.Join(tempDir, "random_ledger.jsonl")
	args := []string{
		"--ledger-file", expectedLedgerFile,
		"--wallets", "0xabc,0xdef",
		"--liability-rate", "0.3",
		"-v",
		"hello", "world",
	}
	taxlotCmd := exec.Command(taxlotPath, args...)
	taxlotCmd.Dir = tempDir
	taxlotCmd.Env = []string{"PATH=" + tempDir + string(os.PathListSeparator) + os.Getenv("PATH")}

	var stdout, stderr bytes.Buffer
	taxlotCmd.Stdout = &stdout
	taxlotCmd.Stderr = &stderr
	if err := taxlotCmd.Run(); err != nil {
		t.Fatalf("taxlot command failed: %v\nStdout: %s\nStderr: %s", err, stdout.String(), stderr.String())
	}

	output := stdout.String()
	for _, want := range []string{
		config.EnvLedgerFile + "=" + expectedLedgerFile,
		config.EnvWallets + "=0xabc,0xdef",
		config.EnvLiabilityRate + "=0.3",
		EnvVerbose + "=true",
		"args=[world]",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, but got:\n%s", want, output)
		}
	}
}

func TestRunExtensionNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if found, code := RunExtension("no-such-extension", nil); found || code != 0 {
		t.Errorf("RunExtension() = %v, %d, want false, 0", found, code)
	}
}
