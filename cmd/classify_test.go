package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/js1499/cryptotax"
	"github.com/js1499/cryptotax/renderer"
	"google.golang.org/genai"
)

const mixedLedger = `{"id":"m1","type":"Mystery","asset":"SOL","amount":3,"value":60,"timestamp":"2023-02-01T10:00:00Z"}
{"id":"b1","type":"Buy","asset":"BTC","amount":1,"value":20000,"timestamp":"2023-01-01T10:00:00Z"}
{"id":"r1","type":"Staking Reward","asset":"ETH","amount":0.1,"value":200,"timestamp":"2023-03-01T10:00:00Z"}
`

func execute(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	cmd.SetFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("invalid flags %v: %v", args, err)
	}
	return cmd.Execute(context.Background(), f)
}

func TestClassifyJSON(t *testing.T) {
	useLedger(t, createTempLedger(t, mixedLedger))
	output := filepath.Join(t.TempDir(), "classify.jsonl")

	if status := execute(t, &classifyCmd{}, "-format", "json", "-o", output); status != subcommands.ExitSuccess {
		t.Fatalf("Expected ExitSuccess, got %v", status)
	}
	content, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), content)
	}

	wantIDs := []string{"b1", "m1", "r1"}
	wantCategories := []cryptotax.Category{cryptotax.CategoryBuy, cryptotax.CategoryBuy, cryptotax.CategoryStaking}
	for i, line := range lines {
		var got classificationLine
		if err := json.Unmarshal([]byte(line), &got); err != nil {
			t.Fatalf("invalid line %q: %v", line, err)
		}
		if got.ID != wantIDs[i] || got.Category != wantCategories[i] {
			t.Errorf("line %d = %s %s, want %s %s", i, got.ID, got.Category, wantIDs[i], wantCategories[i])
		}
		if got.Identified != (got.ID != "m1") {
			t.Errorf("line %d: %s identified = %v", i, got.ID, got.Identified)
		}
	}
}

func TestClassifyReview(t *testing.T) {
	useLedger(t, createTempLedger(t, mixedLedger))
	output := filepath.Join(t.TempDir(), "classify.md")

	if status := execute(t, &classifyCmd{}, "-review", "-o", output); status != subcommands.ExitSuccess {
		t.Fatalf("Expected ExitSuccess, got %v", status)
	}
	content, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	out := string(content)
	if !strings.Contains(out, "## Manual Review") || !strings.Contains(out, "m1") {
		t.Errorf("review does not list m1:\n%s", out)
	}
	if strings.Contains(out, "b1") || strings.Contains(out, "## Identified") {
		t.Errorf("review lists identified transactions:\n%s", out)
	}
}

func TestClassifyVocabulary(t *testing.T) {
	dir := t.TempDir()
	useLedger(t, createTempLedger(t, mixedLedger))
	vocabulary := writeFile(t, dir, "vocabulary.yaml", "buy: [buy, mystery]\n")
	old := vocabularyFile
	vocabularyFile = &vocabulary
	defer func() { vocabularyFile = old }()
	output := filepath.Join(dir, "classify.md")

	if status := execute(t, &classifyCmd{}, "-review", "-o", output); status != subcommands.ExitSuccess {
		t.Fatalf("Expected ExitSuccess, got %v", status)
	}
	content, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(content), "m1") {
		t.Errorf("m1 still needs a review with the custom vocabulary:\n%s", content)
	}
}

// reviewerFunc answers the reviewer questions with a fixed answer.
type reviewerFunc func(question string) string

func (f reviewerFunc) Ask(_ context.Context, parts ...*genai.Part) (*genai.Content, error) {
	return &genai.Content{Parts: []*genai.Part{{Text: f(parts[0].Text)}}}, nil
}

func TestSuggestCategories(t *testing.T) {
	txs, err := cryptotax.DecodeTransactions(strings.NewReader(mixedLedger))
	if err != nil {
		t.Fatal(err)
	}
	rows := classifyAll(txs, cryptotax.NewClassifier(nil))
	var asked string
	reviewer := reviewerFunc(func(q string) string {
		asked = q
		return `[{"id":"m1","category":"staking","reason":"validator payout"},{"id":"b1","category":"sell","reason":"identified already"}]`
	})

	if err := suggestCategories(context.Background(), reviewer, rows); err != nil {
		t.Fatalf("suggestCategories() error = %v", err)
	}
	if strings.Contains(asked, `"id":"b1"`) || !strings.Contains(asked, `"id":"m1"`) {
		t.Errorf("reviewer asked about %q, want m1 only", asked)
	}
	for _, r := range rows {
		want := renderer.Classified{Transaction: r.Transaction, Classification: r.Classification}
		if r.Transaction.ID == "m1" {
			want.Suggested, want.Reason = cryptotax.CategoryStaking, "validator payout"
		}
		if r.Suggested != want.Suggested || r.Reason != want.Reason {
			t.Errorf("%s suggested %q %q, want %q %q", r.Transaction.ID, r.Suggested, r.Reason, want.Suggested, want.Reason)
		}
		if r.Classification.Category != want.Classification.Category {
			t.Errorf("%s classification changed to %s", r.Transaction.ID, r.Classification.Category)
		}
	}

	var buf strings.Builder
	if err := writeClassifications(&buf, rows, "json"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"id":"m1","category":"buy","identified":false,"finalType":"Mystery","rule":"fallback","suggested":"staking","reason":"validator payout"`) {
		t.Errorf("json classification does not carry the suggestion:\n%s", buf.String())
	}
}

func TestLots(t *testing.T) {
	useLedger(t, createTempLedger(t, mixedLedger))
	output := filepath.Join(t.TempDir(), "lots.md")

	if status := execute(t, &lotsCmd{}, "-year", "2023", "-asset", "btc", "-o", output); status != subcommands.ExitSuccess {
		t.Fatalf("Expected ExitSuccess, got %v", status)
	}
	content, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	out := string(content)
	if !strings.Contains(out, "# Open Lots at the End of 2023") || !strings.Contains(out, "$20,000.00") {
		t.Errorf("lots do not list the BTC lot:\n%s", out)
	}
	if strings.Contains(out, "SOL") {
		t.Errorf("lots are not filtered by asset:\n%s", out)
	}

	if status := execute(t, &lotsCmd{}, "-year", "2023", "-method", "average"); status != subcommands.ExitUsageError {
		t.Errorf("lots with an unknown method = %v, want ExitUsageError", status)
	}
}
