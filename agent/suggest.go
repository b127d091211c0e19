package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/js1499/cryptotax"
	"github.com/samber/lo"
	"google.golang.org/genai"
)

// Suggestion is a category proposed for a transaction no rule identified.
type Suggestion struct {
	ID       string             `json:"id"`
	Category cryptotax.Category `json:"category"`
	Reason   string             `json:"reason"`
}

// NewReviewer returns the expert proposing categories for unidentified
// transactions. It answers in JSON, a list of [Suggestion].
func NewReviewer() *Expert {
	categories := lo.Map(cryptotax.Categories, func(c cryptotax.Category, _ int) string { return string(c) })
	return &Expert{
		Name:        "Reviewer",
		Description: "Proposes a category for the transactions no classifier rule identified.",
		ModelName:   model,
		Config: &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema: &genai.Schema{
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":       {Type: genai.TypeString},
						"category": {Type: genai.TypeString, Enum: categories},
						"reason":   {Type: genai.TypeString},
					},
					Required: []string{"id", "category", "reason"},
				},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You review crypto transactions exported from exchanges and wallets that an
			automatic classifier could not identify. For each transaction propose one
			category among: ` + strings.Join(categories, ", ") + `.
			"buy" and "sell" are trades against fiat, "transfer" moves assets between
			wallets, "staking" are rewards. Give a one sentence reason.
			When unsure, say so in the reason.
			`}}},
		},
	}
}

// Suggest asks a reviewer for a category for each transaction of txs.
// Suggestions for unknown transactions or categories are dropped, the others
// are returned in the order of txs.
func Suggest(ctx context.Context, reviewer Asker, txs []cryptotax.Transaction) ([]Suggestion, error) {
	if len(txs) == 0 {
		return nil, nil
	}
	prompt, err := suggestPrompt(txs)
	if err != nil {
		return nil, err
	}
	content, err := reviewer.Ask(ctx, &genai.Part{Text: prompt})
	if err != nil {
		return nil, err
	}
	return parseSuggestions(text(content), txs)
}

func suggestPrompt(txs []cryptotax.Transaction) (string, error) {
	var b strings.Builder
	b.WriteString("Propose a category for each of these transactions, one JSON object per line:\n")
	enc := json.NewEncoder(&b)
	for _, tx := range txs {
		if err := enc.Encode(tx); err != nil {
			return "", fmt.Errorf("cannot encode transaction %s: %w", tx.ID, err)
		}
	}
	return b.String(), nil
}

func parseSuggestions(answer string, txs []cryptotax.Transaction) ([]Suggestion, error) {
	var all []Suggestion
	if err := json.Unmarshal([]byte(answer), &all); err != nil {
		return nil, fmt.Errorf("invalid suggestions: %w", err)
	}
	byID := make(map[string]Suggestion)
	for _, s := range all {
		if _, dup := byID[s.ID]; dup || !slices.Contains(cryptotax.Categories, s.Category) {
			continue
		}
		byID[s.ID] = s
	}
	var result []Suggestion
	for _, tx := range txs {
		if s, ok := byID[tx.ID]; ok {
			result = append(result, s)
		}
	}
	return result, nil
}
