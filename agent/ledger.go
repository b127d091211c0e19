package agent

import (
	"context"
	"fmt"

	"github.com/js1499/cryptotax"
	"github.com/js1499/cryptotax/docs"
	"google.golang.org/genai"
)

// Ledger is the transaction ledger and the report options the functions of
// the Accountant work on.
type Ledger struct {
	Transactions []cryptotax.Transaction
	Options      cryptotax.Options
}

// Functions returns the functions the model can call on l.
func (l *Ledger) Functions() []Function {
	return []Function{taxSummary{l}, classifyTransaction{l}, readTopic{}}
}

// NewAccountant returns the expert that reads the ledger.
func NewAccountant(l *Ledger) *Expert {
	lib := l.Functions()
	return &Expert{
		Name: "Accountant",
		Description: `The Accountant reads the user's transaction ledger. It computes the
		capital gains and losses, the income and the estimated liability of a tax year, and
		explains how a transaction is classified.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are an accountant specialised in the US taxation of crypto assets.
			Use the functions to read the user's ledger, never guess a figure.
			Read the manual topics to explain lot matching, wash sales or classification.
			`}}},
		},
		Library: NewLibrary(lib),
	}
}

// taxSummary computes the summary of a tax report.
type taxSummary struct{ l *Ledger }

func (taxSummary) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "tax_summary",
		Description: "Computes the capital gains, losses, income and estimated liability of a tax year.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"year": {Type: genai.TypeInteger, Description: "The tax year, e.g. 2023."},
				"method": {
					Type:        genai.TypeString,
					Description: "The lot matching method, FIFO when omitted.",
					Enum:        []string{"fifo", "lifo", "hifo"},
				},
			},
			Required: []string{"year"},
		},
	}
}

func (f taxSummary) Call(_ context.Context, id string, args map[string]any) *genai.FunctionResponse {
	const name = "tax_summary"
	year, ok := intArg(args["year"])
	if !ok {
		return errorResponse(id, name, fmt.Errorf("invalid year %v", args["year"]))
	}
	method := cryptotax.FIFO
	if s, ok := args["method"].(string); ok && s != "" {
		var err error
		if method, err = cryptotax.ParseMatchingMethod(s); err != nil {
			return errorResponse(id, name, err)
		}
	}
	r, err := cryptotax.CalculateTaxReport(f.l.Transactions, year, method, f.l.Options)
	if err != nil {
		return errorResponse(id, name, err)
	}
	return &genai.FunctionResponse{ID: id, Name: name, Response: map[string]any{
		"output":      r.Summary,
		"events":      len(r.TaxableEvents),
		"diagnostics": len(r.Diagnostics),
	}}
}

// classifyTransaction classifies a transaction of the ledger.
type classifyTransaction struct{ l *Ledger }

func (classifyTransaction) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "classify_transaction",
		Description: "Returns a transaction of the ledger and how the classifier rules classify it.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"id": {Type: genai.TypeString, Description: "The transaction id."},
			},
			Required: []string{"id"},
		},
	}
}

func (f classifyTransaction) Call(_ context.Context, id string, args map[string]any) *genai.FunctionResponse {
	const name = "classify_transaction"
	txID, _ := args["id"].(string)
	for _, tx := range f.l.Transactions {
		if tx.ID == txID {
			c := cryptotax.NewClassifier(f.l.Options.Vocabulary).ClassifyTransaction(tx)
			return &genai.FunctionResponse{ID: id, Name: name, Response: map[string]any{
				"transaction":    tx,
				"classification": c,
			}}
		}
	}
	return errorResponse(id, name, fmt.Errorf("no transaction %q", txID))
}

// readTopic reads a topic of the manual.
type readTopic struct{}

func (readTopic) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "read_topic",
		Description: "Reads a topic of the taxlot manual, the index when the topic is omitted.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"topic": {Type: genai.TypeString, Description: "The topic name, e.g. wash-sales."},
			},
		},
	}
}

func (readTopic) Call(_ context.Context, id string, args map[string]any) *genai.FunctionResponse {
	const name = "read_topic"
	topic, _ := args["topic"].(string)
	if topic == "" {
		topic = docs.Index
	}
	content, err := docs.GetTopic(topic)
	if err != nil {
		return errorResponse(id, name, err)
	}
	return &genai.FunctionResponse{ID: id, Name: name, Response: map[string]any{"output": content}}
}

// intArg converts a numeric argument decoded from JSON.
func intArg(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), n == float64(int(n))
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}
