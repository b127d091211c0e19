// Package agent provides a Gemini assistant over a transaction ledger.
//
// The assistant only reads the ledger: it answers questions through the same
// computations as the reports, and proposes categories for the transactions
// no classifier rule identified. Nothing it says changes a report.
package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/genai"
)

// Agent is the interactive assistant session.
type Agent struct {
	w           io.Writer
	r           *bufio.Reader
	Facilitator *Expert
	Experts     []*Expert
}

// New creates an Agent writing to w and reading the user's input from r. Its
// facilitator can ask the experts.
func New(w io.Writer, r io.Reader, experts ...*Expert) *Agent {
	return &Agent{
		w:           w,
		r:           bufio.NewReader(r),
		Experts:     experts,
		Facilitator: newFacilitator(experts...),
	}
}

// Start opens the chat sessions of the experts and the facilitator.
func (a *Agent) Start(ctx context.Context, client *genai.Client) error {
	for _, e := range a.Experts {
		if err := e.Start(ctx, client); err != nil {
			return err
		}
	}
	return a.Facilitator.Start(ctx, client)
}

const prompt = "assist> "

// Run starts the sessions and the interactive loop. prompts are sent first, as
// if typed by the user.
func (a *Agent) Run(ctx context.Context, client *genai.Client, prompts ...string) error {
	if a.Facilitator.chat == nil {
		if err := a.Start(ctx, client); err != nil {
			return err
		}
	}
	return a.loop(ctx, a.Facilitator, prompts)
}

// loop reads the user's input until "bye" or the end of input and prints the
// answers of asker.
func (a *Agent) loop(ctx context.Context, asker Asker, prompts []string) error {
	fmt.Fprintln(a.w, "Welcome to taxlot assist. Type 'bye' to exit.")
	for {
		fmt.Fprint(a.w, prompt)
		var input string
		if len(prompts) > 0 {
			input, prompts = strings.TrimSpace(prompts[0]), prompts[1:]
			if input == "" {
				continue
			}
			fmt.Fprintln(a.w, input)
		} else {
			var err error
			input, err = a.r.ReadString('\n')
			if err == io.EOF {
				return nil // Ctrl+D
			}
			if err != nil {
				return err
			}
			input = strings.TrimSpace(input)
		}

		switch input {
		case "":
			continue
		case "bye":
			return nil
		}

		content, err := asker.Ask(ctx, &genai.Part{Text: input})
		if err != nil {
			return err
		}
		fmt.Fprintln(a.w, text(content))
	}
}

func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are in charge of the conversation with a user preparing the US tax
			return of their crypto assets.

			Learn about the experts' skills from the Tools and ask them questions.
			They keep the context of your previous questions.

			Never compute a figure yourself: the experts read the user's ledger and
			compute gains, losses and income exactly as the tax report does.
			Say clearly when a figure is an estimate and that you are not a tax advisor.
		`}}},
		},
		Library: NewLibrary(experts),
	}
}
