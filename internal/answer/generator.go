package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"docuchat/internal/domain"
	"docuchat/internal/log"
)

// Fallback is the reply the model is told to give when the context lacks the answer.
const Fallback = "The answer is not available in the context"

const promptTemplate = `Answer the question as detailed as possible from the provided context. If the answer is not in
the provided context, just say, "` + Fallback + `". Don't provide a wrong answer.

Context:
{{.context}}

Question:
{{.question}}

Answer:
`

// Generator answers questions from retrieved chunks with a single completion call.
type Generator struct {
	completer domain.Completer
	prompt    prompts.PromptTemplate
}

func NewGenerator(completer domain.Completer) *Generator {
	return &Generator{
		completer: completer,
		prompt:    prompts.NewPromptTemplate(promptTemplate, []string{"context", "question"}),
	}
}

// Prompt renders the fixed prompt for question over results, in result order.
func (g *Generator) Prompt(question string, results []domain.SearchResult) (string, error) {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Chunk.Text
	}
	return g.prompt.Format(map[string]any{
		"context":  strings.Join(parts, "\n\n"),
		"question": question,
	})
}

// Answer returns the model's text unmodified. Failures wrap ErrGeneration.
func (g *Generator) Answer(ctx context.Context, question string, results []domain.SearchResult) (string, error) {
	prompt, err := g.Prompt(question, results)
	if err != nil {
		return "", fmt.Errorf("%w: render prompt: %w", domain.ErrGeneration, err)
	}
	text, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	log.Debug("answer generated", "completer", g.completer.Name(), "context_chunks", len(results), "prompt_chars", len(prompt))
	return text, nil
}
