package router

import (
	"context"
	"fmt"
	"strings"

	"ciq-assistant/internal/contextutil"
)

// Generator is a single-turn text completion model.
type Generator interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

const classifyPrompt = `Classify the user query into exactly one category:

- ciq: Excel CIQ sheets with site columns such as PCI, TAC, Cell ID.
- standard_ciq: CIQ sheets already normalized to the standard column names.
- template: network element config templates generated from a CIQ.
- master_template: global, merged or unified master templates.
- log: diagnostic logs, alarms or error traces.
- general: small talk or anything not about these files.

Query: "{query}"
Reply with only one of: ciq, standard_ciq, template, master_template, log, general.
Category:`

// Classifier routes queries with one model call each.
type Classifier struct {
	model Generator
}

// NewClassifier creates a classifier backed by model.
func NewClassifier(model Generator) *Classifier {
	return &Classifier{model: model}
}

// Classify asks the model for a category. Unexpected output degrades to
// General; a model error is returned as is.
func (c *Classifier) Classify(ctx context.Context, query string) (Category, error) {
	prompt := strings.Replace(classifyPrompt, "{query}", query, 1)

	raw, err := c.model.Chat(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("classification call failed: %w", err)
	}

	category := ParseCategory(raw)
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "query routed",
		"category", category,
		"raw", raw,
	)
	return category, nil
}
