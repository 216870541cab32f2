package llm

import (
	"context"
	"slices"
	"strings"
)

// Client turns a prompt into free text. Implementations do not retry;
// callers own the retry policy.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

type ModelInfo struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"display_name"`
	Description      string   `json:"description"`
	InputTokenLimit  int      `json:"input_token_limit"`
	OutputTokenLimit int      `json:"output_token_limit"`
	Actions          []string `json:"actions"`
}

const ActionGenerateContent = "generateContent"

// SupportsGeneration reports whether the model accepts content generation calls.
func (m ModelInfo) SupportsGeneration() bool {
	return slices.Contains(m.Actions, ActionGenerateContent)
}

// FilterGenerative keeps models that support content generation, sorted by name.
func FilterGenerative(models []ModelInfo) []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		if m.SupportsGeneration() {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b ModelInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
