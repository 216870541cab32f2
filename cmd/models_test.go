package cmd

import (
	"context"
	"errors"
	"testing"

	"pingen/internal/llm"
)

type stubLister struct {
	models []llm.ModelInfo
	err    error
}

func (s stubLister) ListModels(context.Context) ([]llm.ModelInfo, error) {
	return s.models, s.err
}

func TestListModels(t *testing.T) {
	lister := stubLister{models: []llm.ModelInfo{
		{Name: "models/gemini-1.5-pro-latest", Actions: []string{llm.ActionGenerateContent}},
		{Name: "models/text-embedding-004", Actions: []string{"embedContent"}},
		{Name: "models/gemini-1.5-flash", Actions: []string{llm.ActionGenerateContent, "countTokens"}},
	}}

	tests := []struct {
		name string
		all  bool
		want []string
	}{
		{name: "generativeOnly", want: []string{"models/gemini-1.5-flash", "models/gemini-1.5-pro-latest"}},
		{name: "all", all: true, want: []string{"models/gemini-1.5-pro-latest", "models/text-embedding-004", "models/gemini-1.5-flash"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := listModels(context.Background(), lister, tt.all)
			if err != nil {
				t.Fatalf("listModels() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("listModels() = %v, want %v", got, tt.want)
			}
			for i, m := range got {
				if m.Name != tt.want[i] {
					t.Errorf("models[%d] = %q, want %q", i, m.Name, tt.want[i])
				}
			}
		})
	}
}

func TestListModelsError(t *testing.T) {
	want := errors.New("permission denied")
	if _, err := listModels(context.Background(), stubLister{err: want}, true); !errors.Is(err, want) {
		t.Errorf("error = %v, want %v", err, want)
	}
}
