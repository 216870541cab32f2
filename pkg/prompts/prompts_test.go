package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	p, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	if p.System.Pins == "" {
		t.Error("System.Pins is empty")
	}

	got, err := p.RenderPins(PinParams{Topic: "healthy breakfast ideas", Count: 10})
	if err != nil {
		t.Fatalf("RenderPins() error = %v", err)
	}

	for _, want := range []string{
		"healthy breakfast ideas",
		"exactly 10 objects",
		`"Image Background"`,
		`"Alt Text"`,
		"max 60 characters",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered prompt missing %q", want)
		}
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	custom := filepath.Join(tmpDir, "custom.yaml")

	content := `
system:
  pins: "Custom system"
pins:
  generate: "Give {{.Count}} pins about {{.Topic}}"
`
	if err := os.WriteFile(custom, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		path       string
		wantSystem string
		wantErr    bool
	}{
		{name: "builtIn", path: ""},
		{name: "custom", path: custom, wantSystem: "Custom system"},
		{name: "missing", path: "/nonexistent/path.yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Load(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.wantSystem != "" && p.System.Pins != tt.wantSystem {
				t.Errorf("System.Pins = %q, want %q", p.System.Pins, tt.wantSystem)
			}
		})
	}
}

func TestLoadFromInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalidYAML", content: "not: valid: yaml: content:"},
		{name: "noTemplate", content: "system:\n  pins: only system"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prompts.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFrom(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRenderPins(t *testing.T) {
	p := &Prompts{
		Pins: PinPrompts{Generate: "Generate {{.Count}} pins about {{.Topic}}"},
	}

	result, err := p.RenderPins(PinParams{Topic: "space", Count: 10})
	if err != nil {
		t.Fatalf("RenderPins() error = %v", err)
	}

	expected := "Generate 10 pins about space"
	if result != expected {
		t.Errorf("RenderPins() = %q, want %q", result, expected)
	}
}

func TestRenderInvalidTemplate(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
	}{
		{name: "unclosedAction", tmpl: "{{.Invalid"},
		{name: "unknownField", tmpl: "{{.Board}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Prompts{Pins: PinPrompts{Generate: tt.tmpl}}
			if _, err := p.RenderPins(PinParams{Topic: "test"}); err == nil {
				t.Error("expected error for invalid template")
			}
		})
	}
}
