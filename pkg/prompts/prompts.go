package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

type Prompts struct {
	System SystemPrompts `yaml:"system"`
	Pins   PinPrompts    `yaml:"pins"`
}

type SystemPrompts struct {
	Pins string `yaml:"pins"`
}

type PinPrompts struct {
	Generate string `yaml:"generate"`
}

type PinParams struct {
	Topic string
	Count int
}

// Load returns the catalogue at path, or the built-in one when path is empty.
func Load(path string) (*Prompts, error) {
	if path == "" {
		return Default()
	}
	return LoadFrom(path)
}

func Default() (*Prompts, error) {
	return parse(defaultPrompts)
}

func LoadFrom(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	if p.Pins.Generate == "" {
		return nil, fmt.Errorf("prompts file has no pins.generate template")
	}
	return &p, nil
}

func (p *Prompts) RenderPins(params PinParams) (string, error) {
	return render(p.Pins.Generate, params)
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
