package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"pingen/internal/pin"
	"pingen/pkg/prompts"
)

type mockLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
}

func (m *mockLLM) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := len(m.prompts)
	m.prompts = append(m.prompts, prompt)

	if call < len(m.errs) && m.errs[call] != nil {
		return "", m.errs[call]
	}
	if call < len(m.responses) {
		return m.responses[call], nil
	}
	if len(m.responses) > 0 {
		return m.responses[len(m.responses)-1], nil
	}
	return "", errors.New("no scripted response")
}

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

type mockImages struct {
	failOn map[string]error
	calls  []string
}

func (m *mockImages) GenerateImage(_ context.Context, description string) (string, error) {
	m.calls = append(m.calls, description)
	if err := m.failOn[description]; err != nil {
		return "", err
	}
	return "https://images.example/" + fmt.Sprint(len(m.calls)) + ".png", nil
}

type mockDownloader struct {
	data []byte
	err  error
	urls []string
}

func (m *mockDownloader) Download(_ context.Context, url string) ([]byte, error) {
	m.urls = append(m.urls, url)
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

type mockStore struct {
	failOn  map[string]error
	failAll error
	uploads map[string]string
}

func (m *mockStore) Upload(_ context.Context, localPath, objectName string) (string, error) {
	if m.failAll != nil {
		return "", m.failAll
	}
	if err := m.failOn[objectName]; err != nil {
		return "", err
	}
	if m.uploads == nil {
		m.uploads = make(map[string]string)
	}
	m.uploads[objectName] = localPath
	return "https://storage.googleapis.com/test-bucket/" + objectName, nil
}

type stubRecords struct {
	records []*pin.Record
	err     error
}

func (s *stubRecords) Generate(context.Context, string, Reporter) ([]*pin.Record, error) {
	return s.records, s.err
}

func testPrompts() *prompts.Prompts {
	return &prompts.Prompts{
		System: prompts.SystemPrompts{Pins: "system"},
		Pins:   prompts.PinPrompts{Generate: "Generate {{.Count}} pins about {{.Topic}}"},
	}
}

func newTestPipeline(client *mockLLM) *RecordPipeline {
	p := NewRecordPipeline(RecordPipelineOptions{
		LLM:     client,
		Prompts: testPrompts(),
	})
	p.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return p
}

func pngBytes() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
}
