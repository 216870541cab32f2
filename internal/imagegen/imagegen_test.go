package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *OpenAIGenerator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g, err := NewOpenAIGenerator(OpenAIOptions{
		APIKey:  "test-key",
		BaseURL: server.URL + "/",
		Model:   "dall-e-3",
		Size:    "1024x1024",
		Quality: "standard",
	})
	if err != nil {
		t.Fatalf("NewOpenAIGenerator() error = %v", err)
	}
	return g
}

func TestGenerateImageRequestShape(t *testing.T) {
	var got map[string]any
	var path string

	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created": 1700000000, "data": [{"url": "https://images.example/pin.png"}]}`))
	})

	url, err := g.GenerateImage(context.Background(), "a cozy reading nook, warm light")
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if url != "https://images.example/pin.png" {
		t.Errorf("GenerateImage() = %q", url)
	}
	if !strings.HasSuffix(path, "/images/generations") {
		t.Errorf("path = %q, want /images/generations", path)
	}

	want := map[string]any{
		"prompt":          "a cozy reading nook, warm light",
		"model":           "dall-e-3",
		"size":            "1024x1024",
		"quality":         "standard",
		"n":               float64(1),
		"response_format": "url",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("request[%q] = %v, want %v", k, got[k], v)
		}
	}
}

func TestGenerateImageErrors(t *testing.T) {
	tests := []struct {
		name        string
		description string
		status      int
		body        string
		wantStatus  int
		wantErr     error
	}{
		{
			name:        "emptyDescription",
			description: "",
			status:      http.StatusOK,
			body:        `{}`,
			wantErr:     ErrEmptyDescription,
		},
		{
			name:        "contentPolicyRejection",
			description: "something",
			status:      http.StatusBadRequest,
			body:        `{"error": {"message": "rejected by safety system", "type": "invalid_request_error", "code": "content_policy_violation"}}`,
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "serverErrorNotRetried",
			description: "something",
			status:      http.StatusInternalServerError,
			body:        `{"error": {"message": "boom", "type": "server_error"}}`,
			wantStatus:  http.StatusInternalServerError,
		},
		{
			name:        "noData",
			description: "something",
			status:      http.StatusOK,
			body:        `{"created": 1, "data": []}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := g.GenerateImage(context.Background(), tt.description)
			if err == nil {
				t.Fatal("GenerateImage() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if got := StatusCode(err); got != tt.wantStatus {
				t.Errorf("StatusCode() = %d, want %d", got, tt.wantStatus)
			}
			if tt.wantErr == nil && calls != 1 {
				t.Errorf("calls = %d, want 1", calls)
			}
		})
	}
}

func TestNewOpenAIGeneratorRequiresKey(t *testing.T) {
	if _, err := NewOpenAIGenerator(OpenAIOptions{}); err == nil {
		t.Error("NewOpenAIGenerator() with empty key should fail")
	}
}
