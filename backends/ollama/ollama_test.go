package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/ollamacli/options"
)

func TestServerURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"http://127.0.0.1:11434", "http://127.0.0.1:11434"},
		{"https://ollama.internal/", "https://ollama.internal"},
		{"gpu-box:11434", "http://gpu-box:11434"},
		{":11500", "http://127.0.0.1:11500"},
		{"  localhost:11434 ", "http://localhost:11434"},
	}
	for _, tt := range tests {
		if got := ServerURL(tt.in); got != tt.want {
			t.Errorf("ServerURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConstructor(t *testing.T) {
	m, err := Constructor(&options.Config{Model: "llama2", Host: "localhost:11434"}, nil)
	if err != nil {
		t.Fatalf("Constructor() error = %v", err)
	}
	if m == nil {
		t.Fatal("Constructor() returned nil model")
	}
}

func TestConstructorStreamsFromServer(t *testing.T) {
	var (
		gotModel string
		gotTemp  float64
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Options struct {
				Temperature float64 `json:"temperature"`
			} `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotModel = req.Model
		gotTemp = req.Options.Temperature
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, line := range []string{
			`{"model":"llama2","message":{"role":"assistant","content":"Hel"},"done":false}`,
			`{"model":"llama2","message":{"role":"assistant","content":"lo"},"done":false}`,
			`{"model":"llama2","message":{"role":"assistant","content":""},"done":true}`,
		} {
			fmt.Fprintln(w, line)
		}
	}))
	defer srv.Close()

	m, err := Constructor(&options.Config{Model: "llama2", Host: srv.URL}, &options.InferenceProviderOptions{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("Constructor() error = %v", err)
	}

	var chunks strings.Builder
	resp, err := m.GenerateContent(context.Background(),
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "hi")},
		llms.WithTemperature(options.DefaultTemperature),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			chunks.Write(chunk)
			return nil
		}))
	if err != nil {
		t.Fatalf("GenerateContent() error = %v", err)
	}
	if got := chunks.String(); got != "Hello" {
		t.Errorf("streamed = %q, want %q", got, "Hello")
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content != "Hello" {
		t.Errorf("choices = %+v, want content %q", resp.Choices, "Hello")
	}
	if gotModel != "llama2" {
		t.Errorf("server saw model %q, want llama2", gotModel)
	}
	if math.Abs(gotTemp-options.DefaultTemperature) > 1e-6 {
		t.Errorf("server saw temperature %v, want %v", gotTemp, options.DefaultTemperature)
	}
}
