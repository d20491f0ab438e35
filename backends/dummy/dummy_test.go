package dummy

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/ollamacli/options"
)

func TestDummyBackendStreamsWholeText(t *testing.T) {
	backend, err := Constructor(&options.Config{}, nil)
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}
	backend.(*DummyBackend).Delay = 0

	var got strings.Builder
	resp, err := backend.GenerateContent(
		context.Background(),
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "Test input")},
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			got.Write(chunk)
			return nil
		}),
	)
	if err != nil {
		t.Fatalf("Failed to generate content: %v", err)
	}
	if got.String() != dummyDefaultText {
		t.Errorf("streamed text = %q, want %q", got.String(), dummyDefaultText)
	}
	if resp.Choices[0].Content != dummyDefaultText {
		t.Errorf("response text = %q, want %q", resp.Choices[0].Content, dummyDefaultText)
	}
}

func TestDummyBackendChunks(t *testing.T) {
	d := &DummyBackend{Chunks: []string{"Hel", "lo"}}
	var got []string
	_, err := d.GenerateContent(context.Background(), nil,
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			got = append(got, string(chunk))
			return nil
		}))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Hel", "lo"}, got); diff != "" {
		t.Errorf("chunks mismatch (-want +got):\n%s", diff)
	}
	if len(d.Calls()) != 1 {
		t.Errorf("Calls() = %d, want 1", len(d.Calls()))
	}
}

func TestDummyBackendCancellation(t *testing.T) {
	d := &DummyBackend{Chunks: []string{"a", "b", "c"}, Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.GenerateContent(ctx, nil, llms.WithStreamingFunc(func(context.Context, []byte) error { return nil }))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDummyBackendError(t *testing.T) {
	boom := errors.New("model not found")
	d := &DummyBackend{Err: boom}
	if _, err := d.GenerateContent(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}
