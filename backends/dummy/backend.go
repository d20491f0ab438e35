package dummy

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// DummyBackend is a mock LLM implementation for testing
type DummyBackend struct {
	// GenerateText returns the full response text.
	GenerateText func() string
	// Chunks, when set, are streamed verbatim instead of splitting the text into words.
	Chunks []string
	// Err is returned instead of a response.
	Err error
	// Delay is slept between streamed chunks and before a full response.
	Delay time.Duration

	mu    sync.Mutex
	calls [][]llms.MessageContent
}

// NewDummyBackend creates a new DummyBackend with default settings
func NewDummyBackend() (*DummyBackend, error) {
	return &DummyBackend{
		GenerateText: func() string { return dummyDefaultText },
		Delay:        40 * time.Millisecond,
	}, nil
}

var dummyDefaultText = "This is a **dummy** backend response.\n\n" +
	"```go\nfmt.Println(\"hello from the dummy backend\")\n```\n\n" +
	"The quick brown fox jumps over the lazy dog."

// Calls returns the message lists received so far.
func (d *DummyBackend) Calls() [][]llms.MessageContent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]llms.MessageContent(nil), d.calls...)
}

// Call implements the llms.Model interface
func (d *DummyBackend) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, d, prompt, options...)
}

// GenerateContent implements the llms.Model interface
func (d *DummyBackend) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	d.mu.Lock()
	d.calls = append(d.calls, messages)
	d.mu.Unlock()

	if d.Err != nil {
		return nil, d.Err
	}

	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	chunks := d.chunks()
	text := strings.Join(chunks, "")
	response := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}

	if opts.StreamingFunc == nil {
		if err := d.sleep(ctx); err != nil {
			return nil, err
		}
		return response, nil
	}

	for _, chunk := range chunks {
		if err := d.sleep(ctx); err != nil {
			return nil, err
		}
		if err := opts.StreamingFunc(ctx, []byte(chunk)); err != nil {
			return nil, err
		}
	}
	return response, nil
}

func (d *DummyBackend) chunks() []string {
	if len(d.Chunks) > 0 {
		return d.Chunks
	}
	text := d.GenerateText()
	var chunks []string
	for len(text) > 0 {
		i := strings.IndexAny(text[1:], " \n")
		if i < 0 {
			chunks = append(chunks, text)
			break
		}
		chunks = append(chunks, text[:i+1])
		text = text[i+1:]
	}
	return chunks
}

func (d *DummyBackend) sleep(ctx context.Context) error {
	if d.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.Delay):
		return nil
	}
}
