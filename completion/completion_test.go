package completion

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/ollamacli/backends/dummy"
	"github.com/tmc/ollamacli/conversation"
	"github.com/tmc/ollamacli/render"
	"go.uber.org/zap/zaptest"
)

type recordingView struct {
	mu       sync.Mutex
	updates  []string
	stops    int
	onUpdate func(string)
}

func (v *recordingView) Update(content string) {
	v.mu.Lock()
	v.updates = append(v.updates, content)
	v.mu.Unlock()
	if v.onUpdate != nil {
		v.onUpdate(content)
	}
}

func (v *recordingView) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stops++
}

type fixture struct {
	svc    *Service
	view   *recordingView
	stdout *bytes.Buffer
	conv   *conversation.Conversation
}

func newFixture(t *testing.T, model llms.Model) *fixture {
	t.Helper()
	lr := lipgloss.NewRenderer(io.Discard)
	lr.SetColorProfile(termenv.Ascii)
	r, err := render.New(render.WithColorProfile(termenv.Ascii), render.WithLipglossRenderer(lr))
	require.NoError(t, err)

	f := &fixture{
		view:   &recordingView{},
		stdout: &bytes.Buffer{},
		conv:   conversation.New("be brief"),
	}
	f.conv.AddUser("hi")
	f.svc, err = New(&Config{Model: "llama2", ShowSpinner: true}, model, r,
		WithStdout(f.stdout),
		WithStderr(io.Discard),
		WithLogger(zaptest.NewLogger(t).Sugar()),
		WithView(func(io.Writer) View { return f.view }),
	)
	require.NoError(t, err)
	return f
}

func TestAskStreaming(t *testing.T) {
	backend := &dummy.DummyBackend{Chunks: []string{"Hel", "lo"}}
	f := newFixture(t, backend)

	res, err := f.svc.Ask(context.Background(), f.conv, true)
	require.NoError(t, err)
	assert.Equal(t, Result{Content: "Hello"}, res)

	if diff := cmp.Diff([]string{"Hel", "Hello"}, f.view.updates); diff != "" {
		t.Errorf("view updates mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, f.view.stops)
	assert.Contains(t, f.stdout.String(), "Response:")
	assert.Equal(t, 2, f.conv.Len(), "Ask must not modify the conversation")
}

func TestAskSendsWholeConversation(t *testing.T) {
	backend := &dummy.DummyBackend{Chunks: []string{"ok"}}
	f := newFixture(t, backend)
	f.conv.AddAssistant("earlier answer")
	f.conv.AddUser("follow up")

	_, err := f.svc.Ask(context.Background(), f.conv, true)
	require.NoError(t, err)

	calls := backend.Calls()
	require.Len(t, calls, 1)
	if diff := cmp.Diff(f.conv.LLMMessages(), calls[0]); diff != "" {
		t.Errorf("sent messages mismatch (-want +got):\n%s", diff)
	}
}

func TestAskNonStreaming(t *testing.T) {
	backend := &dummy.DummyBackend{Chunks: []string{"Hel", "lo"}}
	f := newFixture(t, backend)

	res, err := f.svc.Ask(context.Background(), f.conv, false)
	require.NoError(t, err)
	assert.Equal(t, Result{Content: "Hello"}, res)
	assert.Equal(t, []string{"Hello"}, f.view.updates)
	assert.Equal(t, 1, f.view.stops)
	assert.Contains(t, f.stdout.String(), "Response:")
}

func TestAskInterruptedMidStream(t *testing.T) {
	backend := &dummy.DummyBackend{
		Chunks: []string{"a", "b", "c"},
		Delay:  20 * time.Millisecond,
	}
	f := newFixture(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.view.onUpdate = func(string) { cancel() }

	res, err := f.svc.Ask(ctx, f.conv, true)
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.Equal(t, "a", res.Content)
	assert.Equal(t, []string{"a"}, f.view.updates)
	assert.Equal(t, 1, f.view.stops, "partial reply is left on screen")
	assert.Contains(t, f.stdout.String(), "Interrupted")
}

func TestAskInterruptedBeforeOutput(t *testing.T) {
	for _, stream := range []bool{true, false} {
		backend := &dummy.DummyBackend{Chunks: []string{"never"}}
		f := newFixture(t, backend)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := f.svc.Ask(ctx, f.conv, stream)
		require.NoError(t, err, "stream=%v", stream)
		assert.Equal(t, Result{Interrupted: true}, res, "stream=%v", stream)
		assert.Empty(t, f.view.updates, "stream=%v", stream)
		assert.NotContains(t, f.stdout.String(), "Response:", "stream=%v", stream)
		assert.Contains(t, f.stdout.String(), "Interrupted", "stream=%v", stream)
	}
}

func TestAskBackendError(t *testing.T) {
	errDown := errors.New("connection refused")
	for _, stream := range []bool{true, false} {
		f := newFixture(t, &dummy.DummyBackend{Err: errDown})

		res, err := f.svc.Ask(context.Background(), f.conv, stream)
		require.Error(t, err)
		assert.ErrorIs(t, err, errDown)
		assert.False(t, res.Interrupted)
		assert.Empty(t, res.Content)
		assert.Empty(t, f.view.updates)
	}
}

type emptyModel struct{}

func (emptyModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, emptyModel{}, prompt, options...)
}

func (emptyModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

func TestAskNoChoices(t *testing.T) {
	f := newFixture(t, emptyModel{})
	_, err := f.svc.Ask(context.Background(), f.conv, false)
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestNewRequiresModel(t *testing.T) {
	_, err := New(&Config{}, nil, &render.Renderer{})
	assert.Error(t, err)
}

func TestCallOptions(t *testing.T) {
	s := &Service{cfg: &Config{Model: "mistral", Temperature: 0.2}}
	var opts llms.CallOptions
	for _, o := range s.callOptions() {
		o(&opts)
	}
	assert.Equal(t, "mistral", opts.Model)
	assert.Equal(t, 0.2, opts.Temperature)

	s.cfg = &Config{}
	opts = llms.CallOptions{Temperature: 0.5}
	for _, o := range s.callOptions() {
		o(&opts)
	}
	assert.Empty(t, opts.Model)
	assert.Zero(t, opts.Temperature, "temperature is always set, even when zero")
}

func TestStatusTextStyledForStderr(t *testing.T) {
	f := newFixture(t, &dummy.DummyBackend{})
	require.Equal(t, statusMessage, f.svc.renderer.Dim(statusMessage), "stdout renderer is plain in the fixture")

	f.svc.errStyles.SetColorProfile(termenv.ANSI)
	got := f.svc.statusText()
	assert.Contains(t, got, statusMessage)
	assert.Contains(t, got, "\x1b[2m", "status should be faint when stderr supports it")
}
