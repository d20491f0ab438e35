// Package completion performs one chat exchange against a model: it sends
// the whole conversation, shows a status indicator while waiting, and renders
// the reply as markdown, live when streaming.
package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/ollamacli/conversation"
	"github.com/tmc/ollamacli/render"
	"go.uber.org/zap"
)

// ErrNoChoices is returned when the model answers without any content choice.
var ErrNoChoices = errors.New("model returned no choices")

const headerColor = lipgloss.Color("2")

// View displays a reply while it grows. Update receives the full text
// accumulated so far; Stop leaves the final rendering in place.
type View interface {
	Update(content string)
	Stop()
}

// Service is the main entry point for the completion service.
type Service struct {
	cfg *Config

	logger *zap.SugaredLogger

	model    llms.Model
	renderer *render.Renderer
	newView  func(w io.Writer) View

	// errStyles is bound to Stderr.
	errStyles *lipgloss.Renderer

	opts *Options
}

// Config holds the static configuration for the Service.
type Config struct {
	// Model is sent with every request.
	Model string
	// Temperature is sent with every request. Zero asks for greedy decoding.
	Temperature float64
	// RefreshInterval bounds how often a streaming reply is redrawn.
	RefreshInterval time.Duration
	// ShowSpinner enables the "working" indicator on terminals.
	ShowSpinner bool
}

// Options is the configuration for the Service.
type Options struct {
	// Stdout is the writer for standard output. If nil, os.Stdout will be used.
	Stdout io.Writer
	// Stderr is the writer for standard error. If nil, os.Stderr will be used.
	Stderr io.Writer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStdout sets the stdout writer
func WithStdout(w io.Writer) ServiceOption {
	return func(s *Service) {
		s.opts.Stdout = w
	}
}

// WithStderr sets the stderr writer
func WithStderr(w io.Writer) ServiceOption {
	return func(s *Service) {
		s.opts.Stderr = w
	}
}

// WithLogger sets the logger for the completion service.
func WithLogger(l *zap.SugaredLogger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithView replaces the live markdown view, mostly for tests.
func WithView(f func(w io.Writer) View) ServiceOption {
	return func(s *Service) {
		s.newView = f
	}
}

// New creates a new Service with the given configuration.
func New(cfg *Config, model llms.Model, renderer *render.Renderer, opts ...ServiceOption) (*Service, error) {
	if model == nil {
		return nil, errors.New("model cannot be nil")
	}
	if renderer == nil {
		return nil, errors.New("renderer cannot be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	s := &Service{
		cfg:      cfg,
		model:    model,
		renderer: renderer,
		logger:   zap.NewNop().Sugar(),
		opts:     &Options{Stdout: os.Stdout, Stderr: os.Stderr},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.errStyles = lipgloss.NewRenderer(s.opts.Stderr)
	if s.newView == nil {
		s.newView = func(w io.Writer) View {
			return s.renderer.NewLive(w, s.cfg.RefreshInterval)
		}
	}
	return s, nil
}

// Result is the outcome of one exchange.
type Result struct {
	// Content is the reply text; partial when Interrupted.
	Content string
	// Interrupted reports that the exchange was cancelled before completion.
	Interrupted bool
}

// Ask sends the conversation to the model and displays the reply. The
// conversation is not modified; recording the reply is up to the caller.
//
// Cancelling ctx interrupts the exchange. That is not an error: the partial
// reply stays on screen, a notice is printed and Result.Interrupted is set.
func (s *Service) Ask(ctx context.Context, conv *conversation.Conversation, stream bool) (Result, error) {
	log := s.logger.With("exchange", uuid.NewString(), "model", s.cfg.Model, "stream", stream)
	log.Debugw("sending conversation", "messages", conv.Len())
	start := time.Now()

	var (
		res Result
		err error
	)
	if stream {
		res, err = s.askStreaming(ctx, conv)
	} else {
		res, err = s.askOnce(ctx, conv)
	}
	switch {
	case err != nil:
		log.Debugw("exchange failed", "error", err, "elapsed", time.Since(start))
	case res.Interrupted:
		log.Debugw("exchange interrupted", "received", len(res.Content), "elapsed", time.Since(start))
	default:
		log.Debugw("exchange complete", "received", len(res.Content), "elapsed", time.Since(start))
	}
	return res, err
}

func (s *Service) askOnce(ctx context.Context, conv *conversation.Conversation) (Result, error) {
	content, err := s.PerformCompletion(ctx, conv.LLMMessages())
	if ctx.Err() != nil {
		s.printInterrupted()
		return Result{Interrupted: true}, nil
	}
	if err != nil {
		return Result{}, err
	}
	s.printHeader()
	v := s.newView(s.opts.Stdout)
	v.Update(content)
	v.Stop()
	return Result{Content: content}, nil
}

func (s *Service) askStreaming(ctx context.Context, conv *conversation.Conversation) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := s.PerformCompletionStreaming(ctx, conv.LLMMessages())

	var (
		content strings.Builder
		view    View
	)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case frag, ok := <-st.C:
			if !ok {
				break loop
			}
			if frag == "" {
				continue
			}
			if view == nil {
				st.stopStatus()
				s.printHeader()
				view = s.newView(s.opts.Stdout)
			}
			content.WriteString(frag)
			view.Update(content.String())
		}
	}
	interrupted := ctx.Err() != nil
	cancel()
	err := st.Err()

	if view != nil {
		view.Stop()
	}
	res := Result{Content: content.String(), Interrupted: interrupted}
	if interrupted {
		s.printInterrupted()
		return res, nil
	}
	if err != nil {
		return res, err
	}
	if view == nil {
		s.printHeader()
	}
	return res, nil
}

// PerformCompletion sends messages and waits for the complete reply.
func (s *Service) PerformCompletion(ctx context.Context, messages []llms.MessageContent) (string, error) {
	stop := s.startStatus()
	defer stop()

	resp, err := s.model.GenerateContent(ctx, messages, s.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Content, nil
}

// Stream is a finite, single-use sequence of reply fragments. C is closed
// when the model finishes, fails or ctx is cancelled; Err then reports why.
type Stream struct {
	C <-chan string

	stopStatus func()
	done       chan struct{}
	err        error
}

// Err waits for the producer to finish and returns its error, if any.
func (st *Stream) Err() error {
	<-st.done
	return st.err
}

// PerformCompletionStreaming starts a streaming request. The status
// indicator runs until the first fragment arrives or the stream ends.
func (s *Service) PerformCompletionStreaming(ctx context.Context, messages []llms.MessageContent) *Stream {
	ch := make(chan string)
	st := &Stream{
		C:          ch,
		stopStatus: s.startStatus(),
		done:       make(chan struct{}),
	}
	go func() {
		defer close(st.done)
		defer close(ch)
		defer st.stopStatus()

		opts := append(s.callOptions(), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			select {
			case ch <- string(chunk):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}))
		if _, err := s.model.GenerateContent(ctx, messages, opts...); err != nil {
			st.err = fmt.Errorf("failed to generate content: %w", err)
		}
	}()
	return st
}

func (s *Service) callOptions() []llms.CallOption {
	var opts []llms.CallOption
	if s.cfg.Model != "" {
		opts = append(opts, llms.WithModel(s.cfg.Model))
	}
	return append(opts, llms.WithTemperature(s.cfg.Temperature))
}

func (s *Service) printHeader() {
	style := s.renderer.Styles().NewStyle().Foreground(headerColor).Bold(true)
	fmt.Fprintln(s.opts.Stdout, "\n"+style.Render("Response:"))
}

func (s *Service) printInterrupted() {
	fmt.Fprintln(s.opts.Stdout, s.renderer.Dim("Interrupted"))
}
