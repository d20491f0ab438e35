// Package ollamacli is a terminal chat client for a local Ollama server.
//
// An App owns one conversation. It either answers a single prompt
// (RunOnce) or reads prompts from a readline session until the input ends
// (RunInteractive). Replies are rendered as markdown while they stream in.
package ollamacli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/ollamacli/completion"
	"github.com/tmc/ollamacli/conversation"
	"github.com/tmc/ollamacli/interactive"
	"github.com/tmc/ollamacli/options"
	"github.com/tmc/ollamacli/render"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Version is the released version of ollamacli.
const Version = "0.2.0"

// Reserved prompts. Input is matched after NormalizeCommand.
const (
	CommandShowMarkdown = "show-markdown"
	CommandMultiline    = "multiline"
)

// Commands lists the reserved prompts.
var Commands = []string{CommandShowMarkdown, CommandMultiline}

var (
	green = lipgloss.Color("2")
	red   = lipgloss.Color("1")
)

// Banner returns the startup line.
func Banner() string {
	return fmt.Sprintf("ollamacli - Ollama powered AI CLI v%s", Version)
}

// PrintBanner writes the banner in bold green when w supports colour.
func PrintBanner(w io.Writer) {
	style := lipgloss.NewRenderer(w).NewStyle().Foreground(green).Bold(true)
	fmt.Fprintln(w, style.Render(Banner()))
}

// NormalizeCommand maps input to its reserved-command form: lower case,
// trimmed, with runs of inner whitespace replaced by a single hyphen.
func NormalizeCommand(input string) string {
	return strings.Join(strings.Fields(strings.ToLower(input)), "-")
}

// App runs exchanges against a model on behalf of a user.
type App struct {
	cfg      *options.Config
	conv     *conversation.Conversation
	renderer *render.Renderer
	exchange *completion.Service
	logger   *zap.SugaredLogger

	multiline bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	reader         interactive.LineReader
	now            func() time.Time
	serviceOptions []completion.ServiceOption
}

// Option configures an App.
type Option func(*App)

// WithStdin sets the reader interactive input comes from.
func WithStdin(r io.Reader) Option { return func(a *App) { a.stdin = r } }

// WithStdout sets the writer replies are rendered to.
func WithStdout(w io.Writer) Option { return func(a *App) { a.stdout = w } }

// WithStderr sets the writer for status and errors.
func WithStderr(w io.Writer) Option { return func(a *App) { a.stderr = w } }

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option { return func(a *App) { a.logger = l } }

// WithLineReader replaces the terminal line reader used by RunInteractive.
func WithLineReader(r interactive.LineReader) Option { return func(a *App) { a.reader = r } }

// WithClock sets the time source for the system prompt.
func WithClock(now func() time.Time) Option { return func(a *App) { a.now = now } }

// WithCompletionOptions passes options through to the chat exchange service.
func WithCompletionOptions(opts ...completion.ServiceOption) Option {
	return func(a *App) { a.serviceOptions = append(a.serviceOptions, opts...) }
}

// New creates an App whose conversation starts with the configured system prompt.
func New(cfg *options.Config, model llms.Model, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	a := &App{
		cfg:    cfg,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: zap.NewNop().Sugar(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	base := a.logger
	a.logger = base.Named("app")

	tmpl := cfg.SystemPrompt
	if tmpl == "" {
		tmpl = conversation.DefaultSystemPrompt
	}
	system, err := conversation.SystemPrompt(tmpl, a.now())
	if err != nil {
		return nil, fmt.Errorf("system prompt: %w", err)
	}
	a.conv = conversation.New(system)

	a.renderer, err = render.New(
		render.WithLipglossRenderer(lipgloss.NewRenderer(a.stdout)),
		render.WithStyle(cfg.MarkdownStyle),
		render.WithWordWrap(a.wordWrap()),
		render.WithCodeTheme(cfg.CodeTheme),
	)
	if err != nil {
		return nil, err
	}

	serviceOpts := append([]completion.ServiceOption{
		completion.WithStdout(a.stdout),
		completion.WithStderr(a.stderr),
		completion.WithLogger(base.Named("completion")),
	}, a.serviceOptions...)
	a.exchange, err = completion.New(&completion.Config{
		Model:           cfg.Model,
		Temperature:     cfg.Temperature,
		RefreshInterval: cfg.RefreshInterval(),
		ShowSpinner:     cfg.ShowSpinner,
	}, model, a.renderer, serviceOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion service: %w", err)
	}
	return a, nil
}

func (a *App) wordWrap() int {
	if a.cfg.WordWrap > 0 {
		return a.cfg.WordWrap
	}
	if f, ok := a.stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return render.DefaultWordWrap
}

// Conversation returns the conversation owned by the App.
func (a *App) Conversation() *conversation.Conversation { return a.conv }

// Multiline reports whether interactive input is read in multiline mode.
func (a *App) Multiline() bool { return a.multiline }

// RunOnce sends a single prompt. An interrupted exchange is not an error;
// a failed one is reported and returned.
func (a *App) RunOnce(ctx context.Context, prompt string) error {
	a.conv.AddUser(prompt)
	return a.ask(ctx)
}

// RunInteractive reads prompts until end of input, Ctrl+C at the prompt or
// cancellation of ctx, all of which end the session normally.
func (a *App) RunInteractive(ctx context.Context) error {
	stdin, ok := a.stdin.(io.ReadCloser)
	if !ok {
		stdin = io.NopCloser(a.stdin)
	}
	session, err := interactive.NewSession(interactive.Config{
		HistoryFile: a.cfg.HistoryFile,
		Commands:    Commands,
		ProcessFn:   a.process,
		Multiline:   a.Multiline,
		Stdin:       stdin,
		Stdout:      a.stdout,
		Stderr:      a.stderr,
		Logger:      a.logger,
		Reader:      a.reader,
	})
	if err != nil {
		return err
	}

	err = session.Run(ctx)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, interactive.ErrInterrupted), errors.Is(err, context.Canceled):
		a.logger.Debugw("interactive session ended", "reason", err, "messages", a.conv.Len())
		fmt.Fprintln(a.stdout, a.renderer.Dim("Goodbye."))
		return nil
	default:
		return err
	}
}

// process handles one submitted input.
func (a *App) process(ctx context.Context, input string) error {
	switch NormalizeCommand(input) {
	case "":
		return interactive.ErrEmptyInput
	case CommandShowMarkdown:
		if err := a.showMarkdown(); err != nil {
			a.reportError(err)
		}
		return nil
	case CommandMultiline:
		a.toggleMultiline()
		return nil
	}
	a.conv.AddUser(input)
	if err := a.ask(ctx); err != nil {
		a.logger.Debugw("exchange failed, continuing", "error", err)
	}
	return nil
}

// ask runs one exchange for the conversation as it stands. Interrupt
// signals cancel only this exchange. The reply is recorded only when the
// exchange completes.
func (a *App) ask(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	res, err := a.exchange.Ask(ctx, a.conv, a.cfg.Stream)
	if err != nil {
		a.reportError(err)
		return err
	}
	if res.Interrupted {
		a.logger.Debugw("discarding interrupted reply", "received", len(res.Content))
		return nil
	}
	a.conv.AddAssistant(res.Content)
	return nil
}

func (a *App) showMarkdown() error {
	fmt.Fprintln(a.stdout, a.renderer.Dim("Last markdown output of last question:"))
	out, err := a.renderer.RenderSource(a.conv.Last().Content)
	if err != nil {
		return fmt.Errorf("render markdown source: %w", err)
	}
	_, err = io.WriteString(a.stdout, out)
	return err
}

func (a *App) toggleMultiline() {
	a.multiline = !a.multiline
	if a.multiline {
		fmt.Fprintln(a.stdout, "Enabling multiline mode.")
		fmt.Fprintln(a.stdout, a.renderer.Dim(interactive.MultiLineHint))
		return
	}
	fmt.Fprintln(a.stdout, "Disabling multiline mode.")
}

func (a *App) reportError(err error) {
	style := lipgloss.NewRenderer(a.stderr).NewStyle().Foreground(red)
	fmt.Fprintf(a.stderr, "%s %v\n", style.Render("Error:"), err)
}
