package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// CodeRenderer renders the body of a fenced code block.
type CodeRenderer interface {
	RenderCode(w io.Writer, language, code string) error
}

// CodeRendererFunc adapts a function to the CodeRenderer interface.
type CodeRendererFunc func(w io.Writer, language, code string) error

func (f CodeRendererFunc) RenderCode(w io.Writer, language, code string) error {
	return f(w, language, code)
}

// Highlighter applies chroma syntax highlighting for terminal output.
type Highlighter struct {
	// Theme is a chroma style name; unknown names use chroma's fallback style.
	Theme string
	// Formatter is a chroma formatter name such as "terminal256" or "noop".
	Formatter string
}

// NewHighlighter returns a Highlighter whose formatter matches the colour profile.
func NewHighlighter(theme string, profile termenv.Profile) *Highlighter {
	return &Highlighter{Theme: theme, Formatter: formatterFor(profile)}
}

func formatterFor(profile termenv.Profile) string {
	switch profile {
	case termenv.TrueColor:
		return "terminal16m"
	case termenv.ANSI256:
		return "terminal256"
	case termenv.ANSI:
		return "terminal16"
	default:
		return "noop"
	}
}

// Highlight returns code highlighted as language. Unknown languages are
// rendered as plain text.
func (h *Highlighter) Highlight(language, code string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(h.Theme)
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get(h.Formatter)
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("tokenise %s: %w", language, err)
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "", fmt.Errorf("format %s: %w", language, err)
	}
	return buf.String(), nil
}

// LabeledCode renders a fenced block as a dim language label, the highlighted
// code, and a dim closing label ("/go").
type LabeledCode struct {
	Highlighter *Highlighter
	Label       lipgloss.Style
}

func (c LabeledCode) RenderCode(w io.Writer, language, code string) error {
	if language == "" {
		language = "text"
	}
	code = strings.TrimRight(code, " \t\n")
	highlighted, err := c.Highlighter.Highlight(language, code)
	if err != nil {
		highlighted = code
	}
	_, err = fmt.Fprintf(w, "%s\n%s\n%s\n",
		c.Label.Render(language),
		strings.TrimRight(highlighted, "\n"),
		c.Label.Render("/"+language))
	return err
}
