// Package render turns markdown text into styled terminal output.
//
// Prose is rendered with glamour. Fenced code blocks are handed to a
// CodeRenderer supplied at construction, so callers decide how code looks
// without touching any package-level state.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// DefaultWordWrap is used when no width is configured and the terminal size is unknown.
const DefaultWordWrap = 80

// Renderer converts markdown into terminal output. It holds no per-document
// state and may be reused for any number of documents.
type Renderer struct {
	md      *glamour.TermRenderer
	code    CodeRenderer
	source  *Highlighter
	styles  *lipgloss.Renderer
	profile termenv.Profile
}

type settings struct {
	profile    termenv.Profile
	profileSet bool
	style      string
	width      int
	theme      string
	code       CodeRenderer
	lipgloss   *lipgloss.Renderer
}

// Option configures a Renderer.
type Option func(*settings)

// WithColorProfile sets the colour profile used for prose and code.
func WithColorProfile(p termenv.Profile) Option {
	return func(s *settings) {
		s.profile = p
		s.profileSet = true
	}
}

// WithStyle selects a glamour standard style ("auto", "dark", "light", "notty", ...).
func WithStyle(style string) Option {
	return func(s *settings) { s.style = style }
}

// WithWordWrap sets the prose wrap width.
func WithWordWrap(width int) Option {
	return func(s *settings) { s.width = width }
}

// WithCodeTheme sets the chroma theme for fenced code and markdown source.
func WithCodeTheme(theme string) Option {
	return func(s *settings) { s.theme = theme }
}

// WithCodeRenderer replaces the fenced code block strategy.
func WithCodeRenderer(cr CodeRenderer) Option {
	return func(s *settings) { s.code = cr }
}

// WithLipglossRenderer sets the lipgloss renderer used for labels and notices.
func WithLipglossRenderer(r *lipgloss.Renderer) Option {
	return func(s *settings) { s.lipgloss = r }
}

// New creates a Renderer.
func New(opts ...Option) (*Renderer, error) {
	s := settings{
		style: styles.AutoStyle,
		width: DefaultWordWrap,
		theme: "monokai",
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.lipgloss == nil {
		s.lipgloss = lipgloss.DefaultRenderer()
	}
	if !s.profileSet {
		s.profile = s.lipgloss.ColorProfile()
	}
	if s.width <= 0 {
		s.width = DefaultWordWrap
	}

	mdOpts := []glamour.TermRendererOption{
		glamour.WithWordWrap(s.width),
		glamour.WithColorProfile(s.profile),
	}
	switch {
	case s.profile == termenv.Ascii:
		mdOpts = append(mdOpts, glamour.WithStandardStyle(styles.NoTTYStyle))
	case s.style == "" || s.style == styles.AutoStyle:
		if s.lipgloss.HasDarkBackground() {
			mdOpts = append(mdOpts, glamour.WithStandardStyle(styles.DarkStyle))
		} else {
			mdOpts = append(mdOpts, glamour.WithStandardStyle(styles.LightStyle))
		}
	default:
		mdOpts = append(mdOpts, glamour.WithStandardStyle(s.style))
	}
	md, err := glamour.NewTermRenderer(mdOpts...)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}

	highlighter := NewHighlighter(s.theme, s.profile)
	if s.code == nil {
		s.code = LabeledCode{
			Highlighter: highlighter,
			Label:       s.lipgloss.NewStyle().Faint(true),
		}
	}
	return &Renderer{
		md:      md,
		code:    s.code,
		source:  highlighter,
		styles:  s.lipgloss,
		profile: s.profile,
	}, nil
}

// Render formats a markdown document. The result ends with a newline unless
// the document is empty.
func (r *Renderer) Render(markdown string) (string, error) {
	var parts []string
	for _, seg := range split(markdown) {
		if seg.code {
			var b strings.Builder
			if err := r.code.RenderCode(&b, seg.lang, seg.body); err != nil {
				return "", fmt.Errorf("render %s code block: %w", seg.lang, err)
			}
			parts = append(parts, strings.TrimRight(b.String(), "\n"))
			continue
		}
		if strings.TrimSpace(seg.body) == "" {
			continue
		}
		out, err := r.md.Render(seg.body)
		if err != nil {
			return "", fmt.Errorf("render markdown: %w", err)
		}
		if out = trimLines(out); out != "" {
			parts = append(parts, out)
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	return strings.Join(parts, "\n") + "\n", nil
}

// RenderSource highlights the raw markdown text itself.
func (r *Renderer) RenderSource(markdown string) (string, error) {
	out, err := r.source.Highlight("markdown", strings.TrimRight(markdown, "\n"))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}

// mustRender renders markdown, falling back to the raw text on failure.
func (r *Renderer) mustRender(markdown string) string {
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

// Dim renders s faint.
func (r *Renderer) Dim(s string) string {
	return r.styles.NewStyle().Faint(true).Render(s)
}

// Styles returns the lipgloss renderer bound to the output.
func (r *Renderer) Styles() *lipgloss.Renderer { return r.styles }

// trimLines drops blank lines around the block and trailing padding on each line.
func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

type segment struct {
	code bool
	lang string
	body string
}

// split breaks markdown into prose and fenced code segments. An unterminated
// fence runs to the end of the text, which is the normal state of a document
// that is still streaming in.
func split(text string) []segment {
	var (
		segs  []segment
		buf   []string
		fence string
		lang  string
	)
	flush := func(code bool) {
		if len(buf) == 0 && !code {
			return
		}
		segs = append(segs, segment{code: code, lang: lang, body: strings.Join(buf, "\n")})
		buf = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if fence == "" {
			if marker, info, ok := openFence(line); ok {
				flush(false)
				fence, lang = marker, info
				continue
			}
			buf = append(buf, line)
			continue
		}
		if closesFence(line, fence) {
			flush(true)
			fence, lang = "", ""
			continue
		}
		buf = append(buf, line)
	}
	if fence != "" {
		flush(true)
	} else {
		flush(false)
	}
	return segs
}

func openFence(line string) (marker, lang string, ok bool) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return "", "", false
	}
	for _, ch := range []byte{'`', '~'} {
		n := 0
		for n < len(trimmed) && trimmed[n] == ch {
			n++
		}
		if n < 3 {
			continue
		}
		info := strings.TrimSpace(trimmed[n:])
		if ch == '`' && strings.Contains(info, "`") {
			return "", "", false
		}
		if fields := strings.Fields(info); len(fields) > 0 {
			lang = fields[0]
		}
		return trimmed[:n], lang, true
	}
	return "", "", false
}

func closesFence(line, marker string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < len(marker) {
		return false
	}
	return strings.Trim(trimmed, marker[:1]) == ""
}
