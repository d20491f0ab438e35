// Package interactive reads prompts from a line-editing terminal session.
package interactive

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
)

var (
	// ErrInterrupted is returned by Run when the user presses Ctrl+C at an empty prompt.
	ErrInterrupted = errors.New("interrupted")
	// ErrEmptyInput marks a submission with nothing to process.
	ErrEmptyInput = errors.New("empty input")
)

// Defaults
var (
	DefaultPrompt    = "ollamacli ➤ "
	DefaultAltPrompt = "... "
)

// MultiLineHint describes how to submit in multiline mode.
const MultiLineHint = `End with """ on its own line or Ctrl+D to submit.`

// LineReader is the part of a readline instance a Session drives.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	SaveHistory(line string) error
	Close() error
}

// Config defines parameters for creating an interactive session.
type Config struct {
	Prompt      string
	AltPrompt   string // continuation prompt in multiline mode
	HistoryFile string // path for loading/saving history; "~" is expanded

	// Commands are offered by tab completion alongside history entries.
	Commands []string

	// ProcessFn handles each submitted input. A non-nil error other than
	// ErrEmptyInput ends the session.
	ProcessFn func(ctx context.Context, input string) error
	// Multiline reports whether the next input is read in multiline mode.
	Multiline func() bool

	Stdin  io.ReadCloser
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.SugaredLogger

	// Reader replaces the terminal line reader.
	Reader LineReader
}
