package options

import (
	"io"
)

// RunOptions contains all the options that are relevant to run ollamacli.
type RunOptions struct {
	// Config options
	*Config `json:"config,omitempty" yaml:"config,omitempty"`

	// Prompt is the one-shot prompt. Empty means interactive mode unless
	// stdin is piped.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`

	// PrintVersion prints the banner and exits.
	PrintVersion bool `json:"printVersion,omitempty" yaml:"printVersion,omitempty"`

	// --- I/O handles passed in ---
	Stdout io.Writer `json:"-" yaml:"-"`
	Stderr io.Writer `json:"-" yaml:"-"`
	Stdin  io.Reader `json:"-" yaml:"-"`

	ConfigPath string `json:"configPath,omitempty" yaml:"configPath,omitempty"`
}
