// Command ollamacli is a terminal chat client for a local Ollama server.
//
// Usage:
//
//	ollamacli [flags] [prompt...]
//
// Flags:
//
//	-m, --model string    The model to use (default "llama2")
//	    --no-stream       Wait for the complete reply instead of streaming it
//	    --host string     Ollama server URL (default "http://127.0.0.1:11434")
//	    --config string   Path to the configuration file
//	-v, --verbose         Verbose output
//	    --debug           Debug output
//	    --version         Print the version and exit
//	-h, --help            Display help information
//
// With a prompt, or with a prompt piped on stdin, ollamacli answers once and
// exits. Otherwise it starts an interactive session that keeps the
// conversation until Ctrl+D or Ctrl+C at an empty prompt.
//
// In the interactive session two prompts are reserved: "show-markdown"
// prints the raw markdown of the last message and "multiline" toggles
// multiline input.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/tmc/ollamacli"
	"github.com/tmc/ollamacli/backends"
	"github.com/tmc/ollamacli/options"
)

func main() {
	opts, fs, err := initFlags(os.Args, os.Stdin)
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(context.Background(), opts, fs); err != nil {
		fmt.Fprintln(os.Stderr, "ollamacli:", err)
		os.Exit(1)
	}
}

func defineFlags(fs *pflag.FlagSet) {
	fs.StringP("model", "m", options.DefaultModels[options.DefaultBackend], "The model to use")
	fs.Bool("no-stream", false, "Wait for the complete reply instead of streaming it")
	fs.String("host", options.DefaultHost, "Ollama server URL")
	fs.String("config", "", "Path to the configuration file")
	fs.BoolP("verbose", "v", false, "Verbose output")
	fs.Bool("debug", false, "Debug output")
	fs.Bool("version", false, "Print the version and exit")

	// hidden flags
	fs.String("history-file", options.DefaultHistoryFile, "File to store input history in")
	fs.String("backend", options.DefaultBackend, "The backend to use")
	fs.MarkHidden("history-file")
	fs.MarkHidden("backend")
}

func initFlags(args []string, stdin io.Reader) (options.RunOptions, *pflag.FlagSet, error) {
	fs := pflag.NewFlagSet("ollamacli", pflag.ContinueOnError)
	fs.SortFlags = false
	defineFlags(fs)
	fs.Usage = func() { usage(os.Stderr, fs) }

	opts := options.RunOptions{
		Stdin:  stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if len(args) > 0 {
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return opts, fs, err
	}
	opts.PrintVersion, _ = fs.GetBool("version")
	opts.ConfigPath, _ = fs.GetString("config")
	opts.Prompt = strings.Join(fs.Args(), " ")
	return opts, fs, nil
}

func usage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, ollamacli.Banner())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: ollamacli [flags] [prompt...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, fs.FlagUsages())
	printSection(w, "Special Prompts")
	printSection(w, "Basic Usage")
}

func run(ctx context.Context, opts options.RunOptions, fs *pflag.FlagSet) error {
	ollamacli.PrintBanner(opts.Stdout)
	if opts.PrintVersion {
		return nil
	}

	cfg, err := options.LoadConfig(opts.ConfigPath, opts.Stderr, fs)
	if err != nil {
		return err
	}
	opts.Config = cfg

	logger := NewLogger(opts.Stderr, cfg.Verbose, cfg.Debug)
	defer logger.Sync()
	logger.Debugw("configuration loaded", "backend", cfg.Backend, "model", cfg.Model, "host", cfg.Host, "stream", cfg.Stream)

	prompt := opts.Prompt
	if prompt == "" {
		if prompt, err = readPipedPrompt(opts.Stdin); err != nil {
			return err
		}
	}

	model, err := backends.InitializeModel(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize model: %w", err)
	}

	app, err := ollamacli.New(cfg, model,
		ollamacli.WithStdin(opts.Stdin),
		ollamacli.WithStdout(opts.Stdout),
		ollamacli.WithStderr(opts.Stderr),
		ollamacli.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	if prompt != "" {
		// Failures are already reported; one-shot mode always exits cleanly.
		if err := app.RunOnce(ctx, prompt); err != nil {
			logger.Debugw("one-shot exchange failed", "error", err)
		}
		return nil
	}
	return app.RunInteractive(ctx)
}
