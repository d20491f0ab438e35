package interactive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Session is an interactive terminal session built on chzyer/readline.
type Session struct {
	reader    LineReader
	config    Config
	log       *zap.SugaredLogger
	completer *historyCompleter
}

// NewSession creates a new interactive readline session.
func NewSession(cfg Config) (*Session, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log = log.Named("readline")

	if cfg.ProcessFn == nil {
		return nil, errors.New("interactive: ProcessFn is required")
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.AltPrompt == "" {
		cfg.AltPrompt = DefaultAltPrompt
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}

	historyPath, err := expandTilde(cfg.HistoryFile)
	if err != nil {
		log.Warnf("Could not expand history file path '%s': %v", cfg.HistoryFile, err)
		historyPath = cfg.HistoryFile
	}
	cfg.HistoryFile = historyPath

	completer := &historyCompleter{commands: cfg.Commands}
	if err := completer.load(cfg.HistoryFile); err != nil {
		log.Debugf("history not loaded: %v", err)
	}

	s := &Session{
		config:    cfg,
		log:       log,
		completer: completer,
		reader:    cfg.Reader,
	}
	if s.reader != nil {
		return s, nil
	}

	stdin := cfg.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	isTerminal := func() bool {
		if f, ok := stdin.(*os.File); ok {
			return term.IsTerminal(int(f.Fd()))
		}
		return false
	}
	reader, err := readline.NewEx(&readline.Config{
		Prompt:                 cfg.Prompt,
		InterruptPrompt:        "^C",
		HistoryFile:            cfg.HistoryFile,
		HistoryLimit:           10000,
		HistorySearchFold:      true,
		DisableAutoSaveHistory: true,
		AutoComplete:           completer,
		Stdin:                  stdin,
		Stdout:                 cfg.Stdout,
		Stderr:                 cfg.Stderr,
		FuncIsTerminal:         isTerminal,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize readline: %w", err)
	}
	s.reader = reader
	log.Debugw("readline session initialized", "history", cfg.HistoryFile)
	return s, nil
}

// Run reads inputs and hands each to ProcessFn until the input ends.
// It returns io.EOF on Ctrl+D at an empty prompt, ErrInterrupted on Ctrl+C
// at an empty prompt, and ctx.Err() once ctx is done.
func (s *Session) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	contextDone := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			s.log.Debugf("context cancelled (%v), closing readline", ctx.Err())
			s.reader.Close()
		case <-contextDone:
		}
	}()
	defer func() {
		close(contextDone)
		wg.Wait()
		s.reader.Close()
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		input, err := s.read()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch {
		case errors.Is(err, ErrEmptyInput):
			continue
		case errors.Is(err, ErrInterrupted), errors.Is(err, io.EOF):
			s.log.Debugf("session ended: %v", err)
			return err
		case err != nil:
			return fmt.Errorf("readline error: %w", err)
		}

		if err := s.config.ProcessFn(ctx, input); err != nil && !errors.Is(err, ErrEmptyInput) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

func (s *Session) multiline() bool {
	return s.config.Multiline != nil && s.config.Multiline()
}

// read returns the next input. In multiline mode lines accumulate until a
// line containing only `"""` or Ctrl+D.
func (s *Session) read() (string, error) {
	s.reader.SetPrompt(s.config.Prompt)
	if !s.multiline() {
		line, err := s.reader.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			return "", s.interrupt(line != "")
		}
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == "" {
			return "", ErrEmptyInput
		}
		s.remember(line)
		return line, nil
	}

	var lines []string
	for {
		line, err := s.reader.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			return "", s.interrupt(len(lines) > 0 || line != "")
		}
		if errors.Is(err, io.EOF) {
			if len(lines) == 0 {
				return "", io.EOF
			}
			break
		}
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == `"""` {
			break
		}
		s.remember(line)
		lines = append(lines, line)
		s.reader.SetPrompt(s.config.AltPrompt)
	}
	input := strings.Join(lines, "\n")
	if strings.TrimSpace(input) == "" {
		return "", ErrEmptyInput
	}
	return input, nil
}

// interrupt handles Ctrl+C while reading: pending input is discarded,
// otherwise the session ends.
func (s *Session) interrupt(pending bool) error {
	if pending {
		fmt.Fprintln(s.config.Stderr, ansiDimColor("Input cleared"))
		return ErrEmptyInput
	}
	return ErrInterrupted
}

// remember appends a non-blank line to the history file and the completer.
func (s *Session) remember(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if err := s.reader.SaveHistory(line); err != nil {
		s.log.Warnf("Failed to save history item: %v", err)
	}
	s.completer.add(line)
}

// ansiDimColor applies dim ANSI color code.
func ansiDimColor(text string) string { return fmt.Sprintf("\x1b[90m%s\x1b[0m", text) }

// historyCompleter offers completions for the current line from reserved
// commands and earlier entries, newest first.
type historyCompleter struct {
	mu       sync.Mutex
	commands []string
	history  []string
}

func (c *historyCompleter) load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		c.add(sc.Text())
	}
	return sc.Err()
}

func (c *historyCompleter) add(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, line)
}

// Do implements readline.AutoCompleter.
func (c *historyCompleter) Do(line []rune, pos int) ([][]rune, int) {
	prefix := string(line[:pos])
	if strings.TrimSpace(prefix) == "" {
		return nil, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := map[string]bool{}
	var out [][]rune
	consider := func(candidate string) {
		if len(candidate) <= len(prefix) || !strings.HasPrefix(candidate, prefix) || seen[candidate] {
			return
		}
		seen[candidate] = true
		out = append(out, []rune(candidate[len(prefix):]))
	}
	for _, cmd := range c.commands {
		consider(cmd)
	}
	for i := len(c.history) - 1; i >= 0; i-- {
		consider(c.history[i])
	}
	return out, len([]rune(prefix))
}

// Expand tilde in file paths
func expandTilde(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	sep := string(os.PathSeparator)
	if path == "~" || strings.HasPrefix(path, "~"+sep) {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		if path == "~" {
			return homeDir, nil
		}
		return strings.Replace(path, "~", homeDir, 1), nil
	}
	return path, nil
}
