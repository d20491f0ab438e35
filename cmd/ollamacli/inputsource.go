package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// readPipedPrompt returns the trimmed contents of stdin when it is piped or
// redirected. A terminal yields "" without reading.
func readPipedPrompt(stdin io.Reader) (string, error) {
	if stdin == nil || isTerminal(stdin) {
		return "", nil
	}
	input, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("error reading from stdin: %w", err)
	}
	return strings.TrimSpace(string(input)), nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}
