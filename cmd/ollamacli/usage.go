package main

import (
	_ "embed"
	"fmt"
	"io"
	"strings"
)

//go:embed docs/usage.md
var usageFile string

// printSection writes one "## " section of the usage document.
func printSection(w io.Writer, name string) {
	fmt.Fprintln(w, name+":")
	fmt.Fprintln(w, extractSection(name))
	fmt.Fprintln(w)
}

func extractSection(sectionName string) string {
	lines := strings.Split(usageFile, "\n")
	inSection := false
	var sectionContent []string

	for _, line := range lines {
		if strings.HasPrefix(line, "## "+sectionName) {
			inSection = true
			continue
		}
		if inSection && strings.HasPrefix(line, "## ") {
			break
		}
		if inSection {
			sectionContent = append(sectionContent, line)
		}
	}

	return strings.Trim(strings.Join(sectionContent, "\n"), "\n")
}
