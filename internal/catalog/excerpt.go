package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// LoadExcerpt reads a plain-text book and returns its first maxWords words
// with Project Gutenberg header and footer removed.
func LoadExcerpt(path string, maxWords int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open book: %w", err)
	}
	defer f.Close()

	return ReadExcerpt(f, maxWords)
}

// ReadExcerpt is LoadExcerpt for an already open reader.
func ReadExcerpt(r io.Reader, maxWords int) (string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read book: %w", err)
	}

	words := strings.Fields(strings.Join(stripGutenbergBoilerplate(lines), "\n"))
	if maxWords > 0 && len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " "), nil
}

var (
	gutenbergStart = []string{"*** START OF", "*END*THE SMALL PRINT"}
	gutenbergEnd   = []string{"*** END OF", "End of Project Gutenberg", "End of the Project Gutenberg"}
)

// stripGutenbergBoilerplate keeps the lines between the Project Gutenberg
// start and end markers. A missing marker leaves that side of the text as is.
func stripGutenbergBoilerplate(lines []string) []string {
	from := 0
	if i := slices.IndexFunc(lines, isMarker(gutenbergStart)); i >= 0 {
		from = i + 1
	}

	to := len(lines)
	for i := len(lines) - 1; i >= from; i-- {
		if isMarker(gutenbergEnd)(lines[i]) {
			to = i
			break
		}
	}

	if from >= to {
		return lines
	}
	return lines[from:to]
}

// isMarker matches any of markers, tolerating "***START" spacing.
func isMarker(markers []string) func(string) bool {
	return func(line string) bool {
		line = strings.Join(strings.Fields(strings.ReplaceAll(line, "***", "*** ")), " ")
		for _, m := range markers {
			if strings.Contains(line, m) {
				return true
			}
		}
		return false
	}
}
