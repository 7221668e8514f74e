// Package pager splits generated prose into a fixed number of reading
// screens.
package pager

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultPages is the number of screens a story is revealed over.
const DefaultPages = 10

// SplitSentences splits text at sentence boundaries. A boundary is a '.', '!'
// or '?' followed by whitespace; the whitespace run is dropped.
func SplitSentences(text string) []string {
	if text == "" {
		return nil
	}

	// Offsets are in bytes so that invalid UTF-8 survives slicing unchanged.
	var sentences []string
	start := 0
	prev := utf8.RuneError
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) || !isTerminator(prev) {
			prev = r
			i += size
			continue
		}
		end := i
		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(r) {
				break
			}
			i += size
		}
		sentences = append(sentences, text[start:end])
		start = i
		prev = utf8.RuneError
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}

	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Paginate splits text into DefaultPages fragments.
func Paginate(text string) []string {
	return PaginateN(text, DefaultPages)
}

// PaginateN splits text into exactly n fragments of ceil(len(sentences)/n)
// sentences each. Trailing fragments are empty when there are too few
// sentences to go round.
func PaginateN(text string, n int) []string {
	if n <= 0 {
		return nil
	}

	sentences := SplitSentences(text)
	pages := make([]string, n)
	if len(sentences) == 0 {
		return pages
	}

	chunkSize := (len(sentences) + n - 1) / n
	for i := range pages {
		lo := i * chunkSize
		if lo >= len(sentences) {
			break
		}
		hi := min(lo+chunkSize, len(sentences))
		pages[i] = strings.Join(sentences[lo:hi], " ")
	}

	return pages
}

// NonEmpty returns the pages that contain visible text.
func NonEmpty(pages []string) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
