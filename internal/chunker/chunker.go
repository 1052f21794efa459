package chunker

import (
	"strings"
	"unicode"
)

// Chunk is one bounded slice of a source document, the unit handed to the
// embedding stage. Index and Total are assigned after empty chunks are
// filtered, so indices are always contiguous from 0.
type Chunk struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Text  string `json:"text"`
	Size  int    `json:"size_chars"`
}

// Split cuts text into chunks of at most maxSize runes with the given overlap
// between consecutive chunks. Cut points prefer, in order: a paragraph break,
// sentence-ending punctuation followed by whitespace, a single newline, a
// space. A candidate boundary is only taken when it lies in the second half
// of the window; otherwise the raw cut wins, so no degenerate tiny chunk is
// produced. Requires overlap < maxSize.
func Split(text string, maxSize, overlap int) []Chunk {
	if maxSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		overlap = maxSize / 2
	}

	runes := []rune(text)
	n := len(runes)
	var parts []string

	start := 0
	for start < n {
		end := start + maxSize
		if end >= n {
			parts = append(parts, string(runes[start:n]))
			break
		}

		cut := boundaryCut(runes, start, end)
		parts = append(parts, string(runes[start:cut]))

		// Continue from the chosen cut minus overlap so no text between cut
		// and the next window is lost. When overlap is large relative to the
		// window the raw stride is the forward-progress floor.
		next := cut - overlap
		if next <= start {
			next = start + maxSize - overlap
		}
		if next <= start {
			next = start + 1
		}
		start = next
	}

	chunks := make([]Chunk, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		chunks = append(chunks, Chunk{Text: trimmed, Size: len([]rune(trimmed))})
	}
	for i := range chunks {
		chunks[i].Index = i
		chunks[i].Total = len(chunks)
	}
	return chunks
}

// boundaryCut finds the preferred cut position in runes[start:end].
// end is the raw cut; the earliest acceptable boundary is the window midpoint.
func boundaryCut(runes []rune, start, end int) int {
	limit := end - (end-start)/2

	if c := lastParagraphBreak(runes, start, end); c >= limit {
		return c
	}
	if c := lastSentenceEnd(runes, start, end); c >= limit {
		return c
	}
	if c := lastRune(runes, start, end, '\n'); c >= limit {
		return c
	}
	if c := lastRune(runes, start, end, ' '); c >= limit {
		return c
	}
	return end
}

func lastParagraphBreak(runes []rune, start, end int) int {
	for i := end - 2; i > start; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i
		}
	}
	return -1
}

// lastSentenceEnd returns the position just after the last sentence-ending
// punctuation that is followed by whitespace, so the punctuation stays with
// its sentence.
func lastSentenceEnd(runes []rune, start, end int) int {
	for i := end - 2; i > start; i-- {
		switch runes[i] {
		case '.', '!', '?':
			if unicode.IsSpace(runes[i+1]) {
				return i + 1
			}
		}
	}
	return -1
}

func lastRune(runes []rune, start, end int, r rune) int {
	for i := end - 1; i > start; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
