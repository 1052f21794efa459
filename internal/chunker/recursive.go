package chunker

import (
	"strings"
	"unicode/utf8"
)

// recursiveSeparators is tried in order; the empty separator is the base case
// and slices by raw rune count, so the list strictly shrinking guarantees
// termination.
var recursiveSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// SplitRecursive cuts text into pieces of at most maxSize runes by splitting
// on the coarsest separator that applies and greedily reassembling adjacent
// pieces. Pieces still over maxSize recurse with the remaining separators.
// Unlike Split there is no overlap; this is the structural fallback for
// oversized documents where a single boundary-search pass would be too
// expensive.
func SplitRecursive(text string, maxSize int) []string {
	if maxSize <= 0 {
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return splitWith(text, maxSize, recursiveSeparators)
}

func splitWith(text string, maxSize int, separators []string) []string {
	if utf8.RuneCountInString(text) <= maxSize {
		return []string{text}
	}

	sep := separators[0]
	rest := separators[1:]

	if sep == "" {
		return sliceByRunes(text, maxSize)
	}

	pieces := strings.Split(text, sep)

	var out []string
	current := ""
	flush := func() {
		if current == "" {
			return
		}
		if utf8.RuneCountInString(current) > maxSize {
			out = append(out, splitWith(current, maxSize, rest)...)
		} else {
			out = append(out, current)
		}
		current = ""
	}

	for _, piece := range pieces {
		candidate := piece
		if current != "" {
			candidate = current + sep + piece
		}
		if utf8.RuneCountInString(candidate) > maxSize {
			flush()
			current = piece
		} else {
			current = candidate
		}
	}
	flush()
	return out
}

func sliceByRunes(text string, maxSize int) []string {
	runes := []rune(text)
	out := make([]string, 0, (len(runes)+maxSize-1)/maxSize)
	for i := 0; i < len(runes); i += maxSize {
		end := i + maxSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}
