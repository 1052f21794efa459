package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRecursiveShortText(t *testing.T) {
	assert.Equal(t, []string{"fits"}, SplitRecursive("fits", 10))
	assert.Nil(t, SplitRecursive("", 10))
	assert.Nil(t, SplitRecursive("   ", 10))
}

func TestSplitRecursiveHardBound(t *testing.T) {
	inputs := []string{
		strings.Repeat("para one\n\npara two\n\n", 100),
		strings.Repeat("a line\n", 300),
		strings.Repeat("A sentence here. ", 200),
		strings.Repeat("words without other structure ", 120),
	}
	for _, text := range inputs {
		for _, piece := range SplitRecursive(text, 64) {
			assert.LessOrEqual(t, utf8.RuneCountInString(piece), 64)
			assert.NotEmpty(t, piece)
		}
	}
}

func TestSplitRecursiveNoWhitespaceFallsToCharSlicing(t *testing.T) {
	// One giant word: every separator fails until the character-slice base
	// case bounds the output.
	text := strings.Repeat("x", 1005)
	pieces := SplitRecursive(text, 100)
	require.Len(t, pieces, 11)
	for i, p := range pieces {
		if i < 10 {
			assert.Equal(t, 100, utf8.RuneCountInString(p))
		} else {
			assert.Equal(t, 5, utf8.RuneCountInString(p))
		}
	}
	assert.Equal(t, text, strings.Join(pieces, ""))
}

func TestSplitRecursiveGreedyReassembly(t *testing.T) {
	// Paragraphs of 30 runes reassemble in pairs under a 70-rune budget
	// rather than one chunk per paragraph.
	para := strings.Repeat("p", 30)
	text := strings.Join([]string{para, para, para, para}, "\n\n")
	pieces := SplitRecursive(text, 70)
	require.Len(t, pieces, 2)
	assert.Equal(t, para+"\n\n"+para, pieces[0])
	assert.Equal(t, para+"\n\n"+para, pieces[1])
}

func TestSplitRecursiveOversizedParagraphRecurses(t *testing.T) {
	big := strings.Repeat("Sentence in a huge paragraph. ", 20) // ~600 runes
	text := "small\n\n" + big
	pieces := SplitRecursive(text, 100)
	require.NotEmpty(t, pieces)
	for _, p := range pieces {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), 100)
	}
}
