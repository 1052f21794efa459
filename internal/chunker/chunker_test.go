package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	assert.Empty(t, Split("", 100, 20))
	assert.Empty(t, Split("   \n\t  ", 100, 20))
}

func TestSplitShortTextIsIdentity(t *testing.T) {
	text := "A short note that fits in one chunk."
	chunks := Split(text, 100, 20)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[0].Total)

	// Re-chunking an already-produced chunk returns it unchanged.
	again := Split(chunks[0].Text, 100, 20)
	require.Len(t, again, 1)
	assert.Equal(t, chunks[0].Text, again[0].Text)
}

func TestSplitBoundsAndIndices(t *testing.T) {
	texts := []string{
		strings.Repeat("a", 9000),
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 300),
		strings.Repeat("line one\nline two\n\nparagraph break\n", 400),
	}
	for _, text := range texts {
		chunks := Split(text, 500, 100)
		require.NotEmpty(t, chunks)
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
			assert.Equal(t, len(chunks), c.Total)
			assert.Greater(t, len([]rune(c.Text)), 0)
			assert.LessOrEqual(t, len([]rune(c.Text)), 500)
			assert.Equal(t, len([]rune(c.Text)), c.Size)
		}
	}
}

func TestSplitPrefersParagraphBreak(t *testing.T) {
	first := strings.Repeat("x", 80)
	second := strings.Repeat("y", 200)
	text := first + "\n\n" + second

	chunks := Split(text, 100, 0)
	require.GreaterOrEqual(t, len(chunks), 2)
	// The break sits at position 80, past the half-window mark of 50, so the
	// first chunk ends exactly at the paragraph break.
	assert.Equal(t, first, chunks[0].Text)
}

func TestSplitPrefersSentenceEnd(t *testing.T) {
	text := "First sentence keeps the window busy for a while here. Second sentence continues with more words than fit."
	chunks := Split(text, 80, 0)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, "First sentence keeps the window busy for a while here.", chunks[0].Text)
}

func TestSplitRejectsDistantBoundary(t *testing.T) {
	// The only space is at position 10, inside the first half of a 100-rune
	// window, so the raw cut is used instead of a degenerate tiny chunk.
	text := strings.Repeat("a", 10) + " " + strings.Repeat("b", 200)
	chunks := Split(text, 100, 0)
	require.NotEmpty(t, chunks)
	assert.Equal(t, 100, len([]rune(chunks[0].Text)))
}

func TestSplitForwardProgressWithLargeOverlap(t *testing.T) {
	text := strings.Repeat("word and more text with spaces everywhere ", 200)
	chunks := Split(text, 100, 90)
	require.NotEmpty(t, chunks)
	assert.Less(t, len(chunks), len([]rune(text))) // terminates, no per-rune crawl blowup
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), 100)
	}
}

func TestSplitReconstructionNoOverlap(t *testing.T) {
	// No whitespace or punctuation means raw cuts only, and trimming is a
	// no-op, so concatenation reproduces the input exactly.
	text := strings.Repeat("abcdefghij", 137)
	chunks := Split(text, 100, 0)
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.Text)
	}
	assert.Equal(t, text, sb.String())
}

func TestSplitReconstructionWithOverlap(t *testing.T) {
	text := strings.Repeat("0123456789", 120)
	overlap := 25
	chunks := Split(text, 100, overlap)
	var sb strings.Builder
	for i, c := range chunks {
		runes := []rune(c.Text)
		if i == 0 {
			sb.WriteString(c.Text)
			continue
		}
		require.Greater(t, len(runes), overlap)
		sb.WriteString(string(runes[overlap:]))
	}
	assert.Equal(t, text, sb.String())
}

func TestSplitDropsEmptyChunksWithoutIndexGaps(t *testing.T) {
	// Whitespace-only windows are dropped; survivors stay contiguous from 0.
	text := strings.Repeat("a", 50) + strings.Repeat(" ", 120) + strings.Repeat("b", 50)
	chunks := Split(text, 60, 0)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, len(chunks), c.Total)
		assert.NotEmpty(t, strings.TrimSpace(c.Text))
	}
}
