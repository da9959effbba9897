package ingestion

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/vaultimport/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinChunks(chunks []core.Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n")
}

func TestSplit_Empty(t *testing.T) {
	assert.Nil(t, Split("", 100))
}

func TestSplit_SmallInputIsOneChunk(t *testing.T) {
	text := "gmail,alice,pw1\nyahoo,bob,pw2"
	chunks := Split(text, 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, utf8.RuneCountInString(text), chunks[0].Size)
}

func TestSplit_Reconstruction(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
	}{
		{"lines", "a\nbb\nccc\ndddd\neeeee", 6},
		{"trailing newline", "one\ntwo\nthree\n", 5},
		{"blank lines", "\n\nx\n\n\ny\n", 3},
		{"long line", "short\n" + strings.Repeat("z", 50) + "\nshort", 10},
		{"multibyte", "héllo wörld\nünïcode ✓\nmore", 12},
		{"exact fit", "abc\ndef", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text, tt.max)
			require.NotEmpty(t, chunks)
			assert.Equal(t, tt.text, joinChunks(chunks))
		})
	}
}

func TestSplit_Bounds(t *testing.T) {
	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, strings.Repeat("x", i%37))
	}
	text := strings.Join(lines, "\n")

	chunks := Split(text, 64)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, utf8.RuneCountInString(c.Text), c.Size)
		assert.LessOrEqual(t, c.Size, 64, "chunk %d exceeds bound", i)
	}
	assert.Equal(t, text, joinChunks(chunks))
}

func TestSplit_OversizedLineKeptWhole(t *testing.T) {
	long := strings.Repeat("p", 25)
	chunks := Split("a\n"+long+"\nb", 10)
	require.Len(t, chunks, 3)
	assert.Equal(t, "a", chunks[0].Text)
	assert.Equal(t, long, chunks[1].Text)
	assert.Equal(t, "b", chunks[2].Text)
}

func TestSplit_Idempotent(t *testing.T) {
	text := "alpha\nbeta\ngamma\ndelta\nepsilon\nzeta"
	first := Split(text, 12)
	second := Split(joinChunks(first), 12)
	assert.Equal(t, first, second)

	// Re-splitting any chunk under the same bound yields that chunk alone
	for _, c := range first {
		again := Split(c.Text, 12)
		require.Len(t, again, 1)
		assert.Equal(t, c.Text, again[0].Text)
	}
}

func TestSplit_DefaultLimit(t *testing.T) {
	text := strings.Repeat("line of text\n", 1000)
	chunks := Split(text, 0)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.Size, DefaultMaxChunkChars)
	}
	assert.Equal(t, text, joinChunks(chunks))
}
