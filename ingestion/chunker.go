package ingestion

import (
	"strings"
	"unicode/utf8"

	"github.com/poiesic/vaultimport/core"
)

// DefaultMaxChunkChars bounds chunk size when no limit is configured.
const DefaultMaxChunkChars = 6000

// Split breaks text into chunks of at most maxChunkChars characters along
// line boundaries. Joining the chunk texts with "\n" reproduces text exactly.
// A single line longer than the limit is kept whole in its own chunk.
// Empty text yields no chunks; maxChunkChars <= 0 uses DefaultMaxChunkChars.
func Split(text string, maxChunkChars int) []core.Chunk {
	if text == "" {
		return nil
	}
	if maxChunkChars <= 0 {
		maxChunkChars = DefaultMaxChunkChars
	}

	var chunks []core.Chunk
	var current []string
	currentLen := 0

	flush := func() {
		chunks = append(chunks, core.Chunk{
			Index: len(chunks),
			Text:  strings.Join(current, "\n"),
			Size:  currentLen,
		})
		current = current[:0]
		currentLen = 0
	}

	for _, line := range strings.Split(text, "\n") {
		lineLen := utf8.RuneCountInString(line)
		if len(current) > 0 && currentLen+lineLen+1 > maxChunkChars {
			flush()
		}
		if len(current) > 0 {
			currentLen++ // newline separator
		}
		current = append(current, line)
		currentLen += lineLen
	}
	flush()

	return chunks
}
