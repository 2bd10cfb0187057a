package batch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunk_GroupsByLineCount(t *testing.T) {
	text := "a\nb\nc\nd\ne"
	chunks := Chunk(text, 2)
	assert.Equal(t, []string{"a\nb", "c\nd", "e"}, chunks)
}

func TestChunk_SingleChunkWhenLinesPerChunkExceedsLength(t *testing.T) {
	text := "a\nb\nc"
	chunks := Chunk(text, 10)
	assert.Equal(t, []string{"a\nb\nc"}, chunks)
}

func TestChunk_ZeroOrNegativeTreatedAsOne(t *testing.T) {
	text := "a\nb"
	assert.Equal(t, Chunk(text, 1), Chunk(text, 0))
	assert.Equal(t, Chunk(text, 1), Chunk(text, -5))
}

func TestChunk_JoinReproducesOriginal(t *testing.T) {
	text := "one\ntwo\nthree\nfour\nfive\nsix\nseven"
	chunks := Chunk(text, 3)
	assert.Equal(t, text, strings.Join(chunks, "\n"))
}
