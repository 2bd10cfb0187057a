package batch

import "strings"

// Chunk splits text into groups of exactly linesPerChunk lines (the last
// group may be shorter). Content-preserving: Join(Chunk(text, n), "\n")
// equals text up to trailing-newline normalization, independent of
// encoding since splitting on the LF byte never cuts through a
// multi-byte UTF-8 sequence.
func Chunk(text string, linesPerChunk int) []string {
	if linesPerChunk < 1 {
		linesPerChunk = 1
	}
	lines := strings.Split(text, "\n")

	var chunks []string
	for i := 0; i < len(lines); i += linesPerChunk {
		end := i + linesPerChunk
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, strings.Join(lines[i:end], "\n"))
	}
	return chunks
}
