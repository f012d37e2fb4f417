// Package chunk splits extracted document text into overlapping passages
// sized for embedding and generation context limits.
package chunk

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Sentinel errors for chunker configuration.
var (
	// ErrInvalidConfig indicates invalid chunker configuration.
	ErrInvalidConfig = errors.New("invalid chunker configuration")
)

// Chunk is a contiguous span of a document's text. Text is always an exact
// substring of the input, which is what makes lossless reconstruction
// possible: the first Overlap runes of each chunk repeat the tail of the
// previous chunk.
type Chunk struct {
	// Text is the chunk content, an exact substring of the source text.
	Text string

	// Index is the zero-based ordinal position within the document.
	Index int

	// Overlap is the number of runes at the start of Text that are shared
	// with the previous chunk. Always 0 for the first chunk.
	Overlap int
}

// Chunker splits text into rune-bounded chunks with a fixed overlap,
// preferring paragraph, sentence, and word boundaries over hard cuts.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker producing chunks of at most size runes with
// overlap runes shared between consecutive chunks.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap cannot be negative, got %d", ErrInvalidConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than size %d", ErrInvalidConfig, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split splits text into chunks. Text with no non-whitespace content yields
// zero chunks; callers report that as a "no content" outcome, not an error.
func (c *Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []Chunk

	pos := 0
	overlap := 0
	for idx := 0; pos < len(runes); idx++ {
		end := pos + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.cutPoint(runes, pos, end)
		}

		chunks = append(chunks, Chunk{
			Text:    string(runes[pos:end]),
			Index:   idx,
			Overlap: overlap,
		})

		if end == len(runes) {
			break
		}

		next := end - c.overlap
		if next <= pos {
			// Overlap would stall the scan; guarantee forward progress.
			next = pos + 1
		}
		overlap = end - next
		pos = next
	}

	return chunks
}

// cutPoint finds the best split position in (pos, limit], preferring a
// paragraph break, then a sentence end, then a word boundary. Boundaries in
// the first half of the window are ignored so chunks stay reasonably full;
// with no usable boundary the cut is a hard one at limit.
func (c *Chunker) cutPoint(runes []rune, pos, limit int) int {
	min := pos + c.size/2

	if p := lastBoundary(runes, min, limit, isParagraphBreak); p > 0 {
		return p
	}
	if p := lastBoundary(runes, min, limit, isSentenceEnd); p > 0 {
		return p
	}
	if p := lastBoundary(runes, min, limit, isWordBreak); p > 0 {
		return p
	}
	return limit
}

// lastBoundary scans backwards from limit and returns the first position i
// in (min, limit] for which match reports a boundary just before i.
// Returns 0 when no boundary is found.
func lastBoundary(runes []rune, min, limit int, match func([]rune, int) bool) int {
	for i := limit; i > min; i-- {
		if match(runes, i) {
			return i
		}
	}
	return 0
}

// isParagraphBreak reports whether position i sits right after a blank line.
func isParagraphBreak(runes []rune, i int) bool {
	return i >= 2 && runes[i-1] == '\n' && runes[i-2] == '\n'
}

// isSentenceEnd reports whether position i sits right after sentence
// punctuation followed by whitespace.
func isSentenceEnd(runes []rune, i int) bool {
	if i < 2 || !unicode.IsSpace(runes[i-1]) {
		return false
	}
	switch runes[i-2] {
	case '.', '!', '?':
		return true
	}
	return false
}

// isWordBreak reports whether position i sits right after whitespace.
func isWordBreak(runes []rune, i int) bool {
	return i >= 1 && unicode.IsSpace(runes[i-1])
}

// Reconstruct concatenates chunks with their overlap prefixes removed,
// recovering the original text exactly.
func Reconstruct(chunks []Chunk) string {
	var b strings.Builder
	for _, ch := range chunks {
		runes := []rune(ch.Text)
		if ch.Overlap > len(runes) {
			continue
		}
		b.WriteString(string(runes[ch.Overlap:]))
	}
	return b.String()
}
