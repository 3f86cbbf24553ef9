package corpus

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the chunk budget in runes. It approximates the
// original corpus build's 500-token budget at roughly four runes per token.
const DefaultChunkSize = 2000

// separators, coarsest first. Chunking prefers to cut at paragraph breaks,
// then lines, then sentences, then words.
var separators = []string{"\n\n", "\n", ". ", " "}

// SplitText splits text into chunks of at most limit runes with no overlap.
// Cuts happen at the coarsest boundary that keeps pieces under the limit;
// a single unbreakable run longer than the limit is hard-cut. Separators
// stay attached to the preceding piece, so joining the chunks reproduces
// the input text.
func SplitText(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultChunkSize
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := split(text, limit, 0)

	// Greedily pack adjacent pieces back together, never exceeding limit.
	var chunks []string
	var current strings.Builder
	currentLen := 0
	flush := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		currentLen = 0
	}
	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if currentLen > 0 && currentLen+pieceLen > limit {
			flush()
		}
		current.WriteString(piece)
		currentLen += pieceLen
	}
	flush()
	return chunks
}

// split recursively breaks text at the given separator level until every
// piece fits the limit.
func split(text string, limit, level int) []string {
	if utf8.RuneCountInString(text) <= limit {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	if level >= len(separators) {
		return hardCut(text, limit)
	}

	var pieces []string
	for _, part := range strings.SplitAfter(text, separators[level]) {
		pieces = append(pieces, split(part, limit, level+1)...)
	}
	return pieces
}

// hardCut slices an unbreakable run into limit-sized rune windows.
func hardCut(text string, limit int) []string {
	runes := []rune(text)
	var pieces []string
	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
