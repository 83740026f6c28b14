package embed

import (
	"context"
	"unicode"

	"github.com/samcharles93/stratum/internal/norm"
)

const (
	// DefaultChunkOverlap is the byte overlap between consecutive
	// chunks, so sentence fragments at a boundary appear in both.
	DefaultChunkOverlap = 200
)

// ChunkText splits text into pieces of at most maxSize bytes, preferring
// sentence boundaries and falling back to word boundaries. Consecutive
// chunks overlap by overlap bytes. A text within maxSize comes back
// whole.
func ChunkText(text string, maxSize, overlap int) []string {
	if maxSize <= 0 {
		return []string{text}
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = maxSize / 4
	}
	if len(text) <= maxSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + maxSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}

		if brk := sentenceBreak(text, start, end); brk > start {
			end = brk
		} else if brk := wordBreak(text, start, end); brk > start {
			end = brk
		}
		chunks = append(chunks, text[start:end])

		next := end - overlap
		if next <= start {
			// Overlap would stall the scan; advance without it.
			next = end
		}
		start = next
	}
	return chunks
}

// sentenceBreak finds the last sentence terminator in text[start:end]
// followed by whitespace, returning the index just past it, or start when
// there is none.
func sentenceBreak(text string, start, end int) int {
	for i := end - 1; i > start; i-- {
		switch text[i] {
		case '.', '!', '?', '\n':
			if i+1 >= len(text) || text[i+1] == ' ' || text[i+1] == '\n' || text[i] == '\n' {
				return i + 1
			}
		}
	}
	return start
}

// wordBreak finds the last whitespace in text[start:end], returning the
// index just past it, or start when there is none.
func wordBreak(text string, start, end int) int {
	for i := end - 1; i > start; i-- {
		if unicode.IsSpace(rune(text[i])) {
			return i + 1
		}
	}
	return start
}

// ExtractText embeds text of any length. Inputs within the context's
// text budget go through a single extraction; longer inputs are chunked
// on sentence boundaries, each chunk embedded separately, and the chunk
// vectors mean-pooled. Under L2 mode the pooled vector is re-normalized
// so the output is always unit length.
func (c *Context) ExtractText(ctx context.Context, text string, opts Options) ([]float32, error) {
	if c == nil || c.model == nil {
		return nil, ErrNilArgument
	}
	if c.textBudget <= 0 || len(text) <= c.textBudget {
		return c.Extract(ctx, text, opts)
	}

	chunks := ChunkText(text, c.textBudget, DefaultChunkOverlap)

	dim := c.model.Dimension()
	if dim <= 0 {
		return nil, ErrOutputBufferTooSmall
	}

	acc := make([]float64, dim)
	buf := make([]float32, dim)
	for _, chunk := range chunks {
		if err := c.ExtractInto(ctx, buf, chunk, opts); err != nil {
			return nil, err
		}
		for i, v := range buf {
			acc[i] += float64(v)
		}
	}

	out := make([]float32, dim)
	n := float64(len(chunks))
	for i, v := range acc {
		out[i] = float32(v / n)
	}
	if opts.Normalize == norm.L2 {
		norm.Normalize(norm.L2, out, out)
	}
	return out, nil
}
