package embed

import (
	"context"
	"fmt"

	"github.com/samcharles93/stratum/internal/engine"
	"github.com/samcharles93/stratum/internal/norm"
)

// Options control a single extraction call. The zero value tokenizes
// without special tokens, leaves the context's thread configuration
// untouched and returns the raw (unnormalized) vector.
type Options struct {
	// AddSpecial and ParseSpecial pass through to the tokenizer.
	AddSpecial   bool
	ParseSpecial bool

	// Threads and ThreadsBatch, when positive, reconfigure the context
	// for this call. Zero or negative leaves the engine default alone.
	Threads      int
	ThreadsBatch int

	// Normalize selects the output transform. Only norm.None and
	// norm.L2 are defined; anything else is rejected before the engine
	// is touched.
	Normalize norm.Mode
}

// ExtractInto extracts the embedding for text into out, which must hold
// at least the model's embedding dimension. On any error out is left
// untouched.
//
// Each call clears the context's attention memory before running, so the
// result depends only on text, never on prior calls sharing the context.
// The call is atomic: ctx cancellation is honored before engine work
// starts, not during it.
func (c *Context) ExtractInto(ctx context.Context, out []float32, text string, opts Options) error {
	if c == nil || c.model == nil {
		return ErrNilArgument
	}
	if !opts.Normalize.Valid() {
		return fmt.Errorf("embed: unsupported normalization mode %d", opts.Normalize)
	}

	dim := c.model.Dimension()
	if dim <= 0 || len(out) < dim {
		return ErrOutputBufferTooSmall
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.h == nil {
		return ErrClosed
	}

	// Reset isolation: wipe attention state left by any prior call on
	// this context before anything else happens.
	c.h.ClearMemory(true)

	if opts.Threads > 0 || opts.ThreadsBatch > 0 {
		c.h.SetThreads(int32(opts.Threads), int32(opts.ThreadsBatch))
	}

	vocab := c.model.vocab()
	if vocab == nil {
		return ErrVocabularyUnavailable
	}

	tokens, err := tokenize(vocab, text, opts.AddSpecial, opts.ParseSpecial)
	if err != nil {
		return err
	}

	// Single-sequence batch; the engine sees the token slice as a view.
	if err := c.h.Forward(engine.Batch{Tokens: tokens}); err != nil {
		return err
	}

	// Prefer the pooled per-sequence vector; fall back to the raw
	// accessor for contexts whose pooling mode is none.
	vec := c.h.SeqEmbedding(0)
	if vec == nil {
		vec = c.h.RawEmbedding()
	}
	if vec == nil || len(vec) < dim {
		return ErrEmbeddingsUnavailable
	}

	norm.Normalize(opts.Normalize, out[:dim], vec[:dim])
	return nil
}

// Extract is ExtractInto with a freshly allocated output vector.
func (c *Context) Extract(ctx context.Context, text string, opts Options) ([]float32, error) {
	if c == nil || c.model == nil {
		return nil, ErrNilArgument
	}
	dim := c.model.Dimension()
	if dim <= 0 {
		return nil, ErrOutputBufferTooSmall
	}
	out := make([]float32, dim)
	if err := c.ExtractInto(ctx, out, text, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// vocab fetches the vocabulary under the model lock.
func (m *Model) vocab() engine.Vocab {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.h == nil {
		return nil
	}
	return m.h.Vocab()
}
