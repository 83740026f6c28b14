// Package enginetest provides a deterministic in-memory engine for
// tests. Contexts keep real attention-style residue: tokens accumulate
// across Forward calls until ClearMemory, and the reported embedding is
// a function of everything in memory.
package enginetest

import (
	"sync/atomic"

	"github.com/samcharles93/stratum/internal/engine"
)

// Engine implements engine.Engine with one-token-per-byte tokenization
// and embeddings derived from context memory.
type Engine struct {
	// Dim is the embedding dimension of every model this engine loads.
	Dim int

	// ForwardCalls counts forward passes across all contexts.
	ForwardCalls atomic.Int64
}

func (e *Engine) LoadModel(path string, params engine.ModelParams) (engine.Model, error) {
	return &model{eng: e}, nil
}

type model struct {
	eng *Engine
}

func (m *model) EmbeddingDim() int { return m.eng.Dim }

func (m *model) Vocab() engine.Vocab { return vocab{} }

func (m *model) NewContext(params engine.ContextParams) (engine.Context, error) {
	return &context{eng: m.eng}, nil
}

func (m *model) Close() error { return nil }

type vocab struct{}

func (vocab) Tokenize(text string, buf []engine.Token, addSpecial, parseSpecial bool) (int, error) {
	if len(text) > len(buf) {
		return 0, &engine.TokenOverflowError{Required: len(text)}
	}
	for i := 0; i < len(text); i++ {
		buf[i] = engine.Token(text[i])
	}
	return len(text), nil
}

type context struct {
	eng    *Engine
	memory []engine.Token
}

func (c *context) ClearMemory(wipeData bool) {
	if wipeData {
		c.memory = c.memory[:0]
	}
}

func (c *context) SetThreads(threads, threadsBatch int32) {}

func (c *context) Forward(batch engine.Batch) error {
	c.eng.ForwardCalls.Add(1)
	c.memory = append(c.memory, batch.Tokens...)
	return nil
}

func (c *context) SeqEmbedding(seq int32) []float32 {
	out := make([]float32, c.eng.Dim)
	for i := range out {
		var acc float32
		for pos, tok := range c.memory {
			acc += float32(tok) * float32(pos+i+1)
		}
		out[i] = acc
	}
	return out
}

func (c *context) RawEmbedding() []float32 { return c.SeqEmbedding(0) }

func (c *context) Close() error { return nil }
