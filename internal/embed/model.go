// Package embed turns free-form text into fixed-size embedding vectors
// by orchestrating a llama.cpp-style inference engine: tokenize, run one
// forward pass in a bounded context, read back the pooled vector and
// normalize it. Every call is stateless from the caller's point of view
// even though the engine caches attention state internally.
package embed

import (
	"fmt"
	"sync"

	"github.com/samcharles93/stratum/internal/engine"
)

// ModelOptions are the caller-facing load options. They layer over the
// engine's conservative fixed defaults (vocabulary-only mode off, tensor
// validation off).
type ModelOptions struct {
	GPULayers int
	UseMMap   bool
	UseMLock  bool
}

// Model owns a loaded engine model handle. It is safe to share across
// contexts: weights are immutable after load.
type Model struct {
	mu sync.Mutex
	h  engine.Model
}

// LoadModel loads the weights at path through eng.
func LoadModel(eng engine.Engine, path string, opts ModelOptions) (*Model, error) {
	if eng == nil {
		return nil, ErrNilArgument
	}
	if path == "" {
		return nil, fmt.Errorf("embed: model path is required")
	}

	h, err := eng.LoadModel(path, engine.ModelParams{
		GPULayers: int32(opts.GPULayers),
		UseMMap:   opts.UseMMap,
		UseMLock:  opts.UseMLock,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: load model %s: %w", path, err)
	}

	return &Model{h: h}, nil
}

// Dimension reports the model's embedding dimension, or 0 after Close.
func (m *Model) Dimension() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.h == nil {
		return 0
	}
	return m.h.EmbeddingDim()
}

// Close releases the model handle. Safe on nil and idempotent. All
// contexts derived from the model must be closed first.
func (m *Model) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.h == nil {
		return nil
	}
	err := m.h.Close()
	m.h = nil
	return err
}

// ContextOptions bound a new inference context.
type ContextOptions struct {
	// MaxTokens is the context window. Zero picks a default suited to
	// embedding workloads.
	MaxTokens  uint32
	BatchSize  uint32
	MicroBatch uint32

	Threads      int
	ThreadsBatch int

	// Pooling and Attention pass through to the engine only when set to
	// something other than unspecified; otherwise the engine keeps the
	// default appropriate for the loaded model.
	Pooling   engine.Pooling
	Attention engine.Attention
}

const defaultContextTokens = 2048

func (o ContextOptions) withDefaults() ContextOptions {
	out := o
	if out.MaxTokens == 0 {
		out.MaxTokens = defaultContextTokens
	}
	if out.BatchSize == 0 {
		out.BatchSize = out.MaxTokens
	}
	if out.MicroBatch == 0 {
		out.MicroBatch = out.BatchSize
	}
	if out.ThreadsBatch <= 0 {
		out.ThreadsBatch = out.Threads
	}
	return out
}

// Context owns a bounded inference workspace over a shared Model. A
// Context runs at most one extraction at a time; use a Pool (or several
// contexts) for parallelism.
type Context struct {
	mu    sync.Mutex
	model *Model
	h     engine.Context

	// textBudget is the largest input, in bytes, a single forward pass
	// is expected to fit after tokenization. Derived from MicroBatch.
	textBudget int
}

// NewContext creates an inference context with embeddings enabled.
func (m *Model) NewContext(opts ContextOptions) (*Context, error) {
	if m == nil {
		return nil, ErrNilArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.h == nil {
		return nil, ErrClosed
	}

	opts = opts.withDefaults()
	h, err := m.h.NewContext(engine.ContextParams{
		MaxTokens:    opts.MaxTokens,
		BatchSize:    opts.BatchSize,
		MicroBatch:   opts.MicroBatch,
		Threads:      int32(opts.Threads),
		ThreadsBatch: int32(opts.ThreadsBatch),
		Pooling:      opts.Pooling,
		Attention:    opts.Attention,
		Embeddings:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: init context: %w", err)
	}

	return &Context{
		model:      m,
		h:          h,
		textBudget: textBudgetFor(opts.MicroBatch),
	}, nil
}

// textBudgetFor converts a micro-batch token capacity into a byte budget
// for raw input text. Tokenizers can emit close to one token per byte on
// code and punctuation, so keep ~30% headroom and assume 1.5 bytes per
// token beyond that.
func textBudgetFor(microBatch uint32) int {
	tokens := int(microBatch) - int(microBatch)*30/100
	if tokens <= 0 {
		tokens = 1
	}
	return tokens * 3 / 2
}

// TextBudget reports the byte length above which a single input should
// be chunked before extraction.
func (c *Context) TextBudget() int {
	if c == nil {
		return 0
	}
	return c.textBudget
}

// Close releases the context handle. Safe on nil and idempotent. The
// parent model stays usable.
func (c *Context) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.h == nil {
		return nil
	}
	err := c.h.Close()
	c.h = nil
	return err
}
