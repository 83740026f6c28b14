// Package engine defines the contract between stratum and the inference
// engine that owns the model weights and executes the forward pass.
//
// The engine is an external collaborator: weight-file parsing, device
// selection and the transformer math all live behind these interfaces.
// Stratum only orchestrates calls against them.
package engine

import "fmt"

// Token is a model-internal token identifier.
type Token int32

// Pooling selects how the engine pools per-token embeddings into a single
// vector per sequence. PoolingUnspecified keeps whatever default the
// engine chose for the loaded model.
type Pooling int32

const (
	PoolingUnspecified Pooling = iota
	PoolingNone
	PoolingMean
	PoolingCLS
	PoolingLast
	PoolingRank
)

// Attention selects causal or non-causal attention for the context.
// AttentionUnspecified keeps the engine default for the loaded model.
type Attention int32

const (
	AttentionUnspecified Attention = iota
	AttentionCausal
	AttentionNonCausal
)

// ModelParams are the load-time options stratum passes through to the
// engine. Anything not listed here is the engine's own business.
type ModelParams struct {
	GPULayers int32
	UseMMap   bool
	UseMLock  bool
}

// ContextParams bound the inference workspace created from a model.
type ContextParams struct {
	// MaxTokens is the context window in tokens.
	MaxTokens uint32
	// BatchSize and MicroBatch bound a single forward pass. MicroBatch
	// must be at least the token count of any one submitted sequence.
	BatchSize  uint32
	MicroBatch uint32

	Threads      int32
	ThreadsBatch int32

	Pooling   Pooling
	Attention Attention

	// Embeddings enables per-sequence embedding output on the context.
	Embeddings bool
}

// Batch is a non-owning view over a single sequence of tokens submitted
// to one forward pass. The engine must not retain the slice.
type Batch struct {
	Tokens []Token
}

// TokenOverflowError reports that a Tokenize buffer was too small.
// Required is the exact capacity the call needs to succeed.
type TokenOverflowError struct {
	Required int
}

func (e *TokenOverflowError) Error() string {
	return fmt.Sprintf("engine: token buffer too small, need %d", e.Required)
}

// ForwardError carries the engine's own forward-pass failure code
// verbatim. Stratum never re-interprets the code.
type ForwardError struct {
	Code int32
}

func (e *ForwardError) Error() string {
	return fmt.Sprintf("engine: forward pass failed (code=%d)", e.Code)
}

// Engine loads models. Implementations decide how weights reach memory.
type Engine interface {
	LoadModel(path string, params ModelParams) (Model, error)
}

// Model is an opaque handle to loaded weights. Weights are immutable
// after load, so a Model may be shared read-only across contexts. Close
// must be idempotent and must only run after every derived Context is
// closed.
type Model interface {
	// EmbeddingDim reports the model's embedding dimension.
	EmbeddingDim() int

	// Vocab returns the model's vocabulary, or nil when the handle is
	// corrupt or incompatible.
	Vocab() Vocab

	// NewContext creates a bounded inference workspace over the model.
	NewContext(params ContextParams) (Context, error)

	Close() error
}

// Vocab tokenizes text against the model's vocabulary.
type Vocab interface {
	// Tokenize writes the token sequence for text into buf and returns
	// the token count. When buf is too small it returns a
	// *TokenOverflowError carrying the exact required capacity.
	Tokenize(text string, buf []Token, addSpecial, parseSpecial bool) (int, error)
}

// Context is an opaque inference workspace. It holds mutable attention
// state that persists across Forward calls until ClearMemory runs, so a
// single Context must never execute concurrent forward passes.
type Context interface {
	// ClearMemory wipes the context's internal attention state.
	ClearMemory(wipeData bool)

	// SetThreads reconfigures the context's thread counts for subsequent
	// forward passes.
	SetThreads(threads, threadsBatch int32)

	// Forward runs one forward pass over the batch. Failures surface as
	// *ForwardError with the engine's numeric code.
	Forward(batch Batch) error

	// SeqEmbedding returns the pooled embedding for the given sequence
	// id, or nil when unavailable. The returned slice is a view into
	// engine memory valid until the next Forward or Close.
	SeqEmbedding(seq int32) []float32

	// RawEmbedding returns the unpooled embedding output, or nil when
	// unavailable.
	RawEmbedding() []float32

	Close() error
}
