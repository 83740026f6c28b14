package embed

import "errors"

// Every failure below is terminal for the current call and leaves the
// model and context reusable; a caller may retry the whole extraction.
// Engine forward-pass failures are not listed here: they surface as
// *engine.ForwardError with the engine's own code kept verbatim.
var (
	// ErrNilArgument reports a nil model, context or engine reference.
	ErrNilArgument = errors.New("embed: nil argument")

	// ErrOutputBufferTooSmall reports an output buffer shorter than the
	// model's embedding dimension. Raised before any engine work.
	ErrOutputBufferTooSmall = errors.New("embed: output buffer smaller than embedding dimension")

	// ErrVocabularyUnavailable reports a model handle with no
	// vocabulary. A successfully loaded model always has one, so this
	// signals a corrupt or incompatible handle.
	ErrVocabularyUnavailable = errors.New("embed: model vocabulary unavailable")

	// ErrTokenBufferAlloc reports that a usable token buffer could not
	// be sized, e.g. the engine's required-capacity hint was invalid.
	ErrTokenBufferAlloc = errors.New("embed: token buffer allocation failed")

	// ErrTokenization reports that tokenization produced no tokens or
	// failed after the single permitted buffer regrow.
	ErrTokenization = errors.New("embed: tokenization failed or produced no tokens")

	// ErrEmbeddingsUnavailable reports that the context exposed neither
	// a pooled nor a raw embedding. The context was likely created
	// without embeddings enabled.
	ErrEmbeddingsUnavailable = errors.New("embed: context has no embedding output")

	// ErrClosed reports use of a closed model, context or pool.
	ErrClosed = errors.New("embed: closed")
)
