// Package llamacpp implements the engine contract against a llama.cpp
// shim shared library, bound at runtime with purego. The shim flattens
// llama.cpp's by-value parameter structs into scalar arguments; its C
// source ships under shim/ and is built alongside llama.cpp for release
// artifacts, never by the Go toolchain.
package llamacpp

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/samcharles93/stratum/internal/engine"
)

type api struct {
	backendInit func()
	backendFree func()

	modelLoad  func(path string, gpuLayers int32, useMMap bool, useMLock bool) unsafe.Pointer
	modelFree  func(model unsafe.Pointer)
	modelNEmbd func(model unsafe.Pointer) int32
	modelVocab func(model unsafe.Pointer) unsafe.Pointer

	ctxInit func(model unsafe.Pointer, nCtx, nBatch, nUBatch uint32, threads, threadsBatch, pooling, attention int32, embeddings bool) unsafe.Pointer
	ctxFree func(ctx unsafe.Pointer)

	tokenize func(vocab unsafe.Pointer, text string, textLen int32, buf []engine.Token, bufCap int32, addSpecial, parseSpecial bool) int32

	memoryClear func(ctx unsafe.Pointer, wipeData bool)
	setThreads  func(ctx unsafe.Pointer, threads, threadsBatch int32)
	decode      func(ctx unsafe.Pointer, tokens []engine.Token, count int32) int32

	embeddingsSeq func(ctx unsafe.Pointer, seq int32) unsafe.Pointer
	embeddings    func(ctx unsafe.Pointer) unsafe.Pointer
}

var (
	loadOnce sync.Once
	loaded   *Engine
	loadErr  error

	shutdownOnce sync.Once
)

// Load initializes the llama.cpp backend exactly once per process and
// returns the engine. libDir optionally names the directory holding the
// shared libraries; see libs.go for the search order. Subsequent calls
// return the first result regardless of libDir.
func Load(libDir string) (*Engine, error) {
	loadOnce.Do(func() {
		handle, err := openLibraries(libDir)
		if err != nil {
			loadErr = err
			return
		}

		var a api
		purego.RegisterLibFunc(&a.backendInit, handle, "st_llama_backend_init")
		purego.RegisterLibFunc(&a.backendFree, handle, "st_llama_backend_free")
		purego.RegisterLibFunc(&a.modelLoad, handle, "st_llama_model_load")
		purego.RegisterLibFunc(&a.modelFree, handle, "st_llama_model_free")
		purego.RegisterLibFunc(&a.modelNEmbd, handle, "st_llama_model_n_embd")
		purego.RegisterLibFunc(&a.modelVocab, handle, "st_llama_model_vocab")
		purego.RegisterLibFunc(&a.ctxInit, handle, "st_llama_context_init")
		purego.RegisterLibFunc(&a.ctxFree, handle, "st_llama_context_free")
		purego.RegisterLibFunc(&a.tokenize, handle, "st_llama_tokenize")
		purego.RegisterLibFunc(&a.memoryClear, handle, "st_llama_memory_clear")
		purego.RegisterLibFunc(&a.setThreads, handle, "st_llama_set_threads")
		purego.RegisterLibFunc(&a.decode, handle, "st_llama_decode")
		purego.RegisterLibFunc(&a.embeddingsSeq, handle, "st_llama_embeddings_seq")
		purego.RegisterLibFunc(&a.embeddings, handle, "st_llama_embeddings")

		// Process-wide backend startup; paired with Shutdown.
		a.backendInit()
		loaded = &Engine{a: &a}
	})
	return loaded, loadErr
}

// Shutdown tears the backend down. Call at most once, after every model
// and context is closed; no engine call may follow it.
func Shutdown() {
	shutdownOnce.Do(func() {
		if loaded != nil {
			loaded.a.backendFree()
		}
	})
}

// Engine implements engine.Engine over the loaded shim library.
type Engine struct {
	a *api
}

func (e *Engine) LoadModel(path string, params engine.ModelParams) (engine.Model, error) {
	h := e.a.modelLoad(path, params.GPULayers, params.UseMMap, params.UseMLock)
	if h == nil {
		return nil, fmt.Errorf("llamacpp: load model %s failed", path)
	}
	return &model{a: e.a, h: h}, nil
}

type model struct {
	a *api
	h unsafe.Pointer
}

func (m *model) EmbeddingDim() int {
	if m.h == nil {
		return 0
	}
	return int(m.a.modelNEmbd(m.h))
}

func (m *model) Vocab() engine.Vocab {
	if m.h == nil {
		return nil
	}
	v := m.a.modelVocab(m.h)
	if v == nil {
		return nil
	}
	return &vocab{a: m.a, h: v}
}

func (m *model) NewContext(params engine.ContextParams) (engine.Context, error) {
	if m.h == nil {
		return nil, errors.New("llamacpp: model is closed")
	}
	h := m.a.ctxInit(m.h,
		params.MaxTokens, params.BatchSize, params.MicroBatch,
		params.Threads, params.ThreadsBatch,
		poolingValue(params.Pooling), attentionValue(params.Attention),
		params.Embeddings,
	)
	if h == nil {
		return nil, errors.New("llamacpp: context init failed")
	}
	return &context{a: m.a, h: h, dim: m.EmbeddingDim()}, nil
}

func (m *model) Close() error {
	if m.h != nil {
		m.a.modelFree(m.h)
		m.h = nil
	}
	return nil
}

type vocab struct {
	a *api
	h unsafe.Pointer
}

func (v *vocab) Tokenize(text string, buf []engine.Token, addSpecial, parseSpecial bool) (int, error) {
	rc := v.a.tokenize(v.h, text, int32(len(text)), buf, int32(len(buf)), addSpecial, parseSpecial)
	if rc < 0 {
		// llama.cpp reports overflow as the negated required capacity.
		return 0, &engine.TokenOverflowError{Required: int(-rc)}
	}
	return int(rc), nil
}

type context struct {
	a   *api
	h   unsafe.Pointer
	dim int
}

func (c *context) ClearMemory(wipeData bool) {
	c.a.memoryClear(c.h, wipeData)
}

func (c *context) SetThreads(threads, threadsBatch int32) {
	c.a.setThreads(c.h, threads, threadsBatch)
}

func (c *context) Forward(batch engine.Batch) error {
	rc := c.a.decode(c.h, batch.Tokens, int32(len(batch.Tokens)))
	if rc != 0 {
		return &engine.ForwardError{Code: rc}
	}
	return nil
}

func (c *context) SeqEmbedding(seq int32) []float32 {
	return c.vectorAt(c.a.embeddingsSeq(c.h, seq))
}

func (c *context) RawEmbedding() []float32 {
	return c.vectorAt(c.a.embeddings(c.h))
}

// vectorAt views dim floats of engine memory. The view is only valid
// until the next forward pass, which matches the engine contract.
func (c *context) vectorAt(p unsafe.Pointer) []float32 {
	if p == nil || c.dim <= 0 {
		return nil
	}
	return unsafe.Slice((*float32)(p), c.dim)
}

func (c *context) Close() error {
	if c.h != nil {
		c.a.ctxFree(c.h)
		c.h = nil
	}
	return nil
}

// poolingValue maps the option enum onto llama.cpp's numeric values.
// -1 tells the shim to keep the engine default for the model.
func poolingValue(p engine.Pooling) int32 {
	switch p {
	case engine.PoolingNone:
		return 0
	case engine.PoolingMean:
		return 1
	case engine.PoolingCLS:
		return 2
	case engine.PoolingLast:
		return 3
	case engine.PoolingRank:
		return 4
	default:
		return -1
	}
}

func attentionValue(a engine.Attention) int32 {
	switch a {
	case engine.AttentionCausal:
		return 0
	case engine.AttentionNonCausal:
		return 1
	default:
		return -1
	}
}
