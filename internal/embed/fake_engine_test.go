package embed

import (
	"fmt"

	"github.com/samcharles93/stratum/internal/engine"
)

// fakeEngine is a deterministic in-memory engine. Its contexts keep real
// attention-style residue: tokens from every Forward accumulate in
// memory until ClearMemory, and the reported embedding is derived from
// everything in memory. Missing a reset therefore changes the output,
// which is exactly what the extractor tests need to observe.
type fakeEngine struct {
	dim      int
	loadErr  error
	loaded   []*fakeModel
	lastPath string
}

func (e *fakeEngine) LoadModel(path string, params engine.ModelParams) (engine.Model, error) {
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	e.lastPath = path
	m := &fakeModel{eng: e, dim: e.dim, vocab: &fakeVocab{}}
	e.loaded = append(e.loaded, m)
	return m, nil
}

type fakeModel struct {
	eng    *fakeEngine
	dim    int
	vocab  engine.Vocab
	closed int
}

func (m *fakeModel) EmbeddingDim() int { return m.dim }

func (m *fakeModel) Vocab() engine.Vocab { return m.vocab }

func (m *fakeModel) NewContext(params engine.ContextParams) (engine.Context, error) {
	return &fakeContext{model: m, params: params}, nil
}

func (m *fakeModel) Close() error {
	m.closed++
	return nil
}

// fakeVocab tokenizes one token per byte. When firstCallShort is set the
// first call reports overflow with the exact required capacity, like a
// real tokenizer handed a too-small buffer.
type fakeVocab struct {
	calls          int
	lastCap        int
	firstCallShort bool
	alwaysShort    bool
	required       int
	emptyResult    bool
}

func (v *fakeVocab) Tokenize(text string, buf []engine.Token, addSpecial, parseSpecial bool) (int, error) {
	v.calls++
	v.lastCap = len(buf)

	if v.alwaysShort || (v.firstCallShort && v.calls == 1) {
		req := v.required
		if req == 0 {
			req = len(text)
		}
		return 0, &engine.TokenOverflowError{Required: req}
	}
	if v.emptyResult {
		return 0, nil
	}

	n := len(text)
	if addSpecial {
		n++
	}
	if n > len(buf) {
		return 0, &engine.TokenOverflowError{Required: n}
	}
	for i := 0; i < len(text); i++ {
		buf[i] = engine.Token(text[i])
	}
	if addSpecial {
		buf[len(text)] = 1 // BOS-style marker
	}
	return n, nil
}

type fakeContext struct {
	model  *fakeModel
	params engine.ContextParams

	memory []engine.Token

	threads      int32
	threadsBatch int32

	clearCalls   int
	forwardCalls int
	closed       int

	forwardErr   error
	seqNil       bool
	rawNil       bool
	fixedEmbed   []float32
	threadsCalls int
}

func (c *fakeContext) ClearMemory(wipeData bool) {
	c.clearCalls++
	if wipeData {
		c.memory = c.memory[:0]
	}
}

func (c *fakeContext) SetThreads(threads, threadsBatch int32) {
	c.threadsCalls++
	c.threads = threads
	c.threadsBatch = threadsBatch
}

func (c *fakeContext) Forward(batch engine.Batch) error {
	c.forwardCalls++
	if c.forwardErr != nil {
		return c.forwardErr
	}
	c.memory = append(c.memory, batch.Tokens...)
	return nil
}

// SeqEmbedding mixes every token in memory into each component, so any
// cross-call residue shows up in the vector.
func (c *fakeContext) SeqEmbedding(seq int32) []float32 {
	if c.seqNil {
		return nil
	}
	return c.embedding()
}

func (c *fakeContext) RawEmbedding() []float32 {
	if c.rawNil {
		return nil
	}
	return c.embedding()
}

func (c *fakeContext) embedding() []float32 {
	if c.fixedEmbed != nil {
		return c.fixedEmbed
	}
	out := make([]float32, c.model.dim)
	for i := range out {
		var acc float32
		for pos, tok := range c.memory {
			acc += float32(tok) * float32(pos+i+1)
		}
		out[i] = acc
	}
	return out
}

func (c *fakeContext) Close() error {
	c.closed++
	return nil
}

// newFakeContext wires a ready Model/Context pair over a fake engine.
func newFakeContext(dim int) (*Model, *Context, *fakeContext, error) {
	eng := &fakeEngine{dim: dim}
	m, err := LoadModel(eng, "test.gguf", ModelOptions{})
	if err != nil {
		return nil, nil, nil, err
	}
	c, err := m.NewContext(ContextOptions{})
	if err != nil {
		return nil, nil, nil, err
	}
	fc, ok := c.h.(*fakeContext)
	if !ok {
		return nil, nil, nil, fmt.Errorf("unexpected context type %T", c.h)
	}
	return m, c, fc, nil
}
