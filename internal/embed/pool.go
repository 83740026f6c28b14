package embed

import (
	"context"
	"errors"
	"sync"
)

// Pool holds a fixed set of contexts over one shared model. A context
// runs one extraction at a time, so pool size bounds extraction
// parallelism. Contexts are cheap next to the model they share.
type Pool struct {
	model *Model
	free  chan *Context

	closeOnce sync.Once
	closed    chan struct{}
}

// NewPool creates size contexts over m. On any failure the contexts
// created so far are closed.
func NewPool(m *Model, size int, opts ContextOptions) (*Pool, error) {
	if m == nil {
		return nil, ErrNilArgument
	}
	if size <= 0 {
		size = 1
	}

	p := &Pool{
		model:  m,
		free:   make(chan *Context, size),
		closed: make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		c, err := m.NewContext(opts)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.free <- c
	}
	return p, nil
}

// Acquire takes a context from the pool, blocking until one is free or
// ctx is done. The caller must hand it back with Release.
func (p *Pool) Acquire(ctx context.Context) (*Context, error) {
	select {
	case c := <-p.free:
		return c, nil
	case <-p.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a context obtained from Acquire.
func (p *Pool) Release(c *Context) {
	if c == nil {
		return
	}
	select {
	case <-p.closed:
		_ = c.Close()
	default:
		p.free <- c
	}
}

// Do runs fn with a pooled context.
func (p *Pool) Do(ctx context.Context, fn func(*Context) error) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(c)
	return fn(c)
}

// Dimension reports the shared model's embedding dimension.
func (p *Pool) Dimension() int {
	if p == nil {
		return 0
	}
	return p.model.Dimension()
}

// Close closes every pooled context. The shared model is the caller's to
// close. In-flight extractions finish; their contexts are closed on
// Release.
func (p *Pool) Close() error {
	var errs []error
	p.closeOnce.Do(func() {
		close(p.closed)
		for {
			select {
			case c := <-p.free:
				if err := c.Close(); err != nil {
					errs = append(errs, err)
				}
			default:
				return
			}
		}
	})
	return errors.Join(errs...)
}
