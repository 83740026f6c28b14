package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samcharles93/stratum/internal/embed"
	"github.com/samcharles93/stratum/internal/engine/enginetest"
	"github.com/samcharles93/stratum/internal/norm"
)

func newTestService(t *testing.T, cacheSize uint64) (*EmbeddingService, *enginetest.Engine) {
	t.Helper()

	eng := &enginetest.Engine{Dim: 8}
	model, err := embed.LoadModel(eng, "test.gguf", embed.ModelOptions{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = model.Close() })

	pool, err := embed.NewPool(model, 2, embed.ContextOptions{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	svc := NewEmbeddingService(pool, ServiceConfig{
		ModelName: "test-model",
		Options:   embed.Options{AddSpecial: true, Normalize: norm.L2},
		CacheTTL:  time.Minute,
		CacheSize: cacheSize,
	})
	t.Cleanup(svc.Close)
	return svc, eng
}

func TestServiceEmbedTexts(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, 0)
	vecs, err := svc.EmbedTexts(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors", len(vecs))
	}
	for i, vec := range vecs {
		if len(vec) != 8 {
			t.Fatalf("vector %d: dimension %d", i, len(vec))
		}
	}
}

func TestServiceRejectsEmptyElement(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, 0)
	_, err := svc.EmbedTexts(context.Background(), []string{"ok", ""})
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("got %v want ErrEmptyInput", err)
	}
}

func TestServiceCacheAvoidsRepeatExtraction(t *testing.T) {
	t.Parallel()

	svc, eng := newTestService(t, 64)

	first, err := svc.EmbedTexts(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatal(err)
	}
	calls := eng.ForwardCalls.Load()
	if calls == 0 {
		t.Fatal("expected a forward pass on cold cache")
	}

	second, err := svc.EmbedTexts(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatal(err)
	}
	if eng.ForwardCalls.Load() != calls {
		t.Fatalf("cache miss on identical input: %d -> %d forward calls", calls, eng.ForwardCalls.Load())
	}
	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatalf("cached vector differs at %d", i)
		}
	}
}

func TestServiceDimensionAndName(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, 0)
	if svc.Dimension() != 8 {
		t.Fatalf("dimension: got %d", svc.Dimension())
	}
	if svc.ModelName() != "test-model" {
		t.Fatalf("model name: got %q", svc.ModelName())
	}
}
