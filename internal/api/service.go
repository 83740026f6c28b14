package api

import (
	"context"
	"time"

	"github.com/samcharles93/stratum/internal/embed"
	"github.com/samcharles93/stratum/internal/logger"
	"github.com/samcharles93/stratum/pkg/metrics"
)

// Embedder is what the HTTP server needs from the embedding layer.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
	Dimension() int
}

// ServiceConfig configures an EmbeddingService.
type ServiceConfig struct {
	// ModelName is the identifier reported in API responses.
	ModelName string

	// Options apply to every extraction the service runs.
	Options embed.Options

	// CacheTTL/CacheSize bound the vector cache; CacheSize 0 disables it.
	CacheTTL  time.Duration
	CacheSize uint64

	Log logger.Logger
}

// EmbeddingService runs extractions against a context pool, fronted by
// an optional TTL vector cache.
type EmbeddingService struct {
	pool      *embed.Pool
	cache     *embed.Cache
	opts      embed.Options
	modelName string
	log       logger.Logger
}

func NewEmbeddingService(pool *embed.Pool, cfg ServiceConfig) *EmbeddingService {
	log := cfg.Log
	if log == nil {
		log = logger.Default()
	}
	s := &EmbeddingService{
		pool:      pool,
		opts:      cfg.Options,
		modelName: cfg.ModelName,
		log:       log,
	}
	if cfg.CacheSize > 0 {
		ttl := cfg.CacheTTL
		if ttl <= 0 {
			ttl = 15 * time.Minute
		}
		s.cache = embed.NewCache(ttl, cfg.CacheSize)
	}
	return s
}

// EmbedTexts embeds every text, in order. The call is atomic: the first
// failure fails the whole batch.
func (s *EmbeddingService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if text == "" {
			return nil, ErrEmptyInput
		}

		var key string
		if s.cache != nil {
			key = s.cache.Key(text, s.opts)
			if vec := s.cache.Get(key); vec != nil {
				metrics.CacheHitsTotal.Inc()
				out[i] = vec
				continue
			}
			metrics.CacheMissesTotal.Inc()
		}

		start := time.Now()
		var vec []float32
		err := s.pool.Do(ctx, func(c *embed.Context) error {
			var extractErr error
			vec, extractErr = c.ExtractText(ctx, text, s.opts)
			return extractErr
		})
		if err != nil {
			metrics.ExtractionsTotal.WithLabelValues("error").Inc()
			s.log.Error("extraction failed", "error", err, "text_bytes", len(text))
			return nil, err
		}
		metrics.ExtractionsTotal.WithLabelValues("ok").Inc()
		metrics.ExtractionDuration.Observe(time.Since(start).Seconds())

		if s.cache != nil {
			s.cache.Put(key, vec)
		}
		out[i] = vec
	}
	return out, nil
}

func (s *EmbeddingService) ModelName() string {
	return s.modelName
}

func (s *EmbeddingService) Dimension() int {
	return s.pool.Dimension()
}

// Close releases the cache. The pool and model belong to the caller.
func (s *EmbeddingService) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}
