package main

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/stratum/internal/api"
	"github.com/samcharles93/stratum/internal/embed"
	"github.com/samcharles93/stratum/internal/engine/llamacpp"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		poolSize    int64
		rateLimit   float64
		cacheSize   int64
		cacheTTL    time.Duration
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the OpenAI-compatible embeddings API",
		Flags: append(append(append(commonModelFlags(), contextFlags()...), embeddingFlags()...),
			append(loggingFlags(),
				&cli.StringFlag{
					Name:        "addr",
					Usage:       "listen address",
					Value:       "127.0.0.1:8080",
					Destination: &addr,
				},
				&cli.Int64Flag{
					Name:        "pool-size",
					Usage:       "number of inference contexts serving requests",
					Value:       2,
					Destination: &poolSize,
				},
				&cli.Float64Flag{
					Name:        "rate-limit",
					Usage:       "max requests per second (0 disables)",
					Destination: &rateLimit,
				},
				&cli.Int64Flag{
					Name:        "cache-size",
					Usage:       "max cached vectors (0 disables the cache)",
					Value:       1024,
					Destination: &cacheSize,
				},
				&cli.DurationFlag{
					Name:        "cache-ttl",
					Usage:       "vector cache entry lifetime",
					Value:       15 * time.Minute,
					Destination: &cacheTTL,
				},
				&cli.DurationFlag{
					Name:        "read-timeout",
					Usage:       "HTTP read header timeout",
					Value:       30 * time.Second,
					Destination: &readTimeout,
				},
			)...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyCommonConfig(cmd, cfg)
			applyServeConfig(cmd, cfg, &addr, &poolSize, &rateLimit, &cacheSize)
			log := newLogger()

			ctxOpts, err := contextOptions()
			if err != nil {
				return err
			}
			opts, err := extractOptions()
			if err != nil {
				return err
			}

			eng, err := llamacpp.Load(libDir)
			if err != nil {
				return err
			}
			defer llamacpp.Shutdown()

			log.Info("loading model", "path", modelPath, "gpu_layers", gpuLayers)
			model, err := embed.LoadModel(eng, modelPath, embed.ModelOptions{
				GPULayers: int(gpuLayers),
				UseMMap:   useMMap,
				UseMLock:  useMLock,
			})
			if err != nil {
				return err
			}
			defer func() { _ = model.Close() }()

			pool, err := embed.NewPool(model, int(poolSize), ctxOpts)
			if err != nil {
				return err
			}
			defer func() { _ = pool.Close() }()

			svc := api.NewEmbeddingService(pool, api.ServiceConfig{
				ModelName: filepath.Base(modelPath),
				Options:   opts,
				CacheTTL:  cacheTTL,
				CacheSize: uint64(cacheSize),
				Log:       log,
			})
			defer svc.Close()

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			e.Use(api.RequestID())
			e.Use(api.RequestMetrics())
			e.Use(api.RateLimit(rateLimit, 0))
			api.NewServer(svc, log).Register(e)

			log.Info("starting server", "address", addr, "pool_size", poolSize, "dimension", pool.Dimension())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
