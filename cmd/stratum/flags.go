package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/stratum/internal/embed"
	"github.com/samcharles93/stratum/internal/engine"
	"github.com/samcharles93/stratum/internal/logger"
	"github.com/samcharles93/stratum/internal/norm"
)

var (
	modelPath    string
	libDir       string
	gpuLayers    int64
	useMMap      bool
	useMLock     bool
	ctxSize      int64
	batchSize    int64
	microBatch   int64
	threads      int64
	threadsBatch int64
	pooling      string
	attention    string
	normalize    string
	addSpecial   bool
	parseSpecial bool
	logLevel     string
	logFormat    string
)

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "path to the GGUF model file",
			Destination: &modelPath,
		},
		&cli.StringFlag{
			Name:        "lib-dir",
			Usage:       "directory containing the llama.cpp shared libraries",
			Destination: &libDir,
		},
		&cli.Int64Flag{
			Name:        "gpu-layers",
			Aliases:     []string{"ngl"},
			Usage:       "number of layers to offload to the GPU",
			Destination: &gpuLayers,
		},
		&cli.BoolFlag{
			Name:        "mmap",
			Usage:       "memory-map the model weights",
			Value:       true,
			Destination: &useMMap,
		},
		&cli.BoolFlag{
			Name:        "mlock",
			Usage:       "lock the model weights in RAM",
			Destination: &useMLock,
		},
	}
}

func contextFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "ctx-size",
			Aliases:     []string{"ctx", "c"},
			Usage:       "context window in tokens",
			Value:       2048,
			Destination: &ctxSize,
		},
		&cli.Int64Flag{
			Name:        "batch-size",
			Aliases:     []string{"b"},
			Usage:       "logical batch size in tokens (0 = ctx-size)",
			Destination: &batchSize,
		},
		&cli.Int64Flag{
			Name:        "ubatch-size",
			Aliases:     []string{"ub"},
			Usage:       "physical micro-batch size in tokens (0 = batch-size)",
			Destination: &microBatch,
		},
		&cli.Int64Flag{
			Name:        "threads",
			Aliases:     []string{"t"},
			Usage:       "threads for single-token passes (0 = engine default)",
			Destination: &threads,
		},
		&cli.Int64Flag{
			Name:        "threads-batch",
			Usage:       "threads for batch passes (0 = --threads)",
			Destination: &threadsBatch,
		},
		&cli.StringFlag{
			Name:        "pooling",
			Usage:       "pooling mode (none, mean, cls, last, rank; empty keeps the model default)",
			Destination: &pooling,
		},
		&cli.StringFlag{
			Name:        "attention",
			Usage:       "attention mode (causal, non-causal; empty keeps the model default)",
			Destination: &attention,
		},
	}
}

func embeddingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "normalize",
			Usage:       "vector normalization (none, l2)",
			Value:       "l2",
			Destination: &normalize,
		},
		&cli.BoolFlag{
			Name:        "add-special",
			Usage:       "add the model's special tokens when tokenizing",
			Value:       true,
			Destination: &addSpecial,
		},
		&cli.BoolFlag{
			Name:        "parse-special",
			Usage:       "parse special token markup in the input text",
			Destination: &parseSpecial,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json)",
			Value:       "pretty",
			Destination: &logFormat,
		},
	}
}

func newLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if logFormat == "json" {
		return logger.JSON(os.Stderr, level)
	}
	return logger.Pretty(os.Stderr, level)
}

func parsePooling(s string) (engine.Pooling, error) {
	switch s {
	case "":
		return engine.PoolingUnspecified, nil
	case "none":
		return engine.PoolingNone, nil
	case "mean":
		return engine.PoolingMean, nil
	case "cls":
		return engine.PoolingCLS, nil
	case "last":
		return engine.PoolingLast, nil
	case "rank":
		return engine.PoolingRank, nil
	default:
		return engine.PoolingUnspecified, fmt.Errorf("unknown pooling mode %q", s)
	}
}

func parseAttention(s string) (engine.Attention, error) {
	switch s {
	case "":
		return engine.AttentionUnspecified, nil
	case "causal":
		return engine.AttentionCausal, nil
	case "non-causal", "noncausal":
		return engine.AttentionNonCausal, nil
	default:
		return engine.AttentionUnspecified, fmt.Errorf("unknown attention mode %q", s)
	}
}

// contextOptions assembles embed.ContextOptions from the shared flag set.
func contextOptions() (embed.ContextOptions, error) {
	pool, err := parsePooling(pooling)
	if err != nil {
		return embed.ContextOptions{}, err
	}
	attn, err := parseAttention(attention)
	if err != nil {
		return embed.ContextOptions{}, err
	}
	return embed.ContextOptions{
		MaxTokens:    uint32(ctxSize),
		BatchSize:    uint32(batchSize),
		MicroBatch:   uint32(microBatch),
		Threads:      int(threads),
		ThreadsBatch: int(threadsBatch),
		Pooling:      pool,
		Attention:    attn,
	}, nil
}

// extractOptions assembles embed.Options from the shared flag set.
func extractOptions() (embed.Options, error) {
	mode, err := norm.Parse(normalize)
	if err != nil {
		return embed.Options{}, err
	}
	return embed.Options{
		AddSpecial:   addSpecial,
		ParseSpecial: parseSpecial,
		Normalize:    mode,
	}, nil
}
