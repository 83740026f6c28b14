package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the stratum configuration file
// (~/.config/stratum/config.yaml). Numeric fields are pointers so "not
// set" is distinguishable from zero.
type Config struct {
	ModelPath string `yaml:"model_path"`
	LibDir    string `yaml:"lib_dir"`

	GPULayers    *int64 `yaml:"gpu_layers"`
	ContextSize  *int64 `yaml:"ctx_size"`
	BatchSize    *int64 `yaml:"batch_size"`
	MicroBatch   *int64 `yaml:"ubatch_size"`
	Threads      *int64 `yaml:"threads"`
	ThreadsBatch *int64 `yaml:"threads_batch"`

	Pooling   string `yaml:"pooling"`
	Attention string `yaml:"attention"`
	Normalize string `yaml:"normalize"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string   `yaml:"server_address"`
	PoolSize      *int64   `yaml:"pool_size"`
	RateLimit     *float64 `yaml:"rate_limit"`
	CacheSize     *int64   `yaml:"cache_size"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "stratum", "config.yaml")
}

// applyCommonConfig applies config file defaults to the shared flag
// variables when the corresponding CLI flag was not explicitly set.
func applyCommonConfig(c *cli.Command, cfg Config) {
	if cfg.ModelPath != "" && !c.IsSet("model") {
		modelPath = cfg.ModelPath
	}
	if cfg.LibDir != "" && !c.IsSet("lib-dir") {
		libDir = cfg.LibDir
	}
	if cfg.GPULayers != nil && !c.IsSet("gpu-layers") {
		gpuLayers = *cfg.GPULayers
	}
	if cfg.ContextSize != nil && !c.IsSet("ctx-size") {
		ctxSize = *cfg.ContextSize
	}
	if cfg.BatchSize != nil && !c.IsSet("batch-size") {
		batchSize = *cfg.BatchSize
	}
	if cfg.MicroBatch != nil && !c.IsSet("ubatch-size") {
		microBatch = *cfg.MicroBatch
	}
	if cfg.Threads != nil && !c.IsSet("threads") {
		threads = *cfg.Threads
	}
	if cfg.ThreadsBatch != nil && !c.IsSet("threads-batch") {
		threadsBatch = *cfg.ThreadsBatch
	}
	if cfg.Pooling != "" && !c.IsSet("pooling") {
		pooling = cfg.Pooling
	}
	if cfg.Attention != "" && !c.IsSet("attention") {
		attention = cfg.Attention
	}
	if cfg.Normalize != "" && !c.IsSet("normalize") {
		normalize = cfg.Normalize
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, poolSize *int64, rateLimit *float64, cacheSize *int64) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.PoolSize != nil && !c.IsSet("pool-size") {
		*poolSize = *cfg.PoolSize
	}
	if cfg.RateLimit != nil && !c.IsSet("rate-limit") {
		*rateLimit = *cfg.RateLimit
	}
	if cfg.CacheSize != nil && !c.IsSet("cache-size") {
		*cacheSize = *cfg.CacheSize
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file
// doesn't exist or doesn't parse.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
