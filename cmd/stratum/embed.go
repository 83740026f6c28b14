package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/stratum/internal/embed"
	"github.com/samcharles93/stratum/internal/engine/llamacpp"
)

type embedOutput struct {
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Embedding []float32 `json:"embedding"`
}

func embedCmd() *cli.Command {
	return &cli.Command{
		Name:      "embed",
		Usage:     "Embed text and print the vector as JSON",
		ArgsUsage: "[text]",
		Flags: append(append(append(commonModelFlags(), contextFlags()...), embeddingFlags()...),
			loggingFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())
			log := newLogger()

			text := strings.Join(cmd.Args().Slice(), " ")
			if text == "" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimSpace(string(data))
			}
			if text == "" {
				return fmt.Errorf("no input text: pass it as an argument or on stdin")
			}

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

			log.Debug("loading model", "path", modelPath)
			model, err := embed.LoadModel(eng, modelPath, embed.ModelOptions{
				GPULayers: int(gpuLayers),
				UseMMap:   useMMap,
				UseMLock:  useMLock,
			})
			if err != nil {
				return err
			}
			defer func() { _ = model.Close() }()

			ec, err := model.NewContext(ctxOpts)
			if err != nil {
				return err
			}
			defer func() { _ = ec.Close() }()

			vec, err := ec.ExtractText(ctx, text, opts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			return enc.Encode(embedOutput{
				Model:     modelPath,
				Dimension: len(vec),
				Embedding: vec,
			})
		},
	}
}
