// Package api serves stratum's OpenAI-compatible embeddings endpoint.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samcharles93/stratum/internal/embed"
	"github.com/samcharles93/stratum/internal/logger"
)

// maxBatchInputs bounds the number of inputs a single request may carry.
const maxBatchInputs = 128

type Server struct {
	embedder Embedder
	log      logger.Logger
}

func NewServer(embedder Embedder, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{embedder: embedder, log: log}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/embeddings", s.handleEmbeddings)
	e.GET("/v1/models", s.handleListModels)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func (s *Server) handleEmbeddings(c *echo.Context) error {
	if s.embedder == nil {
		return writeServerError(c, "embedding service not configured")
	}

	req, err := decodeJSON[EmbeddingsRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if len(req.Input.Texts) == 0 {
		return writeBadRequest(c, ErrEmptyInput.Error())
	}
	if len(req.Input.Texts) > maxBatchInputs {
		return writeBadRequest(c, "too many inputs in one request")
	}
	if req.EncodingFormat != "" && req.EncodingFormat != "float" {
		return writeBadRequest(c, "encoding_format: only \"float\" is supported")
	}

	vectors, err := s.embedder.EmbedTexts(c.Request().Context(), req.Input.Texts)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyInput), errors.Is(err, embed.ErrTokenization):
			return writeBadRequest(c, err.Error())
		default:
			s.log.Error("embeddings request failed", "error", err)
			return writeServerError(c, err.Error())
		}
	}

	resp := EmbeddingsResponse{
		Object: "list",
		Data:   make([]EmbeddingObject, len(vectors)),
		Model:  s.embedder.ModelName(),
	}
	for i, vec := range vectors {
		resp.Data[i] = EmbeddingObject{
			Object:    "embedding",
			Index:     i,
			Embedding: vec,
		}
	}
	for _, text := range req.Input.Texts {
		resp.Usage.PromptTokens += approxTokens(text)
	}
	resp.Usage.TotalTokens = resp.Usage.PromptTokens

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListModels(c *echo.Context) error {
	list := ModelList{Object: "list"}
	if s.embedder != nil {
		list.Data = append(list.Data, ModelObject{
			ID:      s.embedder.ModelName(),
			Object:  "model",
			OwnedBy: "stratum",
		})
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleHealth(c *echo.Context) error {
	status := map[string]any{"status": "ok"}
	if s.embedder != nil {
		status["model"] = s.embedder.ModelName()
		status["dimension"] = s.embedder.Dimension()
	}
	return c.JSON(http.StatusOK, status)
}

// approxTokens estimates token usage from byte length; the engine does
// not report per-call token counts back through the pool.
func approxTokens(text string) int {
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
