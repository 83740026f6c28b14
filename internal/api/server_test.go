package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

func (s stubEmbedder) ModelName() string { return "test-model" }
func (s stubEmbedder) Dimension() int    { return len(s.vec) }

func newTestEcho(emb Embedder) *echo.Echo {
	e := echo.New()
	NewServer(emb, nil).Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestEmbeddingsStringInput(t *testing.T) {
	t.Parallel()

	e := newTestEcho(stubEmbedder{vec: []float32{0.6, 0.8}})
	rec := doJSON(t, e, http.MethodPost, "/v1/embeddings", `{"model":"test-model","input":"hello world"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp EmbeddingsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Object != "list" {
		t.Fatalf("object: got %q", resp.Object)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("data length: got %d want 1", len(resp.Data))
	}
	if resp.Data[0].Object != "embedding" || resp.Data[0].Index != 0 {
		t.Fatalf("unexpected data item: %+v", resp.Data[0])
	}
	if len(resp.Data[0].Embedding) != 2 {
		t.Fatalf("embedding length: got %d want 2", len(resp.Data[0].Embedding))
	}
	if resp.Model != "test-model" {
		t.Fatalf("model: got %q", resp.Model)
	}
	if resp.Usage.PromptTokens == 0 {
		t.Fatal("expected nonzero usage")
	}
}

func TestEmbeddingsArrayInput(t *testing.T) {
	t.Parallel()

	e := newTestEcho(stubEmbedder{vec: []float32{1}})
	rec := doJSON(t, e, http.MethodPost, "/v1/embeddings", `{"input":["one","two","three"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp EmbeddingsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 3 {
		t.Fatalf("data length: got %d want 3", len(resp.Data))
	}
	for i, item := range resp.Data {
		if item.Index != i {
			t.Fatalf("index %d: got %d", i, item.Index)
		}
	}
}

func TestEmbeddingsRejectsMissingInput(t *testing.T) {
	t.Parallel()

	e := newTestEcho(stubEmbedder{vec: []float32{1}})
	for _, body := range []string{`{}`, `{"input":[]}`, `{"input":null}`} {
		rec := doJSON(t, e, http.MethodPost, "/v1/embeddings", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: got %d want 400", body, rec.Code)
		}
	}
}

func TestEmbeddingsRejectsBadInputType(t *testing.T) {
	t.Parallel()

	e := newTestEcho(stubEmbedder{vec: []float32{1}})
	rec := doJSON(t, e, http.MethodPost, "/v1/embeddings", `{"input":42}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d want 400", rec.Code)
	}
}

func TestEmbeddingsRejectsBase64(t *testing.T) {
	t.Parallel()

	e := newTestEcho(stubEmbedder{vec: []float32{1}})
	rec := doJSON(t, e, http.MethodPost, "/v1/embeddings", `{"input":"x","encoding_format":"base64"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d want 400", rec.Code)
	}
}

func TestEmbeddingsEmptyElement(t *testing.T) {
	t.Parallel()

	e := newTestEcho(stubEmbedder{err: ErrEmptyInput})
	rec := doJSON(t, e, http.MethodPost, "/v1/embeddings", `{"input":["ok",""]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d want 400", rec.Code)
	}
}

func TestEmbeddingsServerError(t *testing.T) {
	t.Parallel()

	e := newTestEcho(stubEmbedder{err: errors.New("engine exploded")})
	rec := doJSON(t, e, http.MethodPost, "/v1/embeddings", `{"input":"x"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got %d want 500", rec.Code)
	}
}

func TestListModels(t *testing.T) {
	t.Parallel()

	e := newTestEcho(stubEmbedder{vec: []float32{1}})
	rec := doJSON(t, e, http.MethodGet, "/v1/models", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var list ModelList
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 1 || list.Data[0].ID != "test-model" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	e := newTestEcho(stubEmbedder{vec: []float32{1, 2, 3}})
	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"dimension":3`) {
		t.Fatalf("health body missing dimension: %s", rec.Body.String())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	e := newTestEcho(stubEmbedder{vec: []float32{1}})
	e.Use(RateLimit(1, 1))

	first := doJSON(t, e, http.MethodGet, "/healthz", "")
	if first.Code != http.StatusOK {
		t.Fatalf("first request: got %d", first.Code)
	}
	// The bucket holds a single token; an immediate second request must
	// be rejected.
	second := doJSON(t, e, http.MethodGet, "/healthz", "")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d want 429", second.Code)
	}
}
