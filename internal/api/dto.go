package api

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// EmbeddingsRequest is the OpenAI-compatible body of POST /v1/embeddings.
type EmbeddingsRequest struct {
	Model          string     `json:"model"`
	Input          InputValue `json:"input"`
	EncodingFormat string     `json:"encoding_format,omitempty"`
	User           string     `json:"user,omitempty"`
}

// InputValue accepts either a single string or an array of strings.
type InputValue struct {
	Texts []string
}

func (v *InputValue) UnmarshalJSON(b []byte) error {
	if v == nil {
		return fmt.Errorf("input value: nil receiver")
	}
	if len(b) == 0 || string(b) == "null" {
		*v = InputValue{}
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v.Texts = []string{s}
		return nil
	case '[':
		return json.Unmarshal(b, &v.Texts)
	default:
		return fmt.Errorf("input must be a string or an array of strings")
	}
}

// EmbeddingObject is one vector in the response data array.
type EmbeddingObject struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type Usage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// EmbeddingsResponse mirrors the OpenAI embeddings list object.
type EmbeddingsResponse struct {
	Object string            `json:"object"`
	Data   []EmbeddingObject `json:"data"`
	Model  string            `json:"model"`
	Usage  Usage             `json:"usage"`
}

// ModelObject is one entry of GET /v1/models.
type ModelObject struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

type ModelList struct {
	Object string        `json:"object"`
	Data   []ModelObject `json:"data"`
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
