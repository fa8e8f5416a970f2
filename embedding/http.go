package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/memflow/types"
	"go.uber.org/zap"
)

// HTTPConfig configures the OpenAI-compatible embedding client.
type HTTPConfig struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"api_key,omitempty"`
	Model   string        `json:"model"`
	// Dimension is the vector length the model produces. Declared up front
	// so collections can be created before the first embedding call.
	Dimension int           `json:"dimension"`
	Timeout   time.Duration `json:"timeout,omitempty"`
}

// HTTPEmbedder calls an OpenAI-compatible /v1/embeddings endpoint.
type HTTPEmbedder struct {
	cfg    HTTPConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPEmbedder creates an embedder for an OpenAI-compatible API.
func NewHTTPEmbedder(cfg HTTPConfig, logger *zap.Logger) (*HTTPEmbedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, types.NewError(types.ErrInvalidArgument, "embedding base URL is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, types.NewError(types.ErrInvalidArgument, "embedding model is required")
	}
	if cfg.Dimension <= 0 {
		return nil, types.NewError(types.ErrInvalidArgument, "embedding dimension must be > 0")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HTTPEmbedder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "http_embedder")),
	}, nil
}

// Dimension reports the declared vector length.
func (e *HTTPEmbedder) Dimension() int {
	return e.cfg.Dimension
}

// Embed converts text into a vector via the remote embedding service.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(map[string]any{
		"model": e.cfg.Model,
		"input": text,
	})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(e.cfg.BaseURL, "/") + "/v1/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrEmbeddingFailed, "embedding request failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, types.NewErrorf(types.ErrEmbeddingFailed,
			"embedding request failed: status=%d body=%s", resp.StatusCode, string(raw))
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewError(types.ErrEmbeddingFailed, "decode embedding response").WithCause(err)
	}
	if len(out.Data) == 0 {
		return nil, types.NewError(types.ErrEmbeddingFailed, "embedding response has no data")
	}

	vec := out.Data[0].Embedding
	if len(vec) != e.cfg.Dimension {
		return nil, types.NewErrorf(types.ErrDimensionMismatch,
			"embedding dimension mismatch: got=%d want=%d", len(vec), e.cfg.Dimension)
	}
	return vec, nil
}

var _ Embedder = (*HTTPEmbedder)(nil)
