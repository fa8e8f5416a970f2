package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/memflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newHTTPEmbedderTest(t *testing.T, dim int, handler http.Handler) *HTTPEmbedder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	emb, err := NewHTTPEmbedder(HTTPConfig{
		BaseURL:   srv.URL,
		APIKey:    "sk-test",
		Model:     "test-embedder",
		Dimension: dim,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return emb
}

func TestHTTPEmbedder_Embed(t *testing.T) {
	t.Parallel()
	emb := newHTTPEmbedderTest(t, 3, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-embedder", body["model"])
		assert.Equal(t, "hello", body["input"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	}))

	vec, err := emb.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, emb.Dimension())
}

func TestHTTPEmbedder_DimensionMismatch(t *testing.T) {
	t.Parallel()
	emb := newHTTPEmbedderTest(t, 4, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.1, 0.2}},
			},
		})
	}))

	_, err := emb.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, types.ErrDimensionMismatch, types.GetErrorCode(err))
}

func TestHTTPEmbedder_ServerError(t *testing.T) {
	t.Parallel()
	emb := newHTTPEmbedderTest(t, 3, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))

	_, err := emb.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, types.ErrEmbeddingFailed, types.GetErrorCode(err))
}

func TestNewHTTPEmbedder_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewHTTPEmbedder(HTTPConfig{Model: "m", Dimension: 4}, nil)
	assert.Equal(t, types.ErrInvalidArgument, types.GetErrorCode(err))

	_, err = NewHTTPEmbedder(HTTPConfig{BaseURL: "http://x", Dimension: 4}, nil)
	assert.Equal(t, types.ErrInvalidArgument, types.GetErrorCode(err))

	_, err = NewHTTPEmbedder(HTTPConfig{BaseURL: "http://x", Model: "m"}, nil)
	assert.Equal(t, types.ErrInvalidArgument, types.GetErrorCode(err))
}
