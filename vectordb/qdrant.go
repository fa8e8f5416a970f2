package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BaSui01/memflow/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// QdrantConfig configures the Qdrant-backed Client.
type QdrantConfig struct {
	Host    string        `json:"host"`
	Port    int           `json:"port"`
	BaseURL string        `json:"base_url,omitempty"`
	APIKey  string        `json:"api_key,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty"`

	// Wait makes write operations block until the backend applied them
	// (default true), preserving upsert ordering for duplicate ids.
	Wait *bool `json:"wait,omitempty"`

	// RequestsPerSecond enables a client-side rate limiter when > 0.
	// Retry/backoff intentionally does not live here; limiting does,
	// because it shapes traffic before it leaves the process.
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`
	Burst             int     `json:"burst,omitempty"`
}

// QdrantClient implements Client using Qdrant's REST API.
type QdrantClient struct {
	cfg     QdrantConfig
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewQdrantClient creates a Qdrant-backed Client.
func NewQdrantClient(cfg QdrantConfig, logger *zap.Logger) *QdrantClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6333
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Wait == nil {
		wait := true
		cfg.Wait = &wait
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &QdrantClient{
		cfg:     cfg,
		baseURL: baseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		tracer:  otel.Tracer("memflow/vectordb"),
		logger:  logger.With(zap.String("component", "qdrant_client")),
	}
}

func (c *QdrantClient) applyHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.cfg.APIKey) != "" {
		// Qdrant convention.
		req.Header.Set("api-key", c.cfg.APIKey)
	}
}

// httpStatusError preserves the backend status code so callers can
// distinguish conflict (already exists) from real failures.
type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("qdrant request failed: status=%d body=%s", e.status, e.body)
}

func (c *QdrantClient) doJSON(ctx context.Context, method, path string, in any, out any) error {
	ctx, span := c.tracer.Start(ctx, "qdrant."+method,
		trace.WithAttributes(attribute.String("db.operation", path)))
	defer span.End()

	err := c.doJSONInner(ctx, method, path, in, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *QdrantClient) doJSONInner(ctx context.Context, method, path string, in any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	endpoint := c.baseURL + path

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	c.applyHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return types.NewErrorf(types.ErrBackendUnavailable, "qdrant %s %s", method, path).WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		raw, _ := io.ReadAll(resp.Body)
		return types.NewErrorf(types.ErrCollectionNotFound, "qdrant %s %s", method, path).
			WithCause(&httpStatusError{status: resp.StatusCode, body: string(raw)})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return types.NewErrorf(types.ErrBackendUnavailable, "qdrant %s %s", method, path).
			WithCause(&httpStatusError{status: resp.StatusCode, body: string(raw)})
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *QdrantClient) waitQuery() string {
	if c.cfg.Wait == nil || *c.cfg.Wait {
		return "?wait=true"
	}
	return ""
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

// CollectionExists checks whether the collection is known to the backend.
func (c *QdrantClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	var resp struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := c.doJSON(ctx, http.MethodGet, collectionPath(name)+"/exists", nil, &resp); err != nil {
		if types.IsCode(err, types.ErrCollectionNotFound) {
			return false, nil
		}
		return false, err
	}
	return resp.Result.Exists, nil
}

// CreateCollection creates the collection with the declared vector shape.
// An already-existing collection is not an error.
func (c *QdrantClient) CreateCollection(ctx context.Context, name string, spec CollectionSpec) error {
	if spec.VectorSize <= 0 {
		return types.NewError(types.ErrInvalidArgument, "vector size must be > 0")
	}
	distance := spec.Distance
	if distance == "" {
		distance = "Cosine"
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     spec.VectorSize,
			"distance": distance,
		},
	}

	err := c.doJSON(ctx, http.MethodPut, collectionPath(name), body, nil)
	if err != nil {
		// Qdrant returns 409 if the collection exists.
		var statusErr *httpStatusError
		if errors.As(err, &statusErr) && statusErr.status == http.StatusConflict {
			return nil
		}
		return err
	}

	c.logger.Info("collection created",
		zap.String("collection", name),
		zap.Int("vector_size", spec.VectorSize),
		zap.String("distance", distance))
	return nil
}

// DeleteCollection removes the collection and all of its points.
func (c *QdrantClient) DeleteCollection(ctx context.Context, name string) error {
	err := c.doJSON(ctx, http.MethodDelete, collectionPath(name), nil, nil)
	if err != nil && types.IsCode(err, types.ErrCollectionNotFound) {
		return nil
	}
	return err
}

// GetCollectionInfo reports the backend's view of the collection.
func (c *QdrantClient) GetCollectionInfo(ctx context.Context, name string) (*CollectionDescription, error) {
	var resp struct {
		Result struct {
			Status      string `json:"status"`
			PointsCount int    `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}

	if err := c.doJSON(ctx, http.MethodGet, collectionPath(name), nil, &resp); err != nil {
		return nil, err
	}

	return &CollectionDescription{
		Name:        name,
		VectorSize:  resp.Result.Config.Params.Vectors.Size,
		PointsCount: resp.Result.PointsCount,
		Distance:    resp.Result.Config.Params.Vectors.Distance,
		Status:      parseStatus(resp.Result.Status),
	}, nil
}

// ListCollections returns the names of all collections on the backend.
func (c *QdrantClient) ListCollections(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/collections", nil, &resp); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(resp.Result.Collections))
	for _, col := range resp.Result.Collections {
		names = append(names, col.Name)
	}
	return names, nil
}

// Upsert writes points by id, replacing existing ones.
func (c *QdrantClient) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	for i, p := range points {
		if p.ID == "" {
			return types.NewErrorf(types.ErrInvalidArgument, "point[%d] has empty id", i)
		}
		if len(p.Vector) == 0 {
			return types.NewErrorf(types.ErrInvalidArgument, "point[%d] has no vector", i)
		}
	}

	req := struct {
		Points []Point `json:"points"`
	}{Points: points}

	path := collectionPath(collection) + "/points" + c.waitQuery()
	if err := c.doJSON(ctx, http.MethodPut, path, req, nil); err != nil {
		return err
	}

	c.logger.Debug("points upserted",
		zap.String("collection", collection),
		zap.Int("count", len(points)))
	return nil
}

// Search runs nearest-neighbor search, optionally filtered by payload fields.
func (c *QdrantClient) Search(ctx context.Context, collection string, vector []float32, filter *Filter, limit int, scoreThreshold float64) ([]ScoredPoint, error) {
	if limit <= 0 {
		return []ScoredPoint{}, nil
	}
	if len(vector) == 0 {
		return nil, types.NewError(types.ErrInvalidArgument, "query vector is required")
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if scoreThreshold > 0 {
		req["score_threshold"] = scoreThreshold
	}
	if f := qdrantFilter(filter); f != nil {
		req["filter"] = f
	}

	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	path := collectionPath(collection) + "/points/search"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}

	out := make([]ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, ScoredPoint{
			Point: Point{ID: fmt.Sprint(r.ID), Payload: r.Payload},
			Score: r.Score,
		})
	}
	return out, nil
}

// Scroll pages through points matching filter. Vectors are included so the
// relation-inference path can reuse stored embeddings without re-embedding.
func (c *QdrantClient) Scroll(ctx context.Context, collection string, filter *Filter, limit int, offset string) ([]Point, string, error) {
	if limit <= 0 {
		limit = 100
	}

	req := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  true,
	}
	if offset != "" {
		req["offset"] = offset
	}
	if f := qdrantFilter(filter); f != nil {
		req["filter"] = f
	}

	var resp struct {
		Result struct {
			Points []struct {
				ID      any            `json:"id"`
				Vector  []float32      `json:"vector"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
			NextPageOffset any `json:"next_page_offset"`
		} `json:"result"`
	}

	path := collectionPath(collection) + "/points/scroll"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, "", err
	}

	points := make([]Point, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		points = append(points, Point{
			ID:      fmt.Sprint(p.ID),
			Vector:  p.Vector,
			Payload: p.Payload,
		})
	}

	next := ""
	if resp.Result.NextPageOffset != nil {
		next = fmt.Sprint(resp.Result.NextPageOffset)
	}
	return points, next, nil
}

// DeletePoints removes points by id.
func (c *QdrantClient) DeletePoints(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	req := struct {
		Points []string `json:"points"`
	}{Points: ids}

	path := collectionPath(collection) + "/points/delete" + c.waitQuery()
	return c.doJSON(ctx, http.MethodPost, path, req, nil)
}

// DeleteByFilter removes every point matching the filter.
func (c *QdrantClient) DeleteByFilter(ctx context.Context, collection string, filter *Filter) error {
	f := qdrantFilter(filter)
	if f == nil {
		return types.NewError(types.ErrInvalidArgument, "delete by filter requires a non-empty filter")
	}
	req := map[string]any{"filter": f}

	path := collectionPath(collection) + "/points/delete" + c.waitQuery()
	return c.doJSON(ctx, http.MethodPost, path, req, nil)
}

// Count returns the exact number of points matching the filter.
func (c *QdrantClient) Count(ctx context.Context, collection string, filter *Filter) (int, error) {
	req := map[string]any{"exact": true}
	if f := qdrantFilter(filter); f != nil {
		req["filter"] = f
	}

	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}

	path := collectionPath(collection) + "/points/count"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// qdrantFilter converts a Filter into Qdrant's must/match representation.
func qdrantFilter(f *Filter) map[string]any {
	if f == nil || len(f.Match) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(f.Match))
	for key, value := range f.Match {
		must = append(must, map[string]any{
			"key":   key,
			"match": map[string]any{"value": value},
		})
	}
	return map[string]any{"must": must}
}

func parseStatus(s string) types.CollectionStatus {
	switch strings.ToLower(s) {
	case "green":
		return types.StatusGreen
	case "yellow":
		return types.StatusYellow
	case "red":
		return types.StatusRed
	default:
		return types.StatusYellow
	}
}
