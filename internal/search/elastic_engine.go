package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stays/internal/models"
)

// NewElasticClient builds an Elasticsearch client. Retries are disabled: a failed
// query is answered by the fallback engine, not retried against the index.
func NewElasticClient(url string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{url},
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return client, nil
}

// ElasticEngine queries the listings index in a single _search round trip.
// The index is an eventually consistent mirror of the listings collection.
type ElasticEngine struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticEngine creates the index-backed engine.
func NewElasticEngine(client *elasticsearch.Client, index string) *ElasticEngine {
	return &ElasticEngine{client: client, index: index}
}

// Name implements Engine.
func (e *ElasticEngine) Name() string {
	return models.EngineElasticsearch
}

type searchResponse struct {
	Hits struct {
		Total json.RawMessage `json:"total"`
		Hits  []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search implements Engine. Every failure wraps ErrIndexUnavailable.
func (e *ElasticEngine) Search(ctx context.Context, params models.SearchParams) (*Hits, error) {
	body, err := json.Marshal(BuildQuery(params))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode query: %v", ErrIndexUnavailable, err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		if rejectedStatus(res.StatusCode) {
			return nil, fmt.Errorf("%w: %w: %s: %s", ErrIndexUnavailable, ErrQueryRejected, res.Status(), bytes.TrimSpace(msg))
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrIndexUnavailable, res.Status(), bytes.TrimSpace(msg))
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: malformed search response: %v", ErrIndexUnavailable, err)
	}

	total, err := decodeTotal(sr.Hits.Total)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	ids := make([]primitive.ObjectID, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		id, err := primitive.ObjectIDFromHex(h.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid document id %q", ErrIndexUnavailable, h.ID)
		}
		ids = append(ids, id)
	}
	return &Hits{IDs: ids, Total: total}, nil
}

// decodeTotal accepts both {"value": n, "relation": "eq"} and a bare number.
func decodeTotal(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("malformed search response: missing hits.total")
	}
	var obj struct {
		Value *int64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Value != nil {
		return *obj.Value, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("malformed search response: hits.total: %v", err)
	}
	return n, nil
}

// rejectedStatus reports whether a failed search was refused because of the request.
// A missing index, a timeout and throttling are index-side.
func rejectedStatus(code int) bool {
	switch code {
	case http.StatusNotFound, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return code >= 400 && code < 500
}
