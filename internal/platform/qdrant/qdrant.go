package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrCollectionMissing = errors.New("qdrant collection missing")
	ErrSchemaMismatch    = errors.New("qdrant vector schema mismatch")
)

// Client is a minimal HTTP client for the Qdrant REST API, covering only the
// primitives the service needs: collection lifecycle, upsert, filtered
// delete, and nearest-neighbor search.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Point is one (id, vector, payload) tuple.
type Point struct {
	ID      string                 `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// SearchHit is one nearest-neighbor result.
type SearchHit struct {
	ID      string                 `json:"id"`
	Score   float32                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
}

// EnsureCollection creates the collection with the given dimensionality and
// cosine distance if it does not exist yet.
func (c *Client) EnsureCollection(ctx context.Context, name string, vectorSize int) error {
	exists, err := c.collectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	return c.do(ctx, http.MethodPut, "/collections/"+name, body, nil)
}

func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/collections/"+name, nil, nil)
}

func (c *Client) collectionExists(ctx context.Context, name string) (bool, error) {
	err := c.do(ctx, http.MethodGet, "/collections/"+name, nil, nil)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrCollectionMissing) {
		return false, nil
	}
	return false, err
}

// Upsert writes all points in a single call, waiting for the write to be
// applied so a following search sees them.
func (c *Client) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	body := map[string]interface{}{"points": points}
	return c.do(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true", body, nil)
}

// DeleteByFilter removes all points whose payload matches the given
// key/value pairs.
func (c *Client) DeleteByFilter(ctx context.Context, collection string, match map[string]interface{}) error {
	must := make([]map[string]interface{}, 0, len(match))
	for key, value := range match {
		must = append(must, map[string]interface{}{
			"key":   key,
			"match": map[string]interface{}{"value": value},
		})
	}
	body := map[string]interface{}{
		"filter": map[string]interface{}{"must": must},
	}
	return c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/delete?wait=true", body, nil)
}

// Search returns the top-limit nearest neighbors of vector, with payloads.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int, match map[string]interface{}) ([]SearchHit, error) {
	body := map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if len(match) > 0 {
		must := make([]map[string]interface{}, 0, len(match))
		for key, value := range match {
			must = append(must, map[string]interface{}{
				"key":   key,
				"match": map[string]interface{}{"value": value},
			})
		}
		body["filter"] = map[string]interface{}{"must": must}
	}

	var parsed struct {
		Result []SearchHit `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/search", body, &parsed); err != nil {
		return nil, err
	}
	return parsed.Result, nil
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, out interface{}) error {
	var reader io.Reader
	if reqBody != nil {
		bodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal qdrant request failed: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build qdrant request failed: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read qdrant response failed: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrCollectionMissing, string(raw))
	}
	if resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(raw), "dimension") {
			return fmt.Errorf("%w: %s", ErrSchemaMismatch, string(raw))
		}
		return fmt.Errorf("qdrant response status %d: %s", resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("parse qdrant response failed: %w", err)
		}
	}
	return nil
}
