package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

var ErrNoVisionModel = errors.New("no vision model configured")

// Config holds API settings for an OpenAI-compatible provider.
type Config struct {
	BaseURL        string
	APIKey         string
	EmbeddingModel string
	VisionModel    string
}

// Client talks to an OpenAI-compatible API for embeddings and image
// description. The provider's vector dimensionality is probed once per
// process and memoized; the pipeline never reaches into shared state for it.
type Client struct {
	cfg        Config
	httpClient *http.Client

	dimOnce sync.Once
	dim     int
	dimErr  error
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}

	reqBody := map[string]interface{}{
		"model": c.cfg.EmbeddingModel,
		"input": text,
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/embeddings", reqBody, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return parsed.Data[0].Embedding, nil
}

// Dimension returns the provider's vector dimensionality, probing the
// embedding endpoint on first use.
func (c *Client) Dimension(ctx context.Context) (int, error) {
	c.dimOnce.Do(func() {
		vec, err := c.Embed(ctx, "dimension probe")
		if err != nil {
			c.dimErr = fmt.Errorf("probe embedding dimension failed: %w", err)
			return
		}
		c.dim = len(vec)
	})
	return c.dim, c.dimErr
}

// DescribeImage asks a vision-capable chat model for a detailed text
// description of the image, suitable for embedding.
func (c *Client) DescribeImage(ctx context.Context, mimeType string, data []byte) (string, error) {
	if c.cfg.VisionModel == "" {
		return "", ErrNoVisionModel
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	reqBody := map[string]interface{}{
		"model": c.cfg.VisionModel,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "text", "text": "Describe this image in detail, including any visible text, so the description can stand in for the image in a document search index."},
					{"type": "image_url", "image_url": map[string]string{"url": dataURI}},
				},
			},
		},
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.post(ctx, "/chat/completions", reqBody, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty vision response")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, out interface{}) error {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request failed: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("response status %d from %s: %s", resp.StatusCode, path, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse response json failed: %w", err)
	}
	return nil
}
