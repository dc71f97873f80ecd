package gemini

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

	"docuchat/internal/llm"
)

const (
	ProviderName   = "gemini"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// Task types tell the embedding model which side of a search a text is on.
const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

// Config configures the Gemini REST client.
type Config struct {
	BaseURL     string
	APIKey      string
	EmbedModel  string
	ChatModel   string
	Temperature float64
	Timeout     time.Duration
	Retry       llm.Policy
}

// Client talks to the Generative Language API. It embeds document chunks in
// batches, embeds questions one at a time and completes prompts.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-004"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gemini-1.5-flash"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}, nil
}

func (c *Client) Name() string { return ProviderName }

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type embedRequest struct {
	Model    string  `json:"model"`
	Content  content `json:"content"`
	TaskType string  `json:"taskType,omitempty"`
}

type batchEmbedRequest struct {
	Requests []embedRequest `json:"requests"`
}

type embedding struct {
	Values []float64 `json:"values"`
}

type embedResponse struct {
	Embedding embedding `json:"embedding"`
}

type batchEmbedResponse struct {
	Embeddings []embedding `json:"embeddings"`
}

// Embed embeds a single question.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	req := c.embedRequest(text, taskQuery)
	var out embedResponse
	err := c.cfg.Retry.Do(ctx, func() error {
		return c.post(ctx, c.cfg.EmbedModel, "embedContent", req, &out)
	})
	if err != nil {
		return nil, err
	}
	if len(out.Embedding.Values) == 0 {
		return nil, errors.New("gemini: no embedding returned")
	}
	return out.Embedding.Values, nil
}

// EmbedBatch embeds document chunks with one request.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := batchEmbedRequest{Requests: make([]embedRequest, len(texts))}
	for i, text := range texts {
		req.Requests[i] = c.embedRequest(text, taskDocument)
	}
	var out batchEmbedResponse
	err := c.cfg.Retry.Do(ctx, func() error {
		return c.post(ctx, c.cfg.EmbedModel, "batchEmbedContents", req, &out)
	})
	if err != nil {
		return nil, err
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini: got %d embeddings for %d texts", len(out.Embeddings), len(texts))
	}
	vectors := make([][]float64, len(out.Embeddings))
	for i, e := range out.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}

func (c *Client) embedRequest(text, task string) embedRequest {
	return embedRequest{
		Model:    "models/" + c.cfg.EmbedModel,
		Content:  content{Parts: []part{{Text: text}}},
		TaskType: task,
	}
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// Complete sends prompt as a single user turn. It is not retried.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{Temperature: c.cfg.Temperature},
	}
	var out generateResponse
	if err := c.post(ctx, c.cfg.ChatModel, "generateContent", req, &out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 {
		if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini: prompt blocked: %s", out.PromptFeedback.BlockReason)
		}
		return "", errors.New("gemini: no candidates returned")
	}
	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

func (c *Client) post(ctx context.Context, model, method string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("gemini: encode request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s:%s", c.cfg.BaseURL, model, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &llm.StatusError{
			Provider:   ProviderName,
			StatusCode: resp.StatusCode,
			Body:       apiMessage(payload),
			RetryAfter: llm.ParseRetryAfter(resp.Header),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gemini: decode %s response: %w", method, err)
	}
	return nil
}

// apiMessage pulls error.message out of an API error body, falling back to the raw text.
func apiMessage(payload []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(payload, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(payload))
}
