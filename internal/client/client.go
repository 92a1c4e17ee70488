// Package client talks to a running promptdeck server. It is what the CLI
// subcommands use, and it measures the latency a user would see.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/memohai/promptdeck/internal/evaluation"
	"github.com/memohai/promptdeck/internal/handlers"
	"github.com/memohai/promptdeck/internal/models"
	"github.com/memohai/promptdeck/internal/sse"
)

const DefaultBaseURL = "http://localhost:3000"

// HTTPError is a non-2xx response from the server.
type HTTPError struct {
	StatusCode int
	Message    string
	Raw        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Result is a finished streamed generation.
type Result struct {
	Text       string
	RequestID  string
	FirstChunk time.Duration
	Total      time.Duration
	Dropped    int
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a client. httpClient may be nil; streaming responses are not
// bounded by a client timeout, so callers should cancel through ctx.
func New(log *slog.Logger, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  log.With(slog.String("service", "client")),
	}
}

// Generate posts a generation request and streams its chunks to onChunk.
func (c *Client) Generate(ctx context.Context, req handlers.GenerateRequest, onChunk func(string)) (Result, error) {
	return c.stream(ctx, "/api/generate", req, onChunk)
}

// Evaluate streams an evaluation of transcript and parses the final output.
// The raw output is returned alongside a parse failure.
func (c *Client) Evaluate(ctx context.Context, req handlers.EvaluateRequest, onChunk func(string)) (evaluation.Result, Result, error) {
	res, err := c.stream(ctx, "/api/evaluate", req, onChunk)
	if err != nil {
		return evaluation.Result{}, res, err
	}
	parsed, err := evaluation.Parse(res.Text)
	if err != nil {
		return evaluation.Result{}, res, err
	}
	return parsed, res, nil
}

// Models lists the models the server knows about.
func (c *Client) Models(ctx context.Context) ([]models.Model, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/models", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	var list models.ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	return list.Data, nil
}

func (c *Client) stream(ctx context.Context, path string, body any, onChunk func(string)) (Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, decodeError(resp)
	}

	out := Result{RequestID: resp.Header.Get("X-Request-Id")}
	read, err := sse.ReadWithLogger(ctx, resp.Body, c.logger, func(text string) {
		if out.FirstChunk == 0 {
			out.FirstChunk = time.Since(start)
		}
		if onChunk != nil {
			onChunk(text)
		}
	})
	out.Text = read.Text
	out.Dropped = read.Dropped
	out.Total = time.Since(start)
	if err != nil {
		return out, err
	}
	if !read.Completed {
		c.logger.Warn("stream ended without done frame", slog.String("path", path))
	}
	c.logger.Debug("stream finished",
		slog.String("path", path),
		slog.String("request_id", out.RequestID),
		slog.Duration("first_chunk", out.FirstChunk),
		slog.Duration("total", out.Total),
	)
	return out, nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body handlers.ErrorResponse
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: body.Error, Raw: body.Raw}
}
