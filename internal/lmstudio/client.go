package lmstudio

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/memohai/promptdeck/internal/config"
)

const defaultTimeout = 30 * time.Second

// Client talks to a local LM Studio server: the native REST API for model
// residency and the OpenAI-compatible API for generation.
type Client struct {
	baseURL         string
	listPath        string
	loadPath        string
	logger          *slog.Logger
	httpClient      *http.Client
	streamingClient *http.Client
	openai          *openai.Client
}

// NewClient creates a Client for cfg.
func NewClient(log *slog.Logger, cfg config.LMStudioConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = config.DefaultLMStudioURL
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = config.DefaultLMStudioAPIKey
	}
	listPath := strings.TrimSpace(cfg.ListPath)
	if listPath == "" {
		listPath = config.DefaultLMStudioListPath
	}
	loadPath := strings.TrimSpace(cfg.LoadPath)
	if loadPath == "" {
		loadPath = config.DefaultLMStudioLoadPath
	}

	// Model loads and generations may block for minutes, so only listing
	// gets a deadline.
	streamingClient := &http.Client{}
	oaCfg := openai.DefaultConfig(apiKey)
	oaCfg.BaseURL = baseURL + "/v1"
	oaCfg.HTTPClient = streamingClient

	return &Client{
		baseURL:         baseURL,
		listPath:        listPath,
		loadPath:        loadPath,
		logger:          log.With(slog.String("service", "lmstudio")),
		httpClient:      &http.Client{Timeout: defaultTimeout},
		streamingClient: streamingClient,
		openai:          openai.NewClientWithConfig(oaCfg),
	}
}

// BaseURL returns the server root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListModels returns every model known to the server with its residency
// state. Servers without the native listing fall back to /v1/models, whose
// entries carry no state.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	url := c.baseURL + c.listPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug("native model listing unavailable, using openai listing", slog.String("url", url))
		return c.listOpenAIModels(ctx)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: apiErrorMessage(body)}
	}

	var parsed modelList
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	return parsed.Data, nil
}

func (c *Client) listOpenAIModels(ctx context.Context) ([]ModelInfo, error) {
	list, err := c.openai.ListModels(ctx)
	if err != nil {
		var apiErr *openai.APIError
		var reqErr *openai.RequestError
		if errors.As(err, &apiErr) || errors.As(err, &reqErr) {
			return nil, err
		}
		return nil, c.transportError(ctx, c.baseURL+"/v1/models", err)
	}
	out := make([]ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		out = append(out, ModelInfo{ID: m.ID, Object: m.Object, Publisher: m.OwnedBy})
	}
	return out, nil
}

// LoadModel asks the server to load id into memory. It blocks until the
// server answers, which may take as long as reading the weights from disk.
func (c *Client) LoadModel(ctx context.Context, id string) error {
	body, err := json.Marshal(loadRequest{Model: id})
	if err != nil {
		return err
	}
	url := c.baseURL + c.loadPath
	c.logger.Info("model load request", slog.String("url", url), slog.String("model", id))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.streamingClient.Do(httpReq)
	if err != nil {
		return c.transportError(ctx, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := apiErrorMessage(respBody)
		c.logger.Error("model load failed",
			slog.String("model", id),
			slog.Int("status", resp.StatusCode),
			slog.String("body_prefix", truncate(msg, 300)),
		)
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return nil
}

// RegisterImage prepares raw image bytes for a chat request. The OpenAI
// compatible endpoint takes images inline, so the handle carries a data URL.
func (c *Client) RegisterImage(ctx context.Context, name, mime string, raw []byte) (ImageHandle, error) {
	if err := ctx.Err(); err != nil {
		return ImageHandle{}, err
	}
	mime = normalizeImageMIME(mime)
	if mime == "" {
		return ImageHandle{}, ErrUnsupportedImage
	}
	if len(raw) == 0 {
		return ImageHandle{}, errors.New("image payload is empty")
	}
	return ImageHandle{
		Name: name,
		MIME: mime,
		URL:  "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw),
	}, nil
}

// StreamChat starts a streaming chat completion.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest) (Stream, error) {
	oaReq := openai.ChatCompletionRequest{
		Model:          req.Model,
		Messages:       req.Messages,
		Stream:         true,
		ResponseFormat: req.ResponseFormat,
	}
	c.logger.Debug("chat stream request",
		slog.String("model", req.Model),
		slog.Int("messages", len(req.Messages)),
	)
	stream, err := c.openai.CreateChatCompletionStream(ctx, oaReq)
	if err != nil {
		return nil, err
	}
	return &chatStream{stream: stream}, nil
}

type chatStream struct {
	stream *openai.ChatCompletionStream
}

func (s *chatStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *chatStream) Close() error {
	s.stream.Close()
	return nil
}

func (c *Client) transportError(ctx context.Context, url string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	c.logger.Warn("lm studio request failed", slog.String("url", url), slog.Any("error", err))
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

func normalizeImageMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	switch mime {
	case "image/jpeg", "image/jpg":
		return "image/jpeg"
	case "image/png", "image/gif", "image/webp":
		return mime
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
