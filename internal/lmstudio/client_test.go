package lmstudio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/promptdeck/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(nil, config.LMStudioConfig{BaseURL: srv.URL + "/"})
}

func TestListModelsNative(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/models", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"object":"list","data":[
			{"id":"qwen2.5-7b-instruct","type":"llm","publisher":"qwen","arch":"qwen2","quantization":"Q4_K_M","state":"loaded","max_context_length":32768},
			{"id":"google/gemma-3-12b","type":"vlm","state":"not-loaded"}
		]}`)
	})
	client := newTestClient(t, mux)

	got, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Loaded())
	assert.Equal(t, 32768, got[0].MaxContextLength)
	assert.Equal(t, "Q4_K_M", got[0].Quantization)
	assert.False(t, got[1].Loaded())
	assert.Equal(t, "vlm", got[1].Type)
}

func TestListModelsFallsBackToOpenAIListing(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/models", http.NotFound)
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer lm-studio", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"object":"list","data":[{"id":"mistral-7b","object":"model","owned_by":"organization_owner"}]}`)
	})
	client := newTestClient(t, mux)

	got, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "mistral-7b", got[0].ID)
	assert.False(t, got[0].Loaded())
}

func TestListModelsUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(nil, config.LMStudioConfig{BaseURL: url})
	_, err := client.ListModels(context.Background())
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestLoadModel(t *testing.T) {
	t.Parallel()

	var gotModel string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/models/load", func(w http.ResponseWriter, r *http.Request) {
		var body loadRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		gotModel = body.Model
		switch body.Model {
		case "missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"message":"Model not found: missing"}}`)
		case "huge":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"Failed to load model: insufficient system resources"}`)
		default:
			_, _ = io.WriteString(w, `{"status":"loaded"}`)
		}
	})
	client := newTestClient(t, mux)

	require.NoError(t, client.LoadModel(context.Background(), "qwen"))
	assert.Equal(t, "qwen", gotModel)

	err := client.LoadModel(context.Background(), "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Model not found: missing", apiErr.Message)

	err = client.LoadModel(context.Background(), "huge")
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Message, "insufficient system resources")
}

func TestRegisterImage(t *testing.T) {
	t.Parallel()

	client := NewClient(nil, config.LMStudioConfig{})

	handle, err := client.RegisterImage(context.Background(), "image_0.png", "image/png", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "image_0.png", handle.Name)
	assert.Equal(t, "data:image/png;base64,AQID", handle.URL)

	handle, err = client.RegisterImage(context.Background(), "image_1.jpg", "image/jpg", []byte{1})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", handle.MIME)

	_, err = client.RegisterImage(context.Background(), "image_2.tiff", "image/tiff", []byte{1})
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestStreamChat(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.True(t, req.Stream)
		assert.Equal(t, "qwen", req.Model)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "", "lo\n", " {x}"} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})
	client := newTestClient(t, mux)

	stream, err := client.StreamChat(context.Background(), ChatRequest{
		Model: "qwen",
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "hi"},
		},
	})
	require.NoError(t, err)
	defer stream.Close()

	var b strings.Builder
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		b.WriteString(fragment)
	}
	assert.Equal(t, "Hello\n {x}", b.String())
}

func TestAPIErrorMessage(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		`{"error":"plain"}`:                 "plain",
		`{"error":{"message":"nested"}}`:    "nested",
		`{"message":"top level"}`:           "top level",
		"  not json  ":                      "not json",
		`{"error":{"code":"x"},"other":1}`: `{"error":{"code":"x"},"other":1}`,
	}
	for body, want := range tests {
		assert.Equal(t, want, apiErrorMessage([]byte(body)), body)
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	t.Parallel()

	s := "面接の評価"
	for n := 1; n < len(s); n++ {
		got := truncate(s, n)
		assert.True(t, utf8.ValidString(got), "n=%d: %q", n, got)
		assert.True(t, strings.HasSuffix(got, "..."))
	}
	assert.Equal(t, "面...", truncate(s, 4))
	assert.Equal(t, "...", truncate(s, 2))
	assert.Equal(t, s, truncate(s, len(s)))
}
