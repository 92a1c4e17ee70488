package models_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/promptdeck/internal/lmstudio"
	"github.com/memohai/promptdeck/internal/models"
)

type fakeBackend struct {
	infos   []lmstudio.ModelInfo
	listErr error
	loadErr error
	loads   []string
}

func (f *fakeBackend) ListModels(context.Context) ([]lmstudio.ModelInfo, error) {
	return f.infos, f.listErr
}

func (f *fakeBackend) LoadModel(_ context.Context, id string) error {
	f.loads = append(f.loads, id)
	return f.loadErr
}

func TestResolveResidentModelSkipsLoad(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{infos: []lmstudio.ModelInfo{
		{ID: "qwen2.5-7b", State: lmstudio.StateNotLoaded},
		{ID: "google/gemma-3-12b", State: lmstudio.StateLoaded},
	}}
	svc := models.NewService(nil, backend)

	handle, err := svc.Resolve(context.Background(), "google/gemma-3-12b")
	require.NoError(t, err)
	assert.True(t, handle.Resident)
	assert.Equal(t, "google/gemma-3-12b", handle.ID)
	assert.Empty(t, backend.loads)
}

func TestResolveLoadsOnce(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{infos: []lmstudio.ModelInfo{
		{ID: "qwen2.5-7b", State: lmstudio.StateNotLoaded},
		// Prefix matches must not count.
		{ID: "qwen2.5-7b-instruct", State: lmstudio.StateLoaded},
	}}
	svc := models.NewService(nil, backend)

	handle, err := svc.Resolve(context.Background(), "qwen2.5-7b")
	require.NoError(t, err)
	assert.False(t, handle.Resident)
	assert.Equal(t, []string{"qwen2.5-7b"}, backend.loads)
}

func TestResolveErrorTaxonomy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		backend *fakeBackend
		want    error
	}{
		{
			name:    "unreachable on list",
			backend: &fakeBackend{listErr: fmt.Errorf("%w: dial tcp: connection refused", lmstudio.ErrUnreachable)},
			want:    models.ErrServerUnreachable,
		},
		{
			name:    "unreachable on load",
			backend: &fakeBackend{loadErr: fmt.Errorf("%w: EOF", lmstudio.ErrUnreachable)},
			want:    models.ErrServerUnreachable,
		},
		{
			name:    "insufficient resources",
			backend: &fakeBackend{loadErr: &lmstudio.APIError{StatusCode: 500, Message: "Failed to load: insufficient system resources"}},
			want:    models.ErrInsufficientResources,
		},
		{
			name:    "not found status",
			backend: &fakeBackend{loadErr: &lmstudio.APIError{StatusCode: http.StatusNotFound, Message: "nope"}},
			want:    models.ErrModelNotFound,
		},
		{
			name:    "not found message",
			backend: &fakeBackend{loadErr: &lmstudio.APIError{StatusCode: 400, Message: "Model foo not found"}},
			want:    models.ErrModelNotFound,
		},
		{
			name:    "unknown",
			backend: &fakeBackend{loadErr: errors.New("gpu on fire")},
			want:    models.ErrLoadFailed,
		},
		{
			name:    "list failure still loads",
			backend: &fakeBackend{listErr: &lmstudio.APIError{StatusCode: 500, Message: "boom"}, loadErr: errors.New("gpu on fire")},
			want:    models.ErrLoadFailed,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := models.NewService(nil, tt.backend)
			_, err := svc.Resolve(context.Background(), "foo")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadErrorKeepsUnderlyingError(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{loadErr: &lmstudio.APIError{StatusCode: 404, Message: "Model not found: foo"}}
	_, err := models.NewService(nil, backend).Resolve(context.Background(), "foo")

	var loadErr *models.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "foo", loadErr.ModelID)
	var apiErr *lmstudio.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "Model not found: foo")
}

func TestResolveRejectsEmptyID(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	_, err := models.NewService(nil, backend).Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, models.ErrModelNotFound)
	assert.Empty(t, backend.loads)
}

func TestListSortsLoadedFirstThenByName(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{infos: []lmstudio.ModelInfo{
		{ID: "publisher/zeta-7b.gguf", State: lmstudio.StateNotLoaded},
		{ID: "lmstudio-community/beta", State: lmstudio.StateLoaded, Quantization: "Q8_0"},
		{ID: "alpha", State: lmstudio.StateNotLoaded},
		{ID: "other/Alpha-2", State: lmstudio.StateLoaded},
		{ID: ""},
	}}

	got, err := models.NewService(nil, backend).List(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(got))
	for _, m := range got {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Alpha-2", "beta", "alpha", "zeta-7b"}, names)
	assert.True(t, got[0].Loaded)
	assert.Equal(t, "Q8_0", got[1].Quantization)
	assert.False(t, got[3].Loaded)
}

func TestListUnreachable(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{listErr: fmt.Errorf("%w: refused", lmstudio.ErrUnreachable)}
	_, err := models.NewService(nil, backend).List(context.Background())
	assert.ErrorIs(t, err, models.ErrServerUnreachable)
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"google/gemma-3-12b":                          "gemma-3-12b",
		"lmstudio-community/Qwen2.5-7B-Instruct-GGUF": "Qwen2.5-7B-Instruct-GGUF",
		"models/llama/llama-3.2-3b.Q4_K_M.gguf":       "llama-3.2-3b.Q4_K_M",
		"qwen2.5-7b":                                  "qwen2.5-7b",
		"mlx-community/phi-4.safetensors":             "phi-4",
		`C:\models\mistral.gguf`:                      "mistral",
		"":                                            "",
	}
	for id, want := range tests {
		assert.Equal(t, want, models.DisplayName(id), id)
	}
}
