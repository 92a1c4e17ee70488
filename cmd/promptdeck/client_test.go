package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/promptdeck/internal/evaluation"
	"github.com/memohai/promptdeck/internal/media"
)

func TestReadAttachmentsDetectsType(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(notes, []byte("# heading\nbody"), 0o600))
	png := filepath.Join(dir, "shot.bin")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01"), 0o600))

	inputs, err := readAttachments([]string{notes, png})
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	assert.Equal(t, "text/markdown", inputs[0].MimeType)
	assert.Equal(t, "notes.md", inputs[0].Name)
	mime, raw, err := media.ParseDataURI(inputs[0].Data, 0)
	require.NoError(t, err)
	assert.Equal(t, "text/markdown", mime)
	assert.Equal(t, "# heading\nbody", string(raw))

	assert.Equal(t, "image/png", inputs[1].MimeType)
}

func TestReadAttachmentsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := readAttachments([]string{filepath.Join(t.TempDir(), "nope.txt")})
	assert.Error(t, err)
}

func TestPrintEvaluation(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printEvaluation(&buf, evaluation.Result{
		OverallScore: 8.2,
		Categories: evaluation.Categories{
			TechnicalSkills: evaluation.Category{Score: 9, Feedback: "strong"},
			Communication:   evaluation.Category{Score: 5, Feedback: "terse"},
		},
		Strengths:      []string{"Go"},
		Recommendation: "次の面接へ",
	})
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "総合評価: 8.2/10 (high)"))
	assert.Contains(t, out, "技術スキル: 9.0 (high)\n  strong")
	assert.Contains(t, out, "コミュニケーション能力: 5.0 (low)")
	assert.Contains(t, out, "  - Go")
	assert.NotContains(t, out, "改善点")
}

func TestPromptArg(t *testing.T) {
	t.Parallel()

	got, err := promptArg([]string{"hello"}, strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	got, err = promptArg(nil, strings.NewReader("  from stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)
}
