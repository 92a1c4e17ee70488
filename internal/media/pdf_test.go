package media

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a minimal PDF with one page per content stream. Every page
// uses a WinAnsi Helvetica font named F1.
func buildPDF(pages ...string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"", // page tree, filled in below
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	var kids bytes.Buffer
	for i, content := range pages {
		pageObj := 4 + 2*i
		fmt.Fprintf(&kids, "%d 0 R ", pageObj)
		stream := "BT /F1 12 Tf " + content + " ET"
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", pageObj+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), len(pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractPDFTextJoinsRunsAndPages(t *testing.T) {
	t.Parallel()

	raw := buildPDF(
		"(Alpha) Tj 0 -20 Td (Beta) Tj 100 0 Td (Gamma) Tj",
		"(Delta) Tj",
	)

	text, err := ExtractPDFText(raw)
	require.NoError(t, err)
	assert.Equal(t, "Alpha Beta Gamma\nDelta", text)

	att, err := Decode(0, Input{Data: EncodeDataURI("application/pdf", raw)}, 0)
	require.NoError(t, err)
	assert.Equal(t, KindPDF, att.Kind)
	assert.Equal(t, "Alpha Beta Gamma\nDelta", att.Text)
}

func TestExtractPDFTextShowTextOperators(t *testing.T) {
	t.Parallel()

	raw := buildPDF("[(Hel) -20 (lo)] TJ (  ) Tj T* (world) '")

	text, err := ExtractPDFText(raw)
	require.NoError(t, err)
	assert.Equal(t, "Hel lo world", text)
}

func TestExtractPDFTextEmpty(t *testing.T) {
	t.Parallel()

	_, err := ExtractPDFText(nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}
