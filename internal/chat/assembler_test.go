package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/promptdeck/internal/lmstudio"
	"github.com/memohai/promptdeck/internal/media"
)

type fakeRegistrar struct {
	names []string
	fail  map[string]error
}

func (f *fakeRegistrar) RegisterImage(_ context.Context, name, mime string, raw []byte) (lmstudio.ImageHandle, error) {
	if err := f.fail[name]; err != nil {
		return lmstudio.ImageHandle{}, err
	}
	f.names = append(f.names, name)
	return lmstudio.ImageHandle{Name: name, MIME: mime, URL: "ref:" + name + ":" + string(raw)}, nil
}

func image(index int, raw string) Decoded {
	return Decoded{Attachment: media.Attachment{Index: index, Kind: media.KindImage, MIME: "image/png", Raw: []byte(raw)}}
}

func textFile(index int, text string) Decoded {
	return Decoded{Attachment: media.Attachment{Index: index, Kind: media.KindText, MIME: "text/plain", Raw: []byte(text), Text: text}}
}

func pdfFile(index int, text string) Decoded {
	return Decoded{Attachment: media.Attachment{Index: index, Kind: media.KindPDF, MIME: "application/pdf", Raw: []byte("%PDF"), Text: text}}
}

func TestAssembleSystemBlockOnlyWhenNonBlank(t *testing.T) {
	t.Parallel()

	for _, system := range []string{"", "   ", "\n\t"} {
		blocks, err := Assemble(context.Background(), Request{SystemPrompt: system, UserPrompt: "hi"}, nil)
		require.NoError(t, err)
		require.Len(t, blocks, 1)
		assert.Equal(t, RoleUser, blocks[0].Role)
		assert.Equal(t, "hi", blocks[0].Text)
	}

	blocks, err := Assemble(context.Background(), Request{SystemPrompt: " be brief ", UserPrompt: "hi"}, nil)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, RoleSystem, blocks[0].Role)
	assert.Equal(t, " be brief ", blocks[0].Text)
	assert.Equal(t, RoleUser, blocks[1].Role)
}

func TestAssemblePreservesAttachmentOrder(t *testing.T) {
	t.Parallel()

	registrar := &fakeRegistrar{}
	req := Request{
		UserPrompt: "summarise",
		Attachments: []Decoded{
			image(0, "A"),
			textFile(1, "textB"),
			pdfFile(2, "pdfC"),
			image(3, "D"),
		},
	}
	blocks, err := Assemble(context.Background(), req, registrar)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	user := blocks[0]
	want := "summarise" + AttachmentSeparator +
		"\n\n[テキストファイル 1]\ntextB" +
		"\n\n[PDFファイル 2]\npdfC"
	assert.Equal(t, want, user.Text)
	require.Len(t, user.Images, 2)
	assert.Equal(t, "image_1.png", user.Images[0].Name)
	assert.Equal(t, "ref:image_1.png:A", user.Images[0].URL)
	assert.Equal(t, "image_2.png", user.Images[1].Name)
	assert.Less(t, strings.Index(user.Text, "textB"), strings.Index(user.Text, "pdfC"))
}

func TestAssembleImagesOnlyHasNoSeparator(t *testing.T) {
	t.Parallel()

	blocks, err := Assemble(context.Background(), Request{UserPrompt: "describe", Attachments: []Decoded{image(0, "A")}}, &fakeRegistrar{})
	require.NoError(t, err)
	assert.Equal(t, "describe", blocks[0].Text)
	assert.Len(t, blocks[0].Images, 1)
}

func TestAssemblePlaceholders(t *testing.T) {
	t.Parallel()

	registrar := &fakeRegistrar{fail: map[string]error{"image_1.png": lmstudio.ErrUnsupportedImage}}
	pdfErr := &media.DecodeError{Index: 0, Kind: media.KindPDF, Err: media.ErrPDFExtraction}
	req := Request{
		UserPrompt: "review",
		Attachments: []Decoded{
			{Attachment: media.Attachment{Index: 0, Kind: media.KindPDF}, Err: pdfErr},
			image(1, "A"),
			image(2, "B"),
			{Attachment: media.Attachment{Index: 3, Kind: media.KindText}, Err: errors.New("bad")},
			textFile(4, "ok"),
			{Attachment: media.Attachment{Index: 5}, Err: media.ErrMalformedDataURI},
		},
	}
	blocks, err := Assemble(context.Background(), req, registrar)
	require.NoError(t, err)

	want := "review" + AttachmentSeparator +
		"\n\n[PDFファイル 1: 読み取りエラー]" +
		"\n\n[画像 1: 登録エラー]" +
		"\n\n[テキストファイル 2: 読み取りエラー]" +
		"\n\n[テキストファイル 3]\nok" +
		"\n\n[添付ファイル 4: 読み取りエラー]"
	assert.Equal(t, want, blocks[0].Text)
	require.Len(t, blocks[0].Images, 1)
	assert.Equal(t, "image_2.png", blocks[0].Images[0].Name)
}

func TestAssembleIsDeterministic(t *testing.T) {
	t.Parallel()

	req := Request{
		SystemPrompt: "sys",
		UserPrompt:   "user",
		Attachments:  []Decoded{textFile(0, "a"), image(1, "x"), pdfFile(2, "b")},
	}
	first, err := Assemble(context.Background(), req, &fakeRegistrar{})
	require.NoError(t, err)
	second, err := Assemble(context.Background(), req, &fakeRegistrar{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAssembleWithoutRegistrarUsesPlaceholder(t *testing.T) {
	t.Parallel()

	blocks, err := Assemble(context.Background(), Request{UserPrompt: "p", Attachments: []Decoded{image(0, "A")}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "p"+AttachmentSeparator+"\n\n[画像 1: 登録エラー]", blocks[0].Text)
	assert.Empty(t, blocks[0].Images)
}

func TestAssembleHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Assemble(ctx, Request{UserPrompt: "p", Attachments: []Decoded{image(0, "A")}}, &fakeRegistrar{})
	assert.ErrorIs(t, err, context.Canceled)
}

type stubDecoder struct{}

func (stubDecoder) Decode(index int, in media.Input) (media.Attachment, error) {
	if in.Data == "bad" {
		return media.Attachment{Index: index}, &media.DecodeError{Index: index, Err: media.ErrMalformedDataURI}
	}
	return media.Attachment{Index: index, Kind: media.KindText, Text: in.Data}, nil
}

func TestDecodeAllKeepsFailuresInPlace(t *testing.T) {
	t.Parallel()

	got := DecodeAll(stubDecoder{}, []media.Input{
		{Data: "one"},
		{Data: "bad", MimeType: "application/pdf"},
		{Data: "three"},
	})
	require.Len(t, got, 3)
	assert.NoError(t, got[0].Err)
	assert.Error(t, got[1].Err)
	assert.Equal(t, media.KindPDF, got[1].Attachment.Kind)
	assert.Equal(t, "three", got[2].Attachment.Text)
}
