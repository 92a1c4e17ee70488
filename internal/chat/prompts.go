package chat

import (
	"fmt"
)

// AttachmentSeparator opens the attachment section of the user text.
const AttachmentSeparator = "\n\n--- 添付ファイル ---"

const (
	MessageServerUnreachable     = "LM Studioに接続できません。LM Studioが起動していることを確認してください。"
	MessageInsufficientResources = "モデルの読み込みに必要なシステムリソースが不足しています。LM Studioで事前にモデルをロードしてください。"
	MessageModelNotFound         = "指定されたモデルが見つかりません"
)

func kindLabel(kind string) string {
	switch kind {
	case "pdf":
		return "PDFファイル"
	case "text":
		return "テキストファイル"
	case "image":
		return "画像"
	default:
		return "添付ファイル"
	}
}

// fileHeader labels the extracted text of the n-th file (1-based).
func fileHeader(kind string, n int) string {
	return fmt.Sprintf("\n\n[%s %d]\n", kindLabel(kind), n)
}

func decodePlaceholder(kind string, n int) string {
	return fmt.Sprintf("\n\n[%s %d: 読み取りエラー]", kindLabel(kind), n)
}

func registrationPlaceholder(n int) string {
	return fmt.Sprintf("\n\n[%s %d: 登録エラー]", kindLabel("image"), n)
}

func imageFileName(n int, subtype string) string {
	return fmt.Sprintf("image_%d.%s", n, subtype)
}
