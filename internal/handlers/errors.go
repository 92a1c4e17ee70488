package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/memohai/promptdeck/internal/chat"
	"github.com/memohai/promptdeck/internal/media"
	"github.com/memohai/promptdeck/internal/models"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	// Raw is the unparsed model output of a failed evaluation.
	Raw string `json:"raw,omitempty"`
}

const (
	msgModelRequired      = "モデルを選択してください"
	msgUserPromptRequired = "ユーザープロンプトを入力してください"
	msgTranscriptTooShort = "面談内容は%d文字以上入力してください"
	msgTooManyAttachments = "添付ファイルは%d件までです"
	msgUnsupportedType    = "対応していないファイル形式です（画像・PDF・テキストのみ）: %s"
	msgAttachmentTooLarge = "ファイルサイズは%dMB以下にしてください: %s"
	msgMalformedUpload    = "添付ファイルの形式が正しくありません: %s"
	msgInvalidBody        = "リクエストの形式が正しくありません"
	msgEvaluationParse    = "評価結果の解析に失敗しました"
	msgGenerateFailed     = "生成中にエラーが発生しました。LMStudioが起動していることを確認してください。"
	msgEvaluateFailed     = "評価の生成中にエラーが発生しました。LMStudioが起動していることを確認してください。"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// upstreamError maps model resolution and generation failures to HTTP errors.
func upstreamError(err error, fallback string) *echo.HTTPError {
	switch {
	case errors.Is(err, models.ErrServerUnreachable), errors.Is(err, chat.ErrConnectionRefused):
		return echo.NewHTTPError(http.StatusServiceUnavailable, chat.MessageServerUnreachable)
	case errors.Is(err, models.ErrModelNotFound):
		return echo.NewHTTPError(http.StatusNotFound, chat.DescribeError(err))
	case errors.Is(err, models.ErrInsufficientResources):
		return echo.NewHTTPError(http.StatusInsufficientStorage, chat.MessageInsufficientResources)
	case errors.Is(err, context.Canceled):
		return echo.NewHTTPError(http.StatusRequestTimeout, fallback).SetInternal(err)
	default:
		msg := fallback
		if err != nil {
			msg = fmt.Sprintf("%s (%s)", fallback, chat.DescribeError(err))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, msg).SetInternal(err)
	}
}

// attachmentError maps an upload rejected by the attachment policy.
func attachmentError(in media.Input, index int, maxBytes int64, err error) *echo.HTTPError {
	name := in.Name
	if name == "" {
		name = fmt.Sprintf("#%d", index+1)
	}
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(msgUnsupportedType, name))
	case errors.Is(err, media.ErrAssetTooLarge):
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(msgAttachmentTooLarge, maxBytes/(1024*1024), name))
	default:
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(msgMalformedUpload, name)).SetInternal(err)
	}
}

// validationError turns validator failures into the first field's localized
// message. messages maps struct field names to messages.
func validationError(err error, messages map[string]string) *echo.HTTPError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if msg, ok := messages[fe.Field()]; ok {
				return echo.NewHTTPError(http.StatusBadRequest, msg)
			}
		}
	}
	return echo.NewHTTPError(http.StatusBadRequest, msgInvalidBody).SetInternal(err)
}

// ErrorHandler renders echo errors as ErrorResponse.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		body := ErrorResponse{Error: http.StatusText(status)}

		var he *echo.HTTPError
		var re *rawHTTPError
		switch {
		case errors.As(err, &re):
			status, body = re.status, re.body
		case errors.As(err, &he):
			status = he.Code
			body.Error = fmt.Sprint(he.Message)
			if he.Internal != nil {
				log.Warn("request failed",
					slog.String("uri", c.Request().RequestURI),
					slog.Int("status", status),
					slog.Any("error", he.Internal),
				)
			}
		default:
			log.Error("unhandled error", slog.String("uri", c.Request().RequestURI), slog.Any("error", err))
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

// rawHTTPError carries a full ErrorResponse through echo's error path.
type rawHTTPError struct {
	status int
	body   ErrorResponse
}

func (e *rawHTTPError) Error() string {
	return e.body.Error
}
