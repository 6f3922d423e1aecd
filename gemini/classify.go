package gemini

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"geminify/apperr"

	"github.com/google/generative-ai-go/genai"
)

type signature struct {
	kind    apperr.Kind
	message string
	needles []string
}

// 上から順に照合します。INVALID_ARGUMENT は API_KEY_INVALID と同時に返ることがあるため最後です。
var signatures = []signature{
	{apperr.KindInvalidCredential, "the API key was rejected", []string{"API_KEY_INVALID", "API key not valid", "PERMISSION_DENIED", "UNAUTHENTICATED"}},
	{apperr.KindQuotaExceeded, "the API quota is exhausted", []string{"QUOTA_EXCEEDED", "exceeded your current quota", "quota exceeded"}},
	{apperr.KindRateLimited, "too many requests", []string{"RATE_LIMIT_EXCEEDED", "RESOURCE_EXHAUSTED", "rate limit"}},
	{apperr.KindContentRejected, "the content was blocked by safety filters", []string{"SAFETY", "blocked"}},
	{apperr.KindNetwork, "network failure", []string{"NETWORK_ERROR", "ENOTFOUND", "no such host", "connection refused", "connection reset", "UNAVAILABLE"}},
	{apperr.KindMalformedRequest, "the request was rejected as malformed", []string{"INVALID_ARGUMENT"}},
}

// Classify はプロバイダーのエラーを apperr の分類に変換します。
// ctx は呼び出しに使ったコンテキストで、期限切れとキャンセルの判定に使います。
func Classify(ctx context.Context, err error) *apperr.Error {
	if err == nil {
		return nil
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || (ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)):
		return apperr.New(apperr.KindTimeout, "deadline exceeded", err)
	case errors.Is(err, context.Canceled) || (ctx != nil && errors.Is(ctx.Err(), context.Canceled)):
		return apperr.New(apperr.KindCanceled, "the request was canceled", err)
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return apperr.New(apperr.KindContentRejected, "the content was blocked by safety filters", err)
	}

	raw := err.Error()
	lower := strings.ToLower(raw)
	for _, sig := range signatures {
		for _, needle := range sig.needles {
			if strings.Contains(lower, strings.ToLower(needle)) {
				return apperr.New(sig.kind, sig.message, err)
			}
		}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if kind, ok := kindForStatus(apiErr.StatusCode); ok {
			return apperr.New(kind, http.StatusText(apiErr.StatusCode), err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperr.New(apperr.KindNetwork, "network failure", err)
	}

	return apperr.New(apperr.KindUnknown, raw, err)
}

func kindForStatus(code int) (apperr.Kind, bool) {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperr.KindInvalidCredential, true
	case code == http.StatusTooManyRequests:
		return apperr.KindRateLimited, true
	case code == http.StatusBadRequest:
		return apperr.KindMalformedRequest, true
	case code >= http.StatusInternalServerError:
		return apperr.KindNetwork, true
	default:
		return "", false
	}
}
