// Package apperr は書き換えパイプライン全体で共有するエラー分類を定義します。
package apperr

import (
	"errors"
	"fmt"
)

// Kind はエラーの種別です。ホスト側はこの値でメッセージと再試行可否を決めます。
type Kind string

const (
	KindConfig            Kind = "config"
	KindValidation        Kind = "validation"
	KindBusy              Kind = "busy"
	KindThrottled         Kind = "throttled"
	KindInvalidCredential Kind = "invalid-credential"
	KindQuotaExceeded     Kind = "quota-exceeded"
	KindRateLimited       Kind = "rate-limited"
	KindContentRejected   Kind = "content-rejected"
	KindNetwork           Kind = "network-error"
	KindMalformedRequest  Kind = "malformed-request"
	KindEmptyResponse     Kind = "empty-response"
	KindTimeout           Kind = "timeout"
	KindCanceled          Kind = "canceled"
	KindUnknown           Kind = "unknown"
)

// Error は種別付きのアプリケーションエラーです。
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New は新しいErrorを作成します。
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Config(message string) *Error {
	return New(KindConfig, message, nil)
}

func Validation(message string) *Error {
	return New(KindValidation, message, nil)
}

// KindOf はエラーチェーンからKindを取り出します。種別を持たないエラーはKindUnknownです。
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// Is はエラーが指定した種別かどうかを返します。
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable は同じ期限内で再試行してよい種別かどうかを返します。
// レート制限・クォータ超過・コンテンツ拒否・認証エラー・タイムアウトは再試行しません。
func Retryable(kind Kind) bool {
	switch kind {
	case KindNetwork, KindEmptyResponse, KindUnknown:
		return true
	default:
		return false
	}
}
