// Package i18n はユーザー向けメッセージを英語とトルコ語で提供します。
package i18n

import (
	"errors"
	"fmt"
	"strings"

	"geminify/apperr"
)

// Locale は対応している表示言語です。
type Locale string

const (
	English Locale = "en"
	Turkish Locale = "tr"
)

// Key はメッセージの識別子です。
type Key string

const (
	KeySelectTextFirst    Key = "select_text_first"
	KeyConfigureAPIKey    Key = "configure_api_key"
	KeyEmptyText          Key = "empty_text"
	KeyTextTooLong        Key = "text_too_long"
	KeyBusy               Key = "busy"
	KeyThrottled          Key = "throttled"
	KeyRetrying           Key = "retrying"
	KeyRewriteSuccess     Key = "rewrite_success"
	KeyAppendSuccess      Key = "append_success"
	KeyChangesRejected    Key = "changes_rejected"
	KeyApplyChanges       Key = "apply_changes"
	KeyProgressConnecting Key = "progress_connecting"
	KeyProgressComposing  Key = "progress_composing"
	KeyProgressProcessing Key = "progress_processing"
	KeyProgressDone       Key = "progress_done"
	KeyPreviewTitle       Key = "preview_title"
	KeyOriginalText       Key = "original_text"
	KeyRewrittenText      Key = "rewritten_text"
	KeyAccept             Key = "accept"
	KeyReject             Key = "reject"
	KeyAPIKeyValid        Key = "api_key_valid"
	KeyAPIKeyInvalid      Key = "api_key_invalid"
	KeyConfigError        Key = "config_error"
	KeyInvalidCredential  Key = "invalid_credential"
	KeyQuotaExceeded      Key = "quota_exceeded"
	KeyRateLimited        Key = "rate_limited"
	KeyContentRejected    Key = "content_rejected"
	KeyNetworkError       Key = "network_error"
	KeyMalformedRequest   Key = "malformed_request"
	KeyEmptyResponse      Key = "empty_response"
	KeyTimeout            Key = "timeout"
	KeyCanceled           Key = "canceled"
	KeyUnknownError       Key = "unknown_error"
)

var catalog = map[Locale]map[Key]string{
	English: {
		KeySelectTextFirst:    "Please select the text you want to rewrite",
		KeyConfigureAPIKey:    "Please configure your API key in settings first",
		KeyEmptyText:          "Empty text cannot be rewritten",
		KeyTextTooLong:        "Text too long! (Estimated: %d tokens, Limit: %d)",
		KeyBusy:               "Another operation is already in progress, please wait...",
		KeyThrottled:          "Please wait a moment before starting another rewrite",
		KeyRetrying:           "Attempt %d failed, retrying...",
		KeyRewriteSuccess:     "Text successfully rewritten!",
		KeyAppendSuccess:      "Rewritten text added to the end of the note!",
		KeyChangesRejected:    "Changes rejected",
		KeyApplyChanges:       "Apply these changes?",
		KeyProgressConnecting: "Connecting to Gemini...",
		KeyProgressComposing:  "Preparing the request...",
		KeyProgressProcessing: "Processing the response...",
		KeyProgressDone:       "Done",
		KeyPreviewTitle:       "📝 Rewritten Content Preview",
		KeyOriginalText:       "📄 Original Text:",
		KeyRewrittenText:      "✨ Rewritten Text:",
		KeyAccept:             "✅ Accept",
		KeyReject:             "❌ Reject",
		KeyAPIKeyValid:        "API key is valid",
		KeyAPIKeyInvalid:      "API key could not be verified",
		KeyConfigError:        "Configuration error: %s",
		KeyInvalidCredential:  "Invalid API key. Please check your API key in settings.",
		KeyQuotaExceeded:      "API quota exceeded. Please try again later.",
		KeyRateLimited:        "Too many requests sent. Please wait a moment.",
		KeyContentRejected:    "Content does not comply with safety policies.",
		KeyNetworkError:       "Network connection error. Check your internet connection.",
		KeyMalformedRequest:   "Invalid request. The text may be too long or contain unsupported characters.",
		KeyEmptyResponse:      "Gemini returned an empty response.",
		KeyTimeout:            "Request timed out (%s)",
		KeyCanceled:           "Request canceled",
		KeyUnknownError:       "Gemini API error: %s",
	},
	Turkish: {
		KeySelectTextFirst:    "Lütfen yeniden yazmak istediğiniz metni seçin",
		KeyConfigureAPIKey:    "Lütfen önce API anahtarınızı ayarlar sekmesinden girin",
		KeyEmptyText:          "Boş metin yeniden yazılamaz",
		KeyTextTooLong:        "Metin çok uzun! (Tahmini: %d token, Limit: %d)",
		KeyBusy:               "Bir işlem zaten devam ediyor, lütfen bekleyin...",
		KeyThrottled:          "Yeni bir işlem başlatmadan önce lütfen biraz bekleyin",
		KeyRetrying:           "Deneme %d başarısız, tekrar deneniyor...",
		KeyRewriteSuccess:     "Metin başarıyla yeniden yazıldı!",
		KeyAppendSuccess:      "Yeniden yazılan metin notun sonuna eklendi!",
		KeyChangesRejected:    "Değişiklikler reddedildi",
		KeyApplyChanges:       "Bu değişiklikler uygulansın mı?",
		KeyProgressConnecting: "Gemini'a bağlanılıyor...",
		KeyProgressComposing:  "İstek hazırlanıyor...",
		KeyProgressProcessing: "Yanıt işleniyor...",
		KeyProgressDone:       "Tamamlandı",
		KeyPreviewTitle:       "📝 Yeniden Yazılan İçerik Önizlemesi",
		KeyOriginalText:       "📄 Orijinal Metin:",
		KeyRewrittenText:      "✨ Yeniden Yazılan Metin:",
		KeyAccept:             "✅ Kabul Et",
		KeyReject:             "❌ Reddet",
		KeyAPIKeyValid:        "API anahtarı geçerli",
		KeyAPIKeyInvalid:      "API anahtarı doğrulanamadı",
		KeyConfigError:        "Yapılandırma hatası: %s",
		KeyInvalidCredential:  "Geçersiz API anahtarı. Lütfen ayarlardan API anahtarınızı kontrol edin.",
		KeyQuotaExceeded:      "API kullanım limitiniz aşıldı. Lütfen daha sonra tekrar deneyin.",
		KeyRateLimited:        "Çok fazla istek gönderildi. Lütfen bir süre bekleyin.",
		KeyContentRejected:    "İçerik güvenlik politikalarına uygun değil.",
		KeyNetworkError:       "Ağ bağlantısı hatası. İnternet bağlantınızı kontrol edin.",
		KeyMalformedRequest:   "Geçersiz istek. Metin çok uzun veya desteklenmeyen karakterler içeriyor olabilir.",
		KeyEmptyResponse:      "Gemini API boş yanıt döndürdü.",
		KeyTimeout:            "İstek zaman aşımına uğradı (%s)",
		KeyCanceled:           "İstek iptal edildi",
		KeyUnknownError:       "Gemini API hatası: %s",
	},
}

var kindKeys = map[apperr.Kind]Key{
	apperr.KindBusy:              KeyBusy,
	apperr.KindThrottled:         KeyThrottled,
	apperr.KindInvalidCredential: KeyInvalidCredential,
	apperr.KindQuotaExceeded:     KeyQuotaExceeded,
	apperr.KindRateLimited:       KeyRateLimited,
	apperr.KindContentRejected:   KeyContentRejected,
	apperr.KindNetwork:           KeyNetworkError,
	apperr.KindMalformedRequest:  KeyMalformedRequest,
	apperr.KindEmptyResponse:     KeyEmptyResponse,
	apperr.KindCanceled:          KeyCanceled,
}

// Normalize はロケール文字列 ("tr-TR" など) を対応言語に丸めます。未対応は英語です。
func Normalize(locale string) Locale {
	code := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	if code == string(Turkish) {
		return Turkish
	}
	return English
}

// Message はロケールに対応するメッセージを返します。args は書式指定に渡されます。
func Message(locale string, key Key, args ...any) string {
	tmpl, ok := catalog[Normalize(locale)][key]
	if !ok {
		tmpl, ok = catalog[English][key]
		if !ok {
			return string(key)
		}
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// ErrorMessage はエラーの種別ごとに異なるユーザー向けメッセージを返します。
func ErrorMessage(locale string, err error) string {
	if err == nil {
		return ""
	}

	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return Message(locale, KeyUnknownError, err.Error())
	}

	switch ae.Kind {
	case apperr.KindValidation:
		return ae.Message
	case apperr.KindConfig:
		return Message(locale, KeyConfigError, ae.Message)
	case apperr.KindTimeout:
		return Message(locale, KeyTimeout, ae.Message)
	case apperr.KindUnknown:
		return Message(locale, KeyUnknownError, ae.Message)
	}
	if key, ok := kindKeys[ae.Kind]; ok {
		return Message(locale, key)
	}
	return Message(locale, KeyUnknownError, ae.Error())
}
