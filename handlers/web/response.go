package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"geminify/apperr"
)

type errorResponse struct {
	Error string      `json:"error"`
	Kind  apperr.Kind `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string, kind apperr.Kind) {
	writeJSON(w, code, errorResponse{Error: msg, Kind: kind})
}

// writeAppError は apperr の種別に応じたステータスでエラーを返します。
func writeAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	msg := err.Error()
	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg = ae.Message
	}
	writeError(w, statusForKind(kind), msg, kind)
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindConfig:
		return http.StatusBadRequest
	case apperr.KindBusy:
		return http.StatusConflict
	case apperr.KindThrottled, apperr.KindRateLimited, apperr.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	case apperr.KindCanceled:
		return http.StatusRequestTimeout
	case apperr.KindContentRejected:
		return http.StatusUnprocessableEntity
	case apperr.KindInvalidCredential, apperr.KindNetwork, apperr.KindMalformedRequest,
		apperr.KindEmptyResponse, apperr.KindUnknown:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody はJSONボディを読みます。allowEmpty が真なら空のボディを許可します。
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, allowEmpty bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	if allowEmpty && errors.Is(err, io.EOF) {
		return true
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "")
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid JSON body", "")
	return false
}
