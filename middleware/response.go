package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    goSession.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

// WriteError writes err as {"error":{"code":..,"message":..}} with the
// status from goSession.StatusCode. Errors that are not *goSession.Error
// are reported as internal without their text.
func WriteError(w http.ResponseWriter, err error) {
	status := goSession.StatusCode(err)
	detail := errorDetail{Code: goSession.CodeInternal, Message: goSession.ErrInternal.Message}
	if ae, ok := asAuthError(err); ok {
		detail = errorDetail{Code: ae.Code, Message: ae.Message}
	}
	WriteJSON(w, status, errorBody{Error: detail})
}

// WriteJSON writes v as JSON with caching disabled.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache marks the response as not storable. Every response that sets or
// clears session cookies should carry it.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

func asAuthError(err error) (*goSession.Error, bool) {
	var ae *goSession.Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
