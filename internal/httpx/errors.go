package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ariefcatur/marketplace-orders/internal/apperr"
)

type errorBody struct {
	Code    apperr.Code      `json:"code"`
	Message string           `json:"message"`
	Details *apperr.Shortage `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError maps err onto a status code. Internal details never reach the client.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind == apperr.KindInternal {
		log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]errorBody{
			"error": {Code: apperr.CodeInternal, Message: "internal server error"},
		})
		return
	}
	writeJSON(w, statusOf(ae.Kind), map[string]errorBody{
		"error": {Code: ae.Code, Message: ae.Error(), Details: ae.Shortage},
	})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]errorBody{
		"error": {Code: apperr.CodeValidation, Message: msg},
	})
}
