package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/kirillkom/news-classifier/internal/core/domain"
)

const (
	codeInvalidInput       = "INVALID_INPUT"
	codeBatchTooLarge      = "BATCH_TOO_LARGE"
	codeInternalError      = "INTERNAL_ERROR"
	codeServiceUnavailable = "SERVICE_UNAVAILABLE"
	codeUnauthorized       = "UNAUTHORIZED"
	codeTooManyRequests    = "TOO_MANY_REQUESTS"
)

type errorBody struct {
	Code      string `json:"code"`
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:      code,
		Detail:    detail,
		RequestID: domain.RequestIDFromContext(r.Context()),
	}})
}

// writeDomainError maps a use case error onto the HTTP error envelope.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
	case domain.IsKind(err, domain.ErrBatchTooLarge):
		writeError(w, r, http.StatusBadRequest, codeBatchTooLarge, err.Error())
	case domain.IsKind(err, domain.ErrModelUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, codeServiceUnavailable, "model backend is unavailable")
	default:
		writeError(w, r, http.StatusInternalServerError, codeInternalError, "prediction failed")
	}
}
