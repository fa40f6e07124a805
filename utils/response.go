package utils

import (
	"encoding/json"
	"net/http"

	"eventweb/apperr"
	"eventweb/logger"

	"go.uber.org/zap"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Get().Warn("encode response", zap.Error(err))
	}
}

func RespondSuccess(w http.ResponseWriter, status int, msg string, data any) {
	RespondWithJSON(w, status, Envelope{Success: true, Message: msg, Data: data})
}

// RespondFailure answers with an explicit status, for failures raised by
// the HTTP layer itself.
func RespondFailure(w http.ResponseWriter, status int, msg string) {
	RespondWithJSON(w, status, Envelope{Success: false, Message: msg})
}

// RespondError derives the status from the error kind. Unexpected errors
// are logged and reported generically.
func RespondError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindUnexpected {
		logger.Get().Error("unexpected error", zap.Error(err))
	}
	RespondFailure(w, apperr.HTTPStatus(kind), apperr.Message(err))
}
