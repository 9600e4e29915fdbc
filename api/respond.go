package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go-taskbus/logger"
	"go-taskbus/producer"
)

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
	Hint  string `json:"hint,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any, lg *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		lg.Error("failed to encode response", map[string]any{"error": err.Error()})
	}
}

func respondWithError(w http.ResponseWriter, status int, errType, message string, lg *logger.Logger) {
	lg.Warn("HTTP error response", map[string]any{
		"status_code":   status,
		"error_type":    errType,
		"error_message": message,
	})
	writeJSON(w, status, errorResponse{Error: message, Type: errType}, lg)
}

// respondWithPublishError maps a failed send to 413 for oversized messages
// and 502 for everything the broker side rejected.
func respondWithPublishError(w http.ResponseWriter, err error, lg *logger.Logger) {
	resp := errorResponse{Error: err.Error(), Type: "publish"}
	status := http.StatusBadGateway

	var pe *producer.PublishError
	if errors.As(err, &pe) {
		resp.Type = string(pe.Reason)
		resp.Hint = pe.Hint()
		if pe.Reason == producer.ReasonMessageTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
	}

	lg.Error("publish failed", map[string]any{
		"status_code": status,
		"error":       err.Error(),
	})
	writeJSON(w, status, resp, lg)
}
