package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// errResponse is the uniform error envelope: a short kind plus a
// human-readable message.
type errResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func errorBody(kind, msg string) errResponse {
	return errResponse{Error: kind, Message: msg}
}
