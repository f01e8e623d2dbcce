package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// RespondWithJSON writes a JSON response with the given status code.
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// RespondWithError writes a JSON error response in the form {"error": message}.
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithJSON(w, statusCode, map[string]string{"error": message})
}

// RespondWithSuccess writes a JSON success response in the form
// {"success": true, "message": message}.
func RespondWithSuccess(w http.ResponseWriter, statusCode int, message string) {
	RespondWithJSON(w, statusCode, map[string]interface{}{
		"success": true,
		"message": message,
	})
}
