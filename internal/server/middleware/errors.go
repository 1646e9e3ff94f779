package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError writes the API error envelope. Middleware sits below the
// response package's callers, so it encodes the envelope itself.
func writeError(w http.ResponseWriter, status int, code, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]string{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
