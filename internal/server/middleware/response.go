package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/iudanet/repsync/pkg/api"
)

// writeError отправляет api.ErrorResponse, который разбирает клиент
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: http.StatusText(status), Message: message})
}
