package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// APIError is the structured error envelope every failure is reported with.
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIError{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeLookupError reports a failed database read: a missing row is
// NOT_FOUND, anything else means the persistence layer is unavailable.
func writeLookupError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", message)
		return
	}
	writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
}
