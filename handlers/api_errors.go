package handlers

import (
	"encoding/json"
	"net/http"
)

const internalServerErrorMessage = "Internal Server Error"

// APIErrorResponse is the error body returned by every endpoint.
type APIErrorResponse struct {
	Message string `json:"message"`
}

// WriteAPIError writes an error response with the given HTTP status and message.
func WriteAPIError(w http.ResponseWriter, httpStatus int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(APIErrorResponse{Message: message})
}

// WriteInternalError hides the failure behind a generic message.
func WriteInternalError(w http.ResponseWriter) {
	WriteAPIError(w, http.StatusInternalServerError, internalServerErrorMessage)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
