package handler

import (
	"encoding/json"
	"net/http"
)

// errorEnvelope is the uniform error shape for every endpoint.
type errorEnvelope struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, errorEnvelope{Status: "error", Error: detail})
}
