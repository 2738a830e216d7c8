package main

import (
	"encoding/json"
	"net/http"
	"time"
)

const (
	// minLeadTime is the minimum gap between "now" and a slot's start for it
	// to be bookable.
	minLeadTime = 2 * time.Hour
	// horizonDays is the booking horizon: today plus the next seven days.
	horizonDays = 8
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
