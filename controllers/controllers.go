package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"mingle_server/services"
)

// WriteJSONResponse writes a JSON payload with the given status code
func WriteJSONResponse(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// WriteDomainError translates the domain failure taxonomy into response codes.
// Everything here is a local validation failure; the client's remediation is
// a re-poll or corrected input, never a server-side retry.
func WriteDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrUnknownMode),
		errors.Is(err, services.ErrInvalidGroupSize),
		errors.Is(err, services.ErrInvalidAnswer):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotInQueue),
		errors.Is(err, services.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrParticipantMismatch):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotYourTurn),
		errors.Is(err, services.ErrWrongPhase),
		errors.Is(err, services.ErrAlreadyAnswered):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log.Printf("❌ Request failed: %v", err)
	}
	WriteJSONResponse(w, status, map[string]string{"error": err.Error()})
}

// HealthCheckHandler provides a basic health check
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// WelcomeHandler provides a welcome message
func WelcomeHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Welcome to the Mingle games API."})
}
