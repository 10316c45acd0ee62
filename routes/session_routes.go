package routes

import (
	"mingle_server/controllers"
	"mingle_server/services"

	"github.com/gorilla/mux"
)

// RegisterSessionRoutes sets up routes for session operations under /api/session
func RegisterSessionRoutes(r *mux.Router, sessionService *services.SessionService) {
	controller := controllers.NewSessionController(sessionService)

	sessionRouter := r.PathPrefix("/api/session").Subrouter()

	sessionRouter.HandleFunc("/{sessionId}", controller.HandleGetSession).Methods("GET")
	sessionRouter.HandleFunc("/{sessionId}/prompt", controller.HandleSubmitPrompt).Methods("POST")
	sessionRouter.HandleFunc("/{sessionId}/answer", controller.HandleSubmitAnswer).Methods("POST")
	sessionRouter.HandleFunc("/{sessionId}/round", controller.HandleRoundResult).Methods("GET")
	sessionRouter.HandleFunc("/{sessionId}/feedback", controller.HandleRateFeedback).Methods("POST")
	sessionRouter.HandleFunc("/{sessionId}/advance", controller.HandleAdvanceRound).Methods("POST")
	sessionRouter.HandleFunc("/{sessionId}/leave", controller.HandleLeaveSession).Methods("POST")
}
