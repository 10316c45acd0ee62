package routes

import (
	"mingle_server/controllers"
	"mingle_server/services"

	"github.com/gorilla/mux"
)

// RegisterPoolRoutes sets up routes for waiting-pool operations under /api/pool
func RegisterPoolRoutes(r *mux.Router, poolService *services.PoolService) {
	controller := controllers.NewPoolController(poolService)

	poolRouter := r.PathPrefix("/api/pool").Subrouter()

	poolRouter.HandleFunc("/join", controller.HandleJoin).Methods("POST")
	poolRouter.HandleFunc("/status", controller.HandleStatus).Methods("GET")
	poolRouter.HandleFunc("/poll", controller.HandlePoll).Methods("GET")
	poolRouter.HandleFunc("/leave", controller.HandleLeave).Methods("POST")
}
