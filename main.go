package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"mingle_server/controllers"
	"mingle_server/routes"
	"mingle_server/services"
	"mingle_server/socket"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	var (
		store    services.GameStore
		profiles services.ProfileResolver
	)

	if os.Getenv("STORAGE_BACKEND") == "memory" {
		log.Println("Using in-memory storage backend (local development).")
		store = services.NewMemoryGameStore()
		profiles = services.StaticProfileResolver{}
	} else {
		log.Println("Initializing DynamoDB client...")
		dynamoService := &services.DynamoService{Client: services.InitializeDynamoDBClient()}
		store = &services.DynamoGameStore{Dynamo: dynamoService}
		profiles = &services.UserProfileService{Dynamo: dynamoService}
		log.Println("DynamoDB client initialized.")
	}

	// Socket.IO hints only shorten the polling loop; polling stays the source of truth.
	broadcaster := socket.NewBroadcaster()

	poolService := &services.PoolService{Store: store, Notifier: broadcaster, Profiles: profiles}
	sessionService := &services.SessionService{Store: store, Profiles: profiles}

	reaperInterval := 45 * time.Second
	if v := os.Getenv("REAPER_INTERVAL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			reaperInterval = time.Duration(secs) * time.Second
		}
	}
	reaper := &services.ReaperService{Store: store, Interval: reaperInterval}
	reaper.Start()
	defer reaper.Stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Using server port: %s\n", port)

	r := mux.NewRouter()

	r.HandleFunc("/", controllers.WelcomeHandler).Methods("GET")
	r.HandleFunc("/health", controllers.HealthCheckHandler).Methods("GET")

	routes.RegisterPoolRoutes(r, poolService)
	routes.RegisterSessionRoutes(r, sessionService)

	go func() {
		if err := broadcaster.Server().Serve(); err != nil {
			log.Printf("❌ Socket server error: %v", err)
		}
	}()
	defer broadcaster.Server().Close()
	r.Handle("/socket.io/", broadcaster.Server())

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Adjust for specific domains if needed
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	log.Printf("Starting server on port %s...\n", port)
	log.Fatal(http.ListenAndServe(":"+port, corsHandler))
}
