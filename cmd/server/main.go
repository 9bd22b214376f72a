package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/fluenta/backend/internal/auth"
	"github.com/fluenta/backend/internal/database"
	"github.com/fluenta/backend/internal/gamification"
	"github.com/fluenta/backend/internal/leaderboard"
	"github.com/fluenta/backend/internal/middleware"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Println("[server] loaded .env")
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Leaderboards work without Redis, just without snapshot caching.
	var cache leaderboard.Cache = leaderboard.NopCache{}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisCache, err := leaderboard.NewRedisCache(redisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisCache.Close()
		cache = redisCache
	}

	store := gamification.NewStore(db)
	service := gamification.NewService(store)
	tracker := gamification.NewTracker(store)
	aggregator := leaderboard.NewAggregator(db, cache)

	authHandler := auth.NewHandler(db)
	gamHandler := gamification.NewHandler(service, tracker, aggregator)

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger)
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	protected.HandleFunc("/gamification/activities", gamHandler.RecordActivity).Methods("POST")
	protected.HandleFunc("/gamification/profile", gamHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/gamification/challenges", gamHandler.GetChallenges).Methods("GET")
	protected.HandleFunc("/gamification/leaderboard", gamHandler.GetLeaderboard).Methods("GET")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminOnly)
	admin.HandleFunc("/gamification/sync-levels", gamHandler.SyncLevels).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Background workers stop on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go tracker.StartSweepWorker(ctx)
	go aggregator.StartRefreshWorker(ctx)

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Admin-Token"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
