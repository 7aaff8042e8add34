package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"pricehunter/aggregator"
	"pricehunter/config"
	"pricehunter/database"
	"pricehunter/fetch"
	"pricehunter/handlers"
	"pricehunter/middleware"
	"pricehunter/scheduler"
	"pricehunter/sources"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Persistence is optional: without DATABASE_URL the service still
	// aggregates, it just skips history and saved searches.
	dbEnabled := os.Getenv("DATABASE_URL") != ""
	if dbEnabled {
		if err := database.InitDatabase(); err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer database.CloseDatabase()

		if err := database.CreateTables(); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
	} else {
		log.Println("DATABASE_URL not set - running without persistence")
	}

	opts := aggregator.Options{
		OverlapThreshold: cfg.GroupOverlapThreshold,
		TitleMaxTokens:   cfg.TitleMaxTokens,
	}
	// Supersession only applies between interactive searches, so everything
	// else (each async task, the cron checker) runs on its own aggregator.
	agg := aggregator.New(buildAdapters(cfg), aggregator.LogSink{}, opts)
	newAgg := func() *aggregator.Aggregator {
		return aggregator.New(buildAdapters(cfg), aggregator.LogSink{}, opts)
	}

	// Initialize handlers
	h := handlers.NewHandlers(agg, newAgg, cfg.MaxTaskWorkers, dbEnabled)
	defer h.Close()

	// Scheduled re-checks need the database for saved searches.
	if dbEnabled {
		searchChecker := scheduler.NewSearchChecker(newAgg())
		searchChecker.Start()
		defer searchChecker.Stop()
	}

	// Setup router
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RateLimitMiddleware(cfg.RateLimitRPS))
	r.Use(middleware.APIKeyMiddleware(cfg.RequireAPIKey))

	// Health endpoint (no auth required)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// API v1 routes
	apiV1 := r.PathPrefix("/api/v1").Subrouter()

	// Search
	apiV1.HandleFunc("/search", h.Search).Methods("GET")
	apiV1.HandleFunc("/search-async", h.SearchAsync).Methods("POST")

	// Task management; /tasks/stats must register before /tasks/{taskId}
	apiV1.HandleFunc("/tasks/stats", h.GetTaskStats).Methods("GET")
	apiV1.HandleFunc("/tasks/{taskId}", h.GetTaskStatus).Methods("GET")

	// Search history
	apiV1.HandleFunc("/history", h.GetSearchHistory).Methods("GET")
	apiV1.HandleFunc("/history/trend", h.GetPriceTrend).Methods("GET")

	// Saved searches
	apiV1.HandleFunc("/watches", h.AddWatch).Methods("POST")
	apiV1.HandleFunc("/watches", h.GetWatches).Methods("GET")
	apiV1.HandleFunc("/watches/{id}", h.DeleteWatch).Methods("DELETE")

	// CORS configuration
	c := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	log.Printf("🌐 Server starting on port %s", cfg.Port)
	log.Printf("📋 API endpoints:")
	log.Printf("   GET    /health - Health check")
	log.Printf("   GET    /api/v1/search?q= - Search all stores")
	log.Printf("   POST   /api/v1/search-async - Queue an async search")
	log.Printf("   GET    /api/v1/tasks/{taskId} - Async task status")
	log.Printf("   GET    /api/v1/history - Recent searches")
	log.Printf("   POST   /api/v1/watches - Save a search for re-checking")

	// Start server
	log.Fatal(http.ListenAndServe(cfg.Host+":"+cfg.Port, c.Handler(r)))
}

// buildAdapters constructs the three store adapters from config. Each call
// returns fresh instances; adapters are stateless beyond their HTTP client.
func buildAdapters(cfg *config.Config) []sources.Adapter {
	client := sources.NewClient()

	pool := fetch.PoolOptions{
		Concurrency: cfg.DetailConcurrency,
		Timeout:     cfg.DetailTimeout,
		MaxRetries:  cfg.DetailMaxRetries,
		BaseDelay:   cfg.RetryBaseDelay,
	}

	return []sources.Adapter{
		sources.NewAmazonAdapter(client, cfg.AmazonWorkerURL, cfg.SearchTimeout),
		sources.NewNoonAdapter(client, cfg.NoonWorkerURL, cfg.SearchTimeout),
		sources.NewSharafAdapter(client, cfg.SharafSearchURL, cfg.SharafProductURL, cfg.SearchTimeout, cfg.MaxDetailLinks, pool),
	}
}
