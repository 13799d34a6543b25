package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Quekzhengseng/ggdotcom/internal/api"
	"github.com/Quekzhengseng/ggdotcom/internal/api/tour"
)

// Config contains dependencies needed for the router setup
type Config struct {
	TourHandler *tour.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "photo_reference", "max_width"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Uptime probes hit this on GET and HEAD.
	r.Get("/ping", pingHandler)
	r.Head("/ping", pingHandler)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		api.WriteJSONResponse(w, req, http.StatusOK, map[string]string{
			"message": "Tour Guide API is running!",
		})
	})

	r.Post("/chat", cfg.TourHandler.Chat)
	r.Post("/scan", cfg.TourHandler.Scan)
	r.Get("/messages", cfg.TourHandler.Messages)
	r.Post("/image", cfg.TourHandler.Photo)

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func pingHandler(w http.ResponseWriter, req *http.Request) {
	api.WriteJSONResponse(w, req, http.StatusOK, map[string]string{
		"message": "Service is up!",
	})
}
