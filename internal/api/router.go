// Package api serves the drawing and thumbnail endpoints.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
)

type RouterOptions struct {
	ServiceName string
	Timeout     time.Duration
	JSONLogs    bool
}

// NewRouter mounts every endpoint behind request logging, CORS and the
// per-request timeout.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	if opts.ServiceName == "" {
		opts.ServiceName = "drawing-thumbnailer"
	}
	requestLogger := httplog.NewLogger(opts.ServiceName, httplog.Options{
		JSON:     opts.JSONLogs,
		LogLevel: slog.LevelInfo,
		Concise:  true,
	})

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httplog.RequestLogger(requestLogger, []string{"/healthz"}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type"},
		MaxAge:         300,
	}))
	if opts.Timeout > 0 {
		r.Use(middleware.Timeout(opts.Timeout))
	}

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate-thumbnail", h.GenerateThumbnail)
		r.Route("/drawings", func(r chi.Router) {
			r.Get("/", h.ListDrawings)
			r.Post("/", h.UploadDrawing)
			r.Get("/{id}/thumbnail", h.GetThumbnail)
			r.Post("/{id}/thumbnail", h.RegenerateThumbnail)
		})
	})
	r.Post("/functions/v1/generate-thumbnail", h.GenerateForDrawing)

	return r
}
