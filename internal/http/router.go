package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ciq-assistant/internal/handlers"
	"ciq-assistant/internal/service"
	"ciq-assistant/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	QueryService   service.QueryService
	SchemaService  service.SchemaService
	DB             handlers.Pinger
	Store          vectorstore.Store
	MaxUploadBytes int64
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	// Add CORS middleware
	r.Use(CORS)

	queryHandler := handlers.NewQueryHandler(deps.QueryService, deps.SchemaService, deps.MaxUploadBytes)
	confirmHandler := handlers.NewConfirmHandler(deps.SchemaService)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Store)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Hello, I am the server"))
	})
	r.Method(http.MethodGet, "/health", healthHandler)
	r.Method(http.MethodPost, "/query", queryHandler)
	r.Method(http.MethodPost, "/confirm-update", confirmHandler)

	return r
}
