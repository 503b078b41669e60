package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"storyweaver/internal/handlers"
	"storyweaver/internal/journey"
	"storyweaver/internal/persona"
	"storyweaver/internal/registry"
	"storyweaver/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Pipeline    handlers.StoryStreamer
	Journeys    *journey.Store
	Registry    *registry.Registry
	Personas    *persona.Set
	VectorStore vectorstore.VectorStore
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	storyHandler := handlers.NewStoryHandler(deps.Pipeline)
	journeysHandler := handlers.NewJourneysHandler(deps.Journeys)
	corporaHandler := handlers.NewCorporaHandler(deps.Registry)
	personasHandler := handlers.NewPersonasHandler(deps.Personas)
	healthHandler := handlers.NewHealthHandler(deps.Registry, deps.VectorStore)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/stream_story", storyHandler)

		r.Get("/journeys", journeysHandler.List)
		r.Get("/journeys/{journeyID}", journeysHandler.Get)
		r.Delete("/journeys/{journeyID}", journeysHandler.Delete)

		r.Get("/corpora", corporaHandler.List)
		r.Get("/corpora/{name}/status", corporaHandler.Status)

		r.Method(http.MethodGet, "/personas", personasHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
