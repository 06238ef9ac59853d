package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/fittrack/internal/engine"
	"github.com/meltforce/fittrack/internal/storage"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store  storage.Store
	engine *engine.Engine
	log    *slog.Logger
	apiKey string
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(store storage.Store, eng *engine.Engine, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		store:  store,
		engine: eng,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))

		r.Get("/exercises", s.handleListExercises)

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", s.handleListTemplates)
			r.Post("/", s.handleCreateTemplate)
			r.Get("/{id}", s.handleGetTemplate)
			r.Put("/{id}", s.handleUpdateTemplate)
			r.Delete("/{id}", s.handleDeleteTemplate)
			r.Post("/{id}/duplicate", s.handleDuplicateTemplate)
		})

		r.Route("/workout", func(r chi.Router) {
			r.Get("/", s.handleGetWorkout)
			r.Post("/start", s.handleStartWorkout)
			r.Post("/sets", s.handleLogSet)
			r.Post("/advance", s.handleAdvance)
			r.Post("/rest/toggle", s.handleRestToggle)
			r.Post("/rest/reset", s.handleRestReset)
			r.Post("/rest/skip", s.handleRestSkip)
			r.Post("/rest/adjust", s.handleRestAdjust)
			r.Post("/modify", s.handleModify)
			r.Post("/complete/resume", s.handleResumeCompletion)
			r.Post("/finish", s.handleFinishWorkout)
			r.Post("/discard", s.handleDiscardWorkout)
		})

		r.Route("/sets", func(r chi.Router) {
			r.Get("/", s.handleQuerySets)
			r.Get("/weekly", s.handleWeeklyVolume)
			r.Put("/{id}", s.handleUpdateSet)
			r.Delete("/{id}", s.handleDeleteSet)
		})

		r.Get("/weight", s.handleListWeight)
		r.Post("/weight", s.handleLogWeight)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		r.Get("/storage/health", s.handleStorageHealth)
		r.Get("/export", s.handleExport)
	})
}
