package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"taskbridge/internal/usecase"
)

// Deps carries the collaborators the HTTP layer exposes. The server owns no
// state of its own.
type Deps struct {
	Tasks       *usecase.Orchestrator
	Workspaces  usecase.Workspaces
	Users       usecase.Users
	CheckRemote func(ctx context.Context) error
	CheckStore  func(ctx context.Context) error
}

func NewServer(deps Deps) *Server {
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Get("/healthz", h.health)

	r.Route("/workspaces", func(r chi.Router) {
		r.Post("/", h.createWorkspace)
		r.Route("/{platform}/{platformID}", func(r chi.Router) {
			r.Get("/", h.getWorkspace)
			r.Patch("/", h.updateWorkspace)
			r.Delete("/", h.deleteWorkspace)
			r.Post("/tasks", h.createTask)
			r.Get("/tasks", h.listTasks)
		})
	})

	r.Post("/users", h.createUserMapping)
	r.Get("/users/{platform}/{platformUserID}", h.getUserMapping)
	r.Delete("/users/{platform}/{platformUserID}", h.deleteUserMapping)

	r.Patch("/tasks/{taskID}", h.updateTask)
	r.Delete("/tasks/{taskID}", h.deleteTask)

	return &Server{router: r}
}

type Server struct {
	router *chi.Mux
}

// Handler returns the fully wrapped HTTP handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	return chainMiddleware(
		s.router,
		recoverHandler,
		loggerHandler(func(w http.ResponseWriter, r *http.Request) bool { return r.URL.Path == "/healthz" }),
		realIPHandler,
		requestIDHandler,
		corsHandler,
	)
}

// Run serves HTTP on the given port until SIGINT/SIGTERM, then shuts down
// gracefully.
func (s *Server) Run(port int) {
	addr := fmt.Sprintf(":%d", port)

	httpServer := http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.Fatal().Err(err).Msg("Server forced to shutdown")
		}

		close(done)
	}()

	log.Info().Msgf("server serving on port %d", port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Failed to listen and serve")
	}

	<-done
	log.Info().Msg("Server stopped")
}
