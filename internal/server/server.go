// Package server provides the HTTP API for shirabe.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/keyword"
	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/tools"
	"github.com/hyperjump/shirabe/internal/trace"
	"go.uber.org/zap"
)

// requestTimeout bounds a single API call, including generation retries.
const requestTimeout = 5 * time.Minute

// Chatter answers chat queries.
type Chatter interface {
	Run(ctx context.Context, query, mode string) (*models.ChatResult, error)
}

// IndexBuilder rebuilds the document index.
type IndexBuilder interface {
	BuildIndex(ctx context.Context, dir string) (*models.IndexStats, error)
}

// DocumentSearcher queries the document index.
type DocumentSearcher interface {
	Query(ctx context.Context, question string, k int) ([]models.DocumentHit, error)
	Grep(ctx context.Context, query string, k int, opts *keyword.SearchOptions) ([]models.KeywordHit, error)
}

// EpisodeSearcher reads episodic memory.
type EpisodeSearcher interface {
	Search(ctx context.Context, query string, k int) ([]models.EpisodeHit, error)
	LoadRecent(limit int) ([]models.Episode, error)
}

// Reflector runs a critic pass over recent episodes.
type Reflector interface {
	Run(ctx context.Context, limit int) (*models.Reflection, error)
}

// Researcher runs standalone web research.
type Researcher interface {
	Research(ctx context.Context, query string, depth, maxResults int) (*models.ResearchReport, error)
}

// Deps are the services behind the API. A nil service answers 503.
type Deps struct {
	Chat       Chatter
	Indexer    IndexBuilder
	Documents  DocumentSearcher
	Memory     EpisodeSearcher
	Reflector  Reflector
	Researcher Researcher
	Files      *tools.Files
	Traces     trace.Reader
}

// Server is the HTTP server for the shirabe API.
type Server struct {
	deps   Deps
	config *config.Config
	caps   *config.Capabilities
	logger *zap.Logger
	router chi.Router
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.Config, caps *config.Capabilities, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if caps == nil {
		caps = &config.Capabilities{}
	}
	s := &Server{
		deps:   deps,
		config: cfg,
		caps:   caps,
		logger: logger,
	}
	s.setupRouter()
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.caps.Frontend {
		origins := s.config.Server.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Post("/chat", s.handleChat)
		r.Post("/rag/index", s.handleRAGIndex)
		r.Post("/rag/query", s.handleRAGQuery)
		r.Get("/rag/grep", s.handleRAGGrep)
		r.Post("/research", s.handleResearch)
		r.Post("/memory/search", s.handleMemorySearch)
		r.Get("/memory/recent", s.handleMemoryRecent)
		r.Post("/reflection/run", s.handleReflection)
		r.Get("/traces/{runID}", s.handleTrace)
		r.Get("/tools/files", s.handleToolFiles)
		r.Get("/tools/read", s.handleToolRead)
		r.Get("/tools/list", s.handleToolList)
	})
	s.router = r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops. After Stop it
// returns http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
