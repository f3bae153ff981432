package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/shirabe/internal/agent"
	"github.com/hyperjump/shirabe/internal/indexer"
	"github.com/hyperjump/shirabe/internal/keyword"
	"github.com/hyperjump/shirabe/internal/search"
	"github.com/hyperjump/shirabe/internal/tools"
	"github.com/hyperjump/shirabe/internal/trace"
	"github.com/hyperjump/shirabe/internal/web"
	"go.uber.org/zap"
)

type chatRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode"`
}

type ragIndexRequest struct {
	Dir string `json:"dir"`
}

type ragQueryRequest struct {
	Question string `json:"question"`
	K        *int   `json:"k"`
}

type researchRequest struct {
	Query      string `json:"query"`
	Depth      *int   `json:"depth"`
	MaxResults *int   `json:"max_results"`
}

type memorySearchRequest struct {
	Query string `json:"query"`
	K     *int   `json:"k"`
}

var errUnavailable = errors.New("service not configured")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"model":            s.config.LLM.Model,
		"base_url":         s.config.LLM.BaseURL,
		"web_enabled":      s.caps.WebEnabled,
		"frontend_enabled": s.caps.Frontend,
		"capabilities":     s.caps,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	if s.deps.Chat == nil {
		s.fail(w, errUnavailable)
		return
	}
	s.logger.Debug("chat request", zap.String("mode", req.Mode))
	res, err := s.deps.Chat.Run(r.Context(), req.Message, req.Mode)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleRAGIndex(w http.ResponseWriter, r *http.Request) {
	var req ragIndexRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	if s.deps.Indexer == nil {
		s.fail(w, errUnavailable)
		return
	}
	dir := req.Dir
	if dir == "" {
		dir = s.config.Storage.DocsDir
	}
	stats, err := s.deps.Indexer.BuildIndex(r.Context(), dir)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRAGQuery(w http.ResponseWriter, r *http.Request) {
	var req ragQueryRequest
	if !s.decode(w, r, &req) {
		return
	}
	k, ok := s.bounded(w, "k", req.K, search.DefaultK, 1, 10)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	if s.deps.Documents == nil {
		s.fail(w, errUnavailable)
		return
	}
	hits, err := s.deps.Documents.Query(r.Context(), req.Question, k)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"results": hits})
}

func (s *Server) handleRAGGrep(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	k, ok := s.queryInt(w, r, "k", search.DefaultK, 1, 50)
	if !ok {
		return
	}
	if s.deps.Documents == nil {
		s.fail(w, errUnavailable)
		return
	}
	opts := &keyword.SearchOptions{FuzzyEnabled: r.URL.Query().Get("fuzzy") == "true"}
	hits, err := s.deps.Documents.Grep(r.Context(), q, k, opts)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"results": hits})
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if !s.decode(w, r, &req) {
		return
	}
	depth, ok := s.bounded(w, "depth", req.Depth, 1, 0, 3)
	if !ok {
		return
	}
	maxResults, ok := s.bounded(w, "max_results", req.MaxResults, web.DefaultSearchK, 1, 10)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if s.deps.Researcher == nil {
		s.fail(w, errUnavailable)
		return
	}
	report, err := s.deps.Researcher.Research(r.Context(), req.Query, depth, maxResults)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleMemorySearch(w http.ResponseWriter, r *http.Request) {
	var req memorySearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	k, ok := s.bounded(w, "k", req.K, 3, 1, 10)
	if !ok {
		return
	}
	if s.deps.Memory == nil {
		s.fail(w, errUnavailable)
		return
	}
	hits, err := s.deps.Memory.Search(r.Context(), req.Query, k)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"episodes": hits})
}

func (s *Server) handleMemoryRecent(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.queryInt(w, r, "limit", 10, 1, 1000)
	if !ok {
		return
	}
	if s.deps.Memory == nil {
		s.fail(w, errUnavailable)
		return
	}
	eps, err := s.deps.Memory.LoadRecent(limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"episodes": eps})
}

func (s *Server) handleReflection(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.queryInt(w, r, "limit", 5, 1, 100)
	if !ok {
		return
	}
	if s.deps.Reflector == nil {
		s.fail(w, errUnavailable)
		return
	}
	rec, err := s.deps.Reflector.Run(r.Context(), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"notes": rec.Notes, "episode_count": rec.EpisodeCount})
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if s.deps.Traces == nil {
		s.fail(w, errUnavailable)
		return
	}
	events, err := s.deps.Traces.ReadRun(r.Context(), runID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"run_id": runID, "events": events})
}

func (s *Server) handleToolFiles(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.queryInt(w, r, "limit", tools.DefaultSearchLimit, 1, 100)
	if !ok {
		return
	}
	if s.deps.Files == nil {
		s.fail(w, errUnavailable)
		return
	}
	matches, err := s.deps.Files.SearchLocalFiles(r.URL.Query().Get("pattern"), limit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"files": matches})
}

func (s *Server) handleToolRead(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	if s.deps.Files == nil {
		s.fail(w, errUnavailable)
		return
	}
	content, err := s.deps.Files.ReadFile(path)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, content)
}

func (s *Server) handleToolList(w http.ResponseWriter, r *http.Request) {
	if s.deps.Files == nil {
		s.fail(w, errUnavailable)
		return
	}
	listing, err := s.deps.Files.ListDir(r.URL.Query().Get("path"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, listing)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// bounded returns *v, or def when v is nil, rejecting values outside [lo, hi].
func (s *Server) bounded(w http.ResponseWriter, name string, v *int, def, lo, hi int) (int, bool) {
	if v == nil {
		return def, true
	}
	if *v < lo || *v > hi {
		s.respondError(w, http.StatusBadRequest, name+" must be between "+strconv.Itoa(lo)+" and "+strconv.Itoa(hi))
		return 0, false
	}
	return *v, true
}

func (s *Server) queryInt(w http.ResponseWriter, r *http.Request, name string, def, lo, hi int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return s.bounded(w, name, &n, def, lo, hi)
}

// fail maps err to a status code. Sentinels users can act on keep their
// message; anything else is logged and reported as an internal error.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, search.ErrIndexNotBuilt),
		errors.Is(err, agent.ErrNoEpisodes),
		errors.Is(err, trace.ErrInvalidRunID):
		status = http.StatusBadRequest
	case errors.Is(err, indexer.ErrNoDocumentsFound),
		errors.Is(err, trace.ErrRunNotFound),
		errors.Is(err, fs.ErrNotExist):
		status = http.StatusNotFound
	case errors.Is(err, tools.ErrOutsideDocs):
		status = http.StatusForbidden
	case errors.Is(err, web.ErrWebDisabled), errors.Is(err, errUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
