// Package memory is the episodic memory: a similarity index over past
// (query, response) interactions backed by an append-only audit log.
package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/shirabe/internal/embedding"
	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/vector"
	"go.uber.org/zap"
)

// File names under the memory directory.
const (
	IndexFile       = "episodic.bin"
	MetadataFile    = "episodes.json"
	LogFile         = "episodes.jsonl"
	ReflectionsFile = "reflections.jsonl"
)

// maxLineSize bounds a single audit log line.
const maxLineSize = 16 << 20

// Store records and searches episodes.
type Store struct {
	dir      string
	embedder embedding.Embedder
	episodes *vector.Collection[models.Episode]
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
	logMu    sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the time source used for episode timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore opens the episodic memory rooted at dir, creating dir if needed.
func NewStore(dir, indexType string, embedder embedding.Embedder, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory dir: %w", err)
	}
	s := &Store{
		dir:      dir,
		embedder: embedder,
		now:      time.Now,
		newID:    func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
	for _, opt := range opts {
		opt(s)
	}
	var collOpts []vector.CollectionOption
	if s.logger != nil {
		collOpts = append(collOpts, vector.WithLogger(s.logger))
	}
	s.episodes = vector.NewCollection[models.Episode](
		indexType,
		filepath.Join(dir, IndexFile),
		filepath.Join(dir, MetadataFile),
		collOpts...,
	)
	return s, nil
}

func episodeText(query, response string) string {
	return "Question: " + query + "\nAnswer: " + response
}

// RecordEpisode embeds and stores one interaction and appends it to the
// audit log. It is a no-op returning (nil, nil) when query or response is empty.
func (s *Store) RecordEpisode(ctx context.Context, query, response, mode string, sources []string, meta map[string]any) (*models.Episode, error) {
	if query == "" || response == "" {
		return nil, nil
	}
	if sources == nil {
		sources = []string{}
	}
	if meta == nil {
		meta = map[string]any{}
	}
	ep := models.Episode{
		ID:        s.newID(),
		Timestamp: models.UnixSeconds(s.now()),
		Query:     query,
		Response:  response,
		Mode:      mode,
		Sources:   sources,
		Meta:      meta,
	}

	emb, err := s.embedder.Embed(ctx, episodeText(query, response))
	if err != nil {
		return nil, fmt.Errorf("failed to embed episode: %w", err)
	}
	if err := s.episodes.Append(ctx, emb, ep); err != nil {
		return nil, fmt.Errorf("failed to index episode: %w", err)
	}
	if err := s.appendLine(LogFile, ep); err != nil {
		return nil, fmt.Errorf("failed to append episode log: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("episode recorded", zap.String("episode_id", ep.ID), zap.String("mode", mode))
	}
	return &ep, nil
}

// Search returns up to k past episodes most similar to query, best first.
// It returns an empty list for an empty query or when nothing is stored yet.
func (s *Store) Search(ctx context.Context, query string, k int) ([]models.EpisodeHit, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return []models.EpisodeHit{}, nil
	}
	if !s.episodes.Exists() {
		return []models.EpisodeHit{}, nil
	}
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	hits, err := s.episodes.Query(ctx, emb, k)
	if err != nil {
		if errors.Is(err, vector.ErrNotPersisted) {
			return []models.EpisodeHit{}, nil
		}
		return nil, fmt.Errorf("failed to search episodes: %w", err)
	}
	out := make([]models.EpisodeHit, len(hits))
	for i, h := range hits {
		out[i] = models.EpisodeHit{Episode: h.Item, Score: h.Score}
	}
	return out, nil
}

// LoadRecent returns up to limit indexed episodes, newest first. A limit of
// zero or less returns none.
func (s *Store) LoadRecent(limit int) ([]models.Episode, error) {
	if limit <= 0 {
		return []models.Episode{}, nil
	}
	items, err := s.episodes.Items()
	if err != nil {
		if errors.Is(err, vector.ErrNotPersisted) {
			return []models.Episode{}, nil
		}
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Timestamp > items[j].Timestamp })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Restore rebuilds the index and its metadata from the audit log using the
// current encoder. The log itself is not modified. It returns the number of
// episodes restored.
func (s *Store) Restore(ctx context.Context) (int, error) {
	eps, err := s.ReadLog()
	if err != nil {
		return 0, err
	}
	if len(eps) == 0 {
		return 0, nil
	}
	texts := make([]string, len(eps))
	for i, ep := range eps {
		texts[i] = episodeText(ep.Query, ep.Response)
	}
	embs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed episodes: %w", err)
	}
	if _, err := s.episodes.Replace(ctx, embs, eps); err != nil {
		return 0, fmt.Errorf("failed to rebuild episode index: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("episodic memory restored", zap.Int("episodes", len(eps)))
	}
	return len(eps), nil
}

// ReadLog returns every episode in the audit log, oldest first. Lines that
// do not decode are skipped.
func (s *Store) ReadLog() ([]models.Episode, error) {
	var eps []models.Episode
	err := s.readLines(LogFile, func(line []byte) {
		var ep models.Episode
		if err := json.Unmarshal(line, &ep); err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping malformed episode log line", zap.Error(err))
			}
			return
		}
		eps = append(eps, ep)
	})
	return eps, err
}

// AppendReflection appends r to the reflection log.
func (s *Store) AppendReflection(r models.Reflection) error {
	return s.appendLine(ReflectionsFile, r)
}

// Reflections returns every logged reflection, oldest first.
func (s *Store) Reflections() ([]models.Reflection, error) {
	var out []models.Reflection
	err := s.readLines(ReflectionsFile, func(line []byte) {
		var r models.Reflection
		if json.Unmarshal(line, &r) == nil {
			out = append(out, r)
		}
	})
	return out, err
}

// Count returns the number of indexed episodes.
func (s *Store) Count() int {
	return s.episodes.Size()
}

func (s *Store) appendLine(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.logMu.Lock()
	defer s.logMu.Unlock()
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *Store) readLines(name string, fn func([]byte)) error {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		fn(line)
	}
	return sc.Err()
}
