// Package config provides configuration loading and structs for the shirabe agent.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode values accepted by the query pipeline.
const (
	ModeOffline = "offline"
	ModeWeb     = "web"
	ModeHybrid  = "hybrid"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Agent     AgentConfig     `yaml:"agent"`
	Trace     TraceConfig     `yaml:"trace"`
	Logging   LoggingConfig   `yaml:"logging"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	FrontendEnabled *bool    `yaml:"frontend_enabled"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

// FrontendOrDefault reports whether the browser UI is served; defaults to true when unset.
func (s *ServerConfig) FrontendOrDefault() bool {
	return boolOr(s.FrontendEnabled, true)
}

// LLMConfig holds the Ollama chat backend settings.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	NumCtx      int           `yaml:"num_ctx"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// EmbeddingConfig selects and configures the text encoder.
type EmbeddingConfig struct {
	// Provider is one of "hash", "onnx", "ollama".
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	ModelPath   string `yaml:"model_path"`
	LibraryPath string `yaml:"library_path"`
	Dimensions  int    `yaml:"dimensions"`
	MaxTokens   int    `yaml:"max_tokens"`
	CacheSize   int    `yaml:"cache_size"`
}

// StorageConfig holds the data directories.
type StorageConfig struct {
	DocsDir   string `yaml:"docs_dir"`
	MemoryDir string `yaml:"memory_dir"`
	VectorDir string `yaml:"vector_dir"`
	TraceDir  string `yaml:"trace_dir"`
	// IndexType is "memory" or "faiss".
	IndexType string `yaml:"index_type"`
}

// AgentConfig holds pipeline behaviour.
type AgentConfig struct {
	Mode          string        `yaml:"mode"`
	EnableWeb     *bool         `yaml:"enable_web"`
	EnableBrowser bool          `yaml:"enable_browser"`
	RichDocuments bool          `yaml:"rich_documents"`
	MemoryK       int           `yaml:"memory_k"`
	RetrieveK     int           `yaml:"retrieve_k"`
	SearchK       int           `yaml:"search_k"`
	CrawlDepth    int           `yaml:"crawl_depth"`
	CrawlMaxPages int           `yaml:"crawl_max_pages"`
	CrawlDelay    time.Duration `yaml:"crawl_delay"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	UserAgent     string        `yaml:"user_agent"`
}

// WebOrDefault reports whether web access is enabled; defaults to true when unset.
func (a *AgentConfig) WebOrDefault() bool {
	return boolOr(a.EnableWeb, true)
}

// TraceConfig selects event sinks.
type TraceConfig struct {
	JSONL  *bool `yaml:"jsonl"`
	SQLite bool  `yaml:"sqlite"`
}

// JSONLOrDefault reports whether per-run JSONL traces are written; defaults to true when unset.
func (t *TraceConfig) JSONLOrDefault() bool {
	return boolOr(t.JSONL, true)
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	File string `yaml:"file"`
}

// WatchConfig holds docs directory watch settings.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Load reads and parses the config file at path, applies defaults and
// environment overrides, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return finish(&cfg, filepath.Dir(path))
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
// An empty path also yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return finish(&Config{}, ".")
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return finish(&Config{}, filepath.Dir(path))
	}
	return cfg, err
}

func finish(cfg *Config, configDir string) (*Config, error) {
	ApplyDefaults(cfg)
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.Storage.DocsDir = expandPath(cfg.Storage.DocsDir, configDir)
	cfg.Storage.MemoryDir = expandPath(cfg.Storage.MemoryDir, configDir)
	cfg.Storage.VectorDir = expandPath(cfg.Storage.VectorDir, configDir)
	cfg.Storage.TraceDir = expandPath(cfg.Storage.TraceDir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Logging.File = expandPath(cfg.Logging.File, configDir)
	return cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// NormalizeMode lowercases mode and maps anything unknown to hybrid.
func NormalizeMode(mode string) string {
	switch m := strings.ToLower(strings.TrimSpace(mode)); m {
	case ModeOffline, ModeWeb, ModeHybrid:
		return m
	default:
		return ModeHybrid
	}
}

// IsValidMode reports whether mode names one of the pipeline modes.
func IsValidMode(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeOffline, ModeWeb, ModeHybrid:
		return true
	}
	return false
}

// NormalizedMode returns the configured default mode.
func (c *Config) NormalizedMode() string {
	return NormalizeMode(c.Agent.Mode)
}

// EnsureDirectories creates the data directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Storage.DocsDir, c.Storage.MemoryDir, c.Storage.VectorDir, c.Storage.TraceDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// expandPath resolves "./" paths against configDir and "~/" paths against the
// home directory. Other relative paths stay relative to the working directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func boolOr(v *bool, def bool) bool {
	if v != nil {
		return *v
	}
	return def
}
