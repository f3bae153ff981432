package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "0.0.0.0"
  port: 9000
llm:
  model: "qwen2:7b"
agent:
  mode: web
  enable_web: false
  crawl_delay: 250ms
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.LLM.Model != "qwen2:7b" {
		t.Errorf("model = %s", cfg.LLM.Model)
	}
	if cfg.LLM.BaseURL != "http://localhost:11434" {
		t.Errorf("base_url default = %s", cfg.LLM.BaseURL)
	}
	if cfg.NormalizedMode() != ModeWeb {
		t.Errorf("mode = %s", cfg.NormalizedMode())
	}
	if cfg.Agent.WebOrDefault() {
		t.Error("enable_web: false must be honoured")
	}
	if cfg.Agent.CrawlDelay != 250*time.Millisecond {
		t.Errorf("crawl_delay = %s", cfg.Agent.CrawlDelay)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  docs_dir: "./docs"
  memory_dir: "data/memory"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "docs"); cfg.Storage.DocsDir != want {
		t.Errorf("docs_dir = %s, want %s", cfg.Storage.DocsDir, want)
	}
	if cfg.Storage.MemoryDir != "data/memory" {
		t.Errorf("memory_dir = %s, want working-directory relative path", cfg.Storage.MemoryDir)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_MODEL", "mistral")
	t.Setenv("PORT", "9999")
	t.Setenv("ENABLE_WEB", "false")
	t.Setenv("MODE", "OFFLINE")

	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Model != "mistral" || cfg.Server.Port != 9999 {
		t.Errorf("env not applied: model=%s port=%d", cfg.LLM.Model, cfg.Server.Port)
	}
	if cfg.Agent.WebOrDefault() {
		t.Error("ENABLE_WEB=false not applied")
	}
	if cfg.NormalizedMode() != ModeOffline {
		t.Errorf("mode = %s", cfg.NormalizedMode())
	}
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"TEMPERATURE": "warm",
		"NUM_CTX":     "big",
		"ENABLE_WEB":  "maybe",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			cfg := &Config{}
			lookup := func(k string) (string, bool) {
				if k == key {
					return val, true
				}
				return "", false
			}
			if err := ApplyEnv(cfg, lookup); err == nil {
				t.Errorf("expected error for %s=%s", key, val)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SHIRABE_TEST_DOTENV=loaded\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("SHIRABE_TEST_DOTENV") })
	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("SHIRABE_TEST_DOTENV"); got != "loaded" {
		t.Errorf("got %q", got)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Port != 8000 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.LLM.Temperature != 0.2 || cfg.LLM.NumCtx != 4096 {
		t.Errorf("llm defaults: %+v", cfg.LLM)
	}
	if cfg.Agent.RetrieveK != 4 || cfg.Agent.MemoryK != 3 || cfg.Agent.SearchK != 5 {
		t.Errorf("agent k defaults: %+v", cfg.Agent)
	}
	if cfg.Agent.CrawlDelay != time.Second || cfg.Agent.FetchTimeout != 15*time.Second {
		t.Errorf("crawl timing defaults: %+v", cfg.Agent)
	}
	if !cfg.Agent.WebOrDefault() || !cfg.Server.FrontendOrDefault() || !cfg.Trace.JSONLOrDefault() {
		t.Error("optional bools should default to true")
	}
}

func TestNormalizeMode(t *testing.T) {
	tests := map[string]string{
		"offline": ModeOffline,
		"WEB":     ModeWeb,
		" hybrid": ModeHybrid,
		"":        ModeHybrid,
		"turbo":   ModeHybrid,
	}
	for in, want := range tests {
		if got := NormalizeMode(in); got != want {
			t.Errorf("NormalizeMode(%q) = %q, want %q", in, got, want)
		}
	}
	if IsValidMode("turbo") || !IsValidMode("Offline") {
		t.Error("IsValidMode mismatch")
	}
}

func TestDetectCapabilities(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Agent.EnableBrowser = true
	cfg.Storage.IndexType = "faiss"

	yes := func() bool { return true }
	caps := DetectCapabilities(cfg, Probes{FAISS: yes, Browser: yes})
	if !caps.WebEnabled || !caps.BrowserFetch || !caps.FAISS {
		t.Errorf("unexpected capabilities: %+v", caps)
	}
	if caps.ONNX {
		t.Error("nil probe must count as absent")
	}

	off := false
	cfg.Agent.EnableWeb = &off
	caps = DetectCapabilities(cfg, Probes{Browser: yes})
	if caps.WebEnabled || caps.BrowserFetch {
		t.Errorf("browser fetch requires web access: %+v", caps)
	}
}

func TestSaveAndEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{Server: ServerConfig{Port: 9090}}
	cfg.Storage.DocsDir = filepath.Join(dir, "d", "docs")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	loaded.Storage.MemoryDir = filepath.Join(dir, "m")
	loaded.Storage.VectorDir = filepath.Join(dir, "v")
	loaded.Storage.TraceDir = filepath.Join(dir, "t")
	if err := loaded.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{loaded.Storage.DocsDir, loaded.Storage.MemoryDir} {
		if fi, err := os.Stat(d); err != nil || !fi.IsDir() {
			t.Errorf("%s not created", d)
		}
	}
}
