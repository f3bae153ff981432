package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with the recognised environment variables.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("OLLAMA_BASE_URL", &cfg.LLM.BaseURL)
	str("OLLAMA_MODEL", &cfg.LLM.Model)
	str("TRACE_DIR", &cfg.Storage.TraceDir)
	str("DOCS_DIR", &cfg.Storage.DocsDir)
	str("MEMORY_DIR", &cfg.Storage.MemoryDir)
	str("VECTOR_DIR", &cfg.Storage.VectorDir)
	str("MODE", &cfg.Agent.Mode)
	str("EMBEDDING_PROVIDER", &cfg.Embedding.Provider)

	if v, ok := lookup("TEMPERATURE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TEMPERATURE: %w", err)
		}
		cfg.LLM.Temperature = f
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"NUM_CTX", &cfg.LLM.NumCtx},
		{"PORT", &cfg.Server.Port},
	}
	for _, e := range ints {
		v, ok := lookup(e.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = n
	}

	bools := []struct {
		key string
		set func(bool)
	}{
		{"ENABLE_WEB", func(b bool) { cfg.Agent.EnableWeb = &b }},
		{"ENABLE_PLAYWRIGHT", func(b bool) { cfg.Agent.EnableBrowser = b }},
		{"FRONTEND_ENABLED", func(b bool) { cfg.Server.FrontendEnabled = &b }},
	}
	for _, e := range bools {
		v, ok := lookup(e.key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		e.set(b)
	}
	return nil
}
