package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "http://localhost:11434"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama3:8b"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.2
	}
	if cfg.LLM.NumCtx == 0 {
		cfg.LLM.NumCtx = 4096
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.LLM.MaxAttempts == 0 {
		cfg.LLM.MaxAttempts = 3
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "hash"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-minilm"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Storage.DocsDir == "" {
		cfg.Storage.DocsDir = "data/docs"
	}
	if cfg.Storage.MemoryDir == "" {
		cfg.Storage.MemoryDir = "data/memory"
	}
	if cfg.Storage.VectorDir == "" {
		cfg.Storage.VectorDir = "data/vectorstore"
	}
	if cfg.Storage.TraceDir == "" {
		cfg.Storage.TraceDir = "data/traces"
	}
	if cfg.Storage.IndexType == "" {
		cfg.Storage.IndexType = "memory"
	}
	if cfg.Agent.Mode == "" {
		cfg.Agent.Mode = ModeHybrid
	}
	if cfg.Agent.MemoryK == 0 {
		cfg.Agent.MemoryK = 3
	}
	if cfg.Agent.RetrieveK == 0 {
		cfg.Agent.RetrieveK = 4
	}
	if cfg.Agent.SearchK == 0 {
		cfg.Agent.SearchK = 5
	}
	if cfg.Agent.CrawlDepth == 0 {
		cfg.Agent.CrawlDepth = 1
	}
	if cfg.Agent.CrawlMaxPages == 0 {
		cfg.Agent.CrawlMaxPages = 5
	}
	if cfg.Agent.CrawlDelay == 0 {
		cfg.Agent.CrawlDelay = time.Second
	}
	if cfg.Agent.FetchTimeout == 0 {
		cfg.Agent.FetchTimeout = 15 * time.Second
	}
	if cfg.Agent.UserAgent == "" {
		cfg.Agent.UserAgent = "shirabe/0.1"
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 400 * time.Millisecond
	}
}
