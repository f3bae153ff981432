package main

import (
	"fmt"
	"path/filepath"

	"github.com/hyperjump/shirabe/internal/agent"
	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/embedding"
	"github.com/hyperjump/shirabe/internal/extract"
	"github.com/hyperjump/shirabe/internal/indexer"
	"github.com/hyperjump/shirabe/internal/keyword"
	"github.com/hyperjump/shirabe/internal/llm"
	"github.com/hyperjump/shirabe/internal/memory"
	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/pipeline"
	"github.com/hyperjump/shirabe/internal/search"
	"github.com/hyperjump/shirabe/internal/storage"
	"github.com/hyperjump/shirabe/internal/tools"
	"github.com/hyperjump/shirabe/internal/trace"
	"github.com/hyperjump/shirabe/internal/vector"
	"github.com/hyperjump/shirabe/internal/web"
	"go.uber.org/zap"
)

// Files of the document index under storage.vector_dir.
const (
	documentIndexFile    = "index.bin"
	documentMetadataFile = "metadata.json"
	keywordIndexDir      = "keyword.bleve"
	eventsDBFile         = "events.db"
)

// Components holds initialized services.
type Components struct {
	Caps         *config.Capabilities
	Embedder     embedding.Embedder
	Documents    *vector.Collection[models.DocumentRecord]
	KeywordIndex *keyword.BleveIndex
	Engine       *search.Engine
	Indexer      *indexer.Indexer
	Extractor    *extract.Extractor
	Memory       *memory.Store
	Events       *storage.SQLiteStorage
	Traces       trace.Reader
	Tracer       *trace.Tracer
	Generator    llm.Generator
	Web          *web.Client
	Researcher   *web.Researcher
	Graph        *pipeline.Graph
	Orchestrator *agent.Orchestrator
	Reflector    *agent.Reflector
	Files        *tools.Files
}

// Close releases every component that holds a file or process handle.
func (c *Components) Close() {
	if c.Web != nil {
		_ = c.Web.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Events != nil {
		_ = c.Events.Close()
	}
}

func detectCapabilities(cfg *config.Config) *config.Capabilities {
	return config.DetectCapabilities(cfg, config.Probes{
		FAISS:   vector.IsFAISSAvailable,
		ONNX:    func() bool { return embedding.ONNXAvailable(cfg.Embedding.LibraryPath) },
		Browser: web.BrowserAvailable,
	})
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (_ *Components, err error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create data directories: %w", err)
	}
	c := &Components{Caps: detectCapabilities(cfg)}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	indexType := cfg.Storage.IndexType
	if indexType == "faiss" && !c.Caps.FAISS {
		logger.Warn("FAISS not available, falling back to memory index")
		indexType = "memory"
	}

	c.Embedder, err = embedding.New(cfg.Embedding, cfg.LLM.BaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	c.Documents = vector.NewCollection[models.DocumentRecord](
		indexType,
		filepath.Join(cfg.Storage.VectorDir, documentIndexFile),
		filepath.Join(cfg.Storage.VectorDir, documentMetadataFile),
		vector.WithLogger(logger),
	)
	c.KeywordIndex, err = keyword.NewBleveIndex(filepath.Join(cfg.Storage.VectorDir, keywordIndexDir))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.Extractor = extract.NewExtractor(cfg.Agent.RichDocuments)
	c.Indexer = indexer.NewIndexer(c.Embedder, c.Extractor, c.Documents, c.KeywordIndex, indexer.WithLogger(logger))
	c.Engine = search.NewEngine(c.Embedder, c.Documents, c.KeywordIndex)

	c.Memory, err = memory.NewStore(cfg.Storage.MemoryDir, indexType, c.Embedder, memory.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory: %w", err)
	}

	var sinks trace.MultiSink
	if cfg.Trace.JSONLOrDefault() {
		jsonl, err := trace.NewJSONLSink(cfg.Storage.TraceDir, trace.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, jsonl)
		c.Traces = jsonl
	}
	if cfg.Trace.SQLite {
		c.Events, err = storage.NewSQLiteStorage(filepath.Join(cfg.Storage.TraceDir, eventsDBFile))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize event store: %w", err)
		}
		sqlite := trace.NewSQLiteSink(c.Events, trace.WithLogger(logger))
		sinks = append(sinks, sqlite)
		if c.Traces == nil {
			c.Traces = sqlite
		}
	}
	c.Tracer = trace.NewTracer(sinks)

	// A generator that cannot be built degrades synthesis instead of failing startup.
	gen, genErr := llm.NewOllama(cfg.LLM, llm.WithLogger(logger))
	if genErr != nil {
		logger.Warn("generator unavailable", zap.Error(genErr))
	} else {
		c.Generator = gen
		logger.Debug("generator ready", zap.String("model", gen.Model()), zap.String("base_url", gen.BaseURL()))
	}

	c.Web = web.New(cfg.Agent, c.Caps, logger)
	c.Researcher = web.NewResearcher(c.Web, c.Generator)

	deps := pipeline.Deps{
		Memory:    c.Memory,
		Documents: c.Engine,
		Planner:   c.Web,
		Web:       c.Web,
		Crawler:   c.Web,
		Sink:      c.Tracer.Sink(),
		Logger:    logger,
	}
	if c.Generator != nil {
		deps.Generator = c.Generator
	}
	c.Graph = pipeline.New(deps, pipeline.WithSettings(pipelineSettings(cfg.Agent)))
	c.Orchestrator = agent.NewOrchestrator(c.Graph, c.Memory, c.Tracer, cfg.Agent.Mode,
		agent.WithLogger(logger),
		agent.WithMemoryK(cfg.Agent.MemoryK),
	)
	c.Reflector = agent.NewReflector(c.Memory, c.Generator, c.Tracer)
	c.Files, err = tools.NewFiles(cfg.Storage.DocsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file tools: %w", err)
	}

	logger.Debug("components initialized",
		zap.String("index_type", indexType),
		zap.Int("dimensions", c.Embedder.Dimensions()),
		zap.Bool("web_enabled", c.Caps.WebEnabled),
		zap.Bool("browser_fetch", c.Caps.BrowserFetch),
		zap.Bool("sqlite_trace", c.Caps.SQLiteTrace))
	return c, nil
}

func pipelineSettings(a config.AgentConfig) pipeline.Settings {
	return pipeline.Settings{
		MemoryK:       a.MemoryK,
		RetrieveK:     a.RetrieveK,
		SearchK:       a.SearchK,
		CrawlDepth:    a.CrawlDepth,
		CrawlMaxPages: a.CrawlMaxPages,
	}
}
