package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/mcp"
	"github.com/hyperjump/shirabe/internal/server"
	"github.com/hyperjump/shirabe/internal/trace"
	"github.com/hyperjump/shirabe/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API. With watch.enabled the document index is rebuilt
whenever the docs directory changes.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func serverDeps(c *Components) server.Deps {
	deps := server.Deps{
		Chat:       c.Orchestrator,
		Indexer:    c.Indexer,
		Documents:  c.Engine,
		Memory:     c.Memory,
		Reflector:  c.Reflector,
		Researcher: c.Researcher,
		Files:      c.Files,
	}
	if c.Traces != nil {
		deps.Traces = c.Traces
	}
	return deps
}

// startupEvent records the process configuration under its own run id.
func startupEvent(c *Components, cfg *config.Config) trace.Event {
	return trace.Event{
		"event":        "startup",
		"component":    "server",
		"mode":         cfg.NormalizedMode(),
		"model":        cfg.LLM.Model,
		"capabilities": c.Caps,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := getComponents()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(serverDeps(c), cfg, c.Caps, logger)
	c.Tracer.Append(trace.NewRunID(), startupEvent(c, cfg))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	if cfg.Watch.Enabled {
		w := watcher.NewWatcher(cfg.Storage.DocsDir, c.Extractor.Supports, func(ctx context.Context) {
			stats, err := c.Indexer.BuildIndex(ctx, cfg.Storage.DocsDir)
			if err != nil {
				logger.Warn("index rebuild failed", zap.Error(err))
				return
			}
			logger.Info("index rebuilt", zap.Int("documents", stats.DocumentsIndexed))
		}, watcher.WithLogger(logger), watcher.WithDebounce(cfg.Watch.Debounce))
		g.Go(func() error {
			return w.Run(gctx)
		})
	}
	return g.Wait()
}

func runMCP(cmd *cobra.Command, args []string) error {
	c, err := getComponents()
	if err != nil {
		return err
	}
	srv := mcp.NewServer(mcp.Deps{
		Chat:       c.Orchestrator,
		Documents:  c.Engine,
		Memory:     c.Memory,
		Researcher: c.Researcher,
		Files:      c.Files,
	}, version, logger)
	return srv.Serve()
}
