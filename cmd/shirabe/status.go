package main

import (
	"fmt"
	"io"

	"github.com/hyperjump/shirabe/internal/cli"
	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/storage"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index, memory and storage status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

type statusResponse struct {
	IndexBuilt      bool                 `json:"index_built"`
	Documents       uint64               `json:"documents"`
	VectorIndexSize int                  `json:"vector_index_size"`
	Episodes        int                  `json:"episodes"`
	TraceEvents     *int64               `json:"trace_events,omitempty"`
	DiskUsageBytes  *int64               `json:"disk_usage_bytes,omitempty"`
	DiskUsage       []storage.PathUsage  `json:"disk_usage,omitempty"`
	Capabilities    *config.Capabilities `json:"capabilities"`
	Config          statusConfigResponse `json:"config"`
}

type statusConfigResponse struct {
	Mode              string `json:"mode"`
	Model             string `json:"model"`
	EmbeddingProvider string `json:"embedding_provider"`
	IndexType         string `json:"index_type"`
	DocsDir           string `json:"docs_dir"`
	MemoryDir         string `json:"memory_dir"`
	VectorDir         string `json:"vector_dir"`
	TraceDir          string `json:"trace_dir"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := getComponents()
	if err != nil {
		return err
	}
	docCount, err := c.KeywordIndex.DocCount()
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	status := statusResponse{
		IndexBuilt:      c.Engine.Built(),
		Documents:       docCount,
		VectorIndexSize: c.Documents.Size(),
		Episodes:        c.Memory.Count(),
		Capabilities:    c.Caps,
		Config: statusConfigResponse{
			Mode:              cfg.NormalizedMode(),
			Model:             cfg.LLM.Model,
			EmbeddingProvider: cfg.Embedding.Provider,
			IndexType:         cfg.Storage.IndexType,
			DocsDir:           cfg.Storage.DocsDir,
			MemoryDir:         cfg.Storage.MemoryDir,
			VectorDir:         cfg.Storage.VectorDir,
			TraceDir:          cfg.Storage.TraceDir,
		},
	}
	if c.Events != nil {
		if n, err := c.Events.CountEvents(commandContext(cmd)); err == nil {
			status.TraceEvents = &n
		}
	}
	if usage, err := storage.DiskUsage(cfg.Storage.VectorDir, cfg.Storage.MemoryDir, cfg.Storage.TraceDir); err == nil {
		var total int64
		for _, u := range usage {
			total += u.Bytes
		}
		status.DiskUsageBytes = &total
		status.DiskUsage = usage
	}

	w := cmd.OutOrStdout()
	if format == cli.OutputJSON {
		return cli.WriteJSON(w, status)
	}
	writeStatusText(w, status)
	return nil
}

func writeStatusText(w io.Writer, status statusResponse) {
	fmt.Fprintf(w, "index_built:        %t\n", status.IndexBuilt)
	fmt.Fprintf(w, "documents:          %d   # files in the keyword index\n", status.Documents)
	fmt.Fprintf(w, "vector_index_size:  %d   # vectors in the document index\n", status.VectorIndexSize)
	fmt.Fprintf(w, "episodes:           %d   # vectors in episodic memory\n", status.Episodes)
	if status.TraceEvents != nil {
		fmt.Fprintf(w, "trace_events:       %d\n", *status.TraceEvents)
	}
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # indices, memory and traces on disk\n", *status.DiskUsageBytes)
		for _, u := range status.DiskUsage {
			fmt.Fprintf(w, "  %-16d  %s\n", u.Bytes, u.Path)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	fmt.Fprintf(w, "mode:               %s\n", status.Config.Mode)
	fmt.Fprintf(w, "model:              %s\n", status.Config.Model)
	fmt.Fprintf(w, "embedding:          %s\n", status.Config.EmbeddingProvider)
	fmt.Fprintf(w, "index_type:         %s\n", status.Config.IndexType)
	fmt.Fprintf(w, "docs_dir:           %s\n", status.Config.DocsDir)
	fmt.Fprintf(w, "memory_dir:         %s\n", status.Config.MemoryDir)
	fmt.Fprintf(w, "vector_dir:         %s\n", status.Config.VectorDir)
	fmt.Fprintf(w, "trace_dir:          %s\n", status.Config.TraceDir)

	if caps := status.Capabilities; caps != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# capabilities")
		fmt.Fprintf(w, "web:                %t\n", caps.WebEnabled)
		fmt.Fprintf(w, "browser_fetch:      %t\n", caps.BrowserFetch)
		fmt.Fprintf(w, "faiss:              %t\n", caps.FAISS)
		fmt.Fprintf(w, "onnx:               %t\n", caps.ONNX)
		fmt.Fprintf(w, "frontend:           %t\n", caps.Frontend)
		fmt.Fprintf(w, "sqlite_trace:       %t\n", caps.SQLiteTrace)
	}
}
