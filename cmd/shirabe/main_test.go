package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/shirabe/internal/cli"
	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/trace"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupCLI points the command globals at a fresh data root with web access
// off and the hashing encoder, so no command touches the network.
func setupCLI(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	off := false
	c := &config.Config{
		LLM: config.LLMConfig{BaseURL: "http://127.0.0.1:1"},
		Embedding: config.EmbeddingConfig{
			Provider:   "hash",
			Dimensions: 16,
		},
		Storage: config.StorageConfig{
			DocsDir:   filepath.Join(root, "docs"),
			MemoryDir: filepath.Join(root, "memory"),
			VectorDir: filepath.Join(root, "vectorstore"),
			TraceDir:  filepath.Join(root, "traces"),
		},
		Agent: config.AgentConfig{Mode: config.ModeOffline, EnableWeb: &off},
		Trace: config.TraceConfig{SQLite: true},
	}
	config.ApplyDefaults(c)
	require.NoError(t, os.MkdirAll(c.Storage.DocsDir, 0755))

	cfg = c
	logger = zap.NewNop()
	format = cli.OutputText
	components = nil
	t.Cleanup(func() {
		if components != nil {
			components.Close()
			components = nil
		}
		cfg = nil
		logger = nil
	})
	return root
}

func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	return cmd, &buf
}

func writeDoc(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(cfg.Storage.DocsDir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestRAGIndexQueryAndGrep(t *testing.T) {
	setupCLI(t)
	writeDoc(t, "solar.txt", "Solar panels convert sunlight into electricity.")
	writeDoc(t, "notes/tea.md", "Green tea is brewed at a lower temperature than black tea.")

	ragDir = ""
	cmd, out := newTestCommand()
	require.NoError(t, runRAGIndex(cmd, nil))
	assert.Contains(t, out.String(), "Indexed 2 documents (dim 16)")

	ragK = 1
	cmd, out = newTestCommand()
	require.NoError(t, runRAGQuery(cmd, []string{"Solar panels convert sunlight into electricity."}))
	assert.Contains(t, out.String(), "Found 1 documents")
	assert.Contains(t, out.String(), "solar.txt")

	ragK = 5
	ragFuzzy = false
	cmd, out = newTestCommand()
	require.NoError(t, runRAGGrep(cmd, []string{"tea"}))
	assert.Contains(t, out.String(), "tea.md")
	assert.NotContains(t, out.String(), "solar.txt")
}

func TestRAGQueryBeforeIndex(t *testing.T) {
	setupCLI(t)
	ragK = 4
	cmd, _ := newTestCommand()
	err := runRAGQuery(cmd, []string{"anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not built")
}

func TestChatOfflineRecordsEpisodeAndTrace(t *testing.T) {
	setupCLI(t)
	format = cli.OutputJSON
	chatMode = "offline"
	t.Cleanup(func() { chatMode = "" })

	cmd, out := newTestCommand()
	require.NoError(t, runChat(cmd, []string{"what", "is", "shirabe?"}))

	var res struct {
		RunID   string         `json:"run_id"`
		Reply   string         `json:"reply"`
		Sources []string       `json:"sources"`
		Meta    map[string]any `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "No response.", res.Reply)
	assert.Empty(t, res.Sources)
	assert.Equal(t, "offline", res.Meta["mode"])
	require.True(t, trace.ValidRunID(res.RunID))

	memoryLimit = 10
	cmd, out = newTestCommand()
	require.NoError(t, runMemoryList(cmd, nil))
	assert.Contains(t, out.String(), `"query": "what is shirabe?"`)

	cmd, out = newTestCommand()
	require.NoError(t, runTraceShow(cmd, []string{res.RunID}))
	assert.Contains(t, out.String(), `"node": "route"`)
	assert.Contains(t, out.String(), `"node": "respond"`)

	traceLimit = 5
	cmd, out = newTestCommand()
	require.NoError(t, runTraceList(cmd, nil))
	assert.Contains(t, out.String(), res.RunID)
}

func TestChatRejectsUnknownMode(t *testing.T) {
	setupCLI(t)
	chatMode = "turbo"
	t.Cleanup(func() { chatMode = "" })
	cmd, _ := newTestCommand()
	err := runChat(cmd, []string{"hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestMemoryRestore(t *testing.T) {
	setupCLI(t)
	chatMode = ""
	cmd, _ := newTestCommand()
	require.NoError(t, runChat(cmd, []string{"first question"}))
	require.NoError(t, runChat(cmd, []string{"second question"}))

	cmd, out := newTestCommand()
	require.NoError(t, runMemoryRestore(cmd, nil))
	assert.Equal(t, "Restored 2 episodes\n", out.String())

	memoryK = 1
	cmd, out = newTestCommand()
	require.NoError(t, runMemorySearch(cmd, []string{"second question"}))
	assert.Contains(t, out.String(), "Found 1 episodes")
}

func TestReflectWithoutEpisodes(t *testing.T) {
	setupCLI(t)
	reflectLimit = 5
	cmd, _ := newTestCommand()
	err := runReflect(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no memory episodes")
}

func TestTraceShowRejectsBadRunID(t *testing.T) {
	setupCLI(t)
	cmd, _ := newTestCommand()
	err := runTraceShow(cmd, []string{"../etc/passwd"})
	assert.ErrorIs(t, err, trace.ErrInvalidRunID)
	assert.Nil(t, components, "components should not be built for an invalid id")
}

func TestResearchFlagBounds(t *testing.T) {
	setupCLI(t)
	t.Cleanup(func() { researchDepth, researchMaxResults = 1, 5 })

	researchDepth, researchMaxResults = 4, 5
	cmd, _ := newTestCommand()
	assert.Error(t, runResearch(cmd, []string{"q"}))

	researchDepth, researchMaxResults = 1, 11
	assert.Error(t, runResearch(cmd, []string{"q"}))
}

func TestResearchWebDisabled(t *testing.T) {
	setupCLI(t)
	researchDepth, researchMaxResults = 1, 5
	cmd, _ := newTestCommand()
	err := runResearch(cmd, []string{"go generics"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestStatus(t *testing.T) {
	setupCLI(t)
	writeDoc(t, "a.txt", "alpha")
	cmd, _ := newTestCommand()
	ragDir = ""
	require.NoError(t, runRAGIndex(cmd, nil))

	format = cli.OutputJSON
	cmd, out := newTestCommand()
	require.NoError(t, runStatus(cmd, nil))

	var status statusResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	assert.Equal(t, uint64(1), status.Documents)
	assert.Equal(t, 1, status.VectorIndexSize)
	assert.Equal(t, 0, status.Episodes)
	require.NotNil(t, status.DiskUsageBytes)
	assert.Positive(t, *status.DiskUsageBytes)
	require.NotNil(t, status.TraceEvents)
	assert.Equal(t, "offline", status.Config.Mode)
	require.NotNil(t, status.Capabilities)
	assert.False(t, status.Capabilities.WebEnabled)
	assert.True(t, status.Capabilities.SQLiteTrace)

	format = cli.OutputText
	cmd, out = newTestCommand()
	require.NoError(t, runStatus(cmd, nil))
	assert.Contains(t, out.String(), "# capabilities")
	assert.Contains(t, out.String(), "sqlite_trace:       true")
}

func TestPrintConfig(t *testing.T) {
	setupCLI(t)
	cmd, out := newTestCommand()
	require.NoError(t, runPrintConfig(cmd, nil))
	assert.Contains(t, out.String(), "docs_dir:")
	assert.Contains(t, out.String(), "llama3:8b")
}

func TestServerDepsWiresTraces(t *testing.T) {
	setupCLI(t)
	c, err := getComponents()
	require.NoError(t, err)
	deps := serverDeps(c)
	assert.NotNil(t, deps.Chat)
	assert.NotNil(t, deps.Traces)
	assert.NotNil(t, deps.Files)

	ev := startupEvent(c, cfg)
	assert.Equal(t, "startup", ev["event"])
	assert.Equal(t, "offline", ev["mode"])
}

func TestGetComponentsIsCached(t *testing.T) {
	setupCLI(t)
	first, err := getComponents()
	require.NoError(t, err)
	second, err := getComponents()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestFAISSFallsBackToMemoryIndex(t *testing.T) {
	setupCLI(t)
	cfg.Storage.IndexType = "faiss"
	c, err := getComponents()
	require.NoError(t, err)
	if c.Caps.FAISS {
		t.Skip("FAISS is available in this build")
	}
	writeDoc(t, "a.txt", "alpha")
	stats, err := c.Indexer.BuildIndex(commandContext(&cobra.Command{}), cfg.Storage.DocsDir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentsIndexed)
}

func TestPipelineSettings(t *testing.T) {
	s := pipelineSettings(config.AgentConfig{MemoryK: 2, RetrieveK: 6, SearchK: 3, CrawlDepth: 0, CrawlMaxPages: 9})
	assert.Equal(t, 2, s.MemoryK)
	assert.Equal(t, 6, s.RetrieveK)
	assert.Equal(t, 3, s.SearchK)
	assert.Equal(t, 0, s.CrawlDepth)
	assert.Equal(t, 9, s.CrawlMaxPages)
}

func TestLoadConfig(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "shirabe.yaml")
		require.NoError(t, os.WriteFile(path, []byte("agent:\n  mode: web\nserver:\n  port: 9100\n"), 0644))
		c, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "web", c.NormalizedMode())
		assert.Equal(t, 9100, c.Server.Port)
	})
	t.Run("working directory fallback", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, defaultConfigFile), []byte("server:\n  port: 9200\n"), 0644))
		t.Chdir(dir)
		c, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, 9200, c.Server.Port)
	})
	t.Run("defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())
		c, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, 8000, c.Server.Port)
		assert.True(t, strings.HasSuffix(c.Storage.DocsDir, "docs"))
	})
}

func TestVersionCommand(t *testing.T) {
	cmd, out := newTestCommand()
	versionCmd.Run(cmd, nil)
	assert.Equal(t, "shirabe version dev\n", out.String())
}

func TestReflectHistory(t *testing.T) {
	setupCLI(t)
	reflectHistory = true
	t.Cleanup(func() { reflectHistory = false })
	format = cli.OutputJSON
	cmd, out := newTestCommand()
	require.NoError(t, runReflect(cmd, nil))
	assert.Contains(t, out.String(), `"reflections": null`)
}

func TestPrintConfigWrite(t *testing.T) {
	setupCLI(t)
	configWritePath = filepath.Join(t.TempDir(), "saved.yaml")
	t.Cleanup(func() { configWritePath = "" })
	cmd, _ := newTestCommand()
	require.NoError(t, runPrintConfig(cmd, nil))

	saved, err := config.Load(configWritePath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Storage.DocsDir, saved.Storage.DocsDir)
	assert.Equal(t, config.ModeOffline, saved.NormalizedMode())
}
