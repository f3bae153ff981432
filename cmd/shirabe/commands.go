package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/shirabe/internal/cli"
	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/keyword"
	"github.com/hyperjump/shirabe/internal/trace"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	chatMode string

	ragDir   string
	ragK     int
	ragFuzzy bool

	researchDepth      int
	researchMaxResults int

	memoryK     int
	memoryLimit int

	reflectLimit   int
	reflectHistory bool

	traceLimit int

	configWritePath string
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask a question",
	Long: `Run one query through the pipeline and record it in episodic memory.

Modes:
  offline  local documents only
  web      web search and crawl only
  hybrid   local documents, then the web`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

var ragCmd = &cobra.Command{
	Use:   "rag",
	Short: "Build and query the local document index",
}

var ragIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the document index from the docs directory",
	Args:  cobra.NoArgs,
	RunE:  runRAGIndex,
}

var ragQueryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Find the documents most similar to a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRAGQuery,
}

var ragGrepCmd = &cobra.Command{
	Use:   "grep <terms>",
	Short: "Keyword search over the document index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRAGGrep,
}

var researchCmd = &cobra.Command{
	Use:   "research <query>",
	Short: "Search the web, crawl the results and summarize them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResearch,
}

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect episodic memory",
}

var memorySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find past episodes similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMemorySearch,
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent episodes",
	Args:  cobra.NoArgs,
	RunE:  runMemoryList,
}

var memoryRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Rebuild the memory index from the episode log",
	Long: `Replay episodes.jsonl into a fresh memory index using the current encoder.
Use this after changing the embedding model, which empties the index.`,
	Args: cobra.NoArgs,
	RunE: runMemoryRestore,
}

var reflectCmd = &cobra.Command{
	Use:   "reflect",
	Short: "Review recent episodes and log improvement notes",
	Args:  cobra.NoArgs,
	RunE:  runReflect,
}

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Read run traces",
}

var traceShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the events of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runTraceShow,
}

var traceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs (requires trace.sqlite)",
	Args:  cobra.NoArgs,
	RunE:  runTraceList,
}

var printConfigCmd = &cobra.Command{
	Use:   "print-config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runPrintConfig,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "shirabe version %s\n", version)
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatMode, "mode", "m", "", "offline, web or hybrid (default: agent.mode)")

	ragIndexCmd.Flags().StringVar(&ragDir, "dir", "", "directory to index (default: storage.docs_dir)")
	ragQueryCmd.Flags().IntVarP(&ragK, "top-k", "k", 4, "number of documents")
	ragGrepCmd.Flags().IntVarP(&ragK, "top-k", "k", 4, "number of documents")
	ragGrepCmd.Flags().BoolVar(&ragFuzzy, "fuzzy", false, "match terms within one edit")
	ragCmd.AddCommand(ragIndexCmd, ragQueryCmd, ragGrepCmd)

	researchCmd.Flags().IntVar(&researchDepth, "depth", 1, "link depth to follow (0-3)")
	researchCmd.Flags().IntVar(&researchMaxResults, "max-results", 5, "search results and pages to keep (1-10)")

	memorySearchCmd.Flags().IntVarP(&memoryK, "top-k", "k", 3, "number of episodes")
	memoryListCmd.Flags().IntVar(&memoryLimit, "limit", 10, "number of episodes")
	memoryCmd.AddCommand(memorySearchCmd, memoryListCmd, memoryRestoreCmd)

	reflectCmd.Flags().IntVar(&reflectLimit, "limit", 5, "number of recent episodes to review")
	reflectCmd.Flags().BoolVar(&reflectHistory, "history", false, "print logged reflections instead of running a new one")

	printConfigCmd.Flags().StringVar(&configWritePath, "write", "", "also save the effective configuration to this path")

	traceListCmd.Flags().IntVar(&traceLimit, "limit", 20, "number of runs")
	traceCmd.AddCommand(traceShowCmd, traceListCmd)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runChat(cmd *cobra.Command, args []string) error {
	c, err := getComponents()
	if err != nil {
		return err
	}
	if chatMode != "" && !config.IsValidMode(strings.ToLower(chatMode)) {
		return fmt.Errorf("unknown mode %q (want offline, web or hybrid)", chatMode)
	}
	res, err := c.Orchestrator.Run(commandContext(cmd), joinArgs(args), chatMode)
	if err != nil {
		return err
	}
	return cli.WriteChatResult(cmd.OutOrStdout(), res, format)
}

func runRAGIndex(cmd *cobra.Command, args []string) error {
	c, err := getComponents()
	if err != nil {
		return err
	}
	dir := ragDir
	if dir == "" {
		dir = cfg.Storage.DocsDir
	}
	stats, err := c.Indexer.BuildIndex(commandContext(cmd), dir)
	if err != nil {
		return err
	}
	return cli.WriteIndexStats(cmd.OutOrStdout(), stats, format)
}

func runRAGQuery(cmd *cobra.Command, args []string) error {
	c, err := getComponents()
	if err != nil {
		return err
	}
	hits, err := c.Engine.Query(commandContext(cmd), joinArgs(args), ragK)
	if err != nil {
		return err
	}
	return cli.WriteDocumentHits(cmd.OutOrStdout(), hits, format)
}

func runRAGGrep(cmd *cobra.Command, args []string) error {
	c, err := getComponents()
	if err != nil {
		return err
	}
	opts := &keyword.SearchOptions{TitleBoost: 2.0, FuzzyEnabled: ragFuzzy, Fuzziness: 1}
	hits, err := c.Engine.Grep(commandContext(cmd), joinArgs(args), ragK, opts)
	if err != nil {
		return err
	}
	return cli.WriteKeywordHits(cmd.OutOrStdout(), hits, format)
}

func runResearch(cmd *cobra.Command, args []string) error {
	if researchDepth < 0 || researchDepth > 3 {
		return fmt.Errorf("--depth must be between 0 and 3")
	}
	if researchMaxResults < 1 || researchMaxResults > 10 {
		return fmt.Errorf("--max-results must be between 1 and 10")
	}
	c, err := getComponents()
	if err != nil {
		return err
	}
	report, err := c.Researcher.Research(commandContext(cmd), joinArgs(args), researchDepth, researchMaxResults)
	if err != nil {
		return err
	}
	return cli.WriteResearch(cmd.OutOrStdout(), report, format)
}

func runMemorySearch(cmd *cobra.Command, args []string) error {
	c, err := getComponents()
	if err != nil {
		return err
	}
	hits, err := c.Memory.Search(commandContext(cmd), joinArgs(args), memoryK)
	if err != nil {
		return err
	}
	return cli.WriteEpisodeHits(cmd.OutOrStdout(), hits, format)
}

func runMemoryList(cmd *cobra.Command, args []string) error {
	c, err := getComponents()
	if err != nil {
		return err
	}
	eps, err := c.Memory.LoadRecent(memoryLimit)
	if err != nil {
		return err
	}
	return cli.WriteEpisodes(cmd.OutOrStdout(), eps, format)
}

func runMemoryRestore(cmd *cobra.Command, args []string) error {
	c, err := getComponents()
	if err != nil {
		return err
	}
	n, err := c.Memory.Restore(commandContext(cmd))
	if err != nil {
		return err
	}
	if format == cli.OutputJSON {
		return cli.WriteJSON(cmd.OutOrStdout(), map[string]int{"episodes_restored": n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Restored %d episodes\n", n)
	return nil
}

func runReflect(cmd *cobra.Command, args []string) error {
	c, err := getComponents()
	if err != nil {
		return err
	}
	if reflectHistory {
		recs, err := c.Memory.Reflections()
		if err != nil {
			return err
		}
		if format == cli.OutputJSON {
			return cli.WriteJSON(cmd.OutOrStdout(), map[string]any{"reflections": recs})
		}
		for i := range recs {
			if err := cli.WriteReflection(cmd.OutOrStdout(), &recs[i], format); err != nil {
				return err
			}
		}
		return nil
	}
	rec, err := c.Reflector.Run(commandContext(cmd), reflectLimit)
	if err != nil {
		return err
	}
	return cli.WriteReflection(cmd.OutOrStdout(), rec, format)
}

func runTraceShow(cmd *cobra.Command, args []string) error {
	runID := args[0]
	if !trace.ValidRunID(runID) {
		return trace.ErrInvalidRunID
	}
	c, err := getComponents()
	if err != nil {
		return err
	}
	if c.Traces == nil {
		return errors.New("tracing is disabled (enable trace.jsonl or trace.sqlite)")
	}
	events, err := c.Traces.ReadRun(commandContext(cmd), runID)
	if err != nil {
		return err
	}
	return cli.WriteEvents(cmd.OutOrStdout(), runID, events, format)
}

func runTraceList(cmd *cobra.Command, args []string) error {
	c, err := getComponents()
	if err != nil {
		return err
	}
	if c.Events == nil {
		return errors.New("run listing needs the SQLite event store (set trace.sqlite: true)")
	}
	runs, err := c.Events.ListRuns(commandContext(cmd), traceLimit)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if format == cli.OutputJSON {
		return cli.WriteJSON(w, map[string]any{"runs": runs})
	}
	fmt.Fprintf(w, "%d runs\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(w, "  %s  events=%d  last=%s\n", r.RunID, r.Events, r.LastSeen.UTC().Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

func runPrintConfig(cmd *cobra.Command, args []string) error {
	if configWritePath != "" {
		if err := config.Save(configWritePath, cfg); err != nil {
			return err
		}
	}
	if format == cli.OutputJSON {
		return cli.WriteJSON(cmd.OutOrStdout(), cfg)
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
