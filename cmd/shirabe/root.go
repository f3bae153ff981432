package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/shirabe/internal/cli"
	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

// defaultConfigFile is looked up in the working directory when --config is not given.
const defaultConfigFile = "config.yaml"

var (
	// Global flags
	configPath   string
	debug        bool
	outputFormat string

	cfg        *config.Config
	logger     *zap.Logger
	format     cli.OutputFormat
	components *Components
)

var rootCmd = &cobra.Command{
	Use:   "shirabe",
	Short: "Local-first research assistant",
	Long: `shirabe answers questions from local documents, episodic memory of past
conversations and, when enabled, the web. It runs as a CLI, an HTTP API
or an MCP server over stdio.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		var err error
		format, err = cli.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		cfg, err = loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if debug {
			cfg.Debug = true
		}
		logger, err = utils.NewFileLogger(cfg.Debug, cfg.Logging.File)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if components != nil {
			components.Close()
			components = nil
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadConfig loads config from path after reading .env files from the working
// directory and the config directory. With no path, config.yaml in the working
// directory is used when it exists, otherwise the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, defaultConfigFile)
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
	}
	envFiles := []string{".env"}
	if path != "" {
		envFiles = append(envFiles, filepath.Join(filepath.Dir(path), ".env"))
	}
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	return config.LoadOrDefault(path)
}

// getComponents builds the services on first use.
func getComponents() (*Components, error) {
	if components != nil {
		return components, nil
	}
	c, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	components = c
	return c, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: ./config.yaml when present)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "output format: text or json")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(ragCmd)
	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(reflectCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(printConfigCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
