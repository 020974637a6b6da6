package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	// Version is the current version of llmflow
	Version = "0.3.0"

	// configDirEnv overrides --config-dir, mainly for tests
	configDirEnv = "LLMFLOW_CONFIG_DIR"

	logFileName = "llmflow.log"
)

// Options holds the state shared by all subcommands. It is filled in by
// the root command before any subcommand runs.
type Options struct {
	ConfigDir string
	Debug     bool

	Config *Config
	Logger *zap.Logger
}

// NewRootCommand creates the root cobra command for llmflow
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "llmflow",
		Short: "llmflow - Visual editor for LLM workflow graphs",
		Long: `llmflow edits directed graphs of language-model and tool nodes.

Workflows are plain JSON files that can be edited in the terminal canvas,
validated, exported to Mermaid or Graphviz, and shared. Models offered in
the editor come from a local registry whose API keys live in the system
keyring.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.init(cmd.Name() == "edit"); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger != nil {
				_ = opts.Logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "Configuration directory (default: ~/.llmflow)")

	cmd.AddCommand(NewNewCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewNodeTypesCommand(opts))
	cmd.AddCommand(NewModelsCommand(opts))

	return cmd
}

// init resolves the config directory, loads config.yaml and builds the
// logger. The terminal editor owns the screen, so its debug log goes to a
// file instead of stderr.
func (o *Options) init(toFile bool) error {
	o.ConfigDir = resolveConfigDir(o.ConfigDir)

	cfg, err := initConfig(o.ConfigDir)
	if err != nil {
		return err
	}
	o.Config = cfg

	logger, err := newLogger(o.Debug, toFile, o.ConfigDir)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	o.Logger = logger
	return nil
}

// resolveConfigDir applies the priority order: LLMFLOW_CONFIG_DIR, then the
// flag, then ~/.llmflow
func resolveConfigDir(flagDir string) string {
	if envDir := os.Getenv(configDirEnv); envDir != "" {
		return envDir
	}
	if flagDir != "" {
		return flagDir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir cannot be determined
		return ".llmflow"
	}
	return filepath.Join(homeDir, ".llmflow")
}

// newLogger returns a development logger when debug is set and a no-op
// logger otherwise
func newLogger(debug, toFile bool, configDir string) (*zap.Logger, error) {
	if !debug {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	if toFile {
		path := filepath.Join(configDir, logFileName)
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}
	return cfg.Build()
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}
