package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"disk-search/config"
	"disk-search/logger"
)

var version = "1.0.0"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	logFile    string
}

// NewRootCommand builds the disk-search command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "disk-search",
		Short: "Find files and folders by name or content",
		Long: `disk-search scans a directory tree for files and folders whose name,
and optionally content, contains any of the given keywords.

User folders are scanned first, system folders last. Searches run under
file, result and time budgets and return partial results when one is hit.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath(), "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "also write logs to this file (overrides config)")

	cmd.AddCommand(newSearchCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newCapabilitiesCommand())

	return cmd
}

// Run executes the CLI and returns a process exit code.
func Run() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		return 1
	}
	return 0
}

// setup loads the config file and builds the logger. The returned func
// closes the log file, if any.
func (o *globalOptions) setup(stderr io.Writer) (*config.Config, logger.Logger, func(), error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFile != "" {
		cfg.LogFile = o.logFile
	}

	console := logger.NewConsole(stderr, cfg.LogLevel)
	if cfg.LogFile == "" {
		return cfg, console, func() {}, nil
	}
	file, err := logger.NewFile(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return cfg, logger.Multi{console, file}, func() { _ = file.Close() }, nil
}
