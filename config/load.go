package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the persistent defaults for a search run.
// CLI flags override anything loaded here.
type Config struct {
	// Workers is the number of concurrent file-match slots (clamped 1..32)
	Workers int `yaml:"workers"`

	// MaxParallelBlocks is the number of concurrent directory consumers
	MaxParallelBlocks int `yaml:"max_parallel_blocks"`

	// PerFileTimeout bounds a single file's match evaluation
	PerFileTimeout time.Duration `yaml:"per_file_timeout"`

	// GlobalTimeout bounds the whole run (0 = no limit)
	GlobalTimeout time.Duration `yaml:"global_timeout"`

	// MaxFilesToCheck caps the number of files submitted for matching (0 = unlimited)
	MaxFilesToCheck int64 `yaml:"max_files_to_check"`

	// MaxResults caps the number of collected matches (0 = unlimited)
	MaxResults int `yaml:"max_results"`

	// MaxFileSizeMB skips content inspection for larger files
	MaxFileSizeMB int64 `yaml:"max_file_size_mb"`

	IgnoreHidden          bool `yaml:"ignore_hidden"`
	ExcludeSystemFiles    bool `yaml:"exclude_system_files"`
	SkipPermissionErrors  bool `yaml:"skip_permission_errors"`
	PrioritizeUserFolders bool `yaml:"prioritize_user_folders"`
	AutoAdjustBlockSize   bool `yaml:"auto_adjust_block_size"`

	// ExcludedPaths are path prefixes never descended into
	ExcludedPaths []string `yaml:"excluded_paths"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogFile, when set, receives a copy of every log line
	LogFile string `yaml:"log_file"`

	// HistoryPath is the sqlite database used by --history
	HistoryPath string `yaml:"history_path"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Workers:               min(runtime.NumCPU()*2, 32),
		MaxParallelBlocks:     2,
		PerFileTimeout:        20 * time.Second,
		GlobalTimeout:         0,
		MaxFilesToCheck:       1_000_000,
		MaxResults:            10_000,
		MaxFileSizeMB:         50,
		IgnoreHidden:          true,
		ExcludeSystemFiles:    true,
		SkipPermissionErrors:  true,
		PrioritizeUserFolders: true,
		AutoAdjustBlockSize:   true,
		LogLevel:              "warn",
		HistoryPath:           filepath.Join(DefaultDir(), "history.db"),
	}
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "disk-search")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are written as strings ("20s", "5m") in the file
	type yamlConfig struct {
		Workers               int      `yaml:"workers"`
		MaxParallelBlocks     int      `yaml:"max_parallel_blocks"`
		PerFileTimeout        string   `yaml:"per_file_timeout"`
		GlobalTimeout         string   `yaml:"global_timeout"`
		MaxFilesToCheck       int64    `yaml:"max_files_to_check"`
		MaxResults            int      `yaml:"max_results"`
		MaxFileSizeMB         int64    `yaml:"max_file_size_mb"`
		IgnoreHidden          *bool    `yaml:"ignore_hidden"`
		ExcludeSystemFiles    *bool    `yaml:"exclude_system_files"`
		SkipPermissionErrors  *bool    `yaml:"skip_permission_errors"`
		PrioritizeUserFolders *bool    `yaml:"prioritize_user_folders"`
		AutoAdjustBlockSize   *bool    `yaml:"auto_adjust_block_size"`
		ExcludedPaths         []string `yaml:"excluded_paths"`
		LogLevel              string   `yaml:"log_level"`
		LogFile               string   `yaml:"log_file"`
		HistoryPath           string   `yaml:"history_path"`
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	if yc.MaxParallelBlocks != 0 {
		cfg.MaxParallelBlocks = yc.MaxParallelBlocks
	}
	if yc.PerFileTimeout != "" {
		d, err := time.ParseDuration(yc.PerFileTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid per_file_timeout %q: %w", yc.PerFileTimeout, err)
		}
		cfg.PerFileTimeout = d
	}
	if yc.GlobalTimeout != "" {
		d, err := time.ParseDuration(yc.GlobalTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid global_timeout %q: %w", yc.GlobalTimeout, err)
		}
		cfg.GlobalTimeout = d
	}
	if yc.MaxFilesToCheck != 0 {
		cfg.MaxFilesToCheck = yc.MaxFilesToCheck
	}
	if yc.MaxResults != 0 {
		cfg.MaxResults = yc.MaxResults
	}
	if yc.MaxFileSizeMB != 0 {
		cfg.MaxFileSizeMB = yc.MaxFileSizeMB
	}
	setBool(&cfg.IgnoreHidden, yc.IgnoreHidden)
	setBool(&cfg.ExcludeSystemFiles, yc.ExcludeSystemFiles)
	setBool(&cfg.SkipPermissionErrors, yc.SkipPermissionErrors)
	setBool(&cfg.PrioritizeUserFolders, yc.PrioritizeUserFolders)
	setBool(&cfg.AutoAdjustBlockSize, yc.AutoAdjustBlockSize)
	if len(yc.ExcludedPaths) > 0 {
		cfg.ExcludedPaths = yc.ExcludedPaths
	}
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.LogFile != "" {
		cfg.LogFile = yc.LogFile
	}
	if yc.HistoryPath != "" {
		cfg.HistoryPath = yc.HistoryPath
	}

	return cfg, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
