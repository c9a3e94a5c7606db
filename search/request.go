package search

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"disk-search/config"
)

const (
	maxWorkerThreads     = 32
	maxParallelBlocks    = 16
	defaultFileTimeout   = 20 * time.Second
	defaultParallelBlock = 2
)

// Request describes one search run. Start copies it, so later changes by the
// caller don't affect a running search.
type Request struct {
	Root     string
	Keywords []string

	MatchFiles   bool
	MatchFolders bool
	MatchContent bool
	WholeWord    bool

	IgnoreHidden          bool
	ExcludeSystemFiles    bool
	SkipPermissionErrors  bool
	PrioritizeUserFolders bool
	AutoAdjustBlockSize   bool

	// MaxDepth limits descent below Root (0 = unlimited)
	MaxDepth int

	// Filters applied to files before name/content matching. Zero values disable.
	SizeMin    int64
	SizeMax    int64
	DateMin    time.Time
	DateMax    time.Time
	Extensions []string

	MaxFilesToCheck   int64
	MaxResults        int
	MaxFileSizeBytes  int64
	WorkerThreadCount int
	PerFileTimeout    time.Duration
	GlobalTimeout     time.Duration
	MaxParallelBlocks int

	// ExcludedPaths are path prefixes that are never descended into
	ExcludedPaths []string
}

// NewRequest builds a request for root seeded from the persistent config.
// Name and folder matching are on; content matching is off.
func NewRequest(root string, keywords []string, cfg *config.Config) Request {
	return Request{
		Root:                  root,
		Keywords:              keywords,
		MatchFiles:            true,
		MatchFolders:          true,
		IgnoreHidden:          cfg.IgnoreHidden,
		ExcludeSystemFiles:    cfg.ExcludeSystemFiles,
		SkipPermissionErrors:  cfg.SkipPermissionErrors,
		PrioritizeUserFolders: cfg.PrioritizeUserFolders,
		AutoAdjustBlockSize:   cfg.AutoAdjustBlockSize,
		MaxFilesToCheck:       cfg.MaxFilesToCheck,
		MaxResults:            cfg.MaxResults,
		MaxFileSizeBytes:      cfg.MaxFileSizeMB * 1024 * 1024,
		WorkerThreadCount:     cfg.Workers,
		PerFileTimeout:        cfg.PerFileTimeout,
		GlobalTimeout:         cfg.GlobalTimeout,
		MaxParallelBlocks:     cfg.MaxParallelBlocks,
		ExcludedPaths:         append([]string(nil), cfg.ExcludedPaths...),
	}
}

// ParseKeywords splits a comma-separated list into trimmed, lowercased terms.
// Empty terms are dropped.
func ParseKeywords(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the root exists and is a directory.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Root) == "" {
		return fmt.Errorf("%w: root path is empty", ErrInvalidRequest)
	}
	info, err := os.Stat(r.Root)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, classifyFSError(err))
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidRequest, r.Root)
	}
	if r.SizeMax > 0 && r.SizeMin > r.SizeMax {
		return fmt.Errorf("%w: size range %d..%d is empty", ErrInvalidRequest, r.SizeMin, r.SizeMax)
	}
	if !r.DateMin.IsZero() && !r.DateMax.IsZero() && r.DateMin.After(r.DateMax) {
		return fmt.Errorf("%w: date range is empty", ErrInvalidRequest)
	}
	return nil
}

// normalized returns a deep copy with limits clamped and paths cleaned.
func (r Request) normalized() Request {
	n := r
	if abs, err := filepath.Abs(r.Root); err == nil {
		n.Root = abs
	}
	n.Root = filepath.Clean(n.Root)

	n.Keywords = make([]string, 0, len(r.Keywords))
	for _, k := range r.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			n.Keywords = append(n.Keywords, k)
		}
	}

	n.Extensions = make([]string, 0, len(r.Extensions))
	for _, ext := range r.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		n.Extensions = append(n.Extensions, ext)
	}

	n.ExcludedPaths = make([]string, 0, len(r.ExcludedPaths))
	for _, p := range r.ExcludedPaths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		// walked paths are absolute, so relative prefixes are resolved
		// against the working directory like Root
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		n.ExcludedPaths = append(n.ExcludedPaths, filepath.Clean(p))
	}

	if n.WorkerThreadCount <= 0 {
		n.WorkerThreadCount = runtime.NumCPU() * 2
	}
	n.WorkerThreadCount = clamp(n.WorkerThreadCount, 1, maxWorkerThreads)

	if n.PerFileTimeout <= 0 {
		n.PerFileTimeout = defaultFileTimeout
	}
	if n.GlobalTimeout < 0 {
		n.GlobalTimeout = 0
	}
	if n.MaxDepth < 0 {
		n.MaxDepth = 0
	}

	if n.AutoAdjustBlockSize {
		n.MaxParallelBlocks = min(n.WorkerThreadCount, runtime.NumCPU())
	} else if n.MaxParallelBlocks <= 0 {
		n.MaxParallelBlocks = defaultParallelBlock
	}
	n.MaxParallelBlocks = clamp(n.MaxParallelBlocks, 1, maxParallelBlocks)

	return n
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
