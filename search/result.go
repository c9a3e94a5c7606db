package search

import (
	"cmp"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// Kind distinguishes file matches from directory matches.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "Directory"
	}
	return "File"
}

// MarshalText renders the kind label in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind label.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "File":
		*k = KindFile
	case "Directory":
		*k = KindDirectory
	default:
		return fmt.Errorf("unknown result kind %q", b)
	}
	return nil
}

// MatchResult is one matched file or directory.
type MatchResult struct {
	Kind     Kind      `json:"kind"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	HasSize  bool      `json:"has_size"`
	Modified time.Time `json:"modified"`
	Created  time.Time `json:"created"`
	FullPath string    `json:"full_path"`
}

func newResult(path string, info fs.FileInfo, kind Kind) MatchResult {
	r := MatchResult{
		Kind:     kind,
		Name:     filepath.Base(path),
		Modified: info.ModTime(),
		Created:  createdTime(path, info),
		FullPath: path,
	}
	if kind == KindFile {
		r.Size = info.Size()
		r.HasSize = true
	}
	return r
}

// Collector accumulates matches from concurrent producers.
type Collector struct {
	mu      sync.Mutex
	results []MatchResult
	max     int
	sealed  bool
}

// NewCollector creates a collector holding at most max results (0 = unlimited).
func NewCollector(max int) *Collector {
	return &Collector{max: max}
}

// Append stores r unless the collector is full or sealed. full reports
// whether the cap has been reached after this call.
func (c *Collector) Append(r MatchResult) (accepted, full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed || c.isFull() {
		return false, c.isFull()
	}
	c.results = append(c.results, r)
	return true, c.isFull()
}

func (c *Collector) isFull() bool {
	return c.max > 0 && len(c.results) >= c.max
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

// Seal rejects every later Append. Used once the run has drained so late
// completions from abandoned tasks can't change the published set.
func (c *Collector) Seal() {
	c.mu.Lock()
	c.sealed = true
	c.mu.Unlock()
}

// Sorted returns a copy ordered by kind label, then name, then full path.
// Comparison is byte-wise so the order is stable across locales.
func (c *Collector) Sorted() []MatchResult {
	c.mu.Lock()
	out := slices.Clone(c.results)
	c.mu.Unlock()

	slices.SortFunc(out, func(a, b MatchResult) int {
		return cmp.Or(
			cmp.Compare(a.Kind.String(), b.Kind.String()),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.FullPath, b.FullPath),
		)
	})
	return out
}
