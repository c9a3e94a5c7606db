package search

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeEntry is a minimal fs.DirEntry for filter tests.
type fakeEntry struct {
	name string
	dir  bool
}

func (e fakeEntry) Name() string { return e.name }
func (e fakeEntry) IsDir() bool  { return e.dir }
func (e fakeEntry) Type() fs.FileMode {
	if e.dir {
		return fs.ModeDir
	}
	return 0
}
func (e fakeEntry) Info() (fs.FileInfo, error) { return nil, fs.ErrNotExist }

func TestExclusionFilter(t *testing.T) {
	root := filepath.FromSlash("/data")
	f := NewExclusionFilter(Request{
		Root:          root,
		IgnoreHidden:  true,
		ExcludedPaths: []string{filepath.FromSlash("/data/skip")},
	}.normalized())

	tests := []struct {
		name  string
		path  string
		entry fakeEntry
		skip  bool
	}{
		{"regular file", "/data/report.txt", fakeEntry{name: "report.txt"}, false},
		{"problematic name", "/data/pagefile.sys", fakeEntry{name: "pagefile.sys"}, true},
		{"recycle bin any case", "/data/$Recycle.Bin", fakeEntry{name: "$Recycle.Bin", dir: true}, true},
		{"excluded prefix", "/data/skip", fakeEntry{name: "skip", dir: true}, true},
		{"below excluded prefix", "/data/skip/inner", fakeEntry{name: "inner", dir: true}, true},
		{"sibling sharing prefix", "/data/skipper", fakeEntry{name: "skipper", dir: true}, false},
	}
	if runtime.GOOS != "windows" {
		tests = append(tests,
			struct {
				name  string
				path  string
				entry fakeEntry
				skip  bool
			}{"hidden dotfile", "/data/.cache", fakeEntry{name: ".cache", dir: true}, true},
		)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.skip, f.Skip(filepath.FromSlash(tt.path), tt.entry))
		})
	}
}

func TestExclusionFilterHiddenAllowed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("hidden files are attribute based on windows")
	}
	f := NewExclusionFilter(Request{Root: "/data"}.normalized())
	assert.False(t, f.Skip("/data/.config", fakeEntry{name: ".config", dir: true}))
}

func TestExclusionFilterPseudoFilesystems(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no pseudo filesystems on windows")
	}
	f := NewExclusionFilter(Request{Root: "/"}.normalized())
	assert.True(t, f.Skip("/proc", fakeEntry{name: "proc", dir: true}))
	assert.True(t, f.Skip("/sys", fakeEntry{name: "sys", dir: true}))
	assert.False(t, f.Skip("/home", fakeEntry{name: "home", dir: true}))

	inside := NewExclusionFilter(Request{Root: "/sys/class"}.normalized())
	assert.False(t, inside.Skip("/sys", fakeEntry{name: "sys", dir: true}))
}

func TestHasPathPrefix(t *testing.T) {
	sep := string(filepath.Separator)
	assert.True(t, hasPathPrefix(sep+"a", sep+"a"))
	assert.True(t, hasPathPrefix(sep+"a"+sep+"b", sep+"a"))
	assert.False(t, hasPathPrefix(sep+"ab", sep+"a"))
	assert.True(t, hasPathPrefix(sep+"x", sep))
}

func TestExclusionFilterRelativePrefix(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Skip("no working directory")
	}
	f := NewExclusionFilter(Request{Root: ".", ExcludedPaths: []string{"build"}}.normalized())

	assert.True(t, f.Skip(filepath.Join(wd, "build"), fakeEntry{name: "build", dir: true}))
	assert.True(t, f.Skip(filepath.Join(wd, "build", "match.txt"), fakeEntry{name: "match.txt"}))
	assert.False(t, f.Skip(filepath.Join(wd, "src", "match.txt"), fakeEntry{name: "match.txt"}))
}
