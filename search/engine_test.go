package search

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disk-search/logger"
	"disk-search/search/extract"
)

// makeTree creates files (with content) and empty directories under root.
// Paths ending in "/" are directories.
func makeTree(t *testing.T, root string, entries map[string]string) {
	t.Helper()
	for rel, content := range entries {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if rel[len(rel)-1] == '/' {
			require.NoError(t, os.MkdirAll(path, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func baseRequest(root string, keywords ...string) Request {
	return Request{
		Root:              root,
		Keywords:          keywords,
		MatchFiles:        true,
		MatchFolders:      true,
		IgnoreHidden:      true,
		WorkerThreadCount: 4,
		MaxParallelBlocks: 2,
		PerFileTimeout:    5 * time.Second,
	}
}

func newTestEngine() *Engine {
	reg := extract.NewRegistry()
	return NewEngine(reg, extract.DetectCapabilities(reg), logger.Nop{})
}

func runSearch(t *testing.T, eng *Engine, req Request) (Outcome, []MatchResult) {
	t.Helper()
	outcome, results, err := eng.Run(context.Background(), req)
	require.NoError(t, err)
	return outcome, results
}

func names(results []MatchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Kind.String()+":"+r.Name)
	}
	return out
}

func TestEmptyKeywordsCompletesWithNoMatches(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{"a.txt": "anything"})

	outcome, results := runSearch(t, newTestEngine(), baseRequest(root))
	assert.Equal(t, StateCompleted, outcome.State)
	assert.Zero(t, outcome.Count)
	assert.Empty(t, results)
}

func TestResultsAreDeterministic(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"report.txt":         "",
		"b/report.txt":       "",
		"a/report.txt":       "",
		"a/report/":          "",
		"c/d/report-old.txt": "",
		"c/d/other.txt":      "",
	})

	eng := newTestEngine()
	req := baseRequest(root, "report")
	req.MaxParallelBlocks = 4

	_, first := runSearch(t, eng, req)
	_, second := runSearch(t, eng, req)

	require.Len(t, first, 5)
	assert.Equal(t, first, second)
	assert.Equal(t, KindDirectory, first[0].Kind, "directories sort before files")
	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		if prev.Kind == cur.Kind && prev.Name == cur.Name {
			assert.Less(t, prev.FullPath, cur.FullPath)
		}
	}
}

func TestSymlinkCycleTerminates(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated rights on windows")
	}
	root := t.TempDir()
	makeTree(t, root, map[string]string{"a/b/target.txt": ""})
	require.NoError(t, os.Symlink(root, filepath.Join(root, "a", "b", "loop")))
	require.NoError(t, os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "a", "back")))

	done := make(chan struct{})
	var outcome Outcome
	var results []MatchResult
	go func() {
		defer close(done)
		outcome, results = runSearch(t, newTestEngine(), baseRequest(root, "target"))
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("search did not terminate on a symlink cycle")
	}
	assert.Equal(t, StateCompleted, outcome.State)
	assert.Equal(t, []string{"File:target.txt"}, names(results))
	assert.Equal(t, int64(3), outcome.DirsListed)
}

func TestMaxDepthBoundsListing(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"target-root.txt":  "",
		"a/target-a.txt":   "",
		"a/b/target-b.txt": "",
		"a/b/c/":           "",
	})

	req := baseRequest(root, "target")
	req.MaxDepth = 1
	outcome, results := runSearch(t, newTestEngine(), req)

	assert.Equal(t, StateCompleted, outcome.State)
	assert.ElementsMatch(t, []string{"File:target-a.txt", "File:target-root.txt"}, names(results))
	assert.Equal(t, int64(2), outcome.DirsListed, "only root and root/a are listed")
}

func TestFolderBeyondDepthStillMatchesByName(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{"a/archive/inner.txt": ""})

	req := baseRequest(root, "archive")
	req.MaxDepth = 1
	_, results := runSearch(t, newTestEngine(), req)
	assert.Equal(t, []string{"Directory:archive"}, names(results))
}

func TestFileCapStopsAfterExactlyN(t *testing.T) {
	root := t.TempDir()
	entries := map[string]string{}
	for i := 0; i < 12; i++ {
		entries["d/"+string(rune('a'+i))+".txt"] = "some text"
	}
	makeTree(t, root, entries)

	var matched atomic.Int64
	reg := extract.NewRegistry()
	eng := NewEngine(countingExtractor{n: &matched}, extract.DetectCapabilities(reg), logger.Nop{})

	req := baseRequest(root, "zzz")
	req.MatchContent = true
	req.MaxFilesToCheck = 5
	outcome, _ := runSearch(t, eng, req)

	assert.Equal(t, StateCompleted, outcome.State)
	assert.Equal(t, int64(5), outcome.FilesChecked)
	assert.Equal(t, int64(5), matched.Load(), "every reserved file is matched")
}

type countingExtractor struct{ n *atomic.Int64 }

func (c countingExtractor) Extract(context.Context, string, string) (string, error) {
	c.n.Add(1)
	return "nothing here", nil
}

type slowExtractor struct{ delay time.Duration }

// Extract ignores its context on purpose so the engine has to abandon it.
func (s slowExtractor) Extract(context.Context, string, string) (string, error) {
	time.Sleep(s.delay)
	return "", nil
}

func TestGlobalTimeoutReturnsPartialResults(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"match-first.txt": "",
		"slow1.txt":       "x",
		"slow2.txt":       "x",
		"sub/slow3.txt":   "x",
	})

	eng := NewEngine(slowExtractor{delay: 5 * time.Second}, extract.Capabilities{"txt": true}, logger.Nop{})
	events := eng.Events()

	req := baseRequest(root, "match")
	req.MatchContent = true
	req.GlobalTimeout = time.Second
	req.PerFileTimeout = 20 * time.Second

	start := time.Now()
	outcome, results := runSearch(t, eng, req)
	elapsed := time.Since(start)

	assert.Equal(t, StateTimedOut, outcome.State)
	assert.ErrorIs(t, outcome.Err, ErrGlobalTimeout)
	assert.Less(t, elapsed, 4*time.Second)
	assert.Equal(t, []string{"File:match-first.txt"}, names(results))

	var sawTimeout bool
	for ev := range events {
		if ev.Kind == EventTimedOut {
			sawTimeout = true
		}
	}
	assert.True(t, sawTimeout, "a TimedOut event is published")
}

func TestWholeWordNameMatching(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"login.txt":  "",
		"log.txt":    "",
		"access.log": "",
	})

	req := baseRequest(root, "log")
	req.WholeWord = true
	_, results := runSearch(t, newTestEngine(), req)
	assert.Equal(t, []string{"File:access.log", "File:log.txt"}, names(results))
}

func TestUnreadableSiblingIsSkipped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("chmod does not restrict directory listing on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"a/match-a.txt": "",
		"b/match-b.txt": "",
		"c/match-c.txt": "",
	})
	locked := filepath.Join(root, "b")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	req := baseRequest(root, "match")
	req.SkipPermissionErrors = true
	outcome, results := runSearch(t, newTestEngine(), req)

	assert.Equal(t, StateCompleted, outcome.State)
	assert.Equal(t, []string{"File:match-a.txt", "File:match-c.txt"}, names(results))
}

func TestInvoiceContractScenario(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"invoice_2023.txt": "contract number 55",
		"invoices/":        "",
		"readme.md":        "hello",
	})

	req := baseRequest(root, "invoice", "contract")
	req.MatchContent = true
	outcome, results := runSearch(t, newTestEngine(), req)

	assert.Equal(t, StateCompleted, outcome.State)
	assert.Equal(t, []string{"Directory:invoices", "File:invoice_2023.txt"}, names(results))
}

func TestContentMatch(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"notes.txt":  "the signed Contract is attached",
		"other.txt":  "nothing to see",
		"big.txt":    "contract " + string(make([]byte, 2048)),
		"~$lock.txt": "contract",
	})

	req := baseRequest(root, "contract")
	req.MatchContent = true
	req.MaxFileSizeBytes = 1024
	_, results := runSearch(t, newTestEngine(), req)
	assert.Equal(t, []string{"File:notes.txt"}, names(results))
}

func TestMaxResultsIsEnforced(t *testing.T) {
	root := t.TempDir()
	entries := map[string]string{}
	for i := 0; i < 20; i++ {
		entries["hit-"+string(rune('a'+i))+".txt"] = ""
	}
	makeTree(t, root, entries)

	req := baseRequest(root, "hit")
	req.MaxResults = 7
	outcome, results := runSearch(t, newTestEngine(), req)

	assert.Equal(t, StateCompleted, outcome.State)
	assert.Len(t, results, 7)
}

func TestStartRejectsWhenNotIdle(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{"a.txt": "x"})

	eng := NewEngine(slowExtractor{delay: 2 * time.Second}, extract.Capabilities{"txt": true}, logger.Nop{})
	req := baseRequest(root, "zzz")
	req.MatchContent = true
	require.NoError(t, eng.Start(req))
	assert.Equal(t, StateRunning, eng.State())
	assert.ErrorIs(t, eng.Start(req), ErrNotIdle)

	eng.Stop()
	outcome, _ := eng.Wait()
	assert.Equal(t, StateCancelled, outcome.State)
	assert.Equal(t, StateIdle, eng.State())
}

func TestStartValidatesRequest(t *testing.T) {
	eng := newTestEngine()
	err := eng.Start(baseRequest(filepath.Join(t.TempDir(), "missing"), "x"))
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, StateIdle, eng.State())
}

func TestRunContextCancellationStops(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{"a.txt": "x", "b.txt": "x"})

	eng := NewEngine(slowExtractor{delay: 3 * time.Second}, extract.Capabilities{"txt": true}, logger.Nop{})
	req := baseRequest(root, "zzz")
	req.MatchContent = true

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	outcome, _, err := eng.Run(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, outcome.State)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWaitWhenIdle(t *testing.T) {
	outcome, results := newTestEngine().Wait()
	assert.Equal(t, StateIdle, outcome.State)
	assert.Nil(t, results)
}

func TestEventsStreamCloses(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{"match.txt": "", "sub/match2.txt": ""})

	eng := newTestEngine()
	events := eng.Events()
	require.NoError(t, eng.Start(baseRequest(root, "match")))

	var appended int
	var statuses []string
	for ev := range events {
		switch ev.Kind {
		case EventResultsAppended:
			appended += ev.Count
		case EventStatus:
			statuses = append(statuses, ev.Text)
		}
	}
	outcome, _ := eng.Wait()
	assert.Equal(t, 2, appended)
	assert.Equal(t, outcome.Count, appended)
	require.NotEmpty(t, statuses)
	assert.Regexp(t, `found, \d+ files checked, [0-9.hms]+\)$`, statuses[0])
}

func TestSymlinkedFolderNameMatches(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated rights on windows")
	}
	root := t.TempDir()
	makeTree(t, root, map[string]string{"data/readme.txt": "nothing"})
	require.NoError(t, os.Symlink(filepath.Join(root, "data"), filepath.Join(root, "invoice-link")))

	outcome, results := runSearch(t, newTestEngine(), baseRequest(root, "invoice"))
	assert.Equal(t, StateCompleted, outcome.State)
	assert.Equal(t, []string{"Directory:invoice-link"}, names(results))
	assert.Equal(t, int64(2), outcome.DirsListed)
}

func TestRelativeExcludedPathIsHonoured(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"build/match.txt": "",
		"src/match.txt":   "",
	})
	t.Chdir(root)

	req := baseRequest(".", "match")
	req.ExcludedPaths = []string{"build"}
	_, results := runSearch(t, newTestEngine(), req)

	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join("src", "match.txt"), filepath.Join(filepath.Base(filepath.Dir(results[0].FullPath)), results[0].Name))
}

func lockDirs(t *testing.T, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.Chmod(d, 0o000))
		t.Cleanup(func() { _ = os.Chmod(d, 0o755) })
	}
}

func adminEvents(t *testing.T, root string) int {
	t.Helper()
	eng := newTestEngine()
	events := eng.Events()
	req := baseRequest(root, "nothing-matches")
	req.SkipPermissionErrors = true
	req.PrioritizeUserFolders = true
	require.NoError(t, eng.Start(req))

	count := 0
	for ev := range events {
		if ev.Kind == EventAdminPrivilegeNeeded {
			count++
		}
	}
	outcome, _ := eng.Wait()
	assert.Equal(t, StateCompleted, outcome.State)
	return count
}

func TestAdminPrivilegeNeededOnce(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("chmod does not restrict directory listing on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"documents/x1/": "", "documents/x2/": "", "documents/x3/": "", "documents/x4/": "",
	})
	docs := filepath.Join(root, "documents")
	lockDirs(t, filepath.Join(docs, "x1"), filepath.Join(docs, "x2"), filepath.Join(docs, "x3"), filepath.Join(docs, "x4"))

	assert.Equal(t, 1, adminEvents(t, root))
}

func TestAdminPrivilegeSkippedForOtherPaths(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("chmod does not restrict directory listing on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := t.TempDir()
	if home, err := os.UserHomeDir(); Priority(root, true) == 0 || (err == nil && hasPathPrefix(foldCase(root), foldCase(home))) {
		t.Skip("temp dir is inside a user folder")
	}
	makeTree(t, root, map[string]string{"other/x1/": "", "other/x2/": "", "other/x3/": ""})
	other := filepath.Join(root, "other")
	lockDirs(t, filepath.Join(other, "x1"), filepath.Join(other, "x2"), filepath.Join(other, "x3"))

	assert.Zero(t, adminEvents(t, root))
}

func TestRunUnaffectedByConcurrentWait(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{"a/match.txt": "", "b/other.txt": ""})
	eng := newTestEngine()

	stop := make(chan struct{})
	waiterDone := make(chan struct{})
	go func() {
		defer close(waiterDone)
		for {
			select {
			case <-stop:
				return
			default:
				eng.Wait()
				time.Sleep(time.Millisecond)
			}
		}
	}()

	for range 20 {
		outcome, results, err := eng.Run(context.Background(), baseRequest(root, "match"))
		require.NoError(t, err)
		assert.Equal(t, StateCompleted, outcome.State)
		assert.Equal(t, []string{"File:match.txt"}, names(results))
	}
	close(stop)
	<-waiterDone
}
