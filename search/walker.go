package search

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// adminThreshold is the number of permission failures under user-owned
// paths after which the caller is told elevation may help.
const adminThreshold = 3

// walker is one consumer of the shared scheduler.
type walker struct {
	id int
	r  *run
}

// loop pops and processes blocks until the scheduler is drained or closed.
func (w *walker) loop() {
	for {
		b, ok := w.r.sched.Pop()
		if !ok {
			return
		}
		w.processBlock(b)
		w.r.sched.Done()
	}
}

func (w *walker) processBlock(b Block) {
	r := w.r
	if r.stopping() {
		return
	}
	r.reportProgress(b.Path)
	if r.checkDeadline() {
		return
	}

	entries, err := os.ReadDir(b.Path)
	if err != nil {
		r.directoryError(b.Path, err)
		if len(entries) == 0 {
			return
		}
	}
	r.dirsListed.Add(1)

	for _, entry := range entries {
		if r.stopping() {
			return
		}
		path := filepath.Join(b.Path, entry.Name())
		if r.filter.Skip(path, entry) {
			continue
		}

		info, isDir, err := resolveEntry(path, entry)
		if err != nil {
			r.entryError(path, err)
			continue
		}
		switch {
		case isDir:
			w.handleDir(path, info)
		case info.Mode().IsRegular():
			if !w.handleFile(path, info) {
				return
			}
		}
	}
}

// resolveEntry stats an entry, following symlinks so linked directories
// are descended into.
func resolveEntry(path string, entry fs.DirEntry) (fs.FileInfo, bool, error) {
	if entry.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, false, err
		}
		return info, info.IsDir(), nil
	}
	info, err := entry.Info()
	if err != nil {
		return nil, false, err
	}
	return info, entry.IsDir(), nil
}

func (w *walker) handleDir(path string, info fs.FileInfo) {
	r := w.r
	// every name is tested, including links to folders already visited
	if r.req.MatchFolders {
		if res, ok := r.matcher.MatchFolder(path, info); ok {
			r.collect(res)
		}
	}
	if !r.visited.Add(canonicalPath(path)) {
		return
	}
	if depth := r.depth(path); r.req.MaxDepth == 0 || depth <= r.req.MaxDepth {
		r.sched.Push(Block{Priority: Priority(path, r.req.PrioritizeUserFolders), Path: path})
	}
}

// handleFile submits a file for matching. It returns false when the walker
// should abandon the current block.
func (w *walker) handleFile(path string, info fs.FileInfo) bool {
	r := w.r
	if !r.req.MatchFiles {
		return true
	}
	if !r.reserveFileSlot() {
		r.log.Infof("file limit of %d reached", r.req.MaxFilesToCheck)
		r.requestStop(stopLimit)
		return false
	}

	task := func(ctx context.Context) error {
		r.matchFile(ctx, path, info)
		return nil
	}
	err := r.pool.Submit(r.ctx, path, task)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrPoolClosed):
		r.matchFile(r.ctx, path, info)
		return true
	default:
		return false
	}
}

// reserveFileSlot claims one unit of the files-checked budget.
func (r *run) reserveFileSlot() bool {
	limit := r.req.MaxFilesToCheck
	if limit <= 0 {
		r.filesChecked.Add(1)
		return true
	}
	for {
		cur := r.filesChecked.Load()
		if cur >= limit {
			return false
		}
		if r.filesChecked.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (r *run) matchFile(ctx context.Context, path string, info fs.FileInfo) {
	if res, ok := r.matcher.Match(ctx, path, info); ok && ctx.Err() == nil {
		r.collect(res)
	}
}

func (r *run) collect(res MatchResult) {
	accepted, full := r.collector.Append(res)
	if accepted {
		r.reporter.emit(Event{Kind: EventResultsAppended, Count: 1})
	}
	if full {
		r.requestStop(stopLimit)
	}
}

// depth counts path components below the root.
func (r *run) depth(path string) int {
	rel, err := filepath.Rel(r.req.Root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func (r *run) reportProgress(path string) {
	if !r.reporter.allowStatus(time.Now()) {
		return
	}
	done, pending := r.sched.Stats()
	percent := 0
	if total := done + pending; total > 0 {
		percent = done * 100 / total
	}
	r.reporter.emit(Event{Kind: EventProgress, Percent: percent})
	text := fmt.Sprintf("Searching %s (%d found, %d files checked, %s)",
		path, r.collector.Len(), r.filesChecked.Load(), time.Since(r.started).Round(time.Second))
	if stray := r.pool.Stray(); stray > 0 {
		text += fmt.Sprintf(", %d timed-out files still being read", stray)
	}
	r.reporter.emit(Event{Kind: EventStatus, Text: text})
}

// checkDeadline stops the run once the global timeout has elapsed.
func (r *run) checkDeadline() bool {
	if r.req.GlobalTimeout <= 0 || time.Since(r.started) < r.req.GlobalTimeout {
		return false
	}
	r.timeout()
	return true
}

func (r *run) directoryError(path string, err error) {
	err = classifyFSError(err)
	switch {
	case errors.Is(err, ErrPermissionDenied):
		r.permissionFailure(path)
		if r.req.SkipPermissionErrors {
			r.log.Debugf("skipping %s: %v", path, err)
			return
		}
		r.log.Warnf("Warning: cannot list %s: %v", path, err)
		r.reporter.emit(Event{Kind: EventError, Text: fmt.Sprintf("access denied: %s", path)})
	case errors.Is(err, ErrNotFound):
		r.log.Debugf("directory vanished: %s", path)
	default:
		r.log.Warnf("Warning: cannot list %s: %v", path, err)
		r.reporter.emit(Event{Kind: EventError, Text: fmt.Sprintf("cannot list %s: %v", path, err)})
	}
}

func (r *run) entryError(path string, err error) {
	err = classifyFSError(err)
	if errors.Is(err, ErrPermissionDenied) {
		r.permissionFailure(path)
	}
	r.log.Debugf("skipping %s: %v", path, err)
}

// permissionFailure counts denials under user-owned paths and emits a single
// AdminPrivilegeNeeded once the threshold is crossed.
func (r *run) permissionFailure(path string) {
	userOwned := (r.home != "" && hasPathPrefix(foldCase(path), foldCase(r.home))) || Priority(path, true) == 0
	if !userOwned {
		return
	}
	if r.permDenied.Add(1) >= adminThreshold && r.adminSent.CompareAndSwap(false, true) {
		r.log.Warnf("repeated access denied under %s; elevated privileges may be required", path)
		r.reporter.emit(Event{
			Kind: EventAdminPrivilegeNeeded,
			Text: "Several folders in your user profile could not be read. Run with administrator privileges to include them.",
		})
	}
}
