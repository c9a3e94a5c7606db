package search

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"disk-search/config"
	"disk-search/logger"
	"disk-search/search/extract"
)

// FileMatcher decides whether a single file or directory matches a request.
// It never returns errors: failures are logged and count as no match.
type FileMatcher struct {
	req          Request
	keywords     *KeywordMatcher
	matchContent bool
	extractor    extract.Extractor
	caps         extract.Capabilities
	log          logger.Logger
}

// NewFileMatcher builds a matcher for a normalized request. A nil extractor
// disables content matching.
func NewFileMatcher(req Request, ex extract.Extractor, caps extract.Capabilities, log logger.Logger) *FileMatcher {
	if log == nil {
		log = logger.Nop{}
	}
	return &FileMatcher{
		req:          req,
		keywords:     NewKeywordMatcher(req.Keywords, req.WholeWord),
		matchContent: req.MatchContent && ex != nil,
		extractor:    ex,
		caps:         caps,
		log:          log,
	}
}

// ShouldSearchContent reports whether a file with this extension is worth
// opening. With system files excluded only known text and document formats
// qualify; otherwise anything the extractor may decode is tried.
func (m *FileMatcher) ShouldSearchContent(ext string) bool {
	if m.caps.Supports(ext) || config.IsPlainTextType(ext) {
		return true
	}
	return !m.req.ExcludeSystemFiles
}

// MatchFolder tests a directory name.
func (m *FileMatcher) MatchFolder(path string, info fs.FileInfo) (MatchResult, bool) {
	if !m.keywords.Match(filepath.Base(path)) {
		return MatchResult{}, false
	}
	return newResult(path, info, KindDirectory), true
}

// Match tests a regular file by name and, when enabled, by content.
func (m *FileMatcher) Match(ctx context.Context, path string, info fs.FileInfo) (res MatchResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warnf("Warning: matcher panicked on %s: %v", path, r)
			res, ok = MatchResult{}, false
		}
	}()

	name := filepath.Base(path)
	if config.IsProtectedFile(name) {
		return MatchResult{}, false
	}
	if !m.passesFilters(name, info) {
		return MatchResult{}, false
	}

	if m.keywords.Match(name) {
		return newResult(path, info, KindFile), true
	}

	if !m.matchContent || info.Size() == 0 {
		return MatchResult{}, false
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !m.ShouldSearchContent(ext) {
		return MatchResult{}, false
	}
	if m.req.MaxFileSizeBytes > 0 && info.Size() > m.req.MaxFileSizeBytes {
		m.log.Debugf("skipping content of %s: %d bytes over limit", path, info.Size())
		return MatchResult{}, false
	}

	text, err := m.extractor.Extract(ctx, path, ext)
	if err != nil {
		m.logExtractError(path, err)
		return MatchResult{}, false
	}
	if ctx.Err() != nil {
		return MatchResult{}, false
	}
	if m.keywords.Match(text) {
		return newResult(path, info, KindFile), true
	}
	return MatchResult{}, false
}

func (m *FileMatcher) passesFilters(name string, info fs.FileInfo) bool {
	size := info.Size()
	if m.req.SizeMin > 0 && size < m.req.SizeMin {
		return false
	}
	if m.req.SizeMax > 0 && size > m.req.SizeMax {
		return false
	}
	mod := info.ModTime()
	if !m.req.DateMin.IsZero() && mod.Before(m.req.DateMin) {
		return false
	}
	if !m.req.DateMax.IsZero() && mod.After(m.req.DateMax) {
		return false
	}
	if len(m.req.Extensions) > 0 && !slices.Contains(m.req.Extensions, strings.ToLower(filepath.Ext(name))) {
		return false
	}
	return true
}

func (m *FileMatcher) logExtractError(path string, err error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		m.log.Debugf("extraction of %s abandoned: %v", path, err)
	case errors.Is(err, extract.ErrUnsupported):
		m.log.Debugf("no extractor for %s", path)
	default:
		err = classifyFSError(err)
		if !errors.Is(err, ErrPermissionDenied) && !errors.Is(err, ErrNotFound) {
			err = fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		m.log.Debugf("Warning: %s: %v", path, err)
	}
}
