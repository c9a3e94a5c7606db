package search

import (
	"errors"
	"fmt"
	"io/fs"
)

// Error taxonomy. Callers match with errors.Is.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrPerFileTimeout   = errors.New("per-file timeout exceeded")
	ErrExtraction       = errors.New("content extraction failed")
	ErrGlobalTimeout    = errors.New("global search timeout exceeded")
	ErrPoolClosed       = errors.New("worker pool is shutting down")
	ErrNotIdle          = errors.New("search engine is not idle")
	ErrInvalidRequest   = errors.New("invalid search request")
)

// classifyFSError maps an os/fs error onto the taxonomy, keeping the
// original error in the chain. Unknown errors pass through unchanged.
func classifyFSError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrNotFound):
		return err
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return err
	}
}
