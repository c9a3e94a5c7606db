package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disk-search/search"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := openStore(t)

	req := search.Request{Root: "/data", Keywords: []string{"invoice", "contract"}, MatchContent: true}
	out := search.Outcome{State: search.StateCompleted, Count: 2, FilesChecked: 10, DirsListed: 3, Elapsed: 1500 * time.Millisecond}
	results := []search.MatchResult{
		{Kind: search.KindFile, Name: "invoice_2023.txt", Size: 18, HasSize: true, FullPath: "/data/invoice_2023.txt"},
		{Kind: search.KindDirectory, Name: "invoices", FullPath: "/data/invoices"},
	}

	id, err := s.Record(req, out, results, time.Now())
	require.NoError(t, err)
	require.Len(t, id, 36)

	run, err := s.Get(id[:8])
	require.NoError(t, err)
	assert.Equal(t, "/data", run.Root)
	assert.Equal(t, "invoice,contract", run.Keywords)
	assert.Equal(t, "completed", run.State)
	assert.Equal(t, 1500*time.Millisecond, run.Duration)
	require.Len(t, run.Results, 2)
	assert.Equal(t, "Directory", run.Results[0].Kind)
	assert.Equal(t, "invoice_2023.txt", run.Results[1].Name)
}

func TestListNewestFirst(t *testing.T) {
	s := openStore(t)
	base := time.Now().Add(-time.Hour)

	for i, root := range []string{"/first", "/second", "/third"} {
		_, err := s.Record(search.Request{Root: root}, search.Outcome{State: search.StateCompleted}, nil, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	runs, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "/third", runs[0].Root)
	assert.Equal(t, "/second", runs[1].Root)
	assert.Empty(t, runs[0].Results)

	all, err := s.List(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecordKeepsErrorText(t *testing.T) {
	s := openStore(t)
	id, err := s.Record(search.Request{Root: "/x"}, search.Outcome{State: search.StateTimedOut, Err: search.ErrGlobalTimeout}, nil, time.Now())
	require.NoError(t, err)

	run, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "timed out", run.State)
	assert.Equal(t, search.ErrGlobalTimeout.Error(), run.Error)
}

func TestRecordManyResults(t *testing.T) {
	s := openStore(t)
	results := make([]search.MatchResult, 1200)
	for i := range results {
		results[i] = search.MatchResult{Kind: search.KindFile, Name: "f", FullPath: filepath.Join("/r", string(rune('a'+i%26)), "f")}
	}
	id, err := s.Record(search.Request{Root: "/r"}, search.Outcome{State: search.StateCompleted, Count: len(results)}, results, time.Now())
	require.NoError(t, err)

	run, err := s.Get(id)
	require.NoError(t, err)
	assert.Len(t, run.Results, 1200)
}

func TestGetUnknown(t *testing.T) {
	s := openStore(t)
	_, err := s.Get("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}
