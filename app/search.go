package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"disk-search/config"
	"disk-search/history"
	"disk-search/logger"
	"disk-search/search"
	"disk-search/search/extract"
)

const dateLayout = "2006-01-02"

type searchOptions struct {
	keywords    string
	content     bool
	wholeWord   bool
	noFiles     bool
	noFolders   bool
	hidden      bool
	system      bool
	maxDepth    int
	minSize     string
	maxSize     string
	after       string
	before      string
	extensions  []string
	maxFiles    int64
	maxResults  int
	workers     int
	blocks      int
	fileTimeout time.Duration
	timeout     time.Duration
	exclude     []string

	output   string
	tui      bool
	noTUI    bool
	history  bool
	excerpts int
}

func newSearchCommand(g *globalOptions) *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search <root> -k <keywords>",
		Short: "Search a directory tree",
		Long: `Search a directory tree for files and folders matching any keyword.

Keywords are comma separated and matched case-insensitively against names,
and against file content with --content. Press Ctrl+C to stop early and
keep the results found so far.`,
		Example: `  disk-search search ~ -k invoice,contract
  disk-search search /data -k "annual report" --content --ext pdf,docx
  disk-search search . -k log --whole-word --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], g, opts)
		},
	}

	bindSearchFlags(cmd.Flags(), opts)
	_ = cmd.MarkFlagRequired("keywords")
	cmd.MarkFlagsMutuallyExclusive("tui", "no-tui")
	return cmd
}

func bindSearchFlags(f *pflag.FlagSet, opts *searchOptions) {
	f.StringVarP(&opts.keywords, "keywords", "k", "", "comma-separated keywords (required)")
	f.BoolVarP(&opts.content, "content", "c", false, "also search inside files")
	f.BoolVarP(&opts.wholeWord, "whole-word", "w", false, "match whole words only")
	f.BoolVar(&opts.noFiles, "no-files", false, "don't report files")
	f.BoolVar(&opts.noFolders, "no-folders", false, "don't report folders")
	f.BoolVar(&opts.hidden, "hidden", false, "include hidden files and folders")
	f.BoolVar(&opts.system, "system", false, "include system files and unknown file types")
	f.IntVar(&opts.maxDepth, "max-depth", 0, "maximum depth below root (0 = unlimited)")
	f.StringVar(&opts.minSize, "min-size", "", "minimum file size, e.g. 10KB")
	f.StringVar(&opts.maxSize, "max-size", "", "maximum file size, e.g. 2GiB")
	f.StringVar(&opts.after, "after", "", "only files modified on or after this date (YYYY-MM-DD)")
	f.StringVar(&opts.before, "before", "", "only files modified on or before this date (YYYY-MM-DD)")
	f.StringSliceVar(&opts.extensions, "ext", nil, "only these file extensions, e.g. pdf,docx")
	f.Int64Var(&opts.maxFiles, "max-files", 0, "stop after checking this many files (overrides config)")
	f.IntVar(&opts.maxResults, "max-results", 0, "stop after this many matches (overrides config)")
	f.IntVar(&opts.workers, "workers", 0, "concurrent file checks (overrides config)")
	f.IntVar(&opts.blocks, "blocks", 0, "directories listed in parallel (overrides config)")
	f.DurationVar(&opts.fileTimeout, "file-timeout", 0, "time limit per file (overrides config)")
	f.DurationVar(&opts.timeout, "timeout", 0, "time limit for the whole search (overrides config)")
	f.StringSliceVar(&opts.exclude, "exclude", nil, "path prefixes to skip")

	f.StringVarP(&opts.output, "output", "o", "table", "output format: table or json")
	f.BoolVar(&opts.tui, "tui", false, "show the interactive progress view")
	f.BoolVar(&opts.noTUI, "no-tui", false, "never show the interactive progress view")
	f.BoolVar(&opts.history, "history", false, "record this run in the search history")
	f.IntVar(&opts.excerpts, "excerpts", 0, "show up to N content excerpts per file match")
}

// buildRequest seeds a request from the config and applies every flag the
// user set explicitly.
func buildRequest(flags *pflag.FlagSet, root string, opts *searchOptions, cfg *config.Config) (search.Request, error) {
	keywords := search.ParseKeywords(opts.keywords)
	if len(keywords) == 0 {
		return search.Request{}, fmt.Errorf("no keywords given")
	}

	req := search.NewRequest(root, keywords, cfg)
	req.MatchContent = opts.content
	req.WholeWord = opts.wholeWord
	req.MatchFiles = !opts.noFiles
	req.MatchFolders = !opts.noFolders
	req.MaxDepth = opts.maxDepth
	req.Extensions = opts.extensions
	req.ExcludedPaths = append(req.ExcludedPaths, opts.exclude...)
	if !req.MatchFiles && !req.MatchFolders {
		return search.Request{}, fmt.Errorf("--no-files and --no-folders leave nothing to report")
	}
	if flags.Changed("hidden") {
		req.IgnoreHidden = !opts.hidden
	}
	if flags.Changed("system") {
		req.ExcludeSystemFiles = !opts.system
	}

	var err error
	if req.SizeMin, err = parseSize(opts.minSize); err != nil {
		return search.Request{}, fmt.Errorf("--min-size: %w", err)
	}
	if req.SizeMax, err = parseSize(opts.maxSize); err != nil {
		return search.Request{}, fmt.Errorf("--max-size: %w", err)
	}
	if req.DateMin, err = parseDate(opts.after, false); err != nil {
		return search.Request{}, fmt.Errorf("--after: %w", err)
	}
	if req.DateMax, err = parseDate(opts.before, true); err != nil {
		return search.Request{}, fmt.Errorf("--before: %w", err)
	}

	if flags.Changed("max-files") {
		req.MaxFilesToCheck = opts.maxFiles
	}
	if flags.Changed("max-results") {
		req.MaxResults = opts.maxResults
	}
	if flags.Changed("workers") {
		req.WorkerThreadCount = opts.workers
		req.AutoAdjustBlockSize = cfg.AutoAdjustBlockSize && !flags.Changed("blocks")
	}
	if flags.Changed("blocks") {
		req.MaxParallelBlocks = opts.blocks
		req.AutoAdjustBlockSize = false
	}
	if flags.Changed("file-timeout") {
		req.PerFileTimeout = opts.fileTimeout
	}
	if flags.Changed("timeout") {
		req.GlobalTimeout = opts.timeout
	}
	return req, nil
}

func parseSize(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// parseDate reads a YYYY-MM-DD date in local time. endOfDay moves it to the
// last instant of that day so --before is inclusive.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD: %w", err)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

func runSearch(cmd *cobra.Command, root string, g *globalOptions, opts *searchOptions) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if opts.output != "table" && opts.output != "json" {
		return fmt.Errorf("unknown output format %q (want table or json)", opts.output)
	}

	cfg, log, closeLog, err := g.setup(stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	req, err := buildRequest(cmd.Flags(), root, opts, cfg)
	if err != nil {
		return err
	}

	reg := extract.NewRegistry()
	caps := extract.DetectCapabilities(reg)
	eng := search.NewEngine(reg, caps, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	var outcome search.Outcome
	var results []search.MatchResult
	var excerpts map[string][]string
	if useTUI(opts, stdout) {
		outcome, results, excerpts, err = runTUI(ctx, eng, req, reg, opts.excerpts, log)
	} else {
		outcome, results, err = runPlain(ctx, eng, req, stderr)
		if err == nil && opts.excerpts > 0 && req.MatchContent {
			excerpts = collectExcerpts(ctx, reg, req, results, opts.excerpts, log)
		}
	}
	if err != nil {
		return err
	}

	switch opts.output {
	case "json":
		err = writeJSON(stdout, results)
	default:
		writeTable(stdout, results, excerpts, terminalWidth(stdout), search.NewKeywordMatcher(req.Keywords, req.WholeWord))
	}
	if err != nil {
		return err
	}
	writeSummary(stderr, outcome)

	if opts.history {
		if err := recordHistory(cfg.HistoryPath, req, outcome, results, started); err != nil {
			log.Warnf("Warning: search history not updated: %v", err)
		}
	}
	if outcome.State == search.StateFailed {
		return outcome.Err
	}
	return nil
}

func useTUI(opts *searchOptions, stdout io.Writer) bool {
	if opts.tui {
		return true
	}
	if opts.noTUI || opts.output == "json" {
		return false
	}
	return isTerminal(stdout)
}

// runPlain runs the search and prints notable events to stderr as they
// arrive. It returns once the event stream has been fully drained.
func runPlain(ctx context.Context, eng *search.Engine, req search.Request, stderr io.Writer) (search.Outcome, []search.MatchResult, error) {
	if err := req.Validate(); err != nil {
		return search.Outcome{}, nil, err
	}
	events := eng.Events()
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		watchEvents(stderr, events, isTerminal(stderr))
	}()

	outcome, results, err := eng.Run(ctx, req)
	if err != nil {
		return outcome, nil, err
	}
	<-drained
	return outcome, results, nil
}

// collectExcerpts extracts content excerpts for file matches, keyed by path.
// Each extraction runs under the per-file deadline; files that time out or
// fail are left without excerpts.
func collectExcerpts(ctx context.Context, ex extract.Extractor, req search.Request, results []search.MatchResult, limit int, log logger.Logger) map[string][]string {
	km := search.NewKeywordMatcher(req.Keywords, req.WholeWord)
	timeout := req.PerFileTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	pool := search.NewWorkerPool(1, timeout, log)
	out := make(map[string][]string)
	for _, r := range results {
		if ctx.Err() != nil {
			break
		}
		if r.Kind != search.KindFile {
			continue
		}
		if req.MaxFileSizeBytes > 0 && r.Size > req.MaxFileSizeBytes {
			continue
		}
		var text string
		err := pool.ExecuteWithTimeout(ctx, func(fctx context.Context) error {
			var err error
			text, err = ex.Extract(fctx, r.FullPath, filepath.Ext(r.Name))
			return err
		})
		if err != nil {
			log.Debugf("no excerpts for %s: %v", r.FullPath, err)
			continue
		}
		if got := km.Excerpts(text, limit); len(got) > 0 {
			out[r.FullPath] = got
		}
	}
	return out
}

func recordHistory(path string, req search.Request, outcome search.Outcome, results []search.MatchResult, started time.Time) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	_, err = store.Record(req, outcome, results, started)
	return err
}
