// Package search implements the concurrent prioritized directory search.
//
// An Engine runs one search at a time. Directories are pulled from a shared
// priority Scheduler by several walkers; files are matched on a bounded
// WorkerPool with a per-file deadline. Progress is published on an ordered
// event stream and the final outcome is returned by Wait.
package search

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"disk-search/logger"
	"disk-search/search/extract"
)

// State is the engine lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateTimedOut
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed out"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of one run.
type Outcome struct {
	State State
	Count int
	Err   error

	FilesChecked int64
	DirsListed   int64
	Elapsed      time.Duration
}

type stopReason int32

const (
	stopNone stopReason = iota
	stopUser
	stopTimeout
	stopLimit
	stopFailure
)

// Engine drives searches. It is safe for concurrent use.
type Engine struct {
	log       logger.Logger
	extractor extract.Extractor
	caps      extract.Capabilities

	mu       sync.Mutex
	state    State
	reporter *Reporter
	current  *run
}

// NewEngine creates an idle engine. The extractor and capability table are
// shared by every run; a nil extractor disables content matching.
func NewEngine(ex extract.Extractor, caps extract.Capabilities, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop{}
	}
	return &Engine{
		log:       log,
		extractor: ex,
		caps:      caps,
		reporter:  newReporter(),
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Events returns the event stream of the current run, or of the next run
// when idle. The channel is closed when that run finishes.
func (e *Engine) Events() <-chan Event {
	e.mu.Lock()
	rep := e.reporter
	e.mu.Unlock()
	return rep.Events()
}

// Start validates req and begins a search in the background.
func (e *Engine) Start(req Request) error {
	_, err := e.start(req)
	return err
}

func (e *Engine) start(req Request) (*run, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return nil, ErrNotIdle
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r := newRun(req.normalized(), e.reporter, e.extractor, e.caps, e.log)
	e.current = r
	e.state = StateRunning
	go e.drive(r)
	return r, nil
}

// Stop asks the running search to finish early. Partial results are kept.
func (e *Engine) Stop() {
	e.mu.Lock()
	r := e.current
	running := e.state == StateRunning
	e.mu.Unlock()
	if r != nil && running {
		r.requestStop(stopUser)
	}
}

// Wait blocks until the current run ends, returns its outcome and sorted
// results, and moves the engine back to idle.
func (e *Engine) Wait() (Outcome, []MatchResult) {
	e.mu.Lock()
	r := e.current
	e.mu.Unlock()
	if r == nil {
		return Outcome{State: StateIdle}, nil
	}
	return e.wait(r)
}

// wait blocks until r ends and resets the engine if r is still current.
func (e *Engine) wait(r *run) (Outcome, []MatchResult) {
	<-r.done

	e.mu.Lock()
	if e.current == r {
		e.current = nil
		e.state = StateIdle
		e.reporter = newReporter()
	}
	e.mu.Unlock()
	return r.outcome, r.results
}

// Run starts a search and waits for it. Cancelling ctx stops the search.
func (e *Engine) Run(ctx context.Context, req Request) (Outcome, []MatchResult, error) {
	r, err := e.start(req)
	if err != nil {
		return Outcome{}, nil, err
	}

	go func() {
		select {
		case <-ctx.Done():
			r.requestStop(stopUser)
		case <-r.done:
		}
	}()

	outcome, results := e.wait(r)
	return outcome, results, nil
}

func (e *Engine) drive(r *run) {
	defer close(r.done)
	defer func() {
		if p := recover(); p != nil {
			r.fail(fmt.Errorf("search driver panicked: %v", p))
			r.finish()
		}
		e.mu.Lock()
		if e.current == r {
			e.state = r.outcome.State
		}
		e.mu.Unlock()
	}()

	r.execute()
	r.finish()
}

// run holds the state of a single search.
type run struct {
	req      Request
	log      logger.Logger
	reporter *Reporter

	ctx    context.Context
	cancel context.CancelFunc

	filter    *ExclusionFilter
	visited   *VisitedSet
	sched     *Scheduler
	pool      *WorkerPool
	matcher   *FileMatcher
	collector *Collector

	started      time.Time
	home         string
	timer        *time.Timer
	stopped      atomic.Bool
	reason       atomic.Int32
	failure      atomic.Pointer[error]
	filesChecked atomic.Int64
	dirsListed   atomic.Int64
	permDenied   atomic.Int32
	adminSent    atomic.Bool

	done    chan struct{}
	outcome Outcome
	results []MatchResult
}

func newRun(req Request, rep *Reporter, ex extract.Extractor, caps extract.Capabilities, log logger.Logger) *run {
	ctx, cancel := context.WithCancel(context.Background())
	home, _ := os.UserHomeDir()
	return &run{
		req:       req,
		log:       log,
		reporter:  rep,
		ctx:       ctx,
		cancel:    cancel,
		filter:    NewExclusionFilter(req),
		visited:   NewVisitedSet(),
		sched:     NewScheduler(),
		pool:      NewWorkerPool(req.WorkerThreadCount, req.PerFileTimeout, log),
		matcher:   NewFileMatcher(req, ex, caps, log),
		collector: NewCollector(req.MaxResults),
		home:      home,
		done:      make(chan struct{}),
	}
}

// execute seeds the scheduler with the root and runs the walkers to completion.
func (r *run) execute() {
	r.started = time.Now()
	r.log.Infof("search started in %s: keywords=%v workers=%d blocks=%d",
		r.req.Root, r.req.Keywords, r.req.WorkerThreadCount, r.req.MaxParallelBlocks)

	if r.matcher.keywords.Empty() {
		r.log.Infof("no keywords given, nothing to search")
		return
	}

	if r.req.GlobalTimeout > 0 {
		r.timer = time.AfterFunc(r.req.GlobalTimeout, r.timeout)
	}

	r.reporter.emit(Event{Kind: EventStatus, Text: fmt.Sprintf("Searching %s", r.req.Root)})
	r.visited.Add(canonicalPath(r.req.Root))
	r.sched.Push(Block{Priority: Priority(r.req.Root, r.req.PrioritizeUserFolders), Path: r.req.Root})

	var wg sync.WaitGroup
	for i := 0; i < r.req.MaxParallelBlocks; i++ {
		wg.Add(1)
		go func(w *walker) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					r.fail(fmt.Errorf("walker %d panicked: %v", w.id, p))
				}
			}()
			w.loop()
		}(&walker{id: i, r: r})
	}
	wg.Wait()
}

// finish drains in-flight work, fixes the outcome and closes the event stream.
func (r *run) finish() {
	r.pool.Shutdown()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.collector.Seal()
	r.cancel()

	r.results = r.collector.Sorted()
	r.outcome = Outcome{
		Count:        len(r.results),
		FilesChecked: r.filesChecked.Load(),
		DirsListed:   r.dirsListed.Load(),
		Elapsed:      time.Since(r.started),
	}

	switch stopReason(r.reason.Load()) {
	case stopTimeout:
		r.outcome.State = StateTimedOut
		r.outcome.Err = ErrGlobalTimeout
	case stopUser:
		r.outcome.State = StateCancelled
		r.outcome.Err = context.Canceled
	case stopFailure:
		r.outcome.State = StateFailed
		if errp := r.failure.Load(); errp != nil {
			r.outcome.Err = *errp
		}
	default:
		r.outcome.State = StateCompleted
	}

	r.log.Infof("search %s: %d matches, %d files checked, %d directories in %s",
		r.outcome.State, r.outcome.Count, r.outcome.FilesChecked, r.outcome.DirsListed, r.outcome.Elapsed.Round(time.Millisecond))
	r.reporter.emit(Event{
		Kind:    EventStatus,
		Text:    fmt.Sprintf("Search %s: %d found", r.outcome.State, r.outcome.Count),
		Percent: 100,
	})
	r.reporter.close()
}

// requestStop sets the stop flag. The first reason wins. User stops and
// timeouts also cancel in-flight tasks; limit stops let them finish.
func (r *run) requestStop(reason stopReason) {
	r.reason.CompareAndSwap(int32(stopNone), int32(reason))
	r.stopped.Store(true)
	if reason != stopLimit {
		r.cancel()
	}
	r.sched.Close()
}

func (r *run) stopping() bool {
	return r.stopped.Load()
}

// timeout fires once, from the timer or from a walker's deadline check.
func (r *run) timeout() {
	if !r.reason.CompareAndSwap(int32(stopNone), int32(stopTimeout)) {
		return
	}
	r.log.Warnf("global timeout of %s reached, returning partial results", r.req.GlobalTimeout)
	r.reporter.emit(Event{Kind: EventTimedOut, Text: fmt.Sprintf("Search timed out after %s", r.req.GlobalTimeout)})
	r.requestStop(stopTimeout)
}

// fail records the first internal error. It overrides any earlier stop reason.
func (r *run) fail(err error) {
	r.failure.CompareAndSwap(nil, &err)
	r.log.Errorf("search failed: %v", err)
	r.reason.Store(int32(stopFailure))
	r.requestStop(stopFailure)
}
