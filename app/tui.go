package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"disk-search/config"
	"disk-search/logger"
	"disk-search/search"
	"disk-search/search/extract"
)

// maxNotices is how many warnings stay visible while a search runs.
const maxNotices = 3

// Styles (shared with CLI error output)
var (
	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7aa2f7"))

	subHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7dcfff")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a9b1d6"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ece6a")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e0af68")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f7768e")).
			Bold(true)

	hitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f7768e")).
			Bold(true)
)

// Messages for TUI updates
type (
	eventMsg        search.Event
	eventsClosedMsg struct{}
	memUsageMsg     struct{ Text string }
	searchDoneMsg   struct {
		outcome  search.Outcome
		results  []search.MatchResult
		excerpts map[string][]string
		err      error
	}
)

type model struct {
	eng        *search.Engine
	req        search.Request
	events     <-chan search.Event
	km         *search.KeywordMatcher
	finishedCh chan struct{}
	result     *searchDoneMsg

	// Results and paging
	results       []search.MatchResult
	excerpts      map[string][]string
	outcome       search.Outcome
	finished      bool
	currentPage   int
	contentScroll int

	// Live progress
	found      int
	percent    int
	statusText string
	notices    []string

	// Session and timing
	startWall  time.Time
	searchTime time.Duration
	stopping   bool
	quitting   bool

	// Window size
	width  int
	height int

	// UI state
	confirmSelected string // "yes" or "no"
	memUsageText    string // e.g., " • Heap: 12.0 MB • CPU: 80%"
}

// runTUI runs the search behind the interactive view and returns its
// outcome once the view is closed. Closing the view early stops the search.
func runTUI(ctx context.Context, eng *search.Engine, req search.Request, ex extract.Extractor, excerptLimit int, log logger.Logger) (search.Outcome, []search.MatchResult, map[string][]string, error) {
	if err := req.Validate(); err != nil {
		return search.Outcome{}, nil, nil, err
	}
	m := model{
		eng:             eng,
		req:             req,
		events:          eng.Events(),
		km:              search.NewKeywordMatcher(req.Keywords, req.WholeWord),
		finishedCh:      make(chan struct{}),
		result:          &searchDoneMsg{},
		startWall:       time.Now(),
		confirmSelected: "yes",
	}

	// The search runs outside the program so its outcome survives an
	// early exit from the view.
	go func() {
		defer close(m.finishedCh)
		*m.result = runWithExcerpts(ctx, eng, req, ex, excerptLimit, log)
	}()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	eng.Stop()
	<-m.finishedCh
	res := *m.result
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return res.outcome, res.results, res.excerpts, fmt.Errorf("interactive view: %w", runErr)
	}
	return res.outcome, res.results, res.excerpts, res.err
}

func runWithExcerpts(ctx context.Context, eng *search.Engine, req search.Request, ex extract.Extractor, limit int, log logger.Logger) searchDoneMsg {
	outcome, results, err := eng.Run(ctx, req)
	var excerpts map[string][]string
	if err == nil && limit > 0 && req.MatchContent && outcome.State != search.StateCancelled {
		excerpts = collectExcerpts(ctx, ex, req, results, limit, log)
	}
	return searchDoneMsg{outcome: outcome, results: results, excerpts: excerpts, err: err}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), waitForSearch(m.finishedCh, m.result), m.memUsageTick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		// While searching, the first quit key stops the search and the
		// second leaves immediately
		if !m.finished {
			switch msg.String() {
			case "q", "ctrl+c", "esc":
				if m.stopping {
					m.quitting = true
					return m, tea.Quit
				}
				m.stopping = true
				m.statusText = "Stopping, keeping results found so far..."
				m.eng.Stop()
			}
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "left", "h":
			m.confirmSelected = "yes"
			return m, nil
		case "right", "l":
			m.confirmSelected = "no"
			return m, nil

		case "enter", "y", " ":
			if msg.String() == "enter" && m.confirmSelected == "no" {
				m.quitting = true
				return m, tea.Quit
			}
			if m.currentPage < len(m.results)-1 {
				m.currentPage++
				m.contentScroll = 0
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		case "n":
			if m.currentPage < len(m.results)-1 {
				m.currentPage++
			}
			m.contentScroll = 0
			return m, nil
		case "p":
			if m.currentPage > 0 {
				m.currentPage--
			}
			m.contentScroll = 0
			return m, nil

		case "home":
			m.currentPage = 0
			m.contentScroll = 0
			return m, nil
		case "end":
			m.currentPage = max(len(m.results)-1, 0)
			m.contentScroll = 0
			return m, nil
		case "up", "k":
			m.contentScroll = max(m.contentScroll-1, 0)
			return m, nil
		case "down", "j":
			m.contentScroll++
			return m, nil
		case "pgup":
			m.contentScroll = max(m.contentScroll-5, 0)
			return m, nil
		case "pgdown":
			m.contentScroll += 5
			return m, nil
		}
		return m, nil

	case eventMsg:
		m.applyEvent(search.Event(msg))
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		return m, nil

	case searchDoneMsg:
		m.results = msg.results
		m.excerpts = msg.excerpts
		m.outcome = msg.outcome
		m.searchTime = msg.outcome.Elapsed
		m.finished = true
		m.confirmSelected = "yes"
		if msg.err != nil {
			m.notices = append(m.notices, msg.err.Error())
		}
		return m, nil

	case memUsageMsg:
		m.memUsageText = msg.Text
		return m, m.memUsageTick()
	}
	return m, nil
}

func (m *model) applyEvent(ev search.Event) {
	switch ev.Kind {
	case search.EventStatus:
		if !m.stopping {
			m.statusText = ev.Text
		}
	case search.EventProgress:
		m.percent = ev.Percent
	case search.EventResultsAppended:
		m.found += ev.Count
	case search.EventTimedOut, search.EventAdminPrivilegeNeeded, search.EventError:
		m.notices = append(m.notices, ev.Text)
		if len(m.notices) > maxNotices {
			m.notices = m.notices[len(m.notices)-maxNotices:]
		}
	}
}

func (m model) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 120
	}
	if height <= 0 {
		height = 30
	}

	if m.quitting {
		return ""
	}

	// Build header lines
	var headerLines []string
	headerLines = append(headerLines, "")
	headerLines = append(headerLines, headerStyle.Render(fmt.Sprintf("disk-search v%s", version)))
	headerLines = append(headerLines, "")

	var terms []string
	for _, w := range m.req.Keywords {
		terms = append(terms, fmt.Sprintf("%q", w))
	}
	headerLines = append(headerLines, subHeaderStyle.Render(wrapTextWithIndent("🔍 Searching: ", strings.Join(terms, " "), width-4)))
	headerLines = append(headerLines, infoStyle.Render(wrapTextWithIndent("📁 Root: ", describeRoot(m.req), width-4)))

	target := "names"
	if m.req.MatchContent {
		target = "names and content of " + config.GetFileTypeDescription(m.req.ExcludeSystemFiles)
	}
	targetStyled := lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	headerLines = append(headerLines, targetStyled.Render(wrapTextWithIndent("📄 Target: ", target, width-4)))

	engine := fmt.Sprintf("⚙️ Engine: Workers %d%s", m.req.WorkerThreadCount, m.memUsageText)
	engineStyled := lipgloss.NewStyle().Foreground(lipgloss.Color("#bb9af7"))
	headerLines = append(headerLines, engineStyled.Render(engine))

	// Elapsed search time (freeze after completion)
	var minutes float64
	found := m.found
	if m.finished {
		minutes = m.searchTime.Minutes()
		found = len(m.results)
	} else {
		minutes = time.Since(m.startWall).Minutes()
	}
	elapsed := fmt.Sprintf("⏱️ Searched: %.2f minutes • Matched: %s", minutes, humanize.Comma(int64(found)))
	elapsedStyled := lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	headerLines = append(headerLines, elapsedStyled.Render(elapsed))

	searchInfo := strings.Join(headerLines, "\n")
	headerHeight := strings.Count(searchInfo, "\n") + 1
	progressHeight := 1
	bottomStatusHeight := 1
	footerHeight := 1

	// Progress line above the box; outcome once finished
	parts := []string{searchInfo}
	if m.finished {
		parts = append(parts, outcomeLine(m.outcome))
	} else {
		txt := "⏳ Processing"
		if m.statusText != "" {
			txt = fmt.Sprintf("⏳ [%3d%%] %s", m.percent, m.statusText)
		}
		progressStyled := lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff")).MaxWidth(width)
		parts = append(parts, progressStyled.Render(txt))
	}

	// Main content box
	innerWidth := max((width-4)-6, 10)
	var boxContent string
	switch {
	case !m.finished:
		boxContent = "Searching..."
	case len(m.results) == 0:
		boxContent = "No results found."
	default:
		boxContent = m.renderResult(m.results[m.currentPage], innerWidth)
	}
	for _, n := range m.notices {
		boxContent += "\n" + warningStyle.Render(wrapTextWithIndent("⚠ ", n, innerWidth))
	}

	boxOuterWidth := width - 4
	chromeHeight := 4
	contentHeight := max(height-headerHeight-progressHeight-bottomStatusHeight-footerHeight-chromeHeight, 1)

	// Window the box content for vertical scrolling
	lines := strings.Split(boxContent, "\n")
	maxStart := max(len(lines)-contentHeight, 0)
	start := min(m.contentScroll, maxStart)
	end := min(start+contentHeight, len(lines))
	window := strings.Join(lines[start:end], "\n")
	parts = append(parts, appStyle.Width(boxOuterWidth).Height(contentHeight).Render(window))

	// Non-scrolling bottom status
	var bottomStatus string
	if m.finished && len(m.results) > 0 {
		yesSel := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1a1b26")).
			Background(lipgloss.Color("#9ece6a")).
			Padding(0, 1)
		yesUn := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ece6a")).
			Padding(0, 1)
		noSel := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#c0caf5")).
			Background(lipgloss.Color("#414868")).
			Padding(0, 1)
		noUn := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89")).
			Padding(0, 1)

		var yesBtn, noBtn string
		if m.confirmSelected == "no" {
			yesBtn = yesUn.Render("[ Yes ]")
			noBtn = noSel.Render("[ No ]")
		} else {
			yesBtn = yesSel.Render("[ Yes ]")
			noBtn = noUn.Render("[ No ]")
		}
		bottomStatus = infoStyle.Render("Continue? ") + yesBtn + "    " + noBtn
	}
	parts = append(parts, bottomStatus)

	help := "🔚 'ENTER' continue • 'q' quit • p: previous • n: next"
	if !m.finished {
		help = "🔚 'q' stop search • 'q' twice leave"
	}
	parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(help))

	return strings.Join(parts, "\n")
}

func (m model) renderResult(r search.MatchResult, innerWidth int) string {
	var b strings.Builder
	label := "File: "
	if r.Kind == search.KindDirectory {
		label = "Folder: "
	}
	b.WriteString(subHeaderStyle.Render(label) + m.highlightHits(r.Name) + "\n\n")
	b.WriteString(wrapTextWithIndent("Path: ", r.FullPath, innerWidth) + "\n")
	if r.HasSize {
		b.WriteString(fmt.Sprintf("Size: %s\n", humanize.IBytes(uint64(r.Size))))
	}
	if !r.Modified.IsZero() {
		b.WriteString(fmt.Sprintf("Modified: %s (%s)\n", r.Modified.Format(timeLayout), humanize.Time(r.Modified)))
	}
	if !r.Created.IsZero() {
		b.WriteString(fmt.Sprintf("Created: %s\n", r.Created.Format(timeLayout)))
	}

	if ex := m.excerpts[r.FullPath]; len(ex) > 0 {
		b.WriteString("\n")
		for i, excerpt := range ex {
			label := subHeaderStyle.Render(fmt.Sprintf("Excerpt %d: ", i+1))
			b.WriteString(wrapTextWithIndent(label, m.highlightHits(excerpt), innerWidth) + "\n")
		}
	}

	b.WriteString(fmt.Sprintf("\nResult %d of %d", m.currentPage+1, len(m.results)))
	return b.String()
}

// highlightHits renders keyword hits in text with hitStyle.
func (m model) highlightHits(text string) string {
	spans := m.km.Spans(text)
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	prev := 0
	for _, s := range spans {
		b.WriteString(text[prev:s[0]])
		b.WriteString(hitStyle.Render(text[s[0]:s[1]]))
		prev = s[1]
	}
	b.WriteString(text[prev:])
	return b.String()
}

func outcomeLine(o search.Outcome) string {
	switch o.State {
	case search.StateTimedOut:
		return warningStyle.Render("⌛ Timed out, showing partial results")
	case search.StateCancelled:
		return warningStyle.Render("⏹ Stopped, showing partial results")
	case search.StateFailed:
		msg := "✗ Search failed"
		if o.Err != nil {
			msg += ": " + o.Err.Error()
		}
		return errorStyle.Render(msg)
	default:
		return successStyle.Render(fmt.Sprintf("✓ Completed • %s files checked • %s folders",
			humanize.Comma(o.FilesChecked), humanize.Comma(o.DirsListed)))
	}
}

// waitForSearch delivers the search outcome once the background run ends.
func waitForSearch(finished <-chan struct{}, res *searchDoneMsg) tea.Cmd {
	return func() tea.Msg {
		<-finished
		return *res
	}
}

func waitForEvent(events <-chan search.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m model) memUsageTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		heap, rss, cpu := sampleMemoryAndCPU()
		text := fmt.Sprintf(" • Heap %s", humanize.IBytes(heap))
		if rss > 0 {
			text += fmt.Sprintf(" • Peak RSS %s • CPU %5.1f%%", humanize.IBytes(rss), cpu)
		}
		return memUsageMsg{Text: text}
	})
}

func wrapTextWithIndent(prefix, text string, width int) string {
	prefixWidth := lipgloss.Width(prefix)
	indent := strings.Repeat(" ", prefixWidth)
	wrapped := lipgloss.NewStyle().Width(max(width-prefixWidth, 1)).Render(text)
	return prefix + strings.ReplaceAll(wrapped, "\n", "\n"+indent)
}
