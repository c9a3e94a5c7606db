package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"disk-search/search"
)

const (
	defaultWidth = 100
	maxWidth     = 160
	timeLayout   = "2006-01-02 15:04"
)

var (
	dirColor  = color.New(color.FgCyan, color.Bold)
	fileColor = color.New(color.FgWhite)
	dimColor  = color.New(color.FgHiBlack)
	warnColor = color.New(color.FgYellow, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
	hitColor  = color.New(color.FgRed, color.Bold)
	okColor   = color.New(color.FgGreen, color.Bold)
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// terminalWidth returns the column count of w, or a default when w is not
// a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return min(width, maxWidth)
}

// writeJSON prints one JSON object per result.
func writeJSON(w io.Writer, results []search.MatchResult) error {
	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}

// writeTable prints results as aligned rows. Paths are cut from the left so
// the matched name stays visible; keyword hits in names and excerpts are
// highlighted.
func writeTable(w io.Writer, results []search.MatchResult, excerpts map[string][]string, width int, km *search.KeywordMatcher) {
	if len(results) == 0 {
		dimColor.Fprintln(w, "No matches.")
		return
	}

	const fixed = 4 + 1 + 9 + 2 + 16 + 2
	pathWidth := max(width-fixed, 20)
	dimColor.Fprintf(w, "%-4s %9s  %-16s  %s\n", "TYPE", "SIZE", "MODIFIED", "PATH")

	for _, r := range results {
		kind, size, base := "", "", fileColor
		if r.Kind == search.KindDirectory {
			kind, base = "DIR", dirColor
		}
		if r.HasSize {
			size = humanize.IBytes(uint64(r.Size))
		}
		modified := ""
		if !r.Modified.IsZero() {
			modified = r.Modified.Format(timeLayout)
		}

		path := truncateLeft(r.FullPath, pathWidth)
		dir, name := splitName(path, r.Name)
		fmt.Fprintf(w, "%-4s %9s  %-16s  %s%s\n", kind, size, modified, dimColor.Sprint(dir), highlight(name, km, base))

		for _, ex := range excerpts[r.FullPath] {
			ex = runewidth.Truncate(ex, max(width-8, 20), "…")
			fmt.Fprintf(w, "%6s%s %s\n", "", dimColor.Sprint("│"), highlight(ex, km, dimColor))
		}
	}
}

// splitName separates the trailing name from a possibly truncated path.
func splitName(path, name string) (string, string) {
	if strings.HasSuffix(path, name) {
		return path[:len(path)-len(name)], name
	}
	return "", path
}

// truncateLeft shortens s to width columns by dropping leading runes.
func truncateLeft(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	used := 1 // the ellipsis
	i := len(runes)
	for i > 0 {
		rw := runewidth.RuneWidth(runes[i-1])
		if used+rw > width {
			break
		}
		used += rw
		i--
	}
	return "…" + string(runes[i:])
}

// highlight colours keyword hits in text and the rest with base.
func highlight(text string, km *search.KeywordMatcher, base *color.Color) string {
	spans := km.Spans(text)
	if len(spans) == 0 {
		return base.Sprint(text)
	}
	var b strings.Builder
	prev := 0
	for _, s := range spans {
		b.WriteString(base.Sprint(text[prev:s[0]]))
		b.WriteString(hitColor.Sprint(text[s[0]:s[1]]))
		prev = s[1]
	}
	b.WriteString(base.Sprint(text[prev:]))
	return b.String()
}

// writeSummary prints the one-line outcome of a run.
func writeSummary(w io.Writer, o search.Outcome) {
	counts := fmt.Sprintf("%s found • %s files checked • %s folders • %s",
		humanize.Comma(int64(o.Count)), humanize.Comma(o.FilesChecked), humanize.Comma(o.DirsListed),
		o.Elapsed.Round(time.Millisecond))
	switch o.State {
	case search.StateTimedOut:
		warnColor.Fprintf(w, "Search timed out, partial results: %s\n", counts)
	case search.StateCancelled:
		warnColor.Fprintf(w, "Search stopped, partial results: %s\n", counts)
	case search.StateFailed:
		errColor.Fprintf(w, "Search failed: %s\n", counts)
	default:
		okColor.Fprintf(w, "Search completed: %s\n", counts)
	}
}

// watchEvents prints notable events until the stream closes. With live set
// the latest status is kept on a single rewritten line.
func watchEvents(w io.Writer, events <-chan search.Event, live bool) {
	width := terminalWidth(w)
	statusShown := false
	clear := func() {
		if statusShown {
			fmt.Fprint(w, "\r\033[K")
			statusShown = false
		}
	}

	for ev := range events {
		switch ev.Kind {
		case search.EventStatus:
			if live {
				fmt.Fprintf(w, "\r\033[K%s", runewidth.Truncate(ev.Text, width-1, "…"))
				statusShown = true
			}
		case search.EventTimedOut, search.EventAdminPrivilegeNeeded:
			clear()
			warnColor.Fprintln(w, ev.Text)
		}
	}
	clear()
}

// describeRoot is the header shown before a run.
func describeRoot(req search.Request) string {
	root := req.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return root
}
