package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"disk-search/config"
	"disk-search/history"
	"disk-search/search/extract"
)

func newCapabilitiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "List file types whose content can be searched",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			writeCapabilities(cmd.OutOrStdout(), extract.DetectCapabilities(extract.NewRegistry()))
			return nil
		},
	}
}

func writeCapabilities(w io.Writer, caps extract.Capabilities) {
	for _, ext := range caps.Extensions() {
		kind := "text"
		if config.IsDocumentType(ext) {
			kind = "document"
		}
		if caps.Supports(ext) {
			okColor.Fprint(w, "  ✓ ")
		} else {
			errColor.Fprint(w, "  ✗ ")
		}
		fmt.Fprintf(w, ".%-9s %s\n", ext, kind)
	}
	dimColor.Fprintln(w, "Other extensions are read as plain text when --system is given.")
}

func newHistoryCommand(g *globalOptions) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded searches",
		Long: `List searches recorded with --history, newest first.

Given a run ID (or a unique prefix of one) the matches of that run are shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg, _, closeLog, err := g.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			if _, err := os.Stat(cfg.HistoryPath); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintln(out, "No searches recorded yet. Run a search with --history.")
				return nil
			}
			store, err := history.Open(cfg.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				run, err := store.Get(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(run)
				}
				writeRun(out, run)
				return nil
			}

			runs, err := store.List(limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			writeRuns(out, runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func writeRuns(w io.Writer, runs []history.RunModel) {
	if len(runs) == 0 {
		dimColor.Fprintln(w, "No searches recorded yet.")
		return
	}
	dimColor.Fprintf(w, "%-8s  %-14s  %-10s  %7s  %s\n", "ID", "WHEN", "STATE", "MATCHES", "ROOT / KEYWORDS")
	for _, r := range runs {
		fmt.Fprintf(w, "%-8s  %-14s  %-10s  %7s  %s %s\n",
			r.ID[:min(8, len(r.ID))],
			runewidth.Truncate(humanize.Time(r.StartTime), 14, ""),
			r.State,
			humanize.Comma(int64(r.Matches)),
			r.Root,
			dimColor.Sprint("["+r.Keywords+"]"),
		)
	}
}

func writeRun(w io.Writer, r *history.RunModel) {
	fmt.Fprintf(w, "Run %s\n", r.ID)
	fmt.Fprintf(w, "  root:     %s\n", r.Root)
	fmt.Fprintf(w, "  keywords: %s\n", strings.ReplaceAll(r.Keywords, ",", ", "))
	fmt.Fprintf(w, "  started:  %s (%s)\n", r.StartTime.Format(timeLayout), humanize.Time(r.StartTime))
	fmt.Fprintf(w, "  outcome:  %s, %s matches, %s files checked in %s\n",
		r.State, humanize.Comma(int64(r.Matches)), humanize.Comma(r.FilesChecked), r.Duration)
	if r.Error != "" {
		fmt.Fprintf(w, "  error:    %s\n", r.Error)
	}
	fmt.Fprintln(w)
	for _, m := range r.Results {
		kind, size := "", ""
		if m.Kind == "Directory" {
			kind = "DIR"
		} else {
			size = humanize.IBytes(uint64(m.Size))
		}
		fmt.Fprintf(w, "%-4s %9s  %s\n", kind, size, m.FullPath)
	}
}
