package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/touchgrass/internal/report"
	"github.com/fakeyudi/touchgrass/internal/session"
	"github.com/fakeyudi/touchgrass/internal/tui"
)

var (
	plainOutput   bool
	historyFormat string
	historyFrom   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse or export past blocking sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			r      *report.Report
			source string
			err    error
		)
		if historyFrom != "" {
			r, err = readReport(historyFrom)
			source = historyFrom
		} else {
			r, err = currentReport(time.Now())
			source = "history"
		}
		if err != nil {
			return err
		}

		if historyFormat != "" {
			renderer, err := report.NewRenderer(historyFormat)
			if err != nil {
				return err
			}
			data, err := renderer.Render(r)
			if err != nil {
				return fmt.Errorf("render report: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}

		if plainOutput || !term.IsTerminal(os.Stdout.Fd()) {
			printReport(cmd.OutOrStdout(), r)
			return nil
		}
		return tui.Run(r, source)
	},
}

// currentReport builds a report from the archived and active sessions in
// the data directory.
func currentReport(now time.Time) (*report.Report, error) {
	history, err := session.NewHistoryStore()
	if err != nil {
		return nil, err
	}
	archived, err := history.List()
	if err != nil {
		return nil, err
	}

	store, err := session.NewSessionStore()
	if err != nil {
		return nil, err
	}
	active, err := store.Load()
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		return nil, err
	}

	author := ""
	if activeProfile != nil {
		author = activeProfile.Name
	}
	return report.Build(archived, active, author, now), nil
}

func readReport(path string) (*report.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, err
	}
	return report.ParserFor(data).Parse(data)
}

// printReport writes a plain-text summary to w.
func printReport(w io.Writer, r *report.Report) {
	fmt.Fprintln(w, "## Summary")
	if r.Author != "" {
		fmt.Fprintf(w, "  Author:         %s\n", r.Author)
	}
	fmt.Fprintf(w, "  Sessions:       %d\n", r.Stats.Sessions)
	fmt.Fprintf(w, "  Verifications:  %d\n", r.Stats.Verifications)
	fmt.Fprintf(w, "  Time blocked:   %s\n", report.FormatDuration(r.Stats.BlockedTime))
	fmt.Fprintf(w, "  Time unlocked:  %s\n", report.FormatDuration(r.Stats.UnlockTime))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Active Session")
	if r.Active == nil {
		fmt.Fprintln(w, "  (none)")
	} else {
		fmt.Fprintf(w, "  Started:        %s\n", r.Active.StartTime.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(w, "  Running for:    %s\n", report.FormatDuration(r.Active.Duration(r.GeneratedAt)))
		fmt.Fprintf(w, "  Verifications:  %d\n", r.Active.VerificationCount)
		fmt.Fprintf(w, "  Targets:        %s\n", strings.Join(r.Active.TargetIdentifiers, ", "))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Sessions")
	if len(r.Sessions) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for i := range r.Sessions {
		s := &r.Sessions[i]
		fmt.Fprintf(w, "  %s  %-8s  %d unlocks  %s unlocked  %s\n",
			s.StartTime.Format("2006-01-02 15:04"),
			report.FormatDuration(s.Duration(r.GeneratedAt)),
			s.VerificationCount,
			report.FormatDuration(s.UnlockDuration()),
			strings.Join(s.TargetIdentifiers, ", "))
	}
	fmt.Fprintln(w)
}

func init() {
	historyCmd.Flags().BoolVar(&plainOutput, "plain", false, "plain text output instead of TUI")
	historyCmd.Flags().StringVar(&historyFormat, "format", "", "Export as markdown or json instead of displaying")
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "Read a previously exported report instead of local history")
	rootCmd.AddCommand(historyCmd)
}
