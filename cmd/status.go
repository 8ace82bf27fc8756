package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/touchgrass/internal/report"
	"github.com/fakeyudi/touchgrass/internal/selection"
	"github.com/fakeyudi/touchgrass/internal/unlock"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether blocking is active and how long an unlock lasts",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		sel, err := rt.selections.Load()
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), rt.lc.Snapshot(), sel, time.Now())
		return nil
	},
}

// printStatus writes st. saved is the stored selection, shown while
// blocking is off and the lifecycle carries none.
func printStatus(w io.Writer, st unlock.Status, saved selection.Set, now time.Time) {
	fmt.Fprintf(w, "Gateway: %s\n", st.Gateway)
	if !st.Enabled {
		fmt.Fprintln(w, "Blocking: off")
		if st.PendingClear {
			fmt.Fprintln(w, "Warning: restrictions from the last session are still in force, retrying on next command")
		}
		fmt.Fprintf(w, "Selected: %d\n", saved.Len())
		return
	}

	switch st.Phase {
	case unlock.TemporarilyUnlocked:
		fmt.Fprintf(w, "Blocking: unlocked, re-locks in %s (at %s)\n",
			report.FormatDuration(st.Remaining), st.UnlockExpiry.Local().Format("15:04"))
	default:
		fmt.Fprintln(w, "Blocking: on")
	}
	if st.PendingRelock {
		fmt.Fprintln(w, "Warning: restrictions could not be re-applied, retrying on next command")
	}
	fmt.Fprintf(w, "Selected: %d (%s)\n", len(st.Selection), strings.Join(st.Selection, ", "))

	if s := st.Session; s != nil {
		fmt.Fprintf(w, "Started: %s\n", s.StartTime.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration: %s\n", report.FormatDuration(s.Duration(now)))
		fmt.Fprintf(w, "Verifications: %d\n", s.VerificationCount)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
