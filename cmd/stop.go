package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/touchgrass/internal/gateway"
	"github.com/fakeyudi/touchgrass/internal/report"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop blocking and archive the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if !rt.lc.Snapshot().Enabled {
			cmd.Println("no active session")
			return nil
		}

		stopErr := rt.lc.StopBlocking(ctx)
		if stopErr != nil && !errors.Is(stopErr, gateway.ErrNotAuthorized) {
			return stopErr
		}

		archived, err := rt.history.List()
		if err != nil {
			return err
		}
		cmd.Println("Blocking stopped.")
		if stopErr != nil {
			cmd.Println("warning: blocking backend is not authorized, restrictions are still in force")
			cmd.Println("They will be lifted by the next command once the backend is authorized.")
		}
		if n := len(archived); n > 0 {
			last := archived[n-1]
			cmd.Printf("Session lasted %s with %d unlocks (%s unlocked).\n",
				report.FormatDuration(last.Duration(time.Now())),
				last.VerificationCount,
				report.FormatDuration(last.UnlockDuration()))
		}
		return stopErr
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
