package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/touchgrass/internal/gateway"
	"github.com/fakeyudi/touchgrass/internal/unlock"
)

var startCmd = &cobra.Command{
	Use:   "start [ids...]",
	Short: "Begin blocking the selected apps and categories",
	Long: "Begin blocking the saved selection. Any identifiers given are added to\n" +
		"the selection first. Starting while already blocking begins a new session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		sel, err := rt.selections.Load()
		if err != nil {
			return err
		}
		if len(args) > 0 {
			sel = sel.Add(args...)
			if err := rt.selections.Save(sel); err != nil {
				return err
			}
		}

		prev := rt.lc.Snapshot()
		err = rt.lc.StartBlocking(ctx, sel.IDs)
		switch {
		case errors.Is(err, unlock.ErrSelectionEmpty):
			return fmt.Errorf("nothing selected: add apps with 'touchgrass select add <id>' or pass them to start")
		case errors.Is(err, gateway.ErrNotAuthorized) && cfg.Demo():
			cmd.Println("warning: blocking backend is not authorized, running in demo mode")
		case err != nil:
			return err
		}

		if prev.Enabled && prev.Session != nil {
			cmd.Printf("Archived the session started at %s.\n", prev.Session.StartTime.Format("15:04"))
		}
		cmd.Printf("Blocking %d apps and %d categories (%s gateway).\n",
			len(sel.Apps()), len(sel.Categories()), rt.gw.Name())
		cmd.Println("Go outside and run 'touchgrass verify <photo>' to unlock.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
