package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fakeyudi/touchgrass/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stay in the foreground and re-lock apps when an unlock runs out",
	Long: "Run the blocking lifecycle in the foreground. Unlock timers fire on time,\n" +
		"and changes made by other touchgrass commands are picked up as they happen.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		st := rt.lc.Snapshot()
		cmd.Printf("Watching %s with the %s gateway. Press Ctrl+C to stop.\n", rt.dir, st.Gateway)

		updates, cancel := rt.lc.Subscribe()
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return watch.Watch(gctx, rt.dir, rt.states, rt.lc, logger)
		})
		g.Go(func() error {
			return logTransitions(gctx, updates)
		})
		return g.Wait()
	},
}

func logTransitions(ctx context.Context, updates <-chan bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case blocking, ok := <-updates:
			if !ok {
				return nil
			}
			if blocking {
				logger.Info().Msg("restrictions in force")
			} else {
				logger.Info().Msg("restrictions lifted")
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
