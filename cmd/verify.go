package cmd

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/touchgrass/internal/gateway"
	"github.com/fakeyudi/touchgrass/internal/nature"
	"github.com/fakeyudi/touchgrass/internal/unlock"
)

var verifyCategory string

var verifyCmd = &cobra.Command{
	Use:   "verify <photo>...",
	Short: "Check outdoor photos and unlock if one passes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		name := verifyCategory
		if name == "" {
			name = cfg.DefaultCategory
		}
		category, err := nature.ParseCategory(name)
		if err != nil {
			return err
		}
		cl, err := cfg.Classifier()
		if err != nil {
			return err
		}

		imgs := make([]image.Image, len(args))
		for i, path := range args {
			if imgs[i], err = nature.DecodeFile(path); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}

		results, err := cl.ClassifyAll(ctx, imgs, category)
		if err != nil {
			return err
		}
		for i, r := range results {
			mark := "✗"
			if r.IsValid {
				mark = "✓"
			}
			cmd.Printf("  %s %-24s %s %3d%%  color %.2f  texture %.2f\n",
				mark, filepath.Base(args[i]), r.Category, r.ConfidencePercent(), r.ColorScore, r.TextureScore)
		}

		best, _ := nature.Best(results)
		if !best.IsValid {
			cmd.Printf("Not quite. Try another photo with more %s in frame.\n", category)
			return unlock.ErrLowConfidence
		}
		if best.IsHighConfidence() {
			cmd.Println("That's definitely outside.")
		}

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		d := cfg.UnlockDuration()
		err = rt.lc.AttemptUnlock(ctx, best, d)
		switch {
		case errors.Is(err, unlock.ErrNotBlocking):
			cmd.Println("Nice photo, but blocking is not active.")
			return err
		case errors.Is(err, unlock.ErrDaylightRequired):
			cmd.Printf("%s photos only count in daylight. Try again later or use another scene.\n", category)
			return err
		case errors.Is(err, gateway.ErrNotAuthorized) && cfg.Demo():
			cmd.Println("warning: blocking backend is not authorized, running in demo mode")
		case err != nil:
			return err
		}

		cmd.Printf("Unlocked for %s (until %s).\n", d, time.Now().Add(d).Format("15:04"))
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyCategory, "category", "", "Scene to check for: grass, snow, sand or sky (default from config)")
	rootCmd.AddCommand(verifyCmd)
}
