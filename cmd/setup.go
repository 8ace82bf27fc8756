package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/touchgrass/internal/gateway"
	"github.com/fakeyudi/touchgrass/internal/logging"
	"github.com/fakeyudi/touchgrass/internal/profile"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure touchgrass (re-run anytime to edit settings)",
	// Bypass the normal PersistentPreRunE so setup works before profile exists.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(false)
	},
}

// runSetup runs the interactive setup wizard.
// If firstRun is true, a welcome message is shown.
func runSetup(firstRun bool) error {
	if firstRun {
		fmt.Println()
		fmt.Println("  Welcome to touchgrass! Let's get you set up.")
	}

	// Load existing profile as defaults if present.
	var existing *profile.Profile
	if profile.Exists() {
		p, err := profile.Load()
		if err == nil {
			existing = p
		}
	}

	prof, err := profile.RunSetup(os.Stdin, os.Stdout, existing)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}

	if err := profile.Save(prof); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	fmt.Println("  ✓ Profile saved.")

	if prof.GatewayMode != gateway.ModeDemo && prof.ShieldDir != "" {
		gw := gateway.NewFileGateway(prof.ShieldDir, logging.New("info", os.Stderr))
		if err := gw.RequestAuthorization(context.Background()); err != nil {
			fmt.Printf("  ⚠ Could not authorize %s: %v\n", prof.ShieldDir, err)
			fmt.Println("    You can retry with: touchgrass setup")
		} else {
			fmt.Printf("  ✓ Shield directory %s authorized.\n", prof.ShieldDir)
		}
	}

	fmt.Println("  Setup complete. Pick apps with 'touchgrass select add <id>', then run 'touchgrass start'.")
	fmt.Println()
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
