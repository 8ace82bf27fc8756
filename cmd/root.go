package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/touchgrass/internal/config"
	"github.com/fakeyudi/touchgrass/internal/logging"
	"github.com/fakeyudi/touchgrass/internal/profile"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// activeProfile holds the loaded user profile.
var activeProfile *profile.Profile

// logger is built from cfg.LogLevel once config is loaded.
var logger = logging.Nop()

var rootCmd = &cobra.Command{
	Use:          "touchgrass",
	Short:        "Block distracting apps until you prove you went outside",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup check for the setup command itself.
		if cmd.Name() == "setup" {
			return nil
		}

		// First-run: profile missing → run setup wizard automatically.
		// Only do this when stdin is an interactive terminal.
		if !profile.Exists() {
			if term.IsTerminal(os.Stdin.Fd()) {
				fmt.Println()
				fmt.Println("  Welcome to touchgrass! Looks like this is your first time.")
				if err := runSetup(true); err != nil {
					return err
				}
			}
			// Non-interactive (tests, pipes): continue with defaults.
		}

		activeProfile = nil
		if profile.Exists() {
			p, err := profile.Load()
			if err != nil {
				return fmt.Errorf("loading profile: %w", err)
			}
			activeProfile = p
		}

		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)
		applyProfile(&cfg, activeProfile)

		logger = logging.New(cfg.LogLevel, cmd.ErrOrStderr())
		logger.Debug().
			Str("gateway_mode", cfg.GatewayMode).
			Str("category", cfg.DefaultCategory).
			Int("unlock_minutes", cfg.UnlockMinutes).
			Msg("configuration loaded")
		return nil
	},
}

// applyProfile lets profile values fill in settings the config files left
// at their defaults. A require_daylight key in either file wins over the
// profile, even when it is false.
func applyProfile(c *config.Config, p *profile.Profile) {
	if p == nil {
		return
	}
	def := config.Defaults()
	if c.DefaultCategory == def.DefaultCategory && p.PreferredCategory != "" {
		c.DefaultCategory = p.PreferredCategory
	}
	if c.GatewayMode == def.GatewayMode && p.GatewayMode != "" {
		c.GatewayMode = p.GatewayMode
	}
	if c.ShieldDir == "" && p.ShieldDir != "" {
		c.ShieldDir = p.ShieldDir
	}
	if c.UnlockMinutes == def.UnlockMinutes && p.UnlockMinutes > 0 {
		c.UnlockMinutes = p.UnlockMinutes
	}
	if p.RequireDaylight && c.RequireDaylight == nil {
		on := true
		c.RequireDaylight = &on
	}
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
