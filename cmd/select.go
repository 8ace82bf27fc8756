package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/touchgrass/internal/selection"
	"github.com/fakeyudi/touchgrass/internal/session"
	"github.com/fakeyudi/touchgrass/internal/unlock"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Manage which apps and categories are blocked",
	Long: "Manage the blocking selection. Apps are bundle identifiers such as\n" +
		"com.example.app; categories use the " + selection.CategoryPrefix + " prefix.",
}

var selectAddCmd = &cobra.Command{
	Use:   "add <id>...",
	Short: "Add apps or categories to the selection",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editSelection(cmd, func(s selection.Set) selection.Set { return s.Add(args...) })
	},
}

var selectRemoveCmd = &cobra.Command{
	Use:   "remove <id>...",
	Short: "Remove apps or categories from the selection",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editSelection(cmd, func(s selection.Set) selection.Set { return s.Remove(args...) })
	},
}

var selectToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Add an identifier if absent, remove it if present",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editSelection(cmd, func(s selection.Set) selection.Set { return s.Toggle(args[0]) })
	},
}

var selectClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the selection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return editSelection(cmd, func(selection.Set) selection.Set { return selection.New() })
	},
}

var selectListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the current selection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := session.DataDir()
		if err != nil {
			return err
		}
		store, err := selection.NewStore(dir)
		if err != nil {
			return err
		}
		sel, err := store.Load()
		if err != nil {
			return err
		}
		printSelection(cmd, sel)
		return nil
	},
}

// editSelection applies edit to the saved selection, pushing it through the
// lifecycle first so an active block picks it up.
func editSelection(cmd *cobra.Command, edit func(selection.Set) selection.Set) error {
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
	next := edit(sel)

	if err := rt.lc.UpdateSelection(ctx, next.IDs); err != nil {
		if errors.Is(err, unlock.ErrSelectionEmpty) {
			return fmt.Errorf("cannot empty the selection while blocking; run 'touchgrass stop' first")
		}
		return err
	}
	if err := rt.selections.Save(next); err != nil {
		return err
	}
	printSelection(cmd, next)
	return nil
}

func printSelection(cmd *cobra.Command, sel selection.Set) {
	if sel.Empty() {
		cmd.Println("(nothing selected)")
		return
	}
	for _, id := range sel.Apps() {
		cmd.Printf("  app       %s\n", id)
	}
	for _, id := range sel.Categories() {
		cmd.Printf("  category  %s\n", id)
	}
}

func init() {
	selectCmd.AddCommand(selectAddCmd, selectRemoveCmd, selectToggleCmd, selectClearCmd, selectListCmd)
	rootCmd.AddCommand(selectCmd)
}
