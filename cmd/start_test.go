package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/touchgrass/internal/selection"
)

// executeCommand runs a cobra command with the given args and captures combined output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// isolate points HOME and XDG_DATA_HOME at temp dirs so no real profile,
// config or state is touched, and clears flag values left by earlier runs.
// It returns the touchgrass data directory.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", filepath.Join(tmp, "home"))
	t.Setenv("XDG_DATA_HOME", tmp)

	plainOutput, historyFormat, historyFrom = false, "", ""
	verifyCategory = ""
	rootCmd.ResetFlags()
	return filepath.Join(tmp, "touchgrass")
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := executeCommand(rootCmd, args...)
	if err != nil {
		t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestStartWithoutSelection(t *testing.T) {
	isolate(t)

	out, err := executeCommand(rootCmd, "start")
	if err == nil {
		t.Fatal("expected an error when nothing is selected, got nil")
	}
	combined := out + err.Error()
	if !strings.Contains(combined, "nothing selected") {
		t.Errorf("expected error to contain %q, got: %q", "nothing selected", combined)
	}
}

func TestStartMergesArgsIntoSelection(t *testing.T) {
	dir := isolate(t)

	mustRun(t, "select", "add", "com.app.a")
	out := mustRun(t, "start", "category:social", "com.app.a")
	if !strings.Contains(out, "Blocking 1 apps and 1 categories (demo gateway)") {
		t.Errorf("unexpected start output:\n%s", out)
	}

	store, err := selection.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	sel, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := []string{"category:social", "com.app.a"}; strings.Join(sel.IDs, ",") != strings.Join(want, ",") {
		t.Errorf("saved selection = %v, want %v", sel.IDs, want)
	}
}

func TestStartStopArchivesSession(t *testing.T) {
	isolate(t)

	mustRun(t, "start", "com.app.a")
	out := mustRun(t, "status")
	if !strings.Contains(out, "Blocking: on") {
		t.Errorf("status after start:\n%s", out)
	}

	// A second start archives the first session.
	out = mustRun(t, "start")
	if !strings.Contains(out, "Archived the session") {
		t.Errorf("restart output:\n%s", out)
	}

	out = mustRun(t, "stop")
	if !strings.Contains(out, "Blocking stopped.") {
		t.Errorf("stop output:\n%s", out)
	}
	out = mustRun(t, "status")
	if !strings.Contains(out, "Blocking: off") {
		t.Errorf("status after stop:\n%s", out)
	}

	out = mustRun(t, "history", "--plain")
	if !strings.Contains(out, "Sessions:       2") {
		t.Errorf("history should list both sessions:\n%s", out)
	}
}

// TestStopNoSession verifies that stopping with nothing active is harmless.
func TestStopNoSession(t *testing.T) {
	isolate(t)

	out := mustRun(t, "stop")
	if !strings.Contains(out, "no active session") {
		t.Errorf("expected output to contain %q, got: %q", "no active session", out)
	}
}
