package cmd

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestSelectAddRemoveList(t *testing.T) {
	isolate(t)

	out := mustRun(t, "select", "list")
	if !strings.Contains(out, "(nothing selected)") {
		t.Errorf("empty list output:\n%s", out)
	}

	mustRun(t, "select", "add", "com.app.b", "category:games", " com.app.a ")
	out = mustRun(t, "select", "list")
	for _, want := range []string{"app       com.app.a", "app       com.app.b", "category  games"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected list to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Index(out, "com.app.a") > strings.Index(out, "com.app.b") {
		t.Errorf("apps should be listed in order:\n%s", out)
	}

	mustRun(t, "select", "remove", "com.app.b")
	mustRun(t, "select", "toggle", "category:games")
	out = mustRun(t, "select", "list")
	if strings.Contains(out, "com.app.b") || strings.Contains(out, "games") {
		t.Errorf("removed identifiers still listed:\n%s", out)
	}
}

func TestSelectClearWhileBlocking(t *testing.T) {
	isolate(t)
	mustRun(t, "start", "com.app.a")

	out, err := executeCommand(rootCmd, "select", "clear")
	if err == nil {
		t.Fatal("expected clearing an active selection to fail")
	}
	if !strings.Contains(out+err.Error(), "run 'touchgrass stop' first") {
		t.Errorf("unexpected error: %v\n%s", err, out)
	}

	out = mustRun(t, "select", "list")
	if !strings.Contains(out, "com.app.a") {
		t.Errorf("a rejected clear must leave the selection intact:\n%s", out)
	}
}

func TestSelectUpdatesActiveBlock(t *testing.T) {
	isolate(t)
	mustRun(t, "start", "com.app.a")
	mustRun(t, "select", "add", "com.app.b")

	out := mustRun(t, "status")
	if !strings.Contains(out, "Selected: 2 (com.app.a, com.app.b)") {
		t.Errorf("status should reflect the new selection:\n%s", out)
	}
}

// Feature: touchgrass, Property 4: Adding then removing leaves the selection unchanged
func TestSelectAddRemoveRestores(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.StringMatching(`com\.[a-z]{1,10}`).Draw(rt, "id")

		isolate(t)
		before, err := executeCommand(rootCmd, "select", "list")
		if err != nil {
			rt.Fatalf("list: %v", err)
		}
		if _, err := executeCommand(rootCmd, "select", "add", id); err != nil {
			rt.Fatalf("add: %v", err)
		}
		if _, err := executeCommand(rootCmd, "select", "remove", id); err != nil {
			rt.Fatalf("remove: %v", err)
		}
		after, err := executeCommand(rootCmd, "select", "list")
		if err != nil {
			rt.Fatalf("list: %v", err)
		}
		if before != after {
			rt.Errorf("selection changed:\nbefore:\n%s\nafter:\n%s", before, after)
		}
	})
}
