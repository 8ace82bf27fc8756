package profile

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunSetupDefaults(t *testing.T) {
	// Every prompt accepts its default.
	in := strings.NewReader(strings.Repeat("\n", 6))
	var out bytes.Buffer

	prof, err := RunSetup(in, &out, nil)
	if err != nil {
		t.Fatalf("RunSetup: %v", err)
	}
	if prof.PreferredCategory != "grass" || prof.UnlockMinutes != 60 || prof.GatewayMode != "auto" {
		t.Errorf("defaults = %+v", prof)
	}
	if prof.RequireDaylight {
		t.Error("daylight should default to off")
	}
	if !strings.Contains(out.String(), "first-time setup") {
		t.Errorf("banner missing from output: %q", out.String())
	}
}

func TestRunSetupAnswers(t *testing.T) {
	in := strings.NewReader("Robin\nSnow\n15\ndemo\ny\n")
	var out bytes.Buffer

	prof, err := RunSetup(in, &out, nil)
	if err != nil {
		t.Fatalf("RunSetup: %v", err)
	}
	want := Profile{Name: "Robin", PreferredCategory: "snow", UnlockMinutes: 15, GatewayMode: "demo", RequireDaylight: true}
	if *prof != want {
		t.Errorf("profile = %+v, want %+v", *prof, want)
	}
}

func TestRunSetupKeepsExistingOnBadInput(t *testing.T) {
	existing := &Profile{Name: "Sam", PreferredCategory: "sky", UnlockMinutes: 30, GatewayMode: "file", ShieldDir: "/tmp/shield"}
	in := strings.NewReader("\nlava\nsoon\nkernel\n\nn\n")
	var out bytes.Buffer

	prof, err := RunSetup(in, &out, existing)
	if err != nil {
		t.Fatalf("RunSetup: %v", err)
	}
	if *prof != *existing {
		t.Errorf("profile = %+v, want unchanged %+v", *prof, *existing)
	}
	if !strings.Contains(out.String(), `Unknown scene "lava"`) {
		t.Errorf("expected a warning about the unknown scene, got %q", out.String())
	}
}

func TestSaveLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if Exists() {
		t.Fatal("profile should not exist in a fresh HOME")
	}
	want := &Profile{Name: "Robin", PreferredCategory: "sand", UnlockMinutes: 20, GatewayMode: "auto"}
	if err := Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *want {
		t.Errorf("Load = %+v, want %+v", *got, *want)
	}
}
