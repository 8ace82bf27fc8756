// Package profile manages the user's persistent touchgrass profile.
// The profile is stored at ~/.config/touchgrass/profile.json and is created
// once via the interactive setup flow, then referenced on every command.
package profile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fakeyudi/touchgrass/internal/nature"
)

// Profile holds user-level preferences set during first-run setup.
type Profile struct {
	Name              string `json:"name"`
	PreferredCategory string `json:"preferred_category"` // grass | snow | sand | sky
	UnlockMinutes     int    `json:"unlock_minutes"`
	GatewayMode       string `json:"gateway_mode"` // auto | file | demo
	ShieldDir         string `json:"shield_dir,omitempty"`
	RequireDaylight   bool   `json:"require_daylight"`
}

// profilePath returns the path to the profile file.
func profilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profile.json"), nil
}

// ConfigDir returns the touchgrass config directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "touchgrass"), nil
}

// Exists reports whether a profile file is present on disk.
func Exists() bool {
	p, err := profilePath()
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Load reads the profile from disk. Returns an error if the file is missing or malformed.
func Load() (*Profile, error) {
	p, err := profilePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("profile not found, run 'touchgrass setup' to configure: %w", err)
	}
	var prof Profile
	if err := json.Unmarshal(data, &prof); err != nil {
		return nil, fmt.Errorf("malformed profile at %s: %w", p, err)
	}
	return &prof, nil
}

// Save writes the profile to disk, creating the config directory if needed.
func Save(prof *Profile) error {
	p, err := profilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(prof, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// RunSetup runs the interactive setup wizard, reading answers from in and
// writing prompts to out. If existing is non-nil, it is used as the default
// for each prompt (edit mode).
func RunSetup(in io.Reader, out io.Writer, existing *Profile) (*Profile, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	askBool := func(prompt string, defaultVal bool) (bool, error) {
		def := "n"
		if defaultVal {
			def = "y"
		}
		ans, err := ask(prompt+" (y/n)", def)
		if err != nil {
			return false, err
		}
		return strings.ToLower(ans) == "y" || strings.ToLower(ans) == "yes", nil
	}

	prof := &Profile{
		PreferredCategory: string(nature.Grass),
		UnlockMinutes:     60,
		GatewayMode:       "auto",
	}
	if existing != nil {
		*prof = *existing
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │  touchgrass — first-time setup  │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	var err error

	prof.Name, err = ask("  Your name", prof.Name)
	if err != nil {
		return nil, err
	}

	category, err := ask("  Favourite scene to unlock with (grass/snow/sand/sky)", prof.PreferredCategory)
	if err != nil {
		return nil, err
	}
	if c, perr := nature.ParseCategory(category); perr == nil {
		prof.PreferredCategory = string(c)
	} else {
		fmt.Fprintf(out, "  Unknown scene %q, keeping %s.\n", category, prof.PreferredCategory)
	}

	minutes, err := ask("  Minutes per unlock", strconv.Itoa(prof.UnlockMinutes))
	if err != nil {
		return nil, err
	}
	if n, perr := strconv.Atoi(minutes); perr == nil && n > 0 {
		prof.UnlockMinutes = n
	}

	mode, err := ask("  Blocking backend (auto/file/demo)", prof.GatewayMode)
	if err != nil {
		return nil, err
	}
	switch mode {
	case "auto", "file", "demo":
		prof.GatewayMode = mode
	}

	if prof.GatewayMode != "demo" {
		prof.ShieldDir, err = ask("  Shield directory read by your enforcer (blank for none)", prof.ShieldDir)
		if err != nil {
			return nil, err
		}
	} else {
		prof.ShieldDir = ""
	}

	prof.RequireDaylight, err = askBool("  Only accept grass photos in daylight", prof.RequireDaylight)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	return prof, nil
}
