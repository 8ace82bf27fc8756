package report

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Renderer serializes a Report to bytes.
type Renderer interface {
	Render(r *Report) ([]byte, error)
}

// NewRenderer returns the renderer for format ("markdown" or "json").
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "", "markdown", "md":
		return &MarkdownRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown report format %q (want markdown or json)", format)
}

// JSONRenderer renders a Report as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(rep *Report) ([]byte, error) {
	return json.MarshalIndent(rep, "", "  ")
}

const (
	versionSentinel = "<!-- touchgrass-report-version: 1 -->"
	dataPrefix      = "<!-- touchgrass-data: "
	dataSuffix      = " -->"
)

// MarkdownRenderer renders a Report as human-readable Markdown with an
// embedded base64 JSON payload for lossless round-trip parsing.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(rep *Report) ([]byte, error) {
	jsonBytes, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(jsonBytes)

	var sb strings.Builder

	sb.WriteString(versionSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, encoded, dataSuffix)

	fmt.Fprintf(&sb, "# touchgrass history — %s\n\n", rep.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	// ## Summary
	sb.WriteString("## Summary\n\n")
	if rep.Author != "" {
		fmt.Fprintf(&sb, "- Author: %s\n", rep.Author)
	}
	fmt.Fprintf(&sb, "- Sessions: %d\n", rep.Stats.Sessions)
	fmt.Fprintf(&sb, "- Nature verifications: %d\n", rep.Stats.Verifications)
	fmt.Fprintf(&sb, "- Time blocked: %s\n", FormatDuration(rep.Stats.BlockedTime))
	fmt.Fprintf(&sb, "- Time unlocked: %s\n", FormatDuration(rep.Stats.UnlockTime))
	sb.WriteString("\n")

	// ## Active Session
	sb.WriteString("## Active Session\n\n")
	if rep.Active == nil {
		sb.WriteString("_Blocking is not active._\n")
	} else {
		a := rep.Active
		fmt.Fprintf(&sb, "- Started: %s\n", a.StartTime.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&sb, "- Blocking: %s\n", joinTargets(a.TargetIdentifiers))
		fmt.Fprintf(&sb, "- Verifications: %d\n", a.VerificationCount)
	}
	sb.WriteString("\n")

	// ## Sessions
	sb.WriteString("## Sessions\n\n")
	if len(rep.Sessions) == 0 {
		sb.WriteString("_No finished sessions._\n")
	} else {
		sb.WriteString("| Started | Duration | Verifications | Unlocked | Scene | Targets |\n")
		sb.WriteString("|---------|----------|---------------|----------|-------|---------|\n")
		for i := range rep.Sessions {
			s := &rep.Sessions[i]
			scene := s.Category
			if scene == "" {
				scene = "-"
			}
			fmt.Fprintf(&sb, "| %s | %s | %d | %s | %s | %s |\n",
				s.StartTime.Format("2006-01-02 15:04"),
				FormatDuration(s.Duration(rep.GeneratedAt)),
				s.VerificationCount,
				FormatDuration(s.UnlockDuration()),
				scene,
				joinTargets(s.TargetIdentifiers),
			)
		}
	}
	sb.WriteString("\n")

	return []byte(sb.String()), nil
}

func joinTargets(ids []string) string {
	if len(ids) == 0 {
		return "_none_"
	}
	return strings.Join(ids, ", ")
}

