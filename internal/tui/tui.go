// Package tui provides a Bubble Tea TUI for browsing touchgrass history.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/touchgrass/internal/report"
	"github.com/fakeyudi/touchgrass/internal/session"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("28")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("28")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	bulletStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	kindStartStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	kindEndStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	kindActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabSummary tabID = iota
	tabSessions
	tabTimeline
	tabCount
)

var tabNames = [tabCount]string{"Summary", "Sessions", "Timeline"}

// ── Timeline event ───────────────────

type eventKind string

const (
	kindStart  eventKind = "START"
	kindEnd    eventKind = "END"
	kindActive eventKind = "ACTIVE"
)

type timelineEvent struct {
	ts   time.Time
	kind eventKind
	text string
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	report    *report.Report
	source    string
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	sortAsc   bool
	timeline  []timelineEvent
	// Sessions tab: cursor position and expanded set
	cursor   int
	expanded map[int]bool
}

// New creates a TUI model for r. source labels the title bar.
func New(r *report.Report, source string) Model {
	m := Model{
		report:   r,
		source:   source,
		expanded: make(map[int]bool),
	}
	m.timeline = buildTimeline(r)
	return m
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "s":
			if m.activeTab == tabTimeline {
				m.sortAsc = !m.sortAsc
				m.rebuild(tabTimeline)
				m.viewports[tabTimeline].GotoTop()
			}
		case "up", "k":
			if m.activeTab == tabSessions && m.cursor > 0 {
				m.cursor--
				m.rebuild(tabSessions)
				return m, nil
			}
		case "down", "j":
			if m.activeTab == tabSessions && m.cursor < len(m.report.Sessions)-1 {
				m.cursor++
				m.rebuild(tabSessions)
				return m, nil
			}
		case "enter", " ":
			if m.activeTab == tabSessions && len(m.report.Sessions) > 0 {
				if m.expanded[m.cursor] {
					delete(m.expanded, m.cursor)
				} else {
					m.expanded[m.cursor] = true
				}
				m.rebuild(tabSessions)
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  touchgrass  " + m.source)

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-3 jump  q quit"
	switch m.activeTab {
	case tabTimeline:
		dir := "newest first"
		if m.sortAsc {
			dir = "oldest first"
		}
		hint += "  s sort (" + dir + ")"
	case tabSessions:
		hint += "  enter details"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(hint + strings.Repeat(" ", pad) + pct)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := max(m.height-3, 1)
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

func (m *Model) rebuild(t tabID) {
	m.viewports[t].SetContent(m.renderTab(t))
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabSummary:
		return m.renderSummary()
	case tabSessions:
		return m.renderSessions()
	case tabTimeline:
		return m.renderTimeline()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func bullet(text string) string {
	return bulletStyle.Render("  •") + "  " + text + "\n"
}

func (m *Model) renderSummary() string {
	r := m.report
	var sb strings.Builder
	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-16s", label)) + "  " + value + "\n")
	}

	sb.WriteString(heading("Totals"))
	if r.Author != "" {
		row("Author:", r.Author)
	}
	row("Generated:", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	row("Sessions:", fmt.Sprintf("%d", r.Stats.Sessions))
	row("Verifications:", fmt.Sprintf("%d", r.Stats.Verifications))
	row("Time blocked:", report.FormatDuration(r.Stats.BlockedTime))
	row("Time unlocked:", report.FormatDuration(r.Stats.UnlockTime))

	sb.WriteString(heading("Active Session"))
	if r.Active == nil {
		sb.WriteString(dimStyle.Render("  (blocking is not active)") + "\n")
		return sb.String()
	}
	row("Started:", r.Active.StartTime.Format("2006-01-02 15:04:05"))
	row("Running for:", report.FormatDuration(r.Active.Duration(r.GeneratedAt)))
	row("Verifications:", fmt.Sprintf("%d", r.Active.VerificationCount))
	for _, id := range r.Active.TargetIdentifiers {
		sb.WriteString(bullet(id))
	}
	return sb.String()
}

func (m *Model) renderSessions() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Finished Sessions (%d)", len(m.report.Sessions))))
	if len(m.report.Sessions) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}

	for i := range m.report.Sessions {
		s := &m.report.Sessions[i]
		toggle := dimStyle.Render("  ▶ ")
		if m.expanded[i] {
			toggle = dimStyle.Render("  ▼ ")
		}
		row := fmt.Sprintf("%s%s  %-8s  %d unlocks",
			toggle,
			timeStyle.Render(s.StartTime.Format("2006-01-02 15:04")),
			report.FormatDuration(s.Duration(m.report.GeneratedAt)),
			s.VerificationCount,
		)
		if i == m.cursor {
			row = selectedRowStyle.Width(max(m.width-2, 1)).Render(row)
		}
		sb.WriteString(row + "\n")

		if m.expanded[i] {
			sb.WriteString(renderDetail(s))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderDetail(s *session.Session) string {
	var sb strings.Builder
	line := func(label, value string) {
		sb.WriteString("      " + dimStyle.Render(label) + " " + value + "\n")
	}
	line("id:", s.ID)
	if s.EndTime != nil {
		line("ended:", s.EndTime.Format("2006-01-02 15:04:05"))
	}
	line("unlocked for:", report.FormatDuration(s.UnlockDuration()))
	if s.Category != "" {
		line("last scene:", s.Category)
	}
	for _, id := range s.TargetIdentifiers {
		sb.WriteString("    " + bullet(id))
	}
	return sb.String()
}

func (m *Model) renderTimeline() string {
	var sb strings.Builder

	dir := "newest first"
	if m.sortAsc {
		dir = "oldest first"
	}
	sb.WriteString(heading(fmt.Sprintf("Timeline (%s)", dir)))

	events := make([]timelineEvent, len(m.timeline))
	copy(events, m.timeline)
	if m.sortAsc {
		sort.SliceStable(events, func(i, j int) bool { return events[i].ts.Before(events[j].ts) })
	} else {
		sort.SliceStable(events, func(i, j int) bool { return events[i].ts.After(events[j].ts) })
	}

	if len(events) == 0 {
		sb.WriteString(dimStyle.Render("  (no sessions yet)") + "\n")
		return sb.String()
	}

	for _, ev := range events {
		ts := timeStyle.Render(ev.ts.Format("2006-01-02 15:04"))
		var badge string
		switch ev.kind {
		case kindStart:
			badge = kindStartStyle.Render(fmt.Sprintf("  %-7s", string(ev.kind)))
		case kindEnd:
			badge = kindEndStyle.Render(fmt.Sprintf("  %-7s", string(ev.kind)))
		case kindActive:
			badge = kindActiveStyle.Render(fmt.Sprintf("  %-7s", string(ev.kind)))
		}
		sb.WriteString(ts + badge + "  " + ev.text + "\n\n")
	}
	return sb.String()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func buildTimeline(r *report.Report) []timelineEvent {
	var events []timelineEvent
	for i := range r.Sessions {
		s := &r.Sessions[i]
		targets := strings.Join(s.TargetIdentifiers, ", ")
		events = append(events, timelineEvent{ts: s.StartTime, kind: kindStart, text: "blocking " + targets})
		if s.EndTime != nil {
			events = append(events, timelineEvent{
				ts:   *s.EndTime,
				kind: kindEnd,
				text: fmt.Sprintf("stopped after %d unlocks", s.VerificationCount),
			})
		}
	}
	if r.Active != nil {
		events = append(events, timelineEvent{
			ts:   r.Active.StartTime,
			kind: kindActive,
			text: "blocking " + strings.Join(r.Active.TargetIdentifiers, ", "),
		})
	}
	return events
}

// Run starts the TUI for r.
func Run(r *report.Report, source string) error {
	p := tea.NewProgram(New(r, source), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
