package tui

import (
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/prts-dev/pipesync/internal/domain"
)

// glyph is the presentation of one enum value.
type glyph struct {
	icon  string
	color lipgloss.Color
}

var statusGlyphs = map[domain.Status]glyph{
	domain.StatusPending:   {icon: "↷", color: lipgloss.Color("244")},
	domain.StatusRunning:   {icon: "●", color: lipgloss.Color("33")},
	domain.StatusSuccess:   {icon: "✓", color: lipgloss.Color("42")},
	domain.StatusFailed:    {icon: "✗", color: lipgloss.Color("196")},
	domain.StatusCancelled: {icon: "○", color: lipgloss.Color("214")},
}

var severityGlyphs = map[domain.Severity]glyph{
	domain.SeverityCritical: {icon: "‼", color: lipgloss.Color("196")},
	domain.SeverityWarning:  {icon: "!", color: lipgloss.Color("214")},
	domain.SeverityInfo:     {icon: "i", color: lipgloss.Color("33")},
}

var unknownGlyph = glyph{icon: "?", color: lipgloss.Color("240")}

// A Caser is stateful, so one is created per call.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	faintStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Padding(0, 1)
)

// StatusIcon returns the single-character icon for s.
func StatusIcon(s domain.Status) string {
	return lookupStatus(s).icon
}

// StatusLabel returns s in title case, e.g. "Running".
func StatusLabel(s domain.Status) string {
	if s == "" {
		return "Unknown"
	}
	return titleCase(string(s))
}

// RenderStatus renders the colored icon and label for s.
func RenderStatus(s domain.Status) string {
	g := lookupStatus(s)
	return lipgloss.NewStyle().Foreground(g.color).Render(g.icon + " " + StatusLabel(s))
}

// RenderSeverity renders the colored icon and label for sev.
func RenderSeverity(sev domain.Severity) string {
	g, ok := severityGlyphs[sev]
	if !ok {
		g = unknownGlyph
	}
	return lipgloss.NewStyle().Foreground(g.color).Render(g.icon + " " + titleCase(string(sev)))
}

func lookupStatus(s domain.Status) glyph {
	if g, ok := statusGlyphs[s]; ok {
		return g
	}
	return unknownGlyph
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
