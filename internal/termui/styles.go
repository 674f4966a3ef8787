package termui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorPrimary   = lipgloss.Color("#6C63FF")
	colorSecondary = lipgloss.Color("#2EC4B6")
	colorMuted     = lipgloss.Color("#666666")
	colorSuccess   = lipgloss.Color("#2ECC71")
	colorWarning   = lipgloss.Color("#F39C12")
	colorError     = lipgloss.Color("#E74C3C")
	colorFg        = lipgloss.Color("#C0CAF5")
	colorHighlight = lipgloss.Color("#7AA2F7")
)

// Chart bar colors, cycled per key.
var barColors = []lipgloss.Color{
	colorPrimary,
	colorSecondary,
	colorHighlight,
	colorSuccess,
	colorWarning,
	colorError,
}

var (
	dashboardStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorPrimary)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	noticeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWarning)

	countdownStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)

	urgencyStyles = map[string]lipgloss.Style{
		"urgent":    lipgloss.NewStyle().Bold(true).Foreground(colorError),
		"important": lipgloss.NewStyle().Foreground(colorWarning),
		"normal":    lipgloss.NewStyle().Foreground(colorFg),
		"optional":  lipgloss.NewStyle().Foreground(colorMuted),
	}
)

func urgencyStyle(u string) lipgloss.Style {
	if s, ok := urgencyStyles[u]; ok {
		return s
	}
	return urgencyStyles["normal"]
}
