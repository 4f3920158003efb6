package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Primary   = lipgloss.Color("#f97316") // Orange accent
	Secondary = lipgloss.Color("#7C3AED") // Violet
	Success   = lipgloss.Color("#10B981") // Emerald
	Error     = lipgloss.Color("#EF4444") // Red
	Muted     = lipgloss.Color("#6B7280") // Gray
	Panel     = lipgloss.Color("#1F2937")
)

var (
	SuccessStyle = lipgloss.NewStyle().Foreground(Success).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Error).Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(Muted)

	// Author names in the conversation.
	MeStyle   = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	PeerStyle = lipgloss.NewStyle().Foreground(Secondary).Bold(true)

	TimestampStyle = MutedStyle.Faint(true)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Background(Panel).
			Padding(0, 2)

	FooterStyle  = MutedStyle
	SpinnerStyle = lipgloss.NewStyle().Foreground(Primary)
)

const (
	IconError   = "❌"
	IconRoom    = "🚪"
	IconPeer    = "👤"
	IconConnect = "🔌"
	IconChat    = "💬"
)

func PrintError(msg string) {
	fmt.Printf("%s %s\n", ErrorStyle.Render(IconError), ErrorStyle.Render(msg))
}
