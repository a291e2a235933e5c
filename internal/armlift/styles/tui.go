package styles

import (
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
)

// Styles of the interactive viewer.
var (
	Title    = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Charple.Hex())).MarginLeft(2)
	Selected = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Cheeky.Hex()))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Squid.Hex()))
	Symbol   = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Zest.Hex()))
	Spinner  = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Cheeky.Hex()))
	Warn     = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Coral.Hex()))

	Menu = lipgloss.NewStyle().
		Background(lipgloss.Color(charmtone.Pepper.Hex())).
		Foreground(lipgloss.Color(charmtone.Smoke.Hex())).
		Padding(0, 1)
)
