package tui

import (
	"github.com/ashureev/planchat/internal/theme"
	"github.com/charmbracelet/lipgloss"
)

// Styles for the terminal UI.
type Styles struct {
	Header   lipgloss.Style
	User     lipgloss.Style
	Bot      lipgloss.Style
	Text     lipgloss.Style
	Pending  lipgloss.Style
	Sidebar  lipgloss.Style
	Headline lipgloss.Style
	Dim      lipgloss.Style
	Hint     lipgloss.Style
}

type palette struct {
	fg, dim, accent, user, bot, border, pending lipgloss.Color
}

var (
	lightPalette = palette{
		fg:      lipgloss.Color("235"),
		dim:     lipgloss.Color("245"),
		accent:  lipgloss.Color("25"),
		user:    lipgloss.Color("25"),
		bot:     lipgloss.Color("28"),
		border:  lipgloss.Color("250"),
		pending: lipgloss.Color("130"),
	}
	darkPalette = palette{
		fg:      lipgloss.Color("252"),
		dim:     lipgloss.Color("242"),
		accent:  lipgloss.Color("75"),
		user:    lipgloss.Color("75"),
		bot:     lipgloss.Color("114"),
		border:  lipgloss.Color("238"),
		pending: lipgloss.Color("214"),
	}
)

// NewStyles returns the styles of a theme.
func NewStyles(t theme.Theme) *Styles {
	p := lightPalette
	if t == theme.Dark {
		p = darkPalette
	}
	return &Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		User:     lipgloss.NewStyle().Bold(true).Foreground(p.user),
		Bot:      lipgloss.NewStyle().Bold(true).Foreground(p.bot),
		Text:     lipgloss.NewStyle().Foreground(p.fg),
		Pending:  lipgloss.NewStyle().Italic(true).Foreground(p.pending),
		Sidebar:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.border).Padding(0, 1),
		Headline: lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		Dim:      lipgloss.NewStyle().Foreground(p.dim),
		Hint:     lipgloss.NewStyle().Foreground(p.dim).Italic(true),
	}
}
