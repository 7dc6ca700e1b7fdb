package theme

import "github.com/charmbracelet/lipgloss"

// Theme encapsulates the visual palette for the console UI.
type Theme struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Accent    lipgloss.Style
	Primary   lipgloss.Style
	Secondary lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Danger    lipgloss.Style
	Faint     lipgloss.Style
	Highlight lipgloss.Style
	Border    lipgloss.Style
	HelpKey   lipgloss.Style
	HelpValue lipgloss.Style

	TabActive   lipgloss.Style
	TabInactive lipgloss.Style

	Card         lipgloss.Style
	CardSelected lipgloss.Style
	BadgeActive  lipgloss.Style
	BadgeIdle    lipgloss.Style
	BadgeLocked  lipgloss.Style

	Modal         lipgloss.Style
	NotifySuccess lipgloss.Style
	NotifyError   lipgloss.Style
	Code          lipgloss.Style
}

// Default returns a high-contrast palette that plays nicely with common terminals.
func Default() Theme {
	base := lipgloss.NewStyle().Foreground(lipgloss.Color("210"))
	badge := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	card := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	notify := lipgloss.NewStyle().Padding(0, 2).Bold(true)
	return Theme{
		Title:     lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true).Underline(true),
		Subtitle:  lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true),
		Accent:    lipgloss.NewStyle().Foreground(lipgloss.Color("219")).Bold(true),
		Primary:   base.Copy().Foreground(lipgloss.Color("81")),
		Secondary: lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("227")).Bold(true),
		Danger:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		Faint:     lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		Border:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		HelpKey:   lipgloss.NewStyle().Foreground(lipgloss.Color("117")).Bold(true),
		HelpValue: lipgloss.NewStyle().Foreground(lipgloss.Color("249")),

		TabActive:   lipgloss.NewStyle().Foreground(lipgloss.Color("16")).Background(lipgloss.Color("213")).Bold(true).Padding(0, 2),
		TabInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("249")).Padding(0, 2),

		Card:         card.Copy().BorderForeground(lipgloss.Color("240")),
		CardSelected: card.Copy().BorderForeground(lipgloss.Color("205")),
		BadgeActive:  badge.Copy().Foreground(lipgloss.Color("16")).Background(lipgloss.Color("42")),
		BadgeIdle:    badge.Copy().Foreground(lipgloss.Color("16")).Background(lipgloss.Color("203")),
		BadgeLocked:  badge.Copy().Foreground(lipgloss.Color("16")).Background(lipgloss.Color("227")),

		Modal:         lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("111")).Padding(1, 2),
		NotifySuccess: notify.Copy().Foreground(lipgloss.Color("16")).Background(lipgloss.Color("42")),
		NotifyError:   notify.Copy().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")),
		Code:          lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}
