package cmd

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
)

var styles = struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	failure lipgloss.Style
}{
	title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
	muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	header:  lipgloss.NewStyle().Bold(true).Padding(0, 1),
	cell:    lipgloss.NewStyle().Padding(0, 1),
	success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	failure: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
}

// configureColor drops ANSI styling when disabled by flag or by NO_COLOR.
func configureColor(disabled bool) {
	if disabled || termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// statusStyle colors a delivery status.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "sent":
		return styles.success
	case "throttled":
		return styles.warn
	case "failed":
		return styles.failure
	default:
		return styles.cell
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.muted).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.header
			}
			return styles.cell
		})
}
