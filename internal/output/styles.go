package output

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vburojevic/journalq/internal/domain"
)

// Styles holds all lipgloss styles for text output
var Styles = struct {
	// Severity styles
	Info    lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	// Component styles
	Timestamp lipgloss.Style
	Origin    lipgloss.Style

	// Summary styles
	Header  lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Danger  lipgloss.Style
}{
	Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),             // Cyan
	Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true), // Orange
	Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true), // Red bold

	Timestamp: lipgloss.NewStyle().Foreground(lipgloss.Color("244")), // Gray
	Origin:    lipgloss.NewStyle().Foreground(lipgloss.Color("33")),  // Blue

	Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("239")),
	Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	Value:   lipgloss.NewStyle().Bold(true),
	Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true), // Green
	Danger:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
}

// SeverityStyle returns the style for a severity
func SeverityStyle(s domain.Severity) lipgloss.Style {
	switch s {
	case domain.SeverityError:
		return Styles.Error
	case domain.SeverityWarning:
		return Styles.Warning
	default:
		return Styles.Info
	}
}

// SeverityIndicator returns a short styled severity tag
func SeverityIndicator(s domain.Severity) string {
	style := SeverityStyle(s)
	switch s {
	case domain.SeverityError:
		return style.Render("ERR")
	case domain.SeverityWarning:
		return style.Render("WRN")
	case domain.SeverityInfo:
		return style.Render("INF")
	default:
		return style.Render("???")
	}
}

// StatusText returns styled status text
func StatusText(hasErrors bool) string {
	if hasErrors {
		return Styles.Danger.Render("ERRORS FOUND")
	}
	return Styles.Success.Render("OK")
}
