// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// DiagnosticRow is one diagnostic-only envelope: a venue that was asked
// for a quote and returned none, with the reason (spec.md §4.5/§4.7).
type DiagnosticRow struct {
	Timestamp string
	DexKey    string
	Reason    string
}

// DiagnosticsComponent renders the scrolling feed of diagnostic envelopes.
type DiagnosticsComponent struct {
	rows    []DiagnosticRow
	maxRows int
	offset  int
}

// NewDiagnosticsComponent creates a new diagnostics component.
func NewDiagnosticsComponent(maxRows int) *DiagnosticsComponent {
	return &DiagnosticsComponent{maxRows: maxRows}
}

// Add prepends a new diagnostic row, capping the feed at maxRows.
func (d *DiagnosticsComponent) Add(row DiagnosticRow) {
	d.rows = append([]DiagnosticRow{row}, d.rows...)
	if len(d.rows) > d.maxRows {
		d.rows = d.rows[:d.maxRows]
	}
}

// Clear empties the feed.
func (d *DiagnosticsComponent) Clear() {
	d.rows = nil
	d.offset = 0
}

// ScrollUp moves the viewport toward older entries.
func (d *DiagnosticsComponent) ScrollUp() {
	if d.offset < len(d.rows)-1 {
		d.offset++
	}
}

// ScrollDown moves the viewport toward newer entries.
func (d *DiagnosticsComponent) ScrollDown() {
	if d.offset > 0 {
		d.offset--
	}
}

// View renders the diagnostics component.
func (d *DiagnosticsComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	result := headerStyle.Render(fmt.Sprintf("DIAGNOSTICS (last %d)", d.maxRows))
	result += "\n\n"

	if len(d.rows) == 0 {
		return result + dimStyle.Render("  No diagnostic envelopes yet...")
	}

	const pageSize = 8
	start := d.offset
	if start > len(d.rows)-1 {
		start = len(d.rows) - 1
	}
	end := start + pageSize
	if end > len(d.rows) {
		end = len(d.rows)
	}

	for _, row := range d.rows[start:end] {
		result += fmt.Sprintf("  [%s] %s\n", dimStyle.Render(row.Timestamp), warnStyle.Render(row.DexKey+": "+row.Reason))
	}

	return result
}
