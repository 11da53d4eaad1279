// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// QuoteRow is one priced envelope ready for display.
type QuoteRow struct {
	DexKey string
	PoolID string
	Unit   string // formatted unit price, already decimal-converted by the caller
	GasETH string
	GasUSD string
}

// QuotesComponent renders the current pipeline output's priced envelopes.
type QuotesComponent struct {
	rows []QuoteRow
	pair string
	side string
}

// NewQuotesComponent creates a new quotes component.
func NewQuotesComponent() *QuotesComponent {
	return &QuotesComponent{pair: "-", side: "-"}
}

// Update replaces the displayed rows.
func (q *QuotesComponent) Update(rows []QuoteRow) {
	q.rows = rows
}

// SetQuery sets the (from → to, side) label shown in the header.
func (q *QuotesComponent) SetQuery(pair, side string) {
	q.pair = pair
	q.side = side
}

// View renders the quotes component.
func (q *QuotesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var result string
	result = headerStyle.Render(fmt.Sprintf("QUOTES (%s, %s)", q.pair, q.side))
	result += "\n\n"

	if len(q.rows) == 0 {
		return result + dimStyle.Render("  Waiting for pipeline output...")
	}

	result += fmt.Sprintf("  %-14s  %-28s  %14s  %12s\n", "Dex", "Pool", "Unit", "Gas (USD)")
	result += dimStyle.Render("  " + strings.Repeat("─", 74)) + "\n"

	for _, row := range q.rows {
		result += fmt.Sprintf("  %-14s  %-28s  %14s  %12s\n",
			row.DexKey, truncate(row.PoolID, 28), row.Unit, row.GasUSD)
	}

	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
