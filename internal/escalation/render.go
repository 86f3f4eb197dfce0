// Package escalation provides the ways an inconclusive match can be decided:
// an operator at the terminal, an operator in Telegram, or a name
// similarity threshold.
package escalation

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
)

// Prompt is shown to an operator after the table.
const Prompt = "Do these events match? yes:(y), no:(n) or exit:(e) "

var header = []string{"Source", "Home", "Away", "League"}

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// RenderTable draws one row per source.
func RenderTable(rows []models.Comparison) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(header...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cellStyle.Bold(true)
			}
			return cellStyle
		})
	for _, r := range rows {
		t.Row(r.Row()...)
	}
	return t.String()
}
