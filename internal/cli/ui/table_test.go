package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_Render(t *testing.T) {
	var b strings.Builder
	table := NewTable(&b, true, "TYPE", "ID", "ATTRIBUTES")
	table.AddRow("Order", "o1", `{"qty":1}`)
	table.AddRow("Order", "order-10")
	table.Render()

	lines := strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"TYPE   ID        ATTRIBUTES",
		"─────  ────────  ──────────",
		`Order  o1        {"qty":1}`,
		"Order  order-10  ",
	}, lines)
}

func TestTable_TruncatesLongCells(t *testing.T) {
	var b strings.Builder
	table := NewTable(&b, true, "VALUE")
	table.AddRow(strings.Repeat("x", MaxCellWidth+10))
	table.Render()

	assert.Contains(t, b.String(), strings.Repeat("x", MaxCellWidth-3)+"...")
	assert.NotContains(t, b.String(), strings.Repeat("x", MaxCellWidth-2))
}

func TestTable_NoHeaders(t *testing.T) {
	var b strings.Builder
	NewTable(&b, true).Render()
	assert.Empty(t, b.String())
}
