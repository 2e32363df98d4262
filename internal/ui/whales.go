package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/whalewatch/dashboard/internal/viewmodel"
)

// TopWhalesView ranks the tracked whales by score.
type TopWhalesView struct {
	table *tview.Table
}

// NewTopWhalesView creates a new top whales view.
func NewTopWhalesView() *TopWhalesView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" 🏆 Top Whales ").SetBorder(true)
	setHeader(table, "#", "Address", "Score", "Volume", "Tags")

	return &TopWhalesView{table: table}
}

// Widget returns the tview primitive.
func (v *TopWhalesView) Widget() tview.Primitive {
	return v.table
}

// Update redraws the ranking.
func (v *TopWhalesView) Update(rows []viewmodel.WhaleRow) {
	v.table.Clear()
	setHeader(v.table, "#", "Address", "Score", "Volume", "Tags")

	if len(rows) == 0 {
		setEmpty(v.table, "No whales tracked yet")
		return
	}

	for i, w := range rows {
		row := i + 1
		cells := []string{
			fmt.Sprintf("%d", w.Rank),
			truncateAddress(w.Address),
			w.Score,
			w.Volume,
			strings.Join(w.Tags, ", "),
		}
		for col, text := range cells {
			cell := textCell(text).SetAlign(tview.AlignLeft)
			if col == 2 && text == viewmodel.Placeholder {
				cell.SetTextColor(tcell.ColorGray)
			}
			if col == 2 || col == 3 {
				cell.SetAlign(tview.AlignRight)
			}
			v.table.SetCell(row, col, cell)
		}
	}
}

// FollowedView lists whales with open copied positions.
type FollowedView struct {
	table *tview.Table
}

// NewFollowedView creates a new followed traders view.
func NewFollowedView() *FollowedView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" 👥 Followed Traders ").SetBorder(true)
	setHeader(table, "Address", "Score", "Volume", "Open")

	return &FollowedView{table: table}
}

// Widget returns the tview primitive.
func (v *FollowedView) Widget() tview.Primitive {
	return v.table
}

// Update redraws the followed traders.
func (v *FollowedView) Update(rows []viewmodel.FollowedRow) {
	v.table.Clear()
	setHeader(v.table, "Address", "Score", "Volume", "Open")

	if len(rows) == 0 {
		setEmpty(v.table, "No traders followed yet")
		return
	}

	for i, f := range rows {
		row := i + 1
		v.table.SetCell(row, 0, textCell(truncateAddress(f.Address)))
		v.table.SetCell(row, 1, tview.NewTableCell(f.Score).SetAlign(tview.AlignRight))
		v.table.SetCell(row, 2, tview.NewTableCell(f.Volume).SetAlign(tview.AlignRight))
		v.table.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%d", f.OpenPositions)).
			SetAlign(tview.AlignRight).
			SetTextColor(tcell.ColorGreen))
	}
}
