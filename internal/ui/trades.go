package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/whalewatch/dashboard/internal/store"
	"github.com/whalewatch/dashboard/internal/viewmodel"
)

var tradeHeaders = []string{"Time", "Market", "Outcome", "Amount", "Whale", "Status"}

// TradesView shows the most recent copied positions.
type TradesView struct {
	table *tview.Table
}

// NewTradesView creates a new recent trades view.
func NewTradesView() *TradesView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" 📜 Recent Trades ").SetBorder(true)
	setHeader(table, tradeHeaders...)

	return &TradesView{table: table}
}

// Widget returns the tview primitive.
func (v *TradesView) Widget() tview.Primitive {
	return v.table
}

// Update redraws the trade history.
func (v *TradesView) Update(rows []viewmodel.TradeRow) {
	v.table.Clear()
	setHeader(v.table, tradeHeaders...)

	if len(rows) == 0 {
		setEmpty(v.table, "No trades yet")
		return
	}

	for i, t := range rows {
		row := i + 1
		cells := []string{t.Time, t.Market, t.Outcome, t.Amount, t.Whale, t.Status}
		for col, text := range cells {
			cell := textCell(text).SetAlign(tview.AlignLeft)
			if col == 3 {
				cell.SetAlign(tview.AlignRight)
			}
			if col == 5 {
				cell.SetTextColor(statusColor(t.Status))
			}
			v.table.SetCell(row, col, cell)
		}
	}
}

func statusColor(status string) tcell.Color {
	switch status {
	case store.StatusOpen:
		return tcell.ColorGreen
	case store.StatusClosed:
		return tcell.ColorGray
	default:
		return tcell.ColorWhite
	}
}
