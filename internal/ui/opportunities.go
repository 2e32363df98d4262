package ui

import (
	"fmt"

	"github.com/rivo/tview"
	"github.com/whalewatch/dashboard/internal/viewmodel"
)

// maxWidgetRows caps each widget; the lists are summaries.
const maxWidgetRows = 8

// OpportunitiesView lays out the opportunity widgets in a grid. Each widget
// renders on its own so an empty source never hides the others.
type OpportunitiesView struct {
	grid  *tview.Grid
	views map[string]*tview.TextView
}

// NewOpportunitiesView creates the grid with one text view per widget.
func NewOpportunitiesView() *OpportunitiesView {
	keys := []string{
		viewmodel.WidgetTrending, viewmodel.WidgetMovements,
		viewmodel.WidgetKeywords, viewmodel.WidgetNews,
		viewmodel.WidgetReddit, viewmodel.WidgetEvents,
		viewmodel.WidgetSentiment, viewmodel.WidgetVideos,
	}

	grid := tview.NewGrid().
		SetRows(0, 0, 0, 0).
		SetColumns(0, 0)

	v := &OpportunitiesView{grid: grid, views: make(map[string]*tview.TextView, len(keys))}
	for i, key := range keys {
		tv := tview.NewTextView().
			SetDynamicColors(true).
			SetWrap(true)
		tv.SetBorder(true).SetTitle(" " + key + " ")
		fmt.Fprint(tv, "[gray]Loading...[-]")
		v.views[key] = tv
		grid.AddItem(tv, i/2, i%2, 1, 1, 0, 0, false)
	}
	return v
}

// Widget returns the tview primitive.
func (v *OpportunitiesView) Widget() tview.Primitive {
	return v.grid
}

// Update redraws every widget.
func (v *OpportunitiesView) Update(widgets []viewmodel.Widget) {
	for _, w := range widgets {
		tv, ok := v.views[w.Key]
		if !ok {
			continue
		}
		tv.SetTitle(fmt.Sprintf(" %s (%d) ", w.Title, len(w.Rows)))
		tv.Clear()
		fmt.Fprint(tv, widgetText(w))
		tv.ScrollToBeginning()
	}
}

func widgetText(w viewmodel.Widget) string {
	if w.IsEmpty() {
		return "[gray]" + tview.Escape(w.Empty) + "[-]"
	}

	text := ""
	for i, row := range w.Rows {
		if i == maxWidgetRows {
			text += fmt.Sprintf("[gray]... %d more[-]\n", len(w.Rows)-maxWidgetRows)
			break
		}
		text += "[white::b]" + tview.Escape(row.Primary) + "[-::-]\n"
		if row.Secondary != "" {
			text += "  [gray]" + tview.Escape(row.Secondary) + "[-]\n"
		}
		if row.Link != "" {
			text += "  [blue]" + tview.Escape(row.Link) + "[-]\n"
		}
	}
	return text
}
