package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/whalewatch/dashboard/internal/store"
	"github.com/whalewatch/dashboard/internal/viewmodel"
)

var signalHeaders = []string{"Market", "Whales", "Sources", "Confidence", "First whale"}

// SignalsView lists the signals passing the current thresholds.
type SignalsView struct {
	table *tview.Table
	rows  []viewmodel.SignalRow
}

// NewSignalsView creates a new signals view.
func NewSignalsView() *SignalsView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0).
		SetSelectable(true, false)

	table.SetTitle(" 🎯 Signals ").SetBorder(true)
	setHeader(table, signalHeaders...)

	return &SignalsView{table: table}
}

// Widget returns the tview primitive.
func (v *SignalsView) Widget() tview.Primitive {
	return v.table
}

// Update redraws the filtered signals, keeping the selection when possible.
func (v *SignalsView) Update(view viewmodel.SignalsView) {
	selected, _ := v.table.GetSelection()

	v.rows = view.Rows
	v.table.Clear()
	v.table.SetTitle(view.Title())
	setHeader(v.table, signalHeaders...)

	if len(view.Rows) == 0 {
		setEmpty(v.table, view.Empty)
		return
	}

	for i, s := range view.Rows {
		row := i + 1
		question := s.Question
		if question == "" {
			question = s.MarketID
		}
		v.table.SetCell(row, 0, textCell(viewmodel.Truncate(question, 48)).SetExpansion(1))
		v.table.SetCell(row, 1, tview.NewTableCell(fmt.Sprintf("🐋 %d", s.Whales)).SetAlign(tview.AlignRight))
		v.table.SetCell(row, 2, tview.NewTableCell(fmt.Sprintf("📡 %d", s.Sources)).SetAlign(tview.AlignRight))
		v.table.SetCell(row, 3, textCell(s.Confidence).
			SetAlign(tview.AlignRight).
			SetTextColor(tcell.ColorYellow))
		v.table.SetCell(row, 4, textCell(truncateAddress(s.FirstWhale)))
	}

	if selected < 1 || selected > len(view.Rows) {
		selected = 1
	}
	v.table.Select(selected, 0)
}

// SelectedRow returns the row under the cursor as it was rendered.
func (v *SignalsView) SelectedRow() (viewmodel.SignalRow, bool) {
	row, _ := v.table.GetSelection()
	index := row - 1
	if index < 0 || index >= len(v.rows) {
		return viewmodel.SignalRow{}, false
	}
	return v.rows[index], true
}

// signalDetails renders the header text of the details dialog. The whales
// are listed separately so each one can be copied.
func signalDetails(s store.Signal, marketURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[white::b]%s[-::-]\n\n", tview.Escape(s.MarketQuestion))
	fmt.Fprintf(&b, "Market: %s\n", tview.Escape(s.MarketID))
	fmt.Fprintf(&b, "Confidence: %s\n", s.ConfidenceScore.StringFixed(1))
	fmt.Fprintf(&b, "Whales: %d\n", s.NbWhales)
	fmt.Fprintf(&b, "Link: [blue]%s[-]\n", tview.Escape(marketURL))

	fmt.Fprintf(&b, "Sources (%d): ", s.NbSources)
	if len(s.Sources) == 0 {
		b.WriteString("none listed")
	} else {
		b.WriteString(tview.Escape(strings.Join(s.Sources, ", ")))
	}
	return b.String()
}

var whalePickerHeaders = []string{"Address", "Score", "Volume", ""}

// whalePicker lists the whales of one signal with full addresses.
type whalePicker struct {
	table  *tview.Table
	whales []store.SignalWhale
}

// newWhalePicker fills the table. Addresses already on the whitelist are
// marked.
func newWhalePicker(whales []store.SignalWhale, whitelisted store.Whitelist) *whalePicker {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0).
		SetSelectable(true, false)
	table.SetTitle(" 🐋 Whales (Enter or c copies to the whitelist) ").SetBorder(true)
	setHeader(table, whalePickerHeaders...)

	if len(whales) == 0 {
		setEmpty(table, "No whales listed")
	}
	for i, w := range whales {
		row := i + 1
		table.SetCell(row, 0, textCell(w.Address).SetExpansion(1))
		table.SetCell(row, 1, tview.NewTableCell(w.Score.String()).SetAlign(tview.AlignRight))
		table.SetCell(row, 2, tview.NewTableCell(viewmodel.Dollars(w.Volume)).SetAlign(tview.AlignRight))
		if whitelisted.Contains(w.Address) {
			table.SetCell(row, 3, tview.NewTableCell("✅ whitelisted").SetTextColor(tcell.ColorGreen))
		}
	}
	if len(whales) > 0 {
		table.Select(1, 0)
	}

	return &whalePicker{table: table, whales: whales}
}

// Selected returns the full address of the selected whale.
func (p *whalePicker) Selected() (string, bool) {
	row, _ := p.table.GetSelection()
	index := row - 1
	if index < 0 || index >= len(p.whales) {
		return "", false
	}
	return p.whales[index].Address, true
}
