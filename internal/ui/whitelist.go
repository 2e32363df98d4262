package ui

import (
	"github.com/rivo/tview"
	"github.com/whalewatch/dashboard/internal/viewmodel"
)

// WhitelistView lists whitelisted wallets; the selected one can be removed.
type WhitelistView struct {
	table     *tview.Table
	addresses []string
}

// NewWhitelistView creates a new whitelist view.
func NewWhitelistView() *WhitelistView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0).
		SetSelectable(true, false)

	table.SetTitle(" ✅ Whitelist (a add, d remove) ").SetBorder(true)
	setHeader(table, "Address")

	return &WhitelistView{table: table}
}

// Widget returns the tview primitive.
func (v *WhitelistView) Widget() tview.Primitive {
	return v.table
}

// Update redraws the whitelist.
func (v *WhitelistView) Update(view viewmodel.WhitelistView) {
	selected, _ := v.table.GetSelection()

	v.addresses = view.Addresses
	v.table.Clear()
	setHeader(v.table, "Address")

	if len(view.Addresses) == 0 {
		setEmpty(v.table, view.Empty)
		return
	}

	for i, addr := range view.Addresses {
		v.table.SetCell(i+1, 0, textCell(addr).SetExpansion(1))
	}
	if selected < 1 || selected > len(view.Addresses) {
		selected = 1
	}
	v.table.Select(selected, 0)
}

// Selected returns the address of the selected row.
func (v *WhitelistView) Selected() (string, bool) {
	row, _ := v.table.GetSelection()
	index := row - 1
	if index < 0 || index >= len(v.addresses) {
		return "", false
	}
	return v.addresses[index], true
}
