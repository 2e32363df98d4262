package ui

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/whalewatch/dashboard/internal/dispatch"
	"github.com/whalewatch/dashboard/internal/viewmodel"
)

// Dialogs are stacked as pages. Every method except Confirm and Notify
// must run on the UI goroutine.

func levelColor(level dispatch.Level) tcell.Color {
	switch level {
	case dispatch.LevelSuccess:
		return tcell.ColorDarkGreen
	case dispatch.LevelWarning:
		return tcell.ColorDarkGoldenrod
	case dispatch.LevelError:
		return tcell.ColorDarkRed
	default:
		return tcell.ColorDarkSlateGray
	}
}

// openDialog pushes a primitive as a new front page and returns its closer.
// Closing a dialog hands focus to the one below it.
func (a *App) openDialog(p tview.Primitive) (dismiss func()) {
	a.dialogSeq++
	name := fmt.Sprintf("dialog-%d", a.dialogSeq)
	a.dialogs = append(a.dialogs, p)
	a.pages.AddPage(name, p, true, true)
	a.app.SetFocus(p)

	closed := false
	return func() {
		if closed {
			return
		}
		closed = true
		for i, d := range a.dialogs {
			if d == p {
				a.dialogs = append(a.dialogs[:i], a.dialogs[i+1:]...)
				break
			}
		}
		a.pages.RemovePage(name)
		if n := len(a.dialogs); n > 0 {
			a.app.SetFocus(a.dialogs[n-1])
			return
		}
		a.restoreFocus()
	}
}

// showModal shows a message with buttons. done receives the pressed index,
// or -1 when the dialog is dismissed with Escape.
func (a *App) showModal(text string, buttons []string, level dispatch.Level, done func(index int)) {
	modal := tview.NewModal().
		SetText(text).
		AddButtons(buttons).
		SetBackgroundColor(levelColor(level))

	dismiss := a.openDialog(modal)
	answered := false
	modal.SetDoneFunc(func(index int, _ string) {
		if answered {
			return
		}
		answered = true
		dismiss()
		if done != nil {
			done(index)
		}
	})
}

// Confirm asks a yes/no question and blocks until answered. It is called
// from dispatcher goroutines, never from the UI goroutine.
func (a *App) Confirm(ctx context.Context, p dispatch.Prompt) bool {
	if a.ctx.Err() != nil {
		return false
	}

	answer := make(chan bool, 1)
	a.app.QueueUpdateDraw(func() {
		text := tview.Escape(p.Title + "\n\n" + p.Message)
		a.showModal(text, []string{p.ConfirmLabel, "Cancel"}, dispatch.LevelWarning, func(index int) {
			answer <- index == 0
		})
	})

	select {
	case ok := <-answer:
		return ok
	case <-ctx.Done():
		return false
	case <-a.ctx.Done():
		return false
	}
}

// Notify shows a notice until dismissed.
func (a *App) Notify(n dispatch.Notice) {
	if a.ctx.Err() != nil {
		return
	}
	a.app.QueueUpdateDraw(func() {
		a.showModal(tview.Escape(n.Message), []string{"OK"}, n.Level, nil)
	})
}

// showAddWhitelist asks for an address to whitelist.
func (a *App) showAddWhitelist() {
	input := tview.NewInputField().
		SetLabel("Address ").
		SetFieldWidth(46)

	form := tview.NewForm().AddFormItem(input)
	form.SetBorder(true).SetTitle(" Add to whitelist ")

	dismiss := a.openDialog(centered(form, 64, 7))
	submit := func() {
		address := input.GetText()
		dismiss()
		a.run(dispatch.ActionAddWhitelist, dispatch.Args{Address: address})
	}

	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			submit()
		case tcell.KeyEscape:
			dismiss()
		}
	})
	form.AddButton("Add", submit)
	form.AddButton("Cancel", dismiss)
	form.SetCancelFunc(dismiss)
}

// showSignalDetails opens the details of a rendered signal row. Each whale
// can be copied to the whitelist while the dialog stays open.
func (a *App) showSignalDetails(row viewmodel.SignalRow) *whalePicker {
	sig := row.Signal

	text := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetText(signalDetails(sig, viewmodel.MarketURL(a.marketURLBase, sig.MarketID)))
	picker := newWhalePicker(sig.Whales, a.whitelisted)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(text, 8, 0, false).
		AddItem(picker.table, 0, 1, true)
	layout.SetBorder(true).SetTitle(" 🎯 Signal details (Esc closes) ")

	dismiss := a.openDialog(centered(layout, 96, 24))

	copySelected := func() {
		if address, ok := picker.Selected(); ok {
			a.run(dispatch.ActionCopyWhale, dispatch.Args{Address: address})
		}
	}
	picker.table.SetSelectedFunc(func(int, int) { copySelected() })
	picker.table.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEscape {
			dismiss()
		}
	})
	picker.table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune && (event.Rune() == 'c' || event.Rune() == 'C') {
			copySelected()
			return nil
		}
		return event
	})
	return picker
}

// centered wraps p in a fixed-size box in the middle of the screen.
func centered(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}
