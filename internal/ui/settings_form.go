package ui

import (
	"github.com/rivo/tview"
	"github.com/whalewatch/dashboard/internal/settings"
)

// SettingsForm edits the bot settings. Polls refresh the form only while it
// holds no unsaved edits.
type SettingsForm struct {
	form *tview.Form

	maxPositionSize *tview.InputField
	stopLoss        *tview.InputField
	takeProfit      *tview.InputField
	maxPositions    *tview.InputField
	maxTraders      *tview.InputField
	minWhaleScore   *tview.InputField
	scanInterval    *tview.InputField
	autoCopySells   *tview.Checkbox

	last    settings.Draft
	dirty   bool
	loading bool
}

// NewSettingsForm builds the form. onSave receives the edited draft.
func NewSettingsForm(onSave func(settings.Draft)) *SettingsForm {
	f := &SettingsForm{form: tview.NewForm()}

	input := func(label string) *tview.InputField {
		field := tview.NewInputField().
			SetLabel(label).
			SetFieldWidth(12).
			SetChangedFunc(func(string) {
				if !f.loading {
					f.dirty = true
				}
			})
		f.form.AddFormItem(field)
		return field
	}

	f.maxPositionSize = input("Max position size ($)")
	f.stopLoss = input("Stop loss (%)")
	f.takeProfit = input("Take profit (%)")
	f.maxPositions = input("Max positions")
	f.maxTraders = input("Max traders")
	f.minWhaleScore = input("Min whale score")
	f.scanInterval = input("Scan interval (s)")

	f.autoCopySells = tview.NewCheckbox().
		SetLabel("Auto copy sells").
		SetChangedFunc(func(bool) {
			if !f.loading {
				f.dirty = true
			}
		})
	f.form.AddFormItem(f.autoCopySells)

	// Edits stay until MarkSaved confirms the save went through.
	f.form.AddButton("Save", func() {
		if onSave != nil {
			onSave(f.Draft())
		}
	})
	f.form.AddButton("Reset", func() {
		f.dirty = false
		f.Load(f.last)
	})

	f.form.SetBorder(true).SetTitle(" ⚙️ Settings (restart the bot after saving) ")
	return f
}

// Widget returns the tview primitive.
func (f *SettingsForm) Widget() tview.Primitive {
	return f.form
}

// Load shows a draft unless the user is editing.
func (f *SettingsForm) Load(d settings.Draft) {
	f.last = d
	if f.dirty {
		return
	}

	f.loading = true
	defer func() { f.loading = false }()

	f.maxPositionSize.SetText(d.MaxPositionSize)
	f.stopLoss.SetText(d.StopLoss)
	f.takeProfit.SetText(d.TakeProfit)
	f.maxPositions.SetText(d.MaxPositions)
	f.maxTraders.SetText(d.MaxTraders)
	f.minWhaleScore.SetText(d.MinWhaleScore)
	f.scanInterval.SetText(d.ScanInterval)
	f.autoCopySells.SetChecked(d.AutoCopySells)
}

// MarkSaved lets polls refresh the form again once d is persisted. Edits
// made after d was submitted keep the form dirty.
func (f *SettingsForm) MarkSaved(d settings.Draft) {
	if f.Draft() == d {
		f.dirty = false
	}
}

// Draft reads the current form values.
func (f *SettingsForm) Draft() settings.Draft {
	return settings.Draft{
		MaxPositionSize: f.maxPositionSize.GetText(),
		StopLoss:        f.stopLoss.GetText(),
		TakeProfit:      f.takeProfit.GetText(),
		MaxPositions:    f.maxPositions.GetText(),
		MaxTraders:      f.maxTraders.GetText(),
		MinWhaleScore:   f.minWhaleScore.GetText(),
		ScanInterval:    f.scanInterval.GetText(),
		AutoCopySells:   f.autoCopySells.IsChecked(),
	}
}

// Dirty reports whether the form holds unsaved edits.
func (f *SettingsForm) Dirty() bool {
	return f.dirty
}
