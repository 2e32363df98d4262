package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
	"github.com/whalewatch/dashboard/internal/metrics"
	"github.com/whalewatch/dashboard/internal/viewmodel"
)

// StatsView is the header: portfolio scalars, trading mode and engine health.
type StatsView struct {
	textView *tview.TextView
	model    *viewmodel.RenderModel
	health   metrics.MetricsSnapshot
	now      func() time.Time
}

// NewStatsView creates a new stats view.
func NewStatsView() *StatsView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	textView.SetTitle(" 🐋 Whale Copy Trading ").SetBorder(true)

	v := &StatsView{textView: textView, now: time.Now}
	v.render()
	return v
}

// Widget returns the tview primitive.
func (v *StatsView) Widget() tview.Primitive {
	return v.textView
}

// SetModel updates the portfolio part.
func (v *StatsView) SetModel(model *viewmodel.RenderModel) {
	v.model = model
	v.render()
}

// SetHealth updates the engine status part.
func (v *StatsView) SetHealth(snapshot metrics.MetricsSnapshot) {
	v.health = snapshot
	v.render()
}

func (v *StatsView) render() {
	v.textView.Clear()
	fmt.Fprint(v.textView, v.text())
}

func (v *StatsView) text() string {
	portfolio := "[gray]Waiting for the first snapshot...[-]"
	if m := v.model; m != nil {
		portfolio = fmt.Sprintf(
			"Whales: [white::b]%d[-::-]   Open positions: [white::b]%d[-::-]   Balance: [white::b]%s[-::-]   Per trade: %s of capital   [%s::b]%s[-::-]",
			m.Stats.TotalWhales,
			m.Stats.OpenPositions,
			m.Stats.BalanceText(),
			m.Stats.PercentPerTradeText(),
			m.Mode.Color, m.Mode.Label,
		)
		portfolio += "   " + toggleText(m.Mode)
	}

	h := v.health
	status, color := "starting", "yellow"
	switch {
	case h.Healthy():
		status, color = "live", "green"
	case h.CyclesFailed > 0:
		status, color = "stale", "red"
	}

	engine := fmt.Sprintf(
		"Backend: [%s]%s[-] (last update %s)   Cycles: %d ok / %d failed / %d skipped   Feed: %s   Uptime: %s",
		color, status,
		formatTimeAgo(h.LastSuccess, v.now()),
		h.CyclesSucceeded, h.CyclesFailed, h.CyclesSkipped,
		textOr(h.ChangeFeedStatus, viewmodel.Placeholder),
		formatDuration(h.Uptime),
	)
	if !h.Healthy() && h.LastError != "" {
		engine += fmt.Sprintf("\n[red]Last error:[-] %s", tview.Escape(h.LastError))
	}

	return portfolio + "\n" + engine
}

// toggleText is the hint for the mode toggle key. Leaving real trading is
// drawn as a danger action; entering it warns that it asks first.
func toggleText(m viewmodel.ModeView) string {
	color := viewmodel.ProjectMode(m.ToggleTarget).Color
	if m.ToggleDanger {
		color = "red"
	}
	text := fmt.Sprintf("[yellow]m[-] [%s]%s[-]", color, m.ToggleLabel)
	if m.ToggleNeedsConfirm {
		text += " [gray](asks for confirmation)[-]"
	}
	return text
}

func textOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
