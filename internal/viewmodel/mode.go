package viewmodel

import "github.com/whalewatch/dashboard/internal/store"

// Mode label colours.
const (
	ColorPaper = "#667eea"
	ColorReal  = "#f5576c"
)

// ModeView is the display projection of the trading mode and its toggle.
type ModeView struct {
	Mode  store.TradingMode
	Label string
	Color string

	ToggleLabel  string
	ToggleTarget store.TradingMode

	// ToggleDanger styles the toggle as the "leave real trading" button
	ToggleDanger bool

	// ToggleNeedsConfirm is set when the toggle would put funds at risk
	ToggleNeedsConfirm bool
}

// ProjectMode maps a trading mode to its label, colour and toggle.
func ProjectMode(mode store.TradingMode) ModeView {
	if mode.Paper() {
		return ModeView{
			Mode:               store.ModePaper,
			Label:              "📝 Paper Trading",
			Color:              ColorPaper,
			ToggleLabel:        "🔄 Switch to Real Trading",
			ToggleTarget:       store.ModeReal,
			ToggleNeedsConfirm: true,
		}
	}
	return ModeView{
		Mode:         store.ModeReal,
		Label:        "💰 Real Trading",
		Color:        ColorReal,
		ToggleLabel:  "🔄 Switch to Paper Trading",
		ToggleTarget: store.ModePaper,
		ToggleDanger: true,
	}
}
