package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/shopspring/decimal"
	"github.com/whalewatch/dashboard/internal/ingest"
	"github.com/whalewatch/dashboard/internal/metrics"
	"github.com/whalewatch/dashboard/internal/settings"
	"github.com/whalewatch/dashboard/internal/signals"
	"github.com/whalewatch/dashboard/internal/store"
	"github.com/whalewatch/dashboard/internal/viewmodel"
)

func signalRows(ids ...string) []viewmodel.SignalRow {
	rows := make([]viewmodel.SignalRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, viewmodel.SignalRow{MarketID: id, Question: "Q " + id, Whales: 3, Sources: 2, Confidence: "80.0"})
	}
	return rows
}

func TestSignalsViewKeepsSelection(t *testing.T) {
	v := NewSignalsView()
	v.Update(viewmodel.SignalsView{Rows: signalRows("a", "b", "c"), Total: 5})

	v.table.Select(2, 0)
	v.Update(viewmodel.SignalsView{Rows: signalRows("a", "b", "c"), Total: 5})

	row, ok := v.SelectedRow()
	if !ok || row.MarketID != "b" {
		t.Errorf("expected selection to stay on b, got %q (ok=%v)", row.MarketID, ok)
	}

	v.table.Select(3, 0)
	v.Update(viewmodel.SignalsView{Rows: signalRows("a"), Total: 5})
	if row, ok := v.SelectedRow(); !ok || row.MarketID != "a" {
		t.Errorf("expected selection to fall back to a, got %q (ok=%v)", row.MarketID, ok)
	}
}

func TestSignalsViewEmpty(t *testing.T) {
	v := NewSignalsView()
	view := viewmodel.SignalsView{
		Total:      4,
		Thresholds: signals.Thresholds{MinWhales: 5, MinSources: 3},
		Empty:      "No signals match the current filters",
	}
	v.Update(view)

	if _, ok := v.SelectedRow(); ok {
		t.Error("expected no selection on an empty view")
	}
	if got := v.table.GetCell(1, 0).Text; got != view.Empty {
		t.Errorf("expected placeholder %q, got %q", view.Empty, got)
	}
	if got := v.table.GetTitle(); !strings.Contains(got, "0/4") {
		t.Errorf("expected title with counts, got %q", got)
	}
}

func TestWhitelistViewSelected(t *testing.T) {
	v := NewWhitelistView()
	if _, ok := v.Selected(); ok {
		t.Error("expected no selection before the first update")
	}

	v.Update(viewmodel.WhitelistView{Addresses: []string{"0xaaa", "0xbbb"}})
	v.table.Select(2, 0)

	got, ok := v.Selected()
	if !ok || got != "0xbbb" {
		t.Errorf("expected 0xbbb, got %q (ok=%v)", got, ok)
	}

	v.Update(viewmodel.WhitelistView{Empty: "No whitelisted wallets"})
	if _, ok := v.Selected(); ok {
		t.Error("expected no selection after the list emptied")
	}
}

func TestSignalDetails(t *testing.T) {
	sig := store.Signal{
		MarketID:        "m1",
		MarketQuestion:  "Will it rain?",
		NbWhales:        2,
		NbSources:       1,
		ConfidenceScore: decimal.RequireFromString("72.5"),
		Sources:         []string{"news"},
	}

	text := signalDetails(sig, viewmodel.MarketURL("https://polymarket.com", sig.MarketID))
	for _, want := range []string{
		"Will it rain?",
		"Confidence: 72.5",
		"https://polymarket.com/markets?_c=m1",
		"Sources (1): news",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected details to contain %q, got:\n%s", want, text)
		}
	}
}

func TestSignalDetailsWithoutSources(t *testing.T) {
	text := signalDetails(store.Signal{MarketID: "m2"}, "")
	if !strings.Contains(text, "none listed") {
		t.Errorf("expected placeholder for missing sources, got:\n%s", text)
	}
}

func TestSignalDetailsEscapesBackendText(t *testing.T) {
	sig := store.Signal{MarketID: "m3", MarketQuestion: "Will [red]BTC[-] hit 100k?", Sources: []string{"[news]"}}

	text := signalDetails(sig, "")
	for _, want := range []string{tview.Escape("Will [red]BTC[-] hit 100k?"), tview.Escape("[news]")} {
		if !strings.Contains(text, want) {
			t.Errorf("expected escaped %q, got:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Will [red]BTC") {
		t.Errorf("expected no raw style tag from the backend, got:\n%s", text)
	}
}

func TestWhalePicker(t *testing.T) {
	full := "0x1234567890abcdef1234567890abcdef12345678"
	whales := []store.SignalWhale{
		{Address: full, Score: decimal.NewFromInt(80), Volume: decimal.NewFromInt(12500)},
		{Address: "0xsecond", Score: decimal.NewFromInt(60), Volume: decimal.NewFromInt(900)},
	}
	p := newWhalePicker(whales, store.Whitelist{"0xsecond"})

	if got := p.table.GetCell(1, 0).Text; got != full {
		t.Errorf("expected the full address, got %q", got)
	}
	if got := p.table.GetCell(1, 2).Text; got != "$12,500" {
		t.Errorf("expected $12,500, got %q", got)
	}
	if got := p.table.GetCell(1, 3).Text; got != "" {
		t.Errorf("expected no marker for a new whale, got %q", got)
	}
	if got := p.table.GetCell(2, 3).Text; !strings.Contains(got, "whitelisted") {
		t.Errorf("expected whitelisted marker, got %q", got)
	}

	if got, ok := p.Selected(); !ok || got != full {
		t.Errorf("expected first whale selected, got %q (ok=%v)", got, ok)
	}
	p.table.Select(2, 0)
	if got, ok := p.Selected(); !ok || got != "0xsecond" {
		t.Errorf("expected 0xsecond, got %q (ok=%v)", got, ok)
	}
}

func TestWhalePickerEmpty(t *testing.T) {
	p := newWhalePicker(nil, nil)
	if _, ok := p.Selected(); ok {
		t.Error("expected no selection without whales")
	}
}

func TestTableCellsEscapeBackendText(t *testing.T) {
	v := NewSignalsView()
	rows := signalRows("a")
	rows[0].Question = "Will [red]it[-] rain?"
	v.Update(viewmodel.SignalsView{Rows: rows, Total: 1})

	if got := v.table.GetCell(1, 0).Text; got != tview.Escape("Will [red]it[-] rain?") {
		t.Errorf("expected escaped question, got %q", got)
	}

	w := NewWhitelistView()
	w.Update(viewmodel.WhitelistView{Addresses: []string{"[yellow]0xabc"}})
	if got := w.table.GetCell(1, 0).Text; got != tview.Escape("[yellow]0xabc") {
		t.Errorf("expected escaped address, got %q", got)
	}
}

func TestWidgetText(t *testing.T) {
	empty := viewmodel.Widget{Key: viewmodel.WidgetNews, Empty: "No news"}
	if got := widgetText(empty); !strings.Contains(got, "No news") {
		t.Errorf("expected empty message, got %q", got)
	}

	rows := make([]viewmodel.WidgetRow, maxWidgetRows+3)
	for i := range rows {
		rows[i] = viewmodel.WidgetRow{Primary: "item", Link: "https://polymarket.com/event/x"}
	}
	got := widgetText(viewmodel.Widget{Key: viewmodel.WidgetTrending, Rows: rows})
	if n := strings.Count(got, "item"); n != maxWidgetRows {
		t.Errorf("expected %d rows, got %d", maxWidgetRows, n)
	}
	if !strings.Contains(got, "... 3 more") {
		t.Errorf("expected overflow marker, got %q", got)
	}
}

func TestOpportunitiesViewIgnoresUnknownWidget(t *testing.T) {
	v := NewOpportunitiesView()
	v.Update([]viewmodel.Widget{
		{Key: "unknown", Title: "Unknown"},
		{Key: viewmodel.WidgetReddit, Title: "Reddit", Empty: "No posts"},
	})

	if got := v.views[viewmodel.WidgetReddit].GetText(true); !strings.Contains(got, "No posts") {
		t.Errorf("expected reddit widget to show its empty message, got %q", got)
	}
	if got := v.views[viewmodel.WidgetNews].GetText(true); !strings.Contains(got, "Loading") {
		t.Errorf("expected untouched widget to keep its placeholder, got %q", got)
	}
}

func TestSettingsFormLoad(t *testing.T) {
	f := NewSettingsForm(nil)
	draft := settings.Draft{
		MaxPositionSize: "100",
		StopLoss:        "15",
		TakeProfit:      "30",
		MaxPositions:    "5",
		MaxTraders:      "10",
		MinWhaleScore:   "60",
		ScanInterval:    "30",
		AutoCopySells:   true,
	}

	f.Load(draft)
	if f.Dirty() {
		t.Error("expected a freshly loaded form to be clean")
	}
	if got := f.Draft(); got != draft {
		t.Errorf("expected %+v, got %+v", draft, got)
	}
}

func TestSettingsFormKeepsEdits(t *testing.T) {
	f := NewSettingsForm(nil)
	f.Load(settings.Draft{StopLoss: "15"})

	f.dirty = true
	f.stopLoss.SetText("20")
	f.Load(settings.Draft{StopLoss: "25"})

	if got := f.Draft().StopLoss; got != "20" {
		t.Errorf("expected the edit to survive a poll, got %q", got)
	}
	if f.last.StopLoss != "25" {
		t.Errorf("expected the latest backend value to be remembered, got %q", f.last.StopLoss)
	}
}

func TestSettingsFormFailedSaveKeepsEdits(t *testing.T) {
	var saved []settings.Draft
	f := NewSettingsForm(func(d settings.Draft) { saved = append(saved, d) })
	f.Load(settings.Draft{MaxPositions: "5", StopLoss: "15"})

	f.maxPositions.SetText("1x5")
	if !f.Dirty() {
		t.Fatal("expected typing to mark the form dirty")
	}

	// Press Save; the save fails, so MarkSaved is never called.
	if f.form.GetButtonCount() < 1 {
		t.Fatal("expected a Save button")
	}
	f.form.GetButton(0).InputHandler()(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), func(tview.Primitive) {})

	if len(saved) != 1 || saved[0].MaxPositions != "1x5" {
		t.Fatalf("expected the edited draft to be submitted, got %+v", saved)
	}
	if !f.Dirty() {
		t.Error("expected the form to stay dirty until the save succeeds")
	}

	f.Load(settings.Draft{MaxPositions: "5", StopLoss: "15"})
	if got := f.Draft().MaxPositions; got != "1x5" {
		t.Errorf("expected the failed edit to survive the next poll, got %q", got)
	}

	f.MarkSaved(f.Draft())
	f.Load(settings.Draft{MaxPositions: "7", StopLoss: "15"})
	if got := f.Draft().MaxPositions; got != "7" {
		t.Errorf("expected a saved form to follow polls again, got %q", got)
	}
}

func TestSettingsFormMarkSavedIgnoresNewerEdits(t *testing.T) {
	f := NewSettingsForm(nil)
	f.Load(settings.Draft{StopLoss: "15"})

	f.stopLoss.SetText("20")
	submitted := f.Draft()
	f.stopLoss.SetText("22")

	f.MarkSaved(submitted)
	if !f.Dirty() {
		t.Error("expected edits made after the save to keep the form dirty")
	}
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Date(2025, 1, 4, 14, 32, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Time{}, "never"},
		{now.Add(-5 * time.Second), "5s ago"},
		{now.Add(-3 * time.Minute), "3m ago"},
		{now.Add(-2 * time.Hour), "2h ago"},
		{now.Add(-48 * time.Hour), "2d ago"},
	}
	for _, tt := range tests {
		if got := formatTimeAgo(tt.at, now); got != tt.want {
			t.Errorf("formatTimeAgo(%v): expected %q, got %q", tt.at, tt.want, got)
		}
	}
}

func TestTruncateAddress(t *testing.T) {
	if got := truncateAddress("0xabc"); got != "0xabc" {
		t.Errorf("expected short address unchanged, got %q", got)
	}
	if got := truncateAddress("0x1234567890abcdef"); got != "0x1234...cdef" {
		t.Errorf("expected 0x1234...cdef, got %q", got)
	}
}

func TestStatusColor(t *testing.T) {
	if statusColor(store.StatusOpen) != tcell.ColorGreen {
		t.Error("expected open positions in green")
	}
	if statusColor("unknown") != tcell.ColorWhite {
		t.Error("expected unknown status in white")
	}
}

func TestToggleText(t *testing.T) {
	paper := toggleText(viewmodel.ProjectMode(store.ModePaper))
	if !strings.Contains(paper, "Switch to Real Trading") || !strings.Contains(paper, "asks for confirmation") {
		t.Errorf("expected the paper toggle to warn before real trading, got %q", paper)
	}
	if !strings.Contains(paper, viewmodel.ColorReal) {
		t.Errorf("expected the target mode colour, got %q", paper)
	}

	realMode := toggleText(viewmodel.ProjectMode(store.ModeReal))
	if !strings.Contains(realMode, "Switch to Paper Trading") || !strings.Contains(realMode, "[red]") {
		t.Errorf("expected the real toggle drawn as danger, got %q", realMode)
	}
	if strings.Contains(realMode, "confirmation") {
		t.Errorf("expected no confirmation hint when leaving real trading, got %q", realMode)
	}
}

func TestStatsHeaderShowsToggleAndFeed(t *testing.T) {
	v := NewStatsView()
	if got := v.text(); !strings.Contains(got, "Feed: "+viewmodel.Placeholder) {
		t.Errorf("expected a placeholder before any feed status, got %q", got)
	}

	v.SetModel(&viewmodel.RenderModel{Mode: viewmodel.ProjectMode(store.ModePaper)})
	v.SetHealth(metrics.MetricsSnapshot{ChangeFeedStatus: ingest.FeedDisabled})

	got := v.text()
	if !strings.Contains(got, "Switch to Real Trading") {
		t.Errorf("expected the toggle label in the header, got %q", got)
	}
	if !strings.Contains(got, "Feed: "+ingest.FeedDisabled) {
		t.Errorf("expected the disabled feed status, got %q", got)
	}
}
