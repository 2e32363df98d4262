package ui

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/shopspring/decimal"
	"github.com/whalewatch/dashboard/internal/dispatch"
	"github.com/whalewatch/dashboard/internal/signals"
	"github.com/whalewatch/dashboard/internal/store"
	"github.com/whalewatch/dashboard/internal/viewmodel"
)

const (
	whaleOne   = "0x1111111111111111111111111111111111111111"
	whaleTwo   = "0x2222222222222222222222222222222222222222"
	whaleThree = "0x3333333333333333333333333333333333333333"
)

// whitelistAPI records whitelist additions; every other call succeeds.
type whitelistAPI struct {
	added chan string
}

func (w *whitelistAPI) AddToWhitelist(_ context.Context, address string) error {
	w.added <- address
	return nil
}

func (w *whitelistAPI) RemoveFromWhitelist(context.Context, string) error { return nil }

func (w *whitelistAPI) SaveSettings(context.Context, store.Settings) error { return nil }

func (w *whitelistAPI) Config(context.Context) (store.BotConfig, error) {
	return store.BotConfig{}, nil
}

func (w *whitelistAPI) ToggleMode(context.Context, bool) (store.ToggleModeResult, error) {
	return store.ToggleModeResult{}, nil
}

func (w *whitelistAPI) SaveSignalThresholds(context.Context, store.SignalThresholds) error {
	return nil
}

type nopRefresher struct{}

func (nopRefresher) Refresh(context.Context) {}

type nopNotifier struct{}

func (nopNotifier) Notify(dispatch.Notice) {}

func testSignals() []store.Signal {
	return []store.Signal{
		{
			MarketID: "m1", MarketQuestion: "First market", NbWhales: 1, NbSources: 1,
			ConfidenceScore: decimal.NewFromInt(50),
			Whales:          []store.SignalWhale{{Address: whaleOne, Score: decimal.NewFromInt(70)}},
		},
		{
			MarketID: "m2", MarketQuestion: "Second market", NbWhales: 2, NbSources: 1,
			ConfidenceScore: decimal.NewFromInt(90),
			Whales: []store.SignalWhale{
				{Address: whaleTwo, Score: decimal.NewFromInt(80)},
				{Address: whaleThree, Score: decimal.NewFromInt(60)},
			},
		},
	}
}

// renderSignals publishes the filter's current view into the app.
func renderSignals(a *App, filter *signals.Store, whitelist store.Whitelist) {
	filtered := filter.Apply()
	a.render(viewmodel.Build(viewmodel.Input{
		Whitelist:    whitelist,
		Signals:      filtered,
		TotalSignals: len(testSignals()),
		Thresholds:   filter.Thresholds(),
	}, viewmodel.Options{MarketURLBase: "https://polymarket.com"}))
}

func press(p tview.Primitive, event *tcell.EventKey) {
	p.InputHandler()(event, func(tview.Primitive) {})
}

func TestDetailsFollowRenderedRow(t *testing.T) {
	filter := signals.NewStore(signals.Thresholds{})
	filter.Replace(testSignals())

	a := NewApp(nil, nil, filter, "https://polymarket.com")
	defer a.Stop()
	renderSignals(a, filter, nil)
	a.signals.table.Select(1, 0)

	// Thresholds move before the next render; the table still shows m1.
	filter.SetThresholds(signals.Thresholds{MinWhales: 2})

	row, ok := a.signals.SelectedRow()
	if !ok || row.MarketID != "m1" {
		t.Fatalf("expected the rendered m1 row, got %q (ok=%v)", row.MarketID, ok)
	}
	picker := a.showSignalDetails(row)
	if got, ok := picker.Selected(); !ok || got != whaleOne {
		t.Errorf("expected the whale of m1, got %q (ok=%v)", got, ok)
	}
	if len(picker.whales) != 1 {
		t.Errorf("expected one whale listed for m1, got %d", len(picker.whales))
	}
}

func TestDetailsCopyEachWhale(t *testing.T) {
	filter := signals.NewStore(signals.Thresholds{})
	filter.Replace(testSignals())

	api := &whitelistAPI{added: make(chan string, 2)}
	a := NewApp(nil, nil, filter, "https://polymarket.com")
	defer a.Stop()
	a.SetDispatcher(dispatch.New(nil, api, nopRefresher{}, nil, nopNotifier{}))
	renderSignals(a, filter, store.Whitelist{whaleTwo})
	a.signals.table.Select(2, 0)

	row, ok := a.signals.SelectedRow()
	if !ok || row.MarketID != "m2" {
		t.Fatalf("expected m2 selected, got %q (ok=%v)", row.MarketID, ok)
	}
	picker := a.showSignalDetails(row)

	if got := picker.table.GetCell(2, 0).Text; got != whaleThree {
		t.Errorf("expected the full second address, got %q", got)
	}
	if got := picker.table.GetCell(1, 3).Text; got == "" {
		t.Error("expected the already whitelisted whale to be marked")
	}

	expectCopied := func(want string) {
		t.Helper()
		select {
		case got := <-api.added:
			if got != want {
				t.Errorf("expected %s to be copied, got %s", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s to be copied", want)
		}
	}

	picker.table.Select(2, 0)
	press(picker.table, tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	expectCopied(whaleThree)

	picker.table.Select(1, 0)
	press(picker.table, tcell.NewEventKey(tcell.KeyRune, 'c', tcell.ModNone))
	expectCopied(whaleTwo)

	if len(a.dialogs) != 1 {
		t.Fatalf("expected the details to stay open after copying, got %d dialogs", len(a.dialogs))
	}
	press(picker.table, tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))
	if len(a.dialogs) != 0 {
		t.Errorf("expected Escape to close the details, got %d dialogs", len(a.dialogs))
	}
}

func TestDialogStackRestoresFocus(t *testing.T) {
	a := NewApp(nil, nil, signals.NewStore(signals.Thresholds{}), "")
	defer a.Stop()

	lower := tview.NewBox()
	upper := tview.NewBox()
	closeLower := a.openDialog(lower)
	closeUpper := a.openDialog(upper)

	closeUpper()
	if a.app.GetFocus() != lower {
		t.Error("expected focus to return to the lower dialog")
	}
	closeUpper()
	if len(a.dialogs) != 1 {
		t.Errorf("expected a second close to be a no-op, got %d dialogs", len(a.dialogs))
	}

	closeLower()
	if a.app.GetFocus() != a.signals.Widget() {
		t.Error("expected focus to return to the signals table")
	}
}
