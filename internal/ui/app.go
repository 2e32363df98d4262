// Package ui provides terminal user interface components.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/whalewatch/dashboard/internal/dispatch"
	"github.com/whalewatch/dashboard/internal/engine"
	"github.com/whalewatch/dashboard/internal/settings"
	"github.com/whalewatch/dashboard/internal/signals"
	"github.com/whalewatch/dashboard/internal/store"
	"github.com/whalewatch/dashboard/internal/viewmodel"
)

const (
	pageDashboard     = "dashboard"
	pageOpportunities = "opportunities"
	pageSettings      = "settings"
)

var pageOrder = []string{pageDashboard, pageOpportunities, pageSettings}

var pageHelp = map[string]string{
	pageDashboard: "[yellow]q[-] quit  [yellow]r[-] refresh  [yellow]Tab[-] next page  [yellow]Shift-Tab[-] signals/whitelist  " +
		"[yellow]+/-[-] min whales  [yellow]" + tview.Escape("]/[") + "[-] min sources  [yellow]S[-] save thresholds  " +
		"[yellow]m[-] trading mode  [yellow]a/d[-] add/remove  [yellow]Enter[-] details",
	pageOpportunities: "[yellow]q[-] quit  [yellow]r[-] refresh  [yellow]Tab[-] next page  [yellow]Esc[-] dashboard",
	pageSettings:      "[yellow]Tab[-] next field  [yellow]Esc[-] dashboard  [yellow]Ctrl-C[-] quit",
}

// healthInterval is how often the engine status line is redrawn.
const healthInterval = time.Second

// App is the main TUI application.
type App struct {
	logger *zap.Logger
	app    *tview.Application
	pages  *tview.Pages
	footer *tview.TextView

	// Views
	stats         *StatsView
	topWhales     *TopWhalesView
	followed      *FollowedView
	trades        *TradesView
	signals       *SignalsView
	whitelist     *WhitelistView
	opportunities *OpportunitiesView
	settingsForm  *SettingsForm

	engine        *engine.Engine
	filter        *signals.Store
	dispatcher    *dispatch.Dispatcher
	marketURLBase string

	// UI goroutine state
	page        int
	focusOnList bool
	dialogSeq   int
	dialogs     []tview.Primitive
	whitelisted store.Whitelist

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI and subscribes it to engine updates.
func NewApp(logger *zap.Logger, eng *engine.Engine, filter *signals.Store, marketURLBase string) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		logger:        logger,
		app:           tview.NewApplication(),
		engine:        eng,
		filter:        filter,
		marketURLBase: marketURLBase,
		ctx:           ctx,
		cancel:        cancel,
	}

	a.stats = NewStatsView()
	a.topWhales = NewTopWhalesView()
	a.followed = NewFollowedView()
	a.trades = NewTradesView()
	a.signals = NewSignalsView()
	a.whitelist = NewWhitelistView()
	a.opportunities = NewOpportunitiesView()
	a.settingsForm = NewSettingsForm(func(d settings.Draft) {
		a.runThen(dispatch.ActionSaveSettings, dispatch.Args{Draft: d}, func() {
			a.settingsForm.MarkSaved(d)
		})
	})

	a.signals.table.SetSelectedFunc(func(row, _ int) {
		if selected, ok := a.signals.SelectedRow(); ok && row > 0 {
			a.showSignalDetails(selected)
		}
	})

	a.setupLayout()
	a.setupKeyboard()

	if eng != nil {
		if model := eng.Current(); model != nil {
			a.render(model)
		}
		eng.Subscribe(a.onModel)
	}
	return a
}

// SetDispatcher attaches the command dispatcher. Must be called before Run.
func (a *App) SetDispatcher(d *dispatch.Dispatcher) {
	a.dispatcher = d
}

// setupLayout builds the dashboard, opportunities and settings pages.
func (a *App) setupLayout() {
	middle := tview.NewFlex().
		AddItem(a.topWhales.Widget(), 0, 1, false).
		AddItem(a.followed.Widget(), 0, 1, false)

	lists := tview.NewFlex().
		AddItem(a.signals.Widget(), 0, 2, true).
		AddItem(a.whitelist.Widget(), 0, 1, false)

	dashboard := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.stats.Widget(), 5, 0, false).
		AddItem(middle, 0, 2, false).
		AddItem(lists, 0, 2, true).
		AddItem(a.trades.Widget(), 0, 2, false)

	a.pages = tview.NewPages().
		AddPage(pageDashboard, dashboard, true, true).
		AddPage(pageOpportunities, a.opportunities.Widget(), true, false).
		AddPage(pageSettings, centered(a.settingsForm.Widget(), 60, 22), true, false)

	a.footer = tview.NewTextView().SetDynamicColors(true)
	a.setFooter()

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.footer, 1, 0, false)

	a.app.SetRoot(root, true)
	a.app.SetFocus(a.signals.Widget())
}

// setupKeyboard configures keyboard shortcuts.
func (a *App) setupKeyboard() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			a.Stop()
			return nil
		}
		if len(a.dialogs) > 0 {
			return event
		}

		switch event.Key() {
		case tcell.KeyEscape:
			a.showPage(0)
			return nil
		case tcell.KeyBacktab:
			if a.currentPage() == pageDashboard {
				a.focusOnList = !a.focusOnList
				a.restoreFocus()
				return nil
			}
		case tcell.KeyTab:
			if a.currentPage() != pageSettings {
				a.showPage(a.page + 1)
				return nil
			}
		}

		// Text entry owns every other key.
		if _, typing := a.app.GetFocus().(*tview.InputField); typing || a.currentPage() == pageSettings {
			return event
		}
		if event.Key() != tcell.KeyRune {
			return event
		}
		return a.handleRune(event)
	})
}

func (a *App) handleRune(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'q', 'Q':
		a.Stop()
	case 'r', 'R':
		a.run(dispatch.ActionRefresh, dispatch.Args{})
	case '+', '=':
		a.adjustThresholds(1, 0)
	case '-', '_':
		a.adjustThresholds(-1, 0)
	case ']':
		a.adjustThresholds(0, 1)
	case '[':
		a.adjustThresholds(0, -1)
	case 'S':
		a.run(dispatch.ActionSaveSignalConfig, dispatch.Args{Thresholds: a.filter.Thresholds()})
	case 'm', 'M':
		a.run(dispatch.ActionToggleMode, dispatch.Args{})
	case 'a', 'A':
		a.showAddWhitelist()
	case 'd', 'D':
		if address, ok := a.whitelist.Selected(); ok {
			a.run(dispatch.ActionRemoveWhitelist, dispatch.Args{Address: address})
		}
	default:
		return event
	}
	return nil
}

// adjustThresholds moves the local signal thresholds and republishes the
// filtered view without fetching.
func (a *App) adjustThresholds(whales, sources int) {
	th := a.filter.Thresholds()
	th.MinWhales += whales
	th.MinSources += sources
	a.filter.SetThresholds(th)

	if a.engine != nil {
		// Refilter notifies sinks, which queue onto this goroutine.
		go a.engine.Refilter()
	}
}

func (a *App) currentPage() string {
	return pageOrder[a.page]
}

func (a *App) showPage(index int) {
	a.page = index % len(pageOrder)
	a.pages.SwitchToPage(a.currentPage())
	a.setFooter()
	a.restoreFocus()
}

func (a *App) setFooter() {
	a.footer.SetText(fmt.Sprintf(" [::b]%s[::-]  %s", a.currentPage(), pageHelp[a.currentPage()]))
}

// restoreFocus gives focus back to the active page after a dialog closes.
func (a *App) restoreFocus() {
	switch a.currentPage() {
	case pageOpportunities:
		a.app.SetFocus(a.opportunities.Widget())
	case pageSettings:
		a.app.SetFocus(a.settingsForm.Widget())
	default:
		if a.focusOnList {
			a.app.SetFocus(a.whitelist.Widget())
		} else {
			a.app.SetFocus(a.signals.Widget())
		}
	}
}

// run executes an action off the UI goroutine. The dispatcher reports
// outcomes through Notify.
func (a *App) run(action dispatch.Action, args dispatch.Args) {
	a.runThen(action, args, nil)
}

// runThen is run with a follow-up queued onto the UI goroutine once the
// action succeeds.
func (a *App) runThen(action dispatch.Action, args dispatch.Args, onSuccess func()) {
	if a.dispatcher == nil {
		a.logger.Warn("no_dispatcher", zap.String("action", string(action)))
		return
	}
	go func() {
		if err := a.dispatcher.Dispatch(a.ctx, action, args); err != nil {
			a.logger.Debug("action_failed", zap.String("action", string(action)), zap.Error(err))
			return
		}
		if onSuccess != nil && a.ctx.Err() == nil {
			a.app.QueueUpdateDraw(onSuccess)
		}
	}()
}

// onModel is the engine sink. It runs on the engine goroutine and waits for
// the UI goroutine, which keeps models in publish order.
func (a *App) onModel(model *viewmodel.RenderModel) {
	if a.ctx.Err() != nil {
		return
	}
	a.app.QueueUpdateDraw(func() {
		a.render(model)
	})
}

// render pushes a model into every view. UI goroutine only.
func (a *App) render(model *viewmodel.RenderModel) {
	a.stats.SetModel(model)
	a.topWhales.Update(model.TopWhales)
	a.followed.Update(model.Followed)
	a.trades.Update(model.RecentTrades)
	a.signals.Update(model.Signals)
	a.whitelist.Update(model.Whitelist)
	a.opportunities.Update(model.Opportunities)
	a.settingsForm.Load(model.Settings)
	a.whitelisted = store.Whitelist(model.Whitelist.Addresses)
}

// healthLoop refreshes the engine status line.
func (a *App) healthLoop() {
	if a.engine == nil {
		return
	}
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			snapshot := a.engine.Tracker().Snapshot()
			a.app.QueueUpdateDraw(func() {
				a.stats.SetHealth(snapshot)
			})
		}
	}
}

// Run starts the TUI application (blocking).
func (a *App) Run() error {
	go a.healthLoop()

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the application.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// Done is closed once the application has been stopped.
func (a *App) Done() <-chan struct{} {
	return a.ctx.Done()
}
