package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/whalewatch/dashboard/internal/ingest"
	"github.com/whalewatch/dashboard/internal/settings"
	"github.com/whalewatch/dashboard/internal/signals"
	"github.com/whalewatch/dashboard/internal/store"
)

// fakeAPI records calls and returns canned answers.
type fakeAPI struct {
	mu        sync.Mutex
	calls     []string
	config    store.BotConfig
	toggle    store.ToggleModeResult
	err       error
	settings  store.Settings
	whitelist map[string]bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		toggle:    store.ToggleModeResult{Status: "success", Message: "Mode changed"},
		whitelist: make(map[string]bool),
	}
}

func (f *fakeAPI) call(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeAPI) AddToWhitelist(_ context.Context, address string) error {
	f.call("add " + address)
	if f.err == nil {
		f.whitelist[address] = true
	}
	return f.err
}

func (f *fakeAPI) RemoveFromWhitelist(_ context.Context, address string) error {
	f.call("remove " + address)
	if f.err == nil {
		delete(f.whitelist, address)
	}
	return f.err
}

func (f *fakeAPI) SaveSettings(_ context.Context, s store.Settings) error {
	f.call("save_settings")
	if f.err == nil {
		f.settings = s
	}
	return f.err
}

func (f *fakeAPI) Config(_ context.Context) (store.BotConfig, error) {
	f.call("config")
	return f.config, f.err
}

func (f *fakeAPI) ToggleMode(_ context.Context, paper bool) (store.ToggleModeResult, error) {
	f.call("toggle")
	if f.err == nil && f.toggle.Succeeded() {
		f.config.PaperTrading = paper
	}
	return f.toggle, f.err
}

func (f *fakeAPI) SaveSignalThresholds(_ context.Context, th store.SignalThresholds) error {
	f.call("save_signals")
	return f.err
}

type countingRefresher struct {
	mu sync.Mutex
	n  int
}

func (r *countingRefresher) Refresh(context.Context) {
	r.mu.Lock()
	r.n++
	r.mu.Unlock()
}

func (r *countingRefresher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

type scriptedConfirmer struct {
	answer  bool
	prompts []Prompt
}

func (c *scriptedConfirmer) Confirm(_ context.Context, p Prompt) bool {
	c.prompts = append(c.prompts, p)
	return c.answer
}

type collectingNotifier struct {
	notices []Notice
}

func (n *collectingNotifier) Notify(notice Notice) {
	n.notices = append(n.notices, notice)
}

func (n *collectingNotifier) last() Notice {
	if len(n.notices) == 0 {
		return Notice{}
	}
	return n.notices[len(n.notices)-1]
}

type harness struct {
	api       *fakeAPI
	refresher *countingRefresher
	confirmer *scriptedConfirmer
	notifier  *collectingNotifier
	d         *Dispatcher
}

func newHarness(confirm bool) *harness {
	h := &harness{
		api:       newFakeAPI(),
		refresher: &countingRefresher{},
		confirmer: &scriptedConfirmer{answer: confirm},
		notifier:  &collectingNotifier{},
	}
	h.d = New(nil, h.api, h.refresher, h.confirmer, h.notifier)
	return h
}

func TestAddToWhitelist(t *testing.T) {
	h := newHarness(true)

	if err := h.d.AddToWhitelist(context.Background(), "  0xabc  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.api.calls) != 1 || h.api.calls[0] != "add 0xabc" {
		t.Errorf("expected trimmed address to be sent, got %v", h.api.calls)
	}
	if h.refresher.count() != 1 {
		t.Errorf("expected one refresh, got %d", h.refresher.count())
	}
}

func TestAddToWhitelistEmpty(t *testing.T) {
	h := newHarness(true)

	err := h.d.AddToWhitelist(context.Background(), "   ")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(h.api.calls) != 0 || h.refresher.count() != 0 {
		t.Errorf("expected no network call or refresh, got %v / %d", h.api.calls, h.refresher.count())
	}
	if h.notifier.last().Level != LevelError {
		t.Errorf("expected an error notice, got %+v", h.notifier.last())
	}
}

func TestRemoveAbsentAddressRefreshesOnce(t *testing.T) {
	h := newHarness(true)

	if err := h.d.RemoveFromWhitelist(context.Background(), "0xnotthere"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.confirmer.prompts) != 1 || !strings.Contains(h.confirmer.prompts[0].Message, "0xnotthere") {
		t.Errorf("expected confirmation naming the address, got %+v", h.confirmer.prompts)
	}
	if h.refresher.count() != 1 {
		t.Errorf("expected exactly one refresh, got %d", h.refresher.count())
	}
}

func TestRemoveDeclined(t *testing.T) {
	h := newHarness(false)

	err := h.d.RemoveFromWhitelist(context.Background(), "0xabc")
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
	if len(h.api.calls) != 0 || h.refresher.count() != 0 {
		t.Errorf("expected no side effects, got %v / %d", h.api.calls, h.refresher.count())
	}
}

func TestMutationFailureStillRefreshes(t *testing.T) {
	h := newHarness(true)
	h.api.err = errors.New("connection refused")

	if err := h.d.AddToWhitelist(context.Background(), "0xabc"); err == nil {
		t.Fatal("expected error")
	}
	if h.refresher.count() != 1 {
		t.Errorf("expected exactly one refresh after a failed request, got %d", h.refresher.count())
	}
	n := h.notifier.last()
	if n.Level != LevelError || !strings.Contains(n.Message, "connection refused") {
		t.Errorf("unexpected notice: %+v", n)
	}
}

func TestCopyWhaleFromSignal(t *testing.T) {
	h := newHarness(true)

	if err := h.d.CopyWhaleFromSignal(context.Background(), ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty address, got %v", err)
	}
	if !strings.Contains(h.notifier.last().Message, "Invalid address") {
		t.Errorf("unexpected notice: %+v", h.notifier.last())
	}

	if err := h.d.CopyWhaleFromSignal(context.Background(), "0x1234567890abcdef"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.api.whitelist["0x1234567890abcdef"] {
		t.Error("expected whale to be whitelisted")
	}
	if n := h.notifier.last(); n.Level != LevelSuccess || !strings.Contains(n.Message, "0x12345678...") {
		t.Errorf("unexpected notice: %+v", n)
	}
}

func TestSaveSettingsPercentRoundTrip(t *testing.T) {
	h := newHarness(true)
	draft := settings.Draft{
		MaxPositionSize: "10",
		StopLoss:        "15",
		TakeProfit:      "30",
		MaxPositions:    "5",
		MaxTraders:      "3",
		MinWhaleScore:   "60",
		ScanInterval:    "60",
	}

	if err := h.d.SaveSettings(context.Background(), draft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.api.settings.StopLoss != 0.15 {
		t.Errorf("expected 0.15 on the wire, got %v", h.api.settings.StopLoss)
	}

	redisplayed := settings.FromConfig(store.BotConfig{StopLoss: decimal.NewFromFloat(h.api.settings.StopLoss)})
	if redisplayed.StopLoss != "15" {
		t.Errorf("expected stop loss to redisplay as 15, got %q", redisplayed.StopLoss)
	}

	n := h.notifier.last()
	if n.Level != LevelWarning || !strings.Contains(n.Message, "Restart the bot") {
		t.Errorf("expected restart warning, got %+v", n)
	}
}

func TestSaveSettingsInvalid(t *testing.T) {
	h := newHarness(true)

	err := h.d.SaveSettings(context.Background(), settings.Draft{MaxPositionSize: "abc"})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != settings.FieldMaxPositionSize {
		t.Fatalf("expected validation error on max_position_size, got %v", err)
	}
	if len(h.api.calls) != 0 {
		t.Errorf("expected no network call, got %v", h.api.calls)
	}
}

func TestToggleToRealDeclined(t *testing.T) {
	h := newHarness(false)
	h.api.config = store.BotConfig{PaperTrading: true}

	err := h.d.ToggleTradingMode(context.Background())
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
	if len(h.api.calls) != 1 || h.api.calls[0] != "config" {
		t.Errorf("expected only the mode read, got %v", h.api.calls)
	}
	if !h.api.config.PaperTrading {
		t.Error("expected backend config to stay in paper mode")
	}
	if h.refresher.count() != 0 {
		t.Errorf("expected no refresh, got %d", h.refresher.count())
	}
}

func TestToggleToRealConfirmed(t *testing.T) {
	h := newHarness(true)
	h.api.config = store.BotConfig{PaperTrading: true}

	if err := h.d.ToggleTradingMode(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.api.config.PaperTrading {
		t.Error("expected backend to be in real mode")
	}
	if len(h.confirmer.prompts) != 1 || !strings.Contains(h.confirmer.prompts[0].Message, "REAL FUNDS") {
		t.Errorf("expected fund risk confirmation, got %+v", h.confirmer.prompts)
	}
	if h.refresher.count() != 1 {
		t.Errorf("expected one refresh, got %d", h.refresher.count())
	}
}

func TestToggleToPaperNeedsNoConfirmation(t *testing.T) {
	h := newHarness(false)
	h.api.config = store.BotConfig{PaperTrading: false}

	if err := h.d.ToggleTradingMode(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.confirmer.prompts) != 0 {
		t.Errorf("expected no confirmation, got %+v", h.confirmer.prompts)
	}
	if !h.api.config.PaperTrading {
		t.Error("expected backend to be in paper mode")
	}
}

func TestToggleRejectedByServer(t *testing.T) {
	h := newHarness(true)
	h.api.config = store.BotConfig{PaperTrading: false}
	h.api.toggle = store.ToggleModeResult{Status: "error", Message: "config locked"}

	err := h.d.ToggleTradingMode(context.Background())
	if !errors.Is(err, ErrModeRejected) {
		t.Fatalf("expected ErrModeRejected, got %v", err)
	}
	if h.refresher.count() != 1 {
		t.Errorf("expected one refresh after the rejected toggle, got %d", h.refresher.count())
	}
	if !strings.Contains(h.notifier.last().Message, "config locked") {
		t.Errorf("unexpected notice: %+v", h.notifier.last())
	}
}

func TestSaveSignalConfig(t *testing.T) {
	h := newHarness(true)

	if err := h.d.SaveSignalConfig(context.Background(), signals.Thresholds{MinWhales: 3, MinSources: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(h.notifier.last().Message, "Restart the scanner") {
		t.Errorf("unexpected notice: %+v", h.notifier.last())
	}
}

type countingRecorder struct {
	ok, failed int
}

func (r *countingRecorder) RecordMutation(_ string, err error) {
	if err != nil {
		r.failed++
		return
	}
	r.ok++
}

func TestDispatchTable(t *testing.T) {
	h := newHarness(true)
	rec := &countingRecorder{}
	h.d.SetRecorder(rec)
	ctx := context.Background()

	if err := h.d.Dispatch(ctx, ActionAddWhitelist, Args{Address: "0xabc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.d.Dispatch(ctx, ActionRefresh, Args{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.refresher.count() != 2 {
		t.Errorf("expected two refreshes, got %d", h.refresher.count())
	}
	if rec.ok != 1 {
		t.Errorf("expected one recorded mutation, got %d", rec.ok)
	}

	if err := h.d.Dispatch(ctx, Action("launch_rockets"), Args{}); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
	if len(h.d.Actions()) != 7 {
		t.Errorf("expected 7 registered actions, got %d", len(h.d.Actions()))
	}
}

func TestToggleDeclinedOverHTTP(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"paper_trading": true, "stop_loss": 0.15}`))
	}))
	defer server.Close()

	client := ingest.NewClient(nil, server.URL, 0)
	d := New(nil, client, &countingRefresher{}, &scriptedConfirmer{answer: false}, &collectingNotifier{})

	if err := d.ToggleTradingMode(context.Background()); !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != "GET "+ingest.PathConfig {
		t.Errorf("expected only the config read, got %v", seen)
	}
}
