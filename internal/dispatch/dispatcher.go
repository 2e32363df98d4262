// Package dispatch runs the user commands that mutate bot state. Every
// command validates locally, calls one mutating endpoint, reports the outcome
// through a Notifier and then asks for a full refresh, whatever the outcome.
// Commands rejected locally or declined by the user send nothing and refresh
// nothing. Nothing is patched locally; the next snapshot is the source of
// truth.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/whalewatch/dashboard/internal/settings"
	"github.com/whalewatch/dashboard/internal/signals"
	"github.com/whalewatch/dashboard/internal/store"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrDeclined is returned when the user declines a confirmation.
	ErrDeclined = errors.New("declined by user")

	// ErrModeRejected is returned when the bot answers a toggle with a non-success status.
	ErrModeRejected = errors.New("mode change rejected")
)

// ValidationError is a local input error; no request was sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// API is the mutating side of the bot API plus the config read used by the
// mode toggle.
type API interface {
	AddToWhitelist(ctx context.Context, address string) error
	RemoveFromWhitelist(ctx context.Context, address string) error
	SaveSettings(ctx context.Context, s store.Settings) error
	Config(ctx context.Context) (store.BotConfig, error)
	ToggleMode(ctx context.Context, paper bool) (store.ToggleModeResult, error)
	SaveSignalThresholds(ctx context.Context, th store.SignalThresholds) error
}

// Refresher requests an immediate full snapshot cycle.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Prompt is a yes/no question shown before a destructive action.
type Prompt struct {
	Title        string
	Message      string
	ConfirmLabel string
}

// Confirmer asks the user. It blocks until answered and returns false when
// the user declines or ctx ends.
type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) bool
}

// Level grades a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Notice is a user-visible message.
type Notice struct {
	Level   Level
	Message string
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// Recorder counts mutation outcomes.
type Recorder interface {
	RecordMutation(action string, err error)
}

// Dispatcher executes commands against the bot API.
type Dispatcher struct {
	logger    *zap.Logger
	api       API
	refresher Refresher
	confirmer Confirmer
	notifier  Notifier
	recorder  Recorder
	handlers  map[Action]Handler
}

// New creates a dispatcher. A nil logger disables logging.
func New(logger *zap.Logger, api API, refresher Refresher, confirmer Confirmer, notifier Notifier) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		logger:    logger,
		api:       api,
		refresher: refresher,
		confirmer: confirmer,
		notifier:  notifier,
	}
	d.handlers = d.actionTable()
	return d
}

// SetRecorder attaches a mutation counter.
func (d *Dispatcher) SetRecorder(r Recorder) {
	d.recorder = r
}

// AddToWhitelist whitelists a trimmed, non-empty address.
func (d *Dispatcher) AddToWhitelist(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return d.reject(ActionAddWhitelist, &ValidationError{Field: "address", Reason: "enter a wallet address"})
	}

	if err := d.api.AddToWhitelist(ctx, address); err != nil {
		return d.fail(ctx, ActionAddWhitelist, "Failed to add to whitelist", err)
	}
	d.succeed(ctx, ActionAddWhitelist, Notice{}, zap.String("address", address))
	return nil
}

// RemoveFromWhitelist removes an address after confirmation. Removing an
// address that is not whitelisted is accepted.
func (d *Dispatcher) RemoveFromWhitelist(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return d.reject(ActionRemoveWhitelist, &ValidationError{Field: "address", Reason: "no wallet selected"})
	}

	confirmed := d.confirmer.Confirm(ctx, Prompt{
		Title:        "Remove from whitelist",
		Message:      fmt.Sprintf("Remove %s from the whitelist?", address),
		ConfirmLabel: "Remove",
	})
	if !confirmed {
		d.logger.Debug("whitelist_remove_declined", zap.String("address", address))
		return ErrDeclined
	}

	if err := d.api.RemoveFromWhitelist(ctx, address); err != nil {
		return d.fail(ctx, ActionRemoveWhitelist, "Failed to remove from whitelist", err)
	}
	d.succeed(ctx, ActionRemoveWhitelist, Notice{}, zap.String("address", address))
	return nil
}

// CopyWhaleFromSignal whitelists a whale listed in a signal.
func (d *Dispatcher) CopyWhaleFromSignal(ctx context.Context, address string) error {
	if strings.TrimSpace(address) == "" {
		return d.reject(ActionCopyWhale, &ValidationError{Field: "address", Reason: "invalid address"})
	}

	if err := d.api.AddToWhitelist(ctx, address); err != nil {
		return d.fail(ctx, ActionCopyWhale, "Failed to copy whale", err)
	}
	d.succeed(ctx, ActionCopyWhale, Notice{
		Level:   LevelSuccess,
		Message: fmt.Sprintf("✅ Whale %s... added to the whitelist", truncate(address, 10)),
	}, zap.String("address", address))
	return nil
}

// SaveSettings parses the whole form and persists it in one call.
func (d *Dispatcher) SaveSettings(ctx context.Context, draft settings.Draft) error {
	parsed, err := draft.Parse()
	if err != nil {
		var fe *settings.FieldError
		if errors.As(err, &fe) {
			return d.reject(ActionSaveSettings, &ValidationError{Field: fe.Field, Reason: fe.Reason})
		}
		return d.reject(ActionSaveSettings, &ValidationError{Field: "settings", Reason: err.Error()})
	}

	if err := d.api.SaveSettings(ctx, parsed); err != nil {
		return d.fail(ctx, ActionSaveSettings, "❌ Failed to save settings", err)
	}
	d.succeed(ctx, ActionSaveSettings, Notice{
		Level:   LevelWarning,
		Message: "✅ Settings saved. Restart the bot to apply the changes.",
	})
	return nil
}

const realTradingWarning = "⚠️ WARNING ⚠️\n\n" +
	"You are about to enable REAL TRADING.\n\n" +
	"The bot will use REAL FUNDS.\n\n" +
	"Make sure that:\n" +
	"1. Your wallet is configured\n" +
	"2. You understand the risks\n" +
	"3. You have tested in Paper Trading\n\n" +
	"Do you really want to continue?"

// ToggleTradingMode reads the current mode from the bot and flips it.
// Switching to real trading needs confirmation; declining sends nothing.
// The displayed mode only changes through the refresh after a success.
func (d *Dispatcher) ToggleTradingMode(ctx context.Context) error {
	cfg, err := d.api.Config(ctx)
	if err != nil {
		return d.fail(ctx, ActionToggleMode, "❌ Could not read the current mode", err)
	}

	current := cfg.Mode()
	target := store.ModeReal
	if !current.Paper() {
		target = store.ModePaper
	}

	if target == store.ModeReal {
		confirmed := d.confirmer.Confirm(ctx, Prompt{
			Title:        "Enable real trading",
			Message:      realTradingWarning,
			ConfirmLabel: "Enable real trading",
		})
		if !confirmed {
			d.logger.Info("mode_toggle_declined", zap.Stringer("current", current))
			return ErrDeclined
		}
	}

	result, err := d.api.ToggleMode(ctx, target.Paper())
	if err != nil {
		return d.fail(ctx, ActionToggleMode, "❌ Mode change failed", err)
	}
	if !result.Succeeded() {
		err := fmt.Errorf("%w: %s", ErrModeRejected, result.Message)
		return d.fail(ctx, ActionToggleMode, "❌ Error", err)
	}

	d.succeed(ctx, ActionToggleMode, Notice{Level: LevelSuccess, Message: "✅ " + result.Message},
		zap.Stringer("from", current), zap.Stringer("to", target))
	return nil
}

// SaveSignalConfig persists the filter thresholds.
func (d *Dispatcher) SaveSignalConfig(ctx context.Context, th signals.Thresholds) error {
	if th.MinWhales < 0 || th.MinSources < 0 {
		return d.reject(ActionSaveSignalConfig, &ValidationError{Field: "thresholds", Reason: "must not be negative"})
	}

	payload := store.SignalThresholds{MinWhales: th.MinWhales, MinSources: th.MinSources}
	if err := d.api.SaveSignalThresholds(ctx, payload); err != nil {
		return d.fail(ctx, ActionSaveSignalConfig, "❌ Failed to save thresholds", err)
	}
	d.succeed(ctx, ActionSaveSignalConfig, Notice{
		Level:   LevelSuccess,
		Message: "✅ Thresholds saved. Restart the scanner to apply.",
	}, zap.Int("min_whales", th.MinWhales), zap.Int("min_sources", th.MinSources))
	return nil
}

// Refresh forces a snapshot cycle.
func (d *Dispatcher) Refresh(ctx context.Context) error {
	d.refresher.Refresh(ctx)
	return nil
}

func (d *Dispatcher) reject(action Action, err *ValidationError) error {
	d.logger.Debug("mutation_invalid", zap.String("action", string(action)), zap.Error(err))
	d.notifier.Notify(Notice{Level: LevelError, Message: "❌ " + capitalize(err.Reason)})
	return err
}

// fail reports a request that reached the network. The bot may have applied
// part of it, so the view is refreshed all the same.
func (d *Dispatcher) fail(ctx context.Context, action Action, message string, err error) error {
	d.logger.Warn("mutation_failed", zap.String("action", string(action)), zap.Error(err))
	d.record(action, err)
	d.notifier.Notify(Notice{Level: LevelError, Message: fmt.Sprintf("%s: %v", message, err)})
	d.refresher.Refresh(ctx)
	return err
}

func (d *Dispatcher) succeed(ctx context.Context, action Action, n Notice, fields ...zap.Field) {
	d.logger.Info("mutation_succeeded", append([]zap.Field{zap.String("action", string(action))}, fields...)...)
	d.record(action, nil)
	if n.Message != "" {
		d.notifier.Notify(n)
	}
	d.refresher.Refresh(ctx)
}

func (d *Dispatcher) record(action Action, err error) {
	if d.recorder != nil {
		d.recorder.RecordMutation(string(action), err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
