package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/whalewatch/dashboard/internal/settings"
	"github.com/whalewatch/dashboard/internal/signals"
)

// Action names a user command.
type Action string

const (
	ActionAddWhitelist     Action = "add_whitelist"
	ActionRemoveWhitelist  Action = "remove_whitelist"
	ActionCopyWhale        Action = "copy_whale"
	ActionSaveSettings     Action = "save_settings"
	ActionToggleMode       Action = "toggle_mode"
	ActionSaveSignalConfig Action = "save_signal_config"
	ActionRefresh          Action = "refresh"
)

// ErrUnknownAction is returned by Dispatch for unregistered actions.
var ErrUnknownAction = errors.New("unknown action")

// Args carries the inputs of every action; each handler reads its own fields.
type Args struct {
	Address    string
	Draft      settings.Draft
	Thresholds signals.Thresholds
}

// Handler runs one action.
type Handler func(ctx context.Context, args Args) error

func (d *Dispatcher) actionTable() map[Action]Handler {
	return map[Action]Handler{
		ActionAddWhitelist: func(ctx context.Context, a Args) error {
			return d.AddToWhitelist(ctx, a.Address)
		},
		ActionRemoveWhitelist: func(ctx context.Context, a Args) error {
			return d.RemoveFromWhitelist(ctx, a.Address)
		},
		ActionCopyWhale: func(ctx context.Context, a Args) error {
			return d.CopyWhaleFromSignal(ctx, a.Address)
		},
		ActionSaveSettings: func(ctx context.Context, a Args) error {
			return d.SaveSettings(ctx, a.Draft)
		},
		ActionToggleMode: func(ctx context.Context, _ Args) error {
			return d.ToggleTradingMode(ctx)
		},
		ActionSaveSignalConfig: func(ctx context.Context, a Args) error {
			return d.SaveSignalConfig(ctx, a.Thresholds)
		},
		ActionRefresh: func(ctx context.Context, _ Args) error {
			return d.Refresh(ctx)
		},
	}
}

// Dispatch runs the handler registered for action.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action, args Args) error {
	h, ok := d.handlers[action]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return h(ctx, args)
}

// Actions lists the registered actions.
func (d *Dispatcher) Actions() []Action {
	out := make([]Action, 0, len(d.handlers))
	for a := range d.handlers {
		out = append(out, a)
	}
	return out
}
