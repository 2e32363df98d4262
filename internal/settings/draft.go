// Package settings converts between the bot configuration and the editable
// settings form. Percentages are fractions on the wire and whole-number
// percentages in the form; the factor is exactly 100 both ways.
package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/whalewatch/dashboard/internal/store"
)

// ErrInvalid is matched by every FieldError.
var ErrInvalid = errors.New("invalid settings")

var hundred = decimal.NewFromInt(100)

// FieldError names the form field that failed to parse.
type FieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrInvalid
}

// Form field names, matching the JSON keys they end up in.
const (
	FieldMaxPositionSize = "max_position_size"
	FieldStopLoss        = "stop_loss"
	FieldTakeProfit      = "take_profit"
	FieldMaxPositions    = "max_positions"
	FieldMaxTraders      = "max_traders"
	FieldMinWhaleScore   = "min_whale_score"
	FieldScanInterval    = "scan_interval"
)

// Draft is the locally edited settings form. Values are kept as typed text
// until saved.
type Draft struct {
	MaxPositionSize string
	StopLoss        string // percent, 0–100
	TakeProfit      string // percent, 0–100
	MaxPositions    string
	MaxTraders      string
	MinWhaleScore   string
	ScanInterval    string
	AutoCopySells   bool
}

// FromConfig projects the bot configuration into form values.
func FromConfig(cfg store.BotConfig) Draft {
	return Draft{
		MaxPositionSize: cfg.MaxPositionSize.String(),
		StopLoss:        PercentText(cfg.StopLoss),
		TakeProfit:      PercentText(cfg.TakeProfit),
		MaxPositions:    strconv.Itoa(cfg.MaxPositions),
		MaxTraders:      strconv.Itoa(cfg.MaxTraders),
		MinWhaleScore:   strconv.Itoa(cfg.MinWhaleScore),
		ScanInterval:    strconv.Itoa(cfg.ScanInterval),
		AutoCopySells:   cfg.AutoCopySells,
	}
}

// PercentText renders a fraction as a whole-number percentage.
func PercentText(fraction decimal.Decimal) string {
	return fraction.Mul(hundred).Round(0).String()
}

// FractionFromPercent converts a percentage to a fraction without rounding.
func FractionFromPercent(percent decimal.Decimal) decimal.Decimal {
	return percent.Div(hundred)
}

// Parse validates every field and builds the full settings object. Nothing
// is returned unless all fields are valid.
func (d Draft) Parse() (store.Settings, error) {
	maxSize, err := parseDecimal(FieldMaxPositionSize, d.MaxPositionSize)
	if err != nil {
		return store.Settings{}, err
	}
	stopLoss, err := parsePercent(FieldStopLoss, d.StopLoss)
	if err != nil {
		return store.Settings{}, err
	}
	takeProfit, err := parsePercent(FieldTakeProfit, d.TakeProfit)
	if err != nil {
		return store.Settings{}, err
	}

	ints := []struct {
		field string
		value string
		dest  *int
	}{
		{FieldMaxPositions, d.MaxPositions, new(int)},
		{FieldMaxTraders, d.MaxTraders, new(int)},
		{FieldMinWhaleScore, d.MinWhaleScore, new(int)},
		{FieldScanInterval, d.ScanInterval, new(int)},
	}
	for _, f := range ints {
		n, err := parseCount(f.field, f.value)
		if err != nil {
			return store.Settings{}, err
		}
		*f.dest = n
	}

	return store.Settings{
		MaxPositionSize: maxSize.InexactFloat64(),
		StopLoss:        stopLoss.InexactFloat64(),
		TakeProfit:      takeProfit.InexactFloat64(),
		MaxPositions:    *ints[0].dest,
		MaxTraders:      *ints[1].dest,
		MinWhaleScore:   *ints[2].dest,
		ScanInterval:    *ints[3].dest,
		AutoCopySells:   d.AutoCopySells,
	}, nil
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	v := strings.TrimSpace(value)
	parsed, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, &FieldError{Field: field, Value: value, Reason: "not a number"}
	}
	if parsed.IsNegative() {
		return decimal.Zero, &FieldError{Field: field, Value: value, Reason: "must not be negative"}
	}
	return parsed, nil
}

func parsePercent(field, value string) (decimal.Decimal, error) {
	percent, err := parseDecimal(field, value)
	if err != nil {
		return decimal.Zero, err
	}
	if percent.GreaterThan(hundred) {
		return decimal.Zero, &FieldError{Field: field, Value: value, Reason: "must be between 0 and 100"}
	}
	return FractionFromPercent(percent), nil
}

func parseCount(field, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, &FieldError{Field: field, Value: value, Reason: "not a whole number"}
	}
	if n < 0 {
		return 0, &FieldError{Field: field, Value: value, Reason: "must not be negative"}
	}
	return n, nil
}
