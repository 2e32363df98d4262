// Package store provides the data models exchanged with the bot API.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Position statuses reported by the bot.
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// WhaleRecord is one tracked trading address.
type WhaleRecord struct {
	// Address is the wallet address (the key of the whales mapping)
	Address string

	// Score is optional; Valid is false when the bot has not scored the whale yet
	Score decimal.NullDecimal

	// TotalVolume is the lifetime traded volume in USD
	TotalVolume decimal.Decimal

	// Volume is sent by some bot versions instead of total_volume
	Volume decimal.NullDecimal

	Tags    []string
	Markets []string
}

// ScoreOrZero returns the score used for ranking.
func (w WhaleRecord) ScoreOrZero() decimal.Decimal {
	if !w.Score.Valid {
		return decimal.Zero
	}
	return w.Score.Decimal
}

// DisplayVolume prefers volume and falls back to total_volume.
func (w WhaleRecord) DisplayVolume() decimal.Decimal {
	if w.Volume.Valid {
		return w.Volume.Decimal
	}
	return w.TotalVolume
}

type whaleJSON struct {
	Score       decimal.NullDecimal `json:"score"`
	TotalVolume decimal.Decimal     `json:"total_volume"`
	Volume      decimal.NullDecimal `json:"volume"`
	Tags        []string            `json:"tags"`
	Markets     []string            `json:"markets"`
}

// Whales is the whales mapping in the key order the bot sent it.
type Whales []WhaleRecord

// UnmarshalJSON decodes an address→record object, keeping key order.
func (w *Whales) UnmarshalJSON(data []byte) error {
	out := Whales{}
	index := make(map[string]int)

	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var rec whaleJSON
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("whale %s: %w", key, err)
		}
		record := WhaleRecord{
			Address:     key,
			Score:       rec.Score,
			TotalVolume: rec.TotalVolume,
			Volume:      rec.Volume,
			Tags:        rec.Tags,
			Markets:     rec.Markets,
		}
		if i, dup := index[key]; dup {
			out[i] = record
			return nil
		}
		index[key] = len(out)
		out = append(out, record)
		return nil
	})
	if err != nil {
		return err
	}

	*w = out
	return nil
}

// Position is a copy-trade opened by the bot.
type Position struct {
	// ID is the key of the positions mapping
	ID string `json:"-"`

	// Whale is the copied address; it may not be present in the whales mapping
	Whale string `json:"whale"`

	MarketID       string          `json:"market_id"`
	Outcome        string          `json:"outcome"`
	EntryPrice     decimal.Decimal `json:"entry_price"`
	Shares         decimal.Decimal `json:"shares"`
	AmountInvested decimal.Decimal `json:"amount_invested"`
	Timestamp      Timestamp       `json:"timestamp"`
	Status         string          `json:"status"`
}

// IsOpen reports whether the position is still open.
func (p Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// Positions is the id→position mapping in the key order the bot sent it.
type Positions []Position

// UnmarshalJSON decodes an id→position object, keeping key order.
func (p *Positions) UnmarshalJSON(data []byte) error {
	out := Positions{}
	index := make(map[string]int)

	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var pos Position
		if err := json.Unmarshal(raw, &pos); err != nil {
			return fmt.Errorf("position %s: %w", key, err)
		}
		pos.ID = key
		if i, dup := index[key]; dup {
			out[i] = pos
			return nil
		}
		index[key] = len(out)
		out = append(out, pos)
		return nil
	})
	if err != nil {
		return err
	}

	*p = out
	return nil
}

// History is the trade history snapshot.
type History struct {
	Balance   decimal.Decimal `json:"balance"`
	Positions Positions       `json:"positions"`
}

// TradingMode is the execution mode of the bot.
type TradingMode int

const (
	ModePaper TradingMode = iota
	ModeReal
)

// ModeFromPaper maps the paper_trading flag to a mode.
func ModeFromPaper(paper bool) TradingMode {
	if paper {
		return ModePaper
	}
	return ModeReal
}

// Paper reports whether the mode is paper trading.
func (m TradingMode) Paper() bool {
	return m == ModePaper
}

func (m TradingMode) String() string {
	if m == ModePaper {
		return "PAPER"
	}
	return "REAL"
}

// BotConfig is the bot configuration as served by /api/config.
// Percentages (StopLoss, TakeProfit) are fractions in [0, 1].
type BotConfig struct {
	PaperTrading    bool            `json:"paper_trading"`
	MaxPositionSize decimal.Decimal `json:"max_position_size"`
	StopLoss        decimal.Decimal `json:"stop_loss"`
	TakeProfit      decimal.Decimal `json:"take_profit"`
	MaxPositions    int             `json:"max_positions"`
	MaxTraders      int             `json:"max_traders"`
	MinWhaleScore   int             `json:"min_whale_score"`
	ScanInterval    int             `json:"scan_interval"`
	AutoCopySells   bool            `json:"auto_copy_sells"`
}

// Mode returns the trading mode.
func (c BotConfig) Mode() TradingMode {
	return ModeFromPaper(c.PaperTrading)
}

// Settings is the full settings object persisted by /api/config/save.
type Settings struct {
	MaxPositionSize float64 `json:"max_position_size"`
	StopLoss        float64 `json:"stop_loss"`
	TakeProfit      float64 `json:"take_profit"`
	MaxPositions    int     `json:"max_positions"`
	MaxTraders      int     `json:"max_traders"`
	MinWhaleScore   int     `json:"min_whale_score"`
	ScanInterval    int     `json:"scan_interval"`
	AutoCopySells   bool    `json:"auto_copy_sells"`
}

// ToggleModeRequest is the body of /api/config/toggle-mode.
type ToggleModeRequest struct {
	PaperTrading bool `json:"paper_trading"`
}

// ToggleModeResult is the answer of /api/config/toggle-mode.
type ToggleModeResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Succeeded reports whether the bot accepted the mode change.
func (r ToggleModeResult) Succeeded() bool {
	return r.Status == "success"
}

// SignalThresholds is the body of /api/config/signals.
type SignalThresholds struct {
	MinWhales  int `json:"min_whales"`
	MinSources int `json:"min_sources"`
}

// WhitelistRequest is the body of the whitelist POST and DELETE calls.
type WhitelistRequest struct {
	Address string `json:"address"`
}

// Whitelist is the set of whitelisted addresses, in backend order.
type Whitelist []string

// Contains reports whether the address is whitelisted.
func (w Whitelist) Contains(address string) bool {
	for _, a := range w {
		if a == address {
			return true
		}
	}
	return false
}

// SignalWhale is one whale contributing to a signal.
type SignalWhale struct {
	Address string          `json:"address"`
	Score   decimal.Decimal `json:"score"`
	Volume  decimal.Decimal `json:"volume"`
}

// Signal is a backend-computed convergence of whales and sources on one market.
type Signal struct {
	MarketID        string          `json:"market_id"`
	MarketQuestion  string          `json:"market_question"`
	NbWhales        int             `json:"nb_whales"`
	NbSources       int             `json:"nb_sources"`
	ConfidenceScore decimal.Decimal `json:"confidence_score"`
	Whales          []SignalWhale   `json:"whales"`
	Sources         []string        `json:"sources"`
	DetectedAt      Timestamp       `json:"detected_at"`
}

// FirstWhale returns the address of the first listed whale, or "".
func (s Signal) FirstWhale() string {
	if len(s.Whales) == 0 {
		return ""
	}
	return s.Whales[0].Address
}

// Snapshot is one complete, consistent poll of every read endpoint.
type Snapshot struct {
	Whales        Whales
	History       History
	Config        BotConfig
	Opportunities Opportunities
	Whitelist     Whitelist
	Signals       []Signal
	FetchedAt     time.Time
}
