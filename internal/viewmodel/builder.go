// Package viewmodel turns a fetched snapshot into render-ready structures.
//
// Everything here is a pure function of its inputs. Missing optional data
// degrades to empty lists and zero values field by field; nothing in a build
// can fail.
package viewmodel

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/whalewatch/dashboard/internal/settings"
	"github.com/whalewatch/dashboard/internal/signals"
	"github.com/whalewatch/dashboard/internal/store"
)

// TopN is the length of the ranked and recency lists.
const TopN = 10

var hundred = decimal.NewFromInt(100)

// Options carry the presentation settings that do not come from the bot.
type Options struct {
	// ReferenceCapital is the percent-of-capital denominator; zero means the balance
	ReferenceCapital decimal.Decimal
	// MarketURLBase prefixes market and event links
	MarketURLBase string
}

// Input is everything one build consumes.
type Input struct {
	Whales        store.Whales
	History       store.History
	Config        store.BotConfig
	Opportunities store.Opportunities
	Whitelist     store.Whitelist

	// Signals is the filtered view; TotalSignals counts the unfiltered list
	Signals      []store.Signal
	TotalSignals int
	Thresholds   signals.Thresholds

	FetchedAt time.Time
}

// RenderModel is one complete render pass.
type RenderModel struct {
	Stats         Stats
	Mode          ModeView
	TopWhales     []WhaleRow
	Followed      []FollowedRow
	RecentTrades  []TradeRow
	Opportunities []Widget
	Whitelist     WhitelistView
	Signals       SignalsView
	Settings      settings.Draft
	FetchedAt     time.Time
}

// Stats are the derived scalars of the header.
type Stats struct {
	TotalWhales     int
	OpenPositions   int
	Balance         decimal.Decimal
	PercentPerTrade decimal.Decimal
}

// BalanceText formats the balance.
func (s Stats) BalanceText() string {
	return Cents(s.Balance)
}

// PercentPerTradeText formats the percent of capital risked per trade.
func (s Stats) PercentPerTradeText() string {
	return s.PercentPerTrade.StringFixed(1) + "%"
}

type WhaleRow struct {
	Rank    int
	Address string
	Score   string
	Volume  string
	Tags    []string
}

type FollowedRow struct {
	Address       string
	Score         string
	Volume        string
	OpenPositions int
}

type TradeRow struct {
	Time    string
	Market  string
	Outcome string
	Amount  string
	Whale   string
	Status  string
}

// Build projects one snapshot into a RenderModel.
func Build(in Input, opts Options) *RenderModel {
	return &RenderModel{
		Stats:         BuildStats(in.Whales, in.History, in.Config, opts.ReferenceCapital),
		Mode:          ProjectMode(in.Config.Mode()),
		TopWhales:     whaleRows(RankWhales(in.Whales, TopN)),
		Followed:      FollowedTraders(in.Whales, in.History.Positions),
		RecentTrades:  tradeRows(RecentPositions(in.History.Positions, TopN)),
		Opportunities: OpportunityWidgets(in.Opportunities, opts.MarketURLBase),
		Whitelist:     BuildWhitelist(in.Whitelist),
		Signals:       BuildSignals(in.Signals, in.TotalSignals, in.Thresholds, opts.MarketURLBase),
		Settings:      settings.FromConfig(in.Config),
		FetchedAt:     in.FetchedAt,
	}
}

// InputFromSnapshot assembles a build input from a snapshot and the current
// filtered signal view.
func InputFromSnapshot(snap *store.Snapshot, filtered []store.Signal, th signals.Thresholds) Input {
	return Input{
		Whales:        snap.Whales,
		History:       snap.History,
		Config:        snap.Config,
		Opportunities: snap.Opportunities,
		Whitelist:     snap.Whitelist,
		Signals:       filtered,
		TotalSignals:  len(snap.Signals),
		Thresholds:    th,
		FetchedAt:     snap.FetchedAt,
	}
}

// RankWhales returns the n highest scored whales. A missing score ranks as
// zero and equal scores keep their input order.
func RankWhales(whales store.Whales, n int) []store.WhaleRecord {
	ranked := make([]store.WhaleRecord, len(whales))
	copy(ranked, whales)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ScoreOrZero().GreaterThan(ranked[j].ScoreOrZero())
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func whaleRows(ranked []store.WhaleRecord) []WhaleRow {
	rows := make([]WhaleRow, 0, len(ranked))
	for i, w := range ranked {
		rows = append(rows, WhaleRow{
			Rank:    i + 1,
			Address: w.Address,
			Score:   scoreText(w.Score),
			Volume:  Dollars(w.DisplayVolume()),
			Tags:    w.Tags,
		})
	}
	return rows
}

// OpenCounts counts OPEN positions per whale address.
func OpenCounts(positions store.Positions) map[string]int {
	counts := make(map[string]int)
	for _, p := range positions {
		if p.IsOpen() {
			counts[p.Whale]++
		}
	}
	return counts
}

// FollowedTraders lists the whales with at least one OPEN position, in whale
// order. Positions of addresses missing from the whales mapping are ignored.
func FollowedTraders(whales store.Whales, positions store.Positions) []FollowedRow {
	counts := OpenCounts(positions)
	rows := []FollowedRow{}
	for _, w := range whales {
		n := counts[w.Address]
		if n == 0 {
			continue
		}
		rows = append(rows, FollowedRow{
			Address:       w.Address,
			Score:         scoreText(w.Score),
			Volume:        Dollars(w.DisplayVolume()),
			OpenPositions: n,
		})
	}
	return rows
}

// RecentPositions returns the n newest positions. Positions without a
// parseable timestamp sort last.
func RecentPositions(positions store.Positions, n int) []store.Position {
	recent := make([]store.Position, len(positions))
	copy(recent, positions)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Timestamp.Time.After(recent[j].Timestamp.Time)
	})
	if len(recent) > n {
		recent = recent[:n]
	}
	return recent
}

func tradeRows(positions []store.Position) []TradeRow {
	rows := make([]TradeRow, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, TradeRow{
			Time:    clockText(p.Timestamp),
			Market:  Truncate(p.MarketID, 8),
			Outcome: p.Outcome,
			Amount:  Cents(p.AmountInvested),
			Whale:   Truncate(p.Whale, 8),
			Status:  p.Status,
		})
	}
	return rows
}

// BuildStats derives the header scalars. The percent-of-capital denominator
// is the reference capital when positive, otherwise the balance; a zero
// denominator yields zero.
func BuildStats(whales store.Whales, history store.History, cfg store.BotConfig, reference decimal.Decimal) Stats {
	open := 0
	for _, p := range history.Positions {
		if p.IsOpen() {
			open++
		}
	}

	capital := history.Balance
	if reference.IsPositive() {
		capital = reference
	}
	percent := decimal.Zero
	if capital.IsPositive() {
		percent = cfg.MaxPositionSize.Div(capital).Mul(hundred)
	}

	return Stats{
		TotalWhales:     len(whales),
		OpenPositions:   open,
		Balance:         history.Balance,
		PercentPerTrade: percent,
	}
}
