package viewmodel

import (
	"fmt"
	"strings"

	"github.com/whalewatch/dashboard/internal/signals"
	"github.com/whalewatch/dashboard/internal/store"
)

// Widget keys, in display order.
const (
	WidgetTrending  = "trending"
	WidgetMovements = "price_movements"
	WidgetKeywords  = "keywords"
	WidgetNews      = "news"
	WidgetReddit    = "reddit"
	WidgetEvents    = "events"
	WidgetSentiment = "sentiment"
	WidgetVideos    = "videos"
)

// Widget is one opportunity sub-list. Rows is empty and Empty holds the
// fallback message when the source list was absent or empty.
type Widget struct {
	Key   string
	Title string
	Rows  []WidgetRow
	Empty string
}

// IsEmpty reports whether the widget shows its fallback message.
func (w Widget) IsEmpty() bool {
	return len(w.Rows) == 0
}

type WidgetRow struct {
	Primary   string
	Secondary string
	Link      string
}

// OpportunityWidgets builds the eight widgets independently of each other.
func OpportunityWidgets(o store.Opportunities, base string) []Widget {
	return []Widget{
		widget(WidgetTrending, "🔥 Trending Markets", "No trending markets", o.Trending, func(m store.TrendingMarket) WidgetRow {
			return WidgetRow{
				Primary:   m.Question,
				Secondary: "Volume: " + Dollars(m.Volume),
				Link:      joinURL(base, "/event/"+m.Slug),
			}
		}),
		widget(WidgetMovements, "📈 Price Movements", "No significant movements", o.PriceMovements, func(m store.PriceMovement) WidgetRow {
			return WidgetRow{
				Primary:   Truncate(m.MarketID, 10),
				Secondary: strings.TrimSpace(fmt.Sprintf("%s %s %s", m.Direction, m.Change, clockOrEmpty(m.DetectedAt))),
			}
		}),
		widget(WidgetKeywords, "🔑 Keyword Alerts", "No keyword alerts", o.Keywords, func(k store.KeywordAlert) WidgetRow {
			return WidgetRow{
				Primary:   fmt.Sprintf("[%s] %s", k.Category, k.Question),
				Secondary: fmt.Sprintf("%s • Volume: %s", k.Keyword, Dollars(k.Volume)),
			}
		}),
		widget(WidgetNews, "📰 News", "No recent news", o.News, func(n store.NewsItem) WidgetRow {
			return WidgetRow{
				Primary:   n.Title,
				Secondary: joinParts(n.Source.String(), dateTimeText(n.PublishedAt)),
				Link:      n.URL,
			}
		}),
		widget(WidgetReddit, "💬 Reddit", "No Reddit threads", o.Reddit, func(r store.RedditThread) WidgetRow {
			return WidgetRow{
				Primary:   r.Title,
				Secondary: joinParts(r.Source.String(), r.Score.String()+" ⬆", r.Comments.String()+" 💬"),
				Link:      r.URL,
			}
		}),
		widget(WidgetEvents, "📅 Upcoming Events", "No upcoming events", o.Events, func(e store.Event) WidgetRow {
			return WidgetRow{
				Primary:   joinParts(e.Date.String(), e.Title),
				Secondary: Truncate(e.Description.String(), 100),
				Link:      e.URL,
			}
		}),
		widget(WidgetSentiment, "🌡 Sentiment", "No sentiment data", o.Sentiment, func(s store.SentimentEntry) WidgetRow {
			return WidgetRow{
				Primary:   strings.TrimSpace(s.Symbol + " " + s.Name),
				Secondary: joinParts("Galaxy Score: "+scoreText(s.GalaxyScore), s.Sentiment.String()),
				Link:      s.URL,
			}
		}),
		widget(WidgetVideos, "🎬 Videos", "No recent videos", o.Videos, func(v store.Video) WidgetRow {
			return WidgetRow{
				Primary:   v.Title,
				Secondary: joinParts(textOr(v.Channel, ""), v.Published.String()),
				Link:      v.Link,
			}
		}),
	}
}

func widget[T any](key, title, empty string, items []T, row func(T) WidgetRow) Widget {
	w := Widget{Key: key, Title: title, Empty: empty, Rows: make([]WidgetRow, 0, len(items))}
	for _, item := range items {
		w.Rows = append(w.Rows, row(item))
	}
	return w
}

func clockOrEmpty(ts store.Timestamp) string {
	if ts.IsZero() && ts.Raw == "" {
		return ""
	}
	return clockText(ts)
}

// joinParts joins the non-empty parts with a bullet.
func joinParts(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " • ")
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

// WhitelistView is the whitelist panel.
type WhitelistView struct {
	Addresses []string
	Empty     string
}

// BuildWhitelist copies the addresses so the panel owns them.
func BuildWhitelist(list store.Whitelist) WhitelistView {
	addrs := make([]string, len(list))
	copy(addrs, list)
	return WhitelistView{Addresses: addrs, Empty: "No whitelisted wallets"}
}

// SignalsView is the filtered signals panel.
type SignalsView struct {
	Rows       []SignalRow
	Total      int
	Thresholds signals.Thresholds
	Empty      string
}

// Title names the panel with its thresholds and counts.
func (v SignalsView) Title() string {
	return fmt.Sprintf(" 🎯 Signals (whales ≥ %d, sources ≥ %d) %d/%d ",
		v.Thresholds.MinWhales, v.Thresholds.MinSources, len(v.Rows), v.Total)
}

// SignalRow is one rendered signal. Signal is the record the row was built
// from, so actions on a row never depend on a later filter state.
type SignalRow struct {
	Signal store.Signal

	MarketID   string
	Question   string
	Whales     int
	Sources    int
	Confidence string
	FirstWhale string
	SourceList string
	MarketURL  string
	DetectedAt string
}

// BuildSignals projects an already filtered signal list.
func BuildSignals(filtered []store.Signal, total int, th signals.Thresholds, base string) SignalsView {
	rows := make([]SignalRow, 0, len(filtered))
	for _, s := range filtered {
		rows = append(rows, SignalRow{
			Signal:     s,
			MarketID:   s.MarketID,
			Question:   s.MarketQuestion,
			Whales:     s.NbWhales,
			Sources:    s.NbSources,
			Confidence: s.ConfidenceScore.StringFixed(1),
			FirstWhale: s.FirstWhale(),
			SourceList: strings.Join(s.Sources, ", "),
			MarketURL:  MarketURL(base, s.MarketID),
			DetectedAt: dateTimeText(s.DetectedAt),
		})
	}
	return SignalsView{
		Rows:       rows,
		Total:      total,
		Thresholds: th,
		Empty:      "No signals match the current filters",
	}
}

// MarketURL links to a market by id.
func MarketURL(base, marketID string) string {
	return joinURL(base, "/markets?_c="+marketID)
}
