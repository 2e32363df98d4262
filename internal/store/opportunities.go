package store

import (
	"github.com/shopspring/decimal"
)

// Opportunities is the bundle served by /api/opportunities. Every list is
// independently optional.
type Opportunities struct {
	Trending       []TrendingMarket `json:"trending"`
	PriceMovements []PriceMovement  `json:"price_movements"`
	Keywords       []KeywordAlert   `json:"keywords"`
	News           []NewsItem       `json:"news"`
	Reddit         []RedditThread   `json:"reddit"`
	Events         []Event          `json:"events"`
	Sentiment      []SentimentEntry `json:"sentiment"`
	Videos         []Video          `json:"videos"`
	LastUpdate     Timestamp        `json:"last_update"`
}

type TrendingMarket struct {
	Question string          `json:"question"`
	Volume   decimal.Decimal `json:"volume"`
	Slug     string          `json:"slug"`
}

type PriceMovement struct {
	MarketID   string    `json:"market_id"`
	Direction  Text      `json:"direction"`
	Change     Text      `json:"change"`
	DetectedAt Timestamp `json:"detected_at"`
}

type KeywordAlert struct {
	Category string          `json:"category"`
	Keyword  string          `json:"keyword"`
	Question string          `json:"question"`
	MarketID string          `json:"market_id"`
	Volume   decimal.Decimal `json:"volume"`
}

type NewsItem struct {
	Source      Text      `json:"source"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt Timestamp `json:"published_at"`
}

type RedditThread struct {
	Source   Text            `json:"source"`
	Title    string          `json:"title"`
	URL      string          `json:"url"`
	Score    decimal.Decimal `json:"score"`
	Comments decimal.Decimal `json:"comments"`
}

type Event struct {
	Title       string `json:"title"`
	Description Text   `json:"description"`
	URL         string `json:"url"`
	Date        Text   `json:"date"`
}

type SentimentEntry struct {
	Symbol      string              `json:"symbol"`
	Name        string              `json:"name"`
	GalaxyScore decimal.NullDecimal `json:"galaxy_score"`
	Sentiment   Text                `json:"sentiment"`
	URL         string              `json:"url"`
}

type Video struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Channel   Text   `json:"channel"`
	Published Text   `json:"published"`
}
