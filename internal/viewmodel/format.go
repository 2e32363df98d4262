package viewmodel

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/whalewatch/dashboard/internal/store"
)

// Placeholder is shown for absent values.
const Placeholder = "-"

// Dollars formats a value rounded to whole dollars with thousands separators.
func Dollars(v decimal.Decimal) string {
	n := v.Round(0).IntPart()
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	return sign + "$" + groupThousands(strconv.FormatInt(n, 10))
}

// Cents formats a value with two decimals.
func Cents(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Truncate cuts s to n runes and appends "..." when it was longer.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func scoreText(score decimal.NullDecimal) string {
	if !score.Valid {
		return Placeholder
	}
	return score.Decimal.String()
}

func clockText(ts store.Timestamp) string {
	if ts.IsZero() {
		if ts.Raw != "" {
			return ts.Raw
		}
		return Placeholder
	}
	return ts.Time.Local().Format("15:04:05")
}

func dateTimeText(ts store.Timestamp) string {
	if ts.IsZero() {
		return ts.Raw
	}
	return ts.Time.Local().Format(time.DateTime)
}

func textOr(t store.Text, fallback string) string {
	if t == "" {
		return fallback
	}
	return t.String()
}
