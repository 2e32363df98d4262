package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// setHeader writes a non-selectable header row.
func setHeader(table *tview.Table, headers ...string) {
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		table.SetCell(0, col, cell)
	}
}

// setEmpty shows a placeholder row under the header.
func setEmpty(table *tview.Table, text string) {
	cell := tview.NewTableCell(text).
		SetAlign(tview.AlignCenter).
		SetSelectable(false).
		SetExpansion(1)
	table.SetCell(1, 0, cell)
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// formatTimeAgo formats a time as "X ago".
func formatTimeAgo(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "never"
	}

	elapsed := now.Sub(t)

	if elapsed < time.Minute {
		return fmt.Sprintf("%.0fs ago", elapsed.Seconds())
	}
	if elapsed < time.Hour {
		return fmt.Sprintf("%.0fm ago", elapsed.Minutes())
	}
	if elapsed < 24*time.Hour {
		return fmt.Sprintf("%.0fh ago", elapsed.Hours())
	}
	return fmt.Sprintf("%.0fd ago", elapsed.Hours()/24)
}

// truncateAddress truncates a wallet address for display.
func truncateAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// textCell is a table cell for backend text, which must never be read as
// style tags.
func textCell(text string) *tview.TableCell {
	return tview.NewTableCell(tview.Escape(text))
}
