package digest

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"feedbackapi/internal/domain"
	"feedbackapi/internal/storage/sqlite"
)

const (
	topThemeCount   = 3
	topUrgentCount  = 5
	digestItemLimit = 100

	NoDigestMessage = "No digest available yet. First digest will be generated tomorrow at 9 AM UTC."
)

// Generate builds the digest for the day containing now and stores it,
// replacing any earlier digest for that date.
func Generate(ctx context.Context, db *sql.DB, now time.Time) (domain.Digest, error) {
	themes, err := sqlite.TopThemes(ctx, db, topThemeCount)
	if err != nil {
		return domain.Digest{}, fmt.Errorf("top themes: %w", err)
	}
	urgent, err := sqlite.TopUrgent(ctx, db, topUrgentCount)
	if err != nil {
		return domain.Digest{}, fmt.Errorf("urgent items: %w", err)
	}
	total, err := sqlite.CountFeedback(ctx, db)
	if err != nil {
		return domain.Digest{}, fmt.Errorf("total feedback: %w", err)
	}

	items := make([]domain.DigestItem, 0, len(urgent))
	for _, f := range urgent {
		items = append(items, domain.DigestItem{
			ID:      f.ID,
			Content: truncate(f.Content, digestItemLimit),
			Theme:   f.Theme,
			Urgency: f.Urgency,
		})
	}

	d := domain.Digest{
		Date:          now.Format("2006-01-02"),
		TopThemes:     themes,
		UrgentItems:   items,
		TotalFeedback: total,
		CreatedAt:     now.UTC(),
	}
	if err := sqlite.UpsertDigest(ctx, db, d); err != nil {
		return domain.Digest{}, fmt.Errorf("saving digest: %w", err)
	}
	log.Printf("digest generated date=%s top_themes=%d urgent_items=%d total=%d", d.Date, len(themes), len(items), total)
	return d, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// FormatMessage renders d for a chat channel.
func FormatMessage(d domain.Digest, dashboardURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Daily Feedback Digest for %s*\n\n", d.Date)
	fmt.Fprintf(&b, "Total feedback: %d\n\n", d.TotalFeedback)

	b.WriteString("*Top themes:*\n")
	if len(d.TopThemes) == 0 {
		b.WriteString("• none yet\n")
	}
	for _, t := range d.TopThemes {
		fmt.Fprintf(&b, "• %s (%d)\n", t.Theme, t.Count)
	}

	b.WriteString("\n*Urgent items:*\n")
	if len(d.UrgentItems) == 0 {
		b.WriteString("• none\n")
	}
	for _, item := range d.UrgentItems {
		fmt.Fprintf(&b, "• #%d [%s, %d/5] %s\n", item.ID, themeOrGeneral(item.Theme), item.Urgency, item.Content)
	}
	if dashboardURL != "" {
		fmt.Fprintf(&b, "\nDashboard: %s\n", dashboardURL)
	}
	return b.String()
}

func themeOrGeneral(theme string) string {
	if theme == "" {
		return string(domain.ThemeGeneral)
	}
	return theme
}
