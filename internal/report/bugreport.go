package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"feedbackapi/internal/domain"
)

const (
	DefaultBugMinUrgency = 4
	DefaultBugLimit      = 10

	NoBugsMessage          = "No prioritized bugs found."
	NoBugsFormattedMessage = "No prioritized bugs to report at this time."

	bugContentLimit = 150
)

type ThemeGroup struct {
	Theme string
	Items []Feedback
}

type BugSummary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Bugs     int `json:"bugs"`
	Negative int `json:"negative"`
}

// BugReport is the engineering hand-off built from prioritized feedback.
// Groups are ordered by item count; items within a group by urgency.
type BugReport struct {
	Bugs             []Feedback
	Groups           []ThemeGroup
	Summary          BugSummary
	FormattedMessage string
}

func (r BugReport) Total() int {
	return len(r.Bugs)
}

func (r BugReport) Empty() bool {
	return len(r.Bugs) == 0
}

// ByTheme returns the groups keyed by theme name.
func (r BugReport) ByTheme() map[string][]Feedback {
	out := make(map[string][]Feedback, len(r.Groups))
	for _, g := range r.Groups {
		out[g.Theme] = g.Items
	}
	return out
}

// BuildBugReport groups bugs, which should already be ordered by urgency and
// recency, and renders the markdown message.
func BuildBugReport(bugs []Feedback, dashboardURL string, now time.Time) BugReport {
	if len(bugs) == 0 {
		return BugReport{Bugs: []Feedback{}, Groups: []ThemeGroup{}, FormattedMessage: NoBugsFormattedMessage}
	}
	if dashboardURL == "" {
		dashboardURL = defaultDashboardURL
	}

	r := BugReport{Bugs: bugs, Groups: groupByTheme(bugs)}
	for _, b := range bugs {
		switch {
		case b.Urgency >= domain.MaxUrgency:
			r.Summary.Critical++
		case b.Urgency == domain.UrgentThreshold:
			r.Summary.High++
		}
		if b.Type == "bug" {
			r.Summary.Bugs++
		}
		if b.Sentiment == string(domain.SentimentNegative) {
			r.Summary.Negative++
		}
	}
	r.FormattedMessage = renderBugReport(r, dashboardURL, now)
	return r
}

func groupByTheme(bugs []Feedback) []ThemeGroup {
	index := map[string]int{}
	var groups []ThemeGroup
	for _, b := range bugs {
		theme := string(b.ThemeOrGeneral())
		i, ok := index[theme]
		if !ok {
			i = len(groups)
			index[theme] = i
			groups = append(groups, ThemeGroup{Theme: theme})
		}
		groups[i].Items = append(groups[i].Items, b)
	}
	sort.SliceStable(groups, func(i, j int) bool { return len(groups[i].Items) > len(groups[j].Items) })
	for _, g := range groups {
		items := g.Items
		sort.SliceStable(items, func(i, j int) bool { return items[i].Urgency > items[j].Urgency })
	}
	return groups
}

func urgencyLabel(urgency int) string {
	switch {
	case urgency >= domain.MaxUrgency:
		return "🔴 CRITICAL"
	case urgency >= domain.UrgentThreshold:
		return "🟠 HIGH"
	default:
		return "🟡 MEDIUM"
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func renderBugReport(r BugReport, dashboardURL string, now time.Time) string {
	var b strings.Builder
	b.WriteString("🚨 **Prioritized Bug Report for Engineering Team**\n\n")
	b.WriteString("**Summary:**\n")
	fmt.Fprintf(&b, "• %d Critical issues (Urgency 5/5)\n", r.Summary.Critical)
	fmt.Fprintf(&b, "• %d High priority issues (Urgency 4/5)\n", r.Summary.High)
	fmt.Fprintf(&b, "• %d Confirmed bugs\n", r.Summary.Bugs)
	fmt.Fprintf(&b, "• Total items requiring attention: %d\n\n", len(r.Bugs))

	b.WriteString("**Breakdown by Product Theme:**\n\n")
	for _, g := range r.Groups {
		critical := 0
		for _, item := range g.Items {
			if item.Urgency >= domain.MaxUrgency {
				critical++
			}
		}
		fmt.Fprintf(&b, "**%s** (%d items, %d critical):\n", strings.ToUpper(g.Theme), len(g.Items), critical)
		for _, item := range g.Items {
			labels := []string{urgencyLabel(item.Urgency)}
			if item.Type == "bug" {
				labels = append(labels, "🐛 BUG")
			}
			if item.Sentiment == string(domain.SentimentNegative) {
				labels = append(labels, "😞 Negative")
			}
			fmt.Fprintf(&b, "\n%s\n", strings.Join(labels, " "))
			fmt.Fprintf(&b, "ID: #%d | Source: %s\n", item.ID, item.Source)
			fmt.Fprintf(&b, "\"%s\"\n", truncateRunes(item.Content, bugContentLimit))
			fmt.Fprintf(&b, "Created: %s\n", item.CreatedAt.Format("Jan 2, 2006"))
		}
		b.WriteString("\n")
	}

	b.WriteString("**Action Items:**\n")
	b.WriteString("1. Review critical issues (Urgency 5) immediately\n")
	b.WriteString("2. Prioritize confirmed bugs for next sprint\n")
	b.WriteString("3. Address negative sentiment items to improve user experience\n")
	b.WriteString("4. Follow up on high-priority items within 24-48 hours\n\n")

	b.WriteString("**Next Steps:**\n")
	b.WriteString("• Engineering team to triage and assign owners\n")
	b.WriteString("• PM to follow up on user-facing issues\n")
	b.WriteString("• Update status in tracking system\n\n")

	b.WriteString("---\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.Format("Jan 2, 2006 15:04 MST"))
	fmt.Fprintf(&b, "Dashboard: [View Full Details](%s)\n", dashboardURL)
	return b.String()
}
