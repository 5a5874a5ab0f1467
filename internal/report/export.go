package report

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const bugReportFilePrefix = "bug_report"

// WriteBugReportFiles saves message as <prefix>_<date>.md plus an .eml
// draft with plain and HTML parts.
func WriteBugReportFiles(message, outputDir string, reportDate time.Time) (mdPath, emlPath string, err error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", "", err
	}
	stamp := reportDate.Format("20060102")

	mdPath = filepath.Join(outputDir, fmt.Sprintf("%s_%s.md", bugReportFilePrefix, stamp))
	if err := os.WriteFile(mdPath, []byte(message), 0644); err != nil {
		return "", "", err
	}

	emlPath = filepath.Join(outputDir, fmt.Sprintf("%s_%s.eml", bugReportFilePrefix, stamp))
	subject := fmt.Sprintf("Prioritized Bug Report %s", reportDate.Format("2006-01-02"))
	if err := os.WriteFile(emlPath, []byte(buildEML(subject, message)), 0644); err != nil {
		return mdPath, "", err
	}
	return mdPath, emlPath, nil
}

func buildEML(subject, body string) string {
	const boundary = "feedback-bug-report"
	headers := []string{
		"MIME-Version: 1.0",
		fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q", boundary),
		fmt.Sprintf("Subject: %s", subject),
	}
	plain := normalizeCRLF(markdownToPlain(body))

	var out strings.Builder
	out.WriteString(strings.Join(headers, "\r\n"))
	out.WriteString("\r\n\r\n")
	out.WriteString("--" + boundary + "\r\n")
	out.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	out.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	out.WriteString(plain)
	if !strings.HasSuffix(plain, "\r\n") {
		out.WriteString("\r\n")
	}
	out.WriteString("\r\n--" + boundary + "\r\n")
	out.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	out.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	out.WriteString(markdownToHTML(body))
	out.WriteString("\r\n--" + boundary + "--\r\n")
	return out.String()
}

func normalizeCRLF(s string) string {
	normalized := strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(normalized, "\n", "\r\n")
}

var (
	boldTokenRe     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	dashboardLineRe = regexp.MustCompile(`^Dashboard: \[([^\]]+)\]\((https?://[^)\s]+)\)$`)
)

// splitBody returns the body lines and the index of the trailing dashboard
// line, or -1. Only that generated line carries a link; link syntax anywhere
// else, including in quoted feedback, is left as text.
func splitBody(body string) ([]string, int) {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if dashboardLineRe.MatchString(trimmed) {
			return lines, i
		}
		break
	}
	return lines, -1
}

// markdownToPlain drops bold markers, writes the dashboard link as
// "text (url)" and collapses runs of blank lines.
func markdownToPlain(body string) string {
	var out []string
	prevBlank := false
	lines, dashboardIdx := splitBody(body)
	for i, line := range lines {
		line = strings.ReplaceAll(line, "**", "")
		if i == dashboardIdx {
			line = dashboardLineRe.ReplaceAllString(strings.TrimSpace(line), "Dashboard: $1 ($2)")
		}
		if strings.TrimSpace(line) == "" {
			if prevBlank {
				continue
			}
			prevBlank = true
			out = append(out, "")
			continue
		}
		prevBlank = false
		out = append(out, line)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n"
}

func markdownToHTML(body string) string {
	var b strings.Builder
	b.WriteString(`<html><body style="font-family: Calibri, Arial, sans-serif; font-size: 11pt; color: #1f1f1f; line-height: 1.35;">`)
	inList := false
	closeList := func() {
		if inList {
			b.WriteString(`</ul>`)
			inList = false
		}
	}

	lines, dashboardIdx := splitBody(body)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case i == dashboardIdx:
			closeList()
			parts := dashboardLineRe.FindStringSubmatch(trimmed)
			fmt.Fprintf(&b, `<div>Dashboard: <a href="%s">%s</a></div>`, html.EscapeString(parts[2]), html.EscapeString(parts[1]))
		case trimmed == "":
			closeList()
		case trimmed == "---":
			closeList()
			b.WriteString(`<hr/>`)
		case strings.HasPrefix(trimmed, "• "):
			if !inList {
				b.WriteString(`<ul style="margin:0 0 0 18px; padding:0;">`)
				inList = true
			}
			b.WriteString(`<li>`)
			b.WriteString(renderInlineBold(strings.TrimPrefix(trimmed, "• ")))
			b.WriteString(`</li>`)
		default:
			closeList()
			b.WriteString(`<div>`)
			b.WriteString(renderInlineBold(trimmed))
			b.WriteString(`</div>`)
		}
	}
	closeList()
	b.WriteString(`</body></html>`)
	return b.String()
}

// renderInlineBold escapes s and renders **bold** spans.
func renderInlineBold(s string) string {
	matches := boldTokenRe.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return html.EscapeString(s)
	}
	var out strings.Builder
	last := 0
	for _, m := range matches {
		if len(m) < 4 {
			continue
		}
		out.WriteString(html.EscapeString(s[last:m[0]]))
		out.WriteString("<strong>")
		out.WriteString(html.EscapeString(s[m[2]:m[3]]))
		out.WriteString("</strong>")
		last = m[1]
	}
	out.WriteString(html.EscapeString(s[last:]))
	return out.String()
}
