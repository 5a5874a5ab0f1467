package server

import (
	"database/sql"
	"errors"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"feedbackapi/internal/classify"
	"feedbackapi/internal/digest"
	"feedbackapi/internal/domain"
	"feedbackapi/internal/fetch"
	"feedbackapi/internal/report"
	"feedbackapi/internal/seed"
	"feedbackapi/internal/storage/sqlite"
)

const (
	invalidJSONMessage  = "Invalid JSON body or missing content-type: application/json"
	defaultListLimit    = 50
	maxListLimit        = 200
	sourceFeedbackLimit = 100
)

var errNotJSON = errors.New("Expected application/json body")

// readJSONBody returns the raw body when the request declares JSON and the
// body parses.
func readJSONBody(c *gin.Context) ([]byte, error) {
	if !strings.Contains(c.GetHeader("Content-Type"), "application/json") {
		return nil, errNotJSON
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("malformed JSON")
	}
	return body, nil
}

// queryInt reads a numeric query parameter; missing or unparseable values
// yield def.
func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return int(v)
}

func (s *Server) createFeedback(c *gin.Context) {
	ctx := c.Request.Context()

	if !strings.Contains(c.GetHeader("Content-Type"), "application/json") {
		badRequest(c, invalidJSONMessage, errNotJSON.Error())
		return
	}
	var req createFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidJSONMessage, err.Error())
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		badRequest(c, "Field `content` is required.", nil)
		return
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "manual"
	}

	f, err := sqlite.InsertFeedback(ctx, s.db, domain.Feedback{
		Source:    source,
		Content:   content,
		Type:      strings.TrimSpace(req.Type),
		CreatedAt: s.now(),
	})
	if err != nil {
		internalError(c, err)
		return
	}
	if _, err := s.classifier.Classify(ctx, f.Content, f.ID); err != nil {
		log.Printf("auto-analysis failed id=%d: %v", f.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"id":         f.ID,
		"source":     f.Source,
		"type":       optional(f.Type),
		"created_at": f.CreatedAt,
	})
}

func (s *Server) listFeedback(c *gin.Context) {
	limit := queryInt(c, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if limit < 0 {
		limit = defaultListLimit
	}

	items, err := sqlite.ListFeedback(c.Request.Context(), s.db, limit, c.Query("theme"))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(items), "items": toFeedbackItems(items)})
}

func (s *Server) getSummary(c *gin.Context) {
	sum, err := sqlite.Summary(c.Request.Context(), s.db)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"total":     sum.Total,
		"sentiment": sum.Sentiment,
		"theme":     sum.Themes,
		"type":      sum.Types,
		"urgent":    sum.Urgent,
	})
}

// parseID accepts a JSON number or numeric string.
func parseID(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Num, true
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case gjson.Null:
		return 0, true
	default:
		return 0, false
	}
}

func (s *Server) analyzeFeedback(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := readJSONBody(c)
	if err != nil {
		badRequest(c, invalidJSONMessage, err.Error())
		return
	}
	raw := gjson.GetBytes(body, "id")
	idf, ok := parseID(raw)
	if !raw.Exists() || !ok {
		badRequest(c, "Field `id` must be a number.", nil)
		return
	}
	if idf != math.Trunc(idf) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Feedback not found"})
		return
	}
	id := int64(idf)

	f, err := sqlite.GetFeedback(ctx, s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Feedback not found"})
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}

	analysis, err := s.classifier.Classify(ctx, f.Content, f.ID)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id, "analysis": analysis})
}

func (s *Server) getSuggestions(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid feedback ID", nil)
		return
	}
	f, err := sqlite.GetFeedback(ctx, s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Feedback not found"})
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id, "suggestions": s.suggester.Suggest(ctx, f)})
}

func (s *Server) analyzeAll(c *gin.Context) {
	ctx := c.Request.Context()

	items, err := sqlite.ListUnanalyzed(ctx, s.db)
	if err != nil {
		internalError(c, err)
		return
	}
	res := classify.AnalyzeAll(ctx, s.classifier, items)
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"message":  res.Message(),
		"total":    res.Total,
		"analyzed": res.Analyzed,
		"failed":   res.Failed,
		"errors":   res.Errors,
	})
}

func (s *Server) getIntegrations(c *gin.Context) {
	counts, err := sqlite.CountBySource(c.Request.Context(), s.db)
	if err != nil {
		internalError(c, err)
		return
	}
	list, total := report.Integrations(counts)
	c.JSON(http.StatusOK, gin.H{"ok": true, "integrations": list, "total": total})
}

func (s *Server) getIntegrationFeedback(c *gin.Context) {
	source := c.Param("source")
	items, err := sqlite.ListFeedbackBySource(c.Request.Context(), s.db, source, sourceFeedbackLimit)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "source": source, "items": toFeedbackItems(items), "count": len(items)})
}

func (s *Server) importGitHub(c *gin.Context) {
	if !s.cfg.GitHubConfigured() {
		badRequest(c, "GitHub import is not configured", nil)
		return
	}
	res, err := fetch.ImportGitHubIssues(c.Request.Context(), s.cfg, s.db, s.classifier, s.now())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "GitHub import failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": fetch.FormatImportSummary(res), "result": res})
}

func (s *Server) getDigest(c *gin.Context) {
	d, err := sqlite.LatestDigest(c.Request.Context(), s.db)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusOK, gin.H{"ok": false, "message": digest.NoDigestMessage})
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "digest": d})
}

func (s *Server) seedDatabase(c *gin.Context) {
	ids, err := seed.Seed(c.Request.Context(), s.db, s.classifier, s.now())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": seed.Message(len(ids)), "ids": ids})
}

func (s *Server) getBugReport(c *gin.Context) {
	minUrgency := queryInt(c, "min_urgency", report.DefaultBugMinUrgency)
	limit := queryInt(c, "limit", report.DefaultBugLimit)

	bugs, err := sqlite.PrioritizedBugs(c.Request.Context(), s.db, minUrgency, limit)
	if err != nil {
		internalError(c, err)
		return
	}
	r := report.BuildBugReport(bugs, s.cfg.DashboardURL, s.now().In(s.location()))
	if r.Empty() {
		c.JSON(http.StatusOK, gin.H{
			"ok":                true,
			"message":           report.NoBugsMessage,
			"bugs":              []feedbackItem{},
			"formatted_message": r.FormattedMessage,
		})
		return
	}

	byTheme := map[string][]feedbackItem{}
	for theme, items := range r.ByTheme() {
		byTheme[theme] = toFeedbackItems(items)
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":                true,
		"total":             r.Total(),
		"bugs":              toFeedbackItems(r.Bugs),
		"bugs_by_theme":     byTheme,
		"formatted_message": r.FormattedMessage,
		"summary":           r.Summary,
	})
}

func (s *Server) location() *time.Location {
	if s.cfg.Location != nil {
		return s.cfg.Location
	}
	return time.UTC
}
