package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"feedbackapi/internal/classify"
	"feedbackapi/internal/config"
	"feedbackapi/internal/domain"
	"feedbackapi/internal/integrations/llm"
	"feedbackapi/internal/storage/sqlite"
)

const requestIDHeader = "X-Request-ID"

type Server struct {
	cfg        config.Config
	db         *sql.DB
	classifier *classify.Classifier
	suggester  *classify.Suggester
	now        func() time.Time
}

// New wires the HTTP handlers. gen may be nil, in which case every
// classification and suggestion uses the keyword fallback.
func New(cfg config.Config, db *sql.DB, gen llm.Generator) *Server {
	store := classify.StoreFunc(func(ctx context.Context, id int64, r domain.ClassificationResult) error {
		return sqlite.UpdateAnalysis(ctx, db, id, r)
	})
	return &Server{
		cfg:        cfg,
		db:         db,
		classifier: classify.NewClassifier(gen, store),
		suggester:  classify.NewSuggester(gen),
		now:        time.Now,
	}
}

func (s *Server) Classifier() *classify.Classifier {
	return s.classifier
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(requestID(), requestLogger(), gin.CustomRecovery(recoverInternal), cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/message", func(c *gin.Context) {
		c.String(http.StatusOK, "Hello, World!")
	})
	router.GET("/random", func(c *gin.Context) {
		c.String(http.StatusOK, uuid.NewString())
	})

	api := router.Group("/api")
	{
		api.POST("/feedback", s.createFeedback)
		api.GET("/feedback", s.listFeedback)
		api.GET("/feedback/:id/suggestions", s.getSuggestions)
		api.GET("/summary", s.getSummary)
		api.POST("/analyze", s.analyzeFeedback)
		api.POST("/analyze-all", s.analyzeAll)
		api.GET("/integrations", s.getIntegrations)
		api.GET("/integrations/:source/feedback", s.getIntegrationFeedback)
		api.POST("/integrations/github/import", s.importGitHub)
		api.GET("/digest", s.getDigest)
		api.POST("/seed", s.seedDatabase)
		api.GET("/bug-report", s.getBugReport)
	}

	router.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Not Found")
	})
	return router
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("http method=%s path=%s status=%d dur=%s request_id=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Round(time.Millisecond), c.GetString("request_id"))
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			c.Header("Access-Control-Allow-Headers", "content-type")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func recoverInternal(c *gin.Context, recovered any) {
	log.Printf("http panic path=%s request_id=%s: %v", c.Request.URL.Path, c.GetString("request_id"), recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"ok":      false,
		"error":   "Internal error",
		"details": fmt.Sprint(recovered),
	})
}

func internalError(c *gin.Context, err error) {
	log.Printf("http error path=%s request_id=%s: %v", c.Request.URL.Path, c.GetString("request_id"), err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"ok":      false,
		"error":   "Internal error",
		"details": err.Error(),
	})
}

func badRequest(c *gin.Context, message string, details any) {
	body := gin.H{"ok": false, "error": message}
	if details != nil {
		body["details"] = details
	}
	c.JSON(http.StatusBadRequest, body)
}
