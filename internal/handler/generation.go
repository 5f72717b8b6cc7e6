package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lessonloop/api/internal/cache"
	"github.com/lessonloop/api/internal/generator"
	"github.com/lessonloop/api/internal/model"
	"github.com/lessonloop/api/internal/recurrence"
)

type GenerationHandler struct {
	db        *gorm.DB
	generator *generator.Service
	cache     *cache.RedisCache
}

func NewGenerationHandler(db *gorm.DB, gen *generator.Service, redisCache *cache.RedisCache) *GenerationHandler {
	return &GenerationHandler{db: db, generator: gen, cache: redisCache}
}

type RunGenerationRequest struct {
	Date      string `json:"date"`
	DaysAhead int    `json:"daysAhead"`
}

// Run triggers a generation pass for one date or a lookahead window. A
// non-zero failed count is reported in the payload, not as an HTTP error;
// partial failure is expected in a batch.
func (h *GenerationHandler) Run(c *gin.Context) {
	var req RunGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.DaysAhead > 0 {
		reports, err := h.generator.GenerateUpcoming(c.Request.Context(), req.DaysAhead)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "reports": reports})
			return
		}
		for _, report := range reports {
			h.cache.InvalidateReport(c.Request.Context(), report.Date)
		}
		c.JSON(http.StatusOK, gin.H{"reports": reports})
		return
	}

	date := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
			return
		}
		date = parsed
	}

	report, err := h.generator.GenerateForDate(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.cache.InvalidateReport(c.Request.Context(), report.Date)
	c.JSON(http.StatusOK, report)
}

// Preview reports what a pass for the given date would do, without
// materializing anything or writing log entries.
func (h *GenerationHandler) Preview(c *gin.Context) {
	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
			return
		}
		date = parsed
	}

	preview, err := h.generator.PreviewForDate(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, preview)
}

// Report returns the aggregate counters for one date, recomputed from the
// generation log and cached in Redis.
func (h *GenerationHandler) Report(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
		return
	}
	date = recurrence.DateOnly(date)

	var report generator.Report
	if h.cache.GetReport(c.Request.Context(), date, &report) {
		c.JSON(http.StatusOK, report)
		return
	}

	report = generator.Report{Date: date}
	rows := []struct {
		Outcome model.GenerationOutcome
		Count   int
	}{}
	err = h.db.Model(&model.GenerationLog{}).
		Select("outcome, COUNT(*) as count").
		Where("date = ?", date).
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}
	for _, row := range rows {
		switch row.Outcome {
		case model.OutcomeSuccess:
			report.Generated = row.Count
		case model.OutcomeFailed:
			report.Failed = row.Count
		case model.OutcomeSkipped:
			report.Skipped = row.Count
		}
	}

	h.cache.SetReport(c.Request.Context(), date, report)
	c.JSON(http.StatusOK, report)
}

// Logs lists generation log entries, newest first, optionally filtered by
// template.
func (h *GenerationHandler) Logs(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	q := h.db.Order("created_at DESC").Limit(limit)
	if raw := c.Query("templateId"); raw != "" {
		templateID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}
		q = q.Where("template_id = ?", templateID)
	}

	var logs []model.GenerationLog
	if err := q.Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list logs"})
		return
	}

	c.JSON(http.StatusOK, logs)
}

type CleanupRequest struct {
	DaysToKeep int `json:"daysToKeep" binding:"required,gt=0"`
}

func (h *GenerationHandler) Cleanup(c *gin.Context) {
	var req CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deleted, err := h.generator.CleanupLogs(c.Request.Context(), req.DaysToKeep)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clean up logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
