package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lessonloop/api/internal/model"
	"github.com/lessonloop/api/internal/recurrence"
)

type TemplateHandler struct {
	db *gorm.DB
}

func NewTemplateHandler(db *gorm.DB) *TemplateHandler {
	return &TemplateHandler{db: db}
}

type CreateTemplateRequest struct {
	Title           string  `json:"title" binding:"required"`
	TeacherID       string  `json:"teacherId" binding:"required,uuid"`
	Subject         string  `json:"subject"`
	Level           string  `json:"level"`
	DayOfWeek       *int    `json:"dayOfWeek" binding:"required"`
	StartTime       string  `json:"startTime" binding:"required"`
	DurationMinutes int     `json:"durationMinutes" binding:"required,gt=0"`
	RecurrenceType  string  `json:"recurrenceType" binding:"required"`
	StartDate       string  `json:"startDate" binding:"required"`
	EndDate         *string `json:"endDate"`
}

type UpdateTemplateRequest struct {
	Title           *string `json:"title"`
	Subject         *string `json:"subject"`
	Level           *string `json:"level"`
	DayOfWeek       *int    `json:"dayOfWeek"`
	StartTime       *string `json:"startTime"`
	DurationMinutes *int    `json:"durationMinutes"`
	EndDate         *string `json:"endDate"`
}

func (h *TemplateHandler) Create(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if *req.DayOfWeek < 0 || *req.DayOfWeek > 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dayOfWeek must be between 0 (Monday) and 6 (Sunday)"})
		return
	}
	if _, err := time.Parse("15:04", req.StartTime); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startTime must be HH:MM"})
		return
	}
	recType := model.RecurrenceType(req.RecurrenceType)
	if !recType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recurrenceType must be weekly, biweekly or monthly"})
		return
	}
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
		return
	}
	var endDate *time.Time
	if req.EndDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
			return
		}
		if parsed.Before(startDate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "endDate must not precede startDate"})
			return
		}
		endDate = &parsed
	}

	template := model.SessionTemplate{
		Title:           req.Title,
		TeacherID:       uuid.MustParse(req.TeacherID),
		Subject:         req.Subject,
		Level:           req.Level,
		DayOfWeek:       *req.DayOfWeek,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		RecurrenceType:  recType,
		StartDate:       recurrence.DateOnly(startDate),
		EndDate:         endDate,
		Status:          model.TemplateActive,
	}

	if err := h.db.Create(&template).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		return
	}

	c.JSON(http.StatusCreated, template)
}

func (h *TemplateHandler) List(c *gin.Context) {
	q := h.db.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var templates []model.SessionTemplate
	if err := q.Find(&templates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list templates"})
		return
	}

	c.JSON(http.StatusOK, templates)
}

type templateResponse struct {
	model.SessionTemplate
	NextGenerationDate *string `json:"nextGenerationDate"`
}

func (h *TemplateHandler) Get(c *gin.Context) {
	template, ok := h.load(c)
	if !ok {
		return
	}

	resp := templateResponse{SessionTemplate: *template}
	if next := recurrence.NextDate(template, time.Now()); next != nil {
		formatted := next.Format("2006-01-02")
		resp.NextGenerationDate = &formatted
	}

	c.JSON(http.StatusOK, resp)
}

func (h *TemplateHandler) Update(c *gin.Context) {
	template, ok := h.load(c)
	if !ok {
		return
	}
	if template.Status == model.TemplateEnded {
		c.JSON(http.StatusConflict, gin.H{"error": "Template has ended"})
		return
	}

	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Subject != nil {
		updates["subject"] = *req.Subject
	}
	if req.Level != nil {
		updates["level"] = *req.Level
	}
	if req.DayOfWeek != nil {
		if *req.DayOfWeek < 0 || *req.DayOfWeek > 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dayOfWeek must be between 0 (Monday) and 6 (Sunday)"})
			return
		}
		updates["day_of_week"] = *req.DayOfWeek
	}
	if req.StartTime != nil {
		if _, err := time.Parse("15:04", *req.StartTime); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "startTime must be HH:MM"})
			return
		}
		updates["start_time"] = *req.StartTime
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "durationMinutes must be positive"})
			return
		}
		updates["duration_minutes"] = *req.DurationMinutes
	}
	if req.EndDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
			return
		}
		updates["end_date"] = parsed
	}

	if len(updates) > 0 {
		if err := h.db.Model(template).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template"})
			return
		}
	}

	c.JSON(http.StatusOK, template)
}

func (h *TemplateHandler) Pause(c *gin.Context) {
	h.transition(c, model.TemplatePaused)
}

func (h *TemplateHandler) Resume(c *gin.Context) {
	h.transition(c, model.TemplateActive)
}

func (h *TemplateHandler) End(c *gin.Context) {
	h.transition(c, model.TemplateEnded)
}

// transition applies a lifecycle change. Pausing or resuming never triggers
// generation by itself; it only changes future eligibility. Ended is
// terminal.
func (h *TemplateHandler) transition(c *gin.Context, next model.TemplateStatus) {
	template, ok := h.load(c)
	if !ok {
		return
	}

	if !template.CanTransitionTo(next) {
		c.JSON(http.StatusConflict, gin.H{"error": "Invalid status transition"})
		return
	}

	if err := h.db.Model(template).Update("status", next).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template"})
		return
	}

	template.Status = next
	c.JSON(http.StatusOK, template)
}

func (h *TemplateHandler) load(c *gin.Context) (*model.SessionTemplate, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
		return nil, false
	}

	var template model.SessionTemplate
	if err := h.db.First(&template, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return nil, false
	}
	return &template, true
}
