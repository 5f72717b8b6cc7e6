package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lessonloop/api/internal/model"
)

type GroupHandler struct {
	db *gorm.DB
}

func NewGroupHandler(db *gorm.DB) *GroupHandler {
	return &GroupHandler{db: db}
}

type CreateGroupRequest struct {
	Name      string `json:"name" binding:"required"`
	AdvisorID string `json:"advisorId" binding:"required,uuid"`
}

func (h *GroupHandler) Create(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group := model.StudentGroup{
		Name:      req.Name,
		AdvisorID: uuid.MustParse(req.AdvisorID),
		IsActive:  true,
	}

	if err := h.db.Create(&group).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}

	c.JSON(http.StatusCreated, group)
}

func (h *GroupHandler) List(c *gin.Context) {
	var groups []model.StudentGroup
	if err := h.db.Preload("Members").Order("created_at DESC").Find(&groups).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list groups"})
		return
	}

	c.JSON(http.StatusOK, groups)
}

func (h *GroupHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	var group model.StudentGroup
	if err := h.db.Preload("Members").First(&group, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": group, "memberCount": len(group.Members)})
}

type AddMemberRequest struct {
	StudentID string `json:"studentId" binding:"required,uuid"`
}

func (h *GroupHandler) AddMember(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var group model.StudentGroup
	if err := h.db.First(&group, "id = ?", groupID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	member := model.GroupMember{
		GroupID:   groupID,
		StudentID: uuid.MustParse(req.StudentID),
		JoinedAt:  time.Now(),
	}

	if err := h.db.Create(&member).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Student is already a member"})
		return
	}

	c.JSON(http.StatusCreated, member)
}

func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID := c.Param("id")
	studentID := c.Param("studentId")

	result := h.db.Where("group_id = ? AND student_id = ?", groupID, studentID).Delete(&model.GroupMember{})
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found in group"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed from group"})
}

type AssignTemplateRequest struct {
	TemplateID string `json:"templateId" binding:"required,uuid"`
	GroupID    string `json:"groupId" binding:"required,uuid"`
	AdvisorID  string `json:"advisorId" binding:"required,uuid"`
}

// Assign links a template to a group so future generation passes fan out to
// the group's members.
func (h *GroupHandler) Assign(c *gin.Context) {
	var req AssignTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	templateID := uuid.MustParse(req.TemplateID)
	groupID := uuid.MustParse(req.GroupID)

	var template model.SessionTemplate
	if err := h.db.First(&template, "id = ?", templateID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}
	var group model.StudentGroup
	if err := h.db.First(&group, "id = ?", groupID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	var existing model.GroupAssignment
	err := h.db.Where("template_id = ? AND group_id = ? AND is_active = ?", templateID, groupID, true).
		First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Template is already assigned to this group"})
		return
	}

	assignment := model.GroupAssignment{
		TemplateID:   templateID,
		GroupID:      groupID,
		AdvisorID:    uuid.MustParse(req.AdvisorID),
		IsActive:     true,
		AssignedDate: time.Now(),
	}

	if err := h.db.Create(&assignment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create assignment"})
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

func (h *GroupHandler) DeactivateAssignment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment ID"})
		return
	}

	result := h.db.Model(&model.GroupAssignment{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate assignment"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Active assignment not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Assignment deactivated"})
}

func (h *GroupHandler) ListAssignments(c *gin.Context) {
	templateID, err := uuid.Parse(c.Query("templateId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "templateId query parameter required"})
		return
	}

	var assignments []model.GroupAssignment
	if err := h.db.Where("template_id = ?", templateID).Order("assigned_date DESC").Find(&assignments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list assignments"})
		return
	}

	c.JSON(http.StatusOK, assignments)
}
