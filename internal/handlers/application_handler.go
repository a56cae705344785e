package handlers

import (
	"errors"
	"net/http"
	"time"

	"task-marketplace-api/internal/database"
	"task-marketplace-api/internal/models"
	"task-marketplace-api/internal/policy"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ApplyRequest represents the request payload for bidding on a task
type ApplyRequest struct {
	ProposedPayment int64 `json:"proposedPayment" binding:"required"`
}

// ConfirmTimeRequest carries the tasker's accepted time and payment.
type ConfirmTimeRequest struct {
	ConfirmedTime    time.Time `json:"confirmedTime" binding:"required"`
	ConfirmedPayment int64     `json:"confirmedPayment" binding:"required"`
}

// SelectTaskerRequest carries the customer's chosen tasker and terms.
type SelectTaskerRequest struct {
	TaskerID      string    `json:"taskerId" binding:"required"`
	AgreedTime    time.Time `json:"agreedTime" binding:"required"`
	AgreedPayment int64     `json:"agreedPayment" binding:"required"`
}

// ApplyToTask handles POST /api/tasks/:id/applications
func ApplyToTask(c *gin.Context) {
	userID := c.GetString("user_id")
	taskID := c.Param("id")

	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := engine().Apply(c.Request.Context(), taskID, userID, req.ProposedPayment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, app)
}

// ConfirmTime handles POST /api/tasks/:id/applications/confirm
func ConfirmTime(c *gin.Context) {
	userID := c.GetString("user_id")
	taskID := c.Param("id")

	var req ConfirmTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := engine().ConfirmTime(c.Request.Context(), taskID, userID, req.ConfirmedTime, req.ConfirmedPayment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}

// ListApplications handles GET /api/tasks/:id/applications
// While a task is active only the customer may list; afterwards the selected
// tasker may as well.
func ListApplications(c *gin.Context) {
	userID := c.GetString("user_id")
	taskID := c.Param("id")

	var task models.Task
	if err := database.GetDB().Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return
	}

	if !policy.CanListApplications(&task, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "No access to this task's applications"})
		return
	}

	var apps []models.Application
	if err := database.GetDB().Where("task_id = ?", taskID).Order("created_at asc").Find(&apps).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch applications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applications": apps,
		"count":        len(apps),
	})
}

// SelectTasker handles POST /api/tasks/:id/select
func SelectTasker(c *gin.Context) {
	userID := c.GetString("user_id")
	taskID := c.Param("id")

	var req SelectTaskerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := engine().SelectTasker(c.Request.Context(), taskID, userID, req.TaskerID, req.AgreedTime, req.AgreedPayment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}
