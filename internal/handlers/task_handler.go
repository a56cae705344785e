package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"task-marketplace-api/internal/database"
	"task-marketplace-api/internal/models"
	"task-marketplace-api/internal/policy"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateTaskRequest represents the request payload for posting a task
type CreateTaskRequest struct {
	Title          string    `json:"title" binding:"required"`
	Description    string    `json:"description"`
	MinPayment     int64     `json:"minPayment" binding:"required"`
	MaxPayment     int64     `json:"maxPayment" binding:"required"`
	StartDate      time.Time `json:"startDate" binding:"required"`
	EndDate        time.Time `json:"endDate" binding:"required"`
	TargetedTasker string    `json:"targetedTasker"`
}

/*
*
CreateTask handles POST /api/tasks
Posts a new task owned by the authenticated customer.
*/
func CreateTask(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}
	if c.GetString("role") != string(models.RoleCustomer) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only customers can post tasks"})
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.MinPayment < 0 || req.MinPayment > req.MaxPayment {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minPayment must be positive and not exceed maxPayment"})
		return
	}
	if req.EndDate.Before(req.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endDate must not precede startDate"})
		return
	}
	if !req.StartDate.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startDate must be in the future"})
		return
	}

	task := models.Task{
		ID:          "task-" + uuid.NewString(),
		CustomerID:  userID,
		Title:       req.Title,
		Description: req.Description,
		MinPayment:  req.MinPayment,
		MaxPayment:  req.MaxPayment,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      models.StatusActive,
	}
	if target := strings.TrimSpace(req.TargetedTasker); target != "" {
		if target == userID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot target your own account"})
			return
		}
		task.IsTargeted = true
		task.TargetedTaskerID = &target
	}

	if err := database.GetDB().Create(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	c.JSON(http.StatusCreated, task)
}

/*
*
GetTasks handles GET /api/tasks
Lists the tasks visible to the caller: open (non-targeted active) tasks for
everyone, plus tasks the caller participates in. Anonymous callers see open
tasks only.
*/
func GetTasks(c *gin.Context) {
	userID := c.GetString("user_id")

	// Query params: page (default 1), limit (default 5), sort (asc|desc on created_at, default desc)
	pageStr := c.DefaultQuery("page", "1")
	limitStr := c.DefaultQuery("limit", "5")
	sortParam := strings.ToLower(c.DefaultQuery("sort", "desc"))

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = 5
	}
	if limit > 100 {
		limit = 100
	}

	offset := (page - 1) * limit

	order := "created_at desc"
	if sortParam == "asc" {
		order = "created_at asc"
	}

	db := database.GetDB()
	query := db.Model(&models.Task{})
	if userID == "" {
		query = query.Where("status = ? AND is_targeted = ?", models.StatusActive, false)
	} else {
		query = query.Where(
			"(status = ? AND is_targeted = ?) OR customer_id = ? OR selected_tasker_id = ? OR targeted_tasker_id = ?",
			models.StatusActive, false, userID, userID, userID,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count tasks"})
		return
	}

	var tasks []models.Task
	result := query.Session(&gorm.Session{}).Order(order).Limit(limit).Offset(offset).Find(&tasks)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
		"total": total,
		"page":  page,
		"limit": limit,
		"sort":  sortParam,
	})
}

// GetTaskByID handles GET /api/tasks/:id
// Returns a single task if the visibility policy allows the caller to see it.
func GetTaskByID(c *gin.Context) {
	userID := c.GetString("user_id")
	taskID := c.Param("id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task ID is required"})
		return
	}

	var task models.Task
	result := database.GetDB().Where("id = ?", taskID).First(&task)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return
	}

	if err := policy.ViewError(&task, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// CancelTaskRequest carries the optional cancellation reason.
type CancelTaskRequest struct {
	Reason string `json:"reason"`
}

// CancelTask handles POST /api/tasks/:id/cancel
// Moves an active task to cancelled (owner only).
func CancelTask(c *gin.Context) {
	userID := c.GetString("user_id")
	taskID := c.Param("id")

	var req CancelTaskRequest
	_ = c.ShouldBindJSON(&req)

	task, err := engine().CancelTask(c.Request.Context(), taskID, userID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}
