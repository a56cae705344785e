package handlers

import (
	"errors"
	"net/http"
	"strings"

	"task-marketplace-api/internal/database"
	"task-marketplace-api/internal/models"
	"task-marketplace-api/internal/policy"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SendMessageRequest represents the chat send payload
type SendMessageRequest struct {
	RecipientID string `json:"recipientId" binding:"required"`
	Body        string `json:"body" binding:"required"`
}

func loadTaskWithApplications(c *gin.Context, taskID string) (*models.Task, []models.Application, bool) {
	var task models.Task
	if err := database.GetDB().Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return nil, nil, false
	}

	var apps []models.Application
	if err := database.GetDB().Where("task_id = ?", taskID).Find(&apps).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch applications"})
		return nil, nil, false
	}
	return &task, apps, true
}

// SendMessage handles POST /api/tasks/:id/messages
// The chat access policy is evaluated on every send; the answer changes as
// the task moves through its lifecycle, so it is never cached.
func SendMessage(c *gin.Context) {
	userID := c.GetString("user_id")
	taskID := c.Param("id")

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message body is required"})
		return
	}

	task, apps, ok := loadTaskWithApplications(c, taskID)
	if !ok {
		return
	}
	if !policy.CanExchange(task, apps, userID, req.RecipientID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "No chat access for this task"})
		return
	}

	if chatLimiter != nil && !chatLimiter.Allow("msg:"+taskID+":"+userID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Messages are sent too frequently"})
		return
	}

	msg := models.Message{
		ID:          "msg-" + uuid.NewString(),
		TaskID:      taskID,
		SenderID:    userID,
		RecipientID: req.RecipientID,
		Body:        req.Body,
	}
	if err := database.GetDB().Create(&msg).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store message"})
		return
	}

	notifier().NewMessage(taskID, req.RecipientID)

	c.JSON(http.StatusCreated, msg)
}

// GetMessages handles GET /api/tasks/:id/messages?with=<userId>
// Returns the conversation between the caller and the given counterpart,
// gated by the same per-fetch access check as sends.
func GetMessages(c *gin.Context) {
	userID := c.GetString("user_id")
	taskID := c.Param("id")

	counterpart := c.Query("with")
	if counterpart == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query param 'with' is required"})
		return
	}

	task, apps, ok := loadTaskWithApplications(c, taskID)
	if !ok {
		return
	}
	if !policy.CanExchange(task, apps, userID, counterpart) {
		c.JSON(http.StatusForbidden, gin.H{"error": "No chat access for this task"})
		return
	}

	var messages []models.Message
	err := database.GetDB().
		Where("task_id = ? AND ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))",
			taskID, userID, counterpart, counterpart, userID).
		Order("created_at asc").
		Find(&messages).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}
