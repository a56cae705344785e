package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TaskerCompleteRequest carries the tasker's completion evidence.
type TaskerCompleteRequest struct {
	Evidence string `json:"evidence"`
}

// CustomerCompleteRequest carries the customer's rating of the tasker.
type CustomerCompleteRequest struct {
	Rating    int            `json:"rating" binding:"required"`
	Breakdown map[string]int `json:"breakdown"`
}

// CancelScheduleRequest carries the optional cancellation reason.
type CancelScheduleRequest struct {
	Reason string `json:"reason"`
}

// ConfirmSchedule handles POST /api/tasks/:id/schedule/confirm
// The selected tasker accepts the paid schedule.
func ConfirmSchedule(c *gin.Context) {
	userID := c.GetString("user_id")
	taskID := c.Param("id")

	task, err := coordinator().ConfirmSchedule(c.Request.Context(), taskID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// TaskerComplete handles POST /api/tasks/:id/complete/tasker
func TaskerComplete(c *gin.Context) {
	userID := c.GetString("user_id")
	taskID := c.Param("id")

	var req TaskerCompleteRequest
	_ = c.ShouldBindJSON(&req)

	task, err := coordinator().TaskerComplete(c.Request.Context(), taskID, userID, req.Evidence)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// CustomerComplete handles POST /api/tasks/:id/complete/customer
func CustomerComplete(c *gin.Context) {
	userID := c.GetString("user_id")
	taskID := c.Param("id")

	var req CustomerCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := coordinator().CustomerComplete(c.Request.Context(), taskID, userID, req.Rating, req.Breakdown)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// CancelSchedule handles POST /api/tasks/:id/schedule/cancel
// Reverts a scheduled task to active and clears the selection.
func CancelSchedule(c *gin.Context) {
	userID := c.GetString("user_id")
	taskID := c.Param("id")

	var req CancelScheduleRequest
	_ = c.ShouldBindJSON(&req)

	task, err := coordinator().CancelSchedule(c.Request.Context(), taskID, userID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}
