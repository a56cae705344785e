package handlers

import (
	"net/http"

	"task-marketplace-api/internal/apperr"
	"task-marketplace-api/internal/payment"

	"github.com/gin-gonic/gin"
)

// PaymentNotify handles POST /api/payments/notify
// Inbound payment-provider webhook: unauthenticated, authenticated instead by
// the keyed signature over the notification fields. Duplicate deliveries of a
// processed notification answer with success.
func PaymentNotify(c *gin.Context) {
	var n payment.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := gate().HandleNotification(c.Request.Context(), n)
	if err != nil {
		if apperr.Is(err, apperr.KindInvalidSignature) {
			logger.Logf("WARN rejected payment notification with bad signature for order %s", n.OrderID)
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"taskId": task.ID,
	})
}

// RetryPayment handles POST /api/tasks/:id/payment/retry
// Re-issues the advance payment order after a failed or cancelled attempt.
func RetryPayment(c *gin.Context) {
	userID := c.GetString("user_id")
	taskID := c.Param("id")

	task, err := gate().RetryPayment(c.Request.Context(), taskID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// ReleasePayment handles POST /api/tasks/:id/payment/release
// Moves the advance payment to released once the task has completed.
func ReleasePayment(c *gin.Context) {
	userID := c.GetString("user_id")
	taskID := c.Param("id")

	task, err := gate().Release(c.Request.Context(), taskID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}
