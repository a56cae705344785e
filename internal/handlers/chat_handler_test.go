package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task-marketplace-api/internal/database"
	"task-marketplace-api/internal/middleware"
	"task-marketplace-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func chatRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.JWTAuthMiddleware())
	r.POST("/api/tasks/:id/messages", SendMessage)
	r.GET("/api/tasks/:id/messages", GetMessages)
	return r
}

func seedChatTask(t *testing.T, id string, status models.TaskStatus, selected *string) *models.Task {
	t.Helper()
	task := models.Task{
		ID:               id,
		CustomerID:       "customer-1",
		Title:            "Paint the fence",
		MinPayment:       50,
		MaxPayment:       100,
		StartDate:        time.Now().Add(24 * time.Hour),
		EndDate:          time.Now().Add(72 * time.Hour),
		Status:           status,
		SelectedTaskerID: selected,
	}
	require.NoError(t, database.DB.Create(&task).Error)
	return &task
}

func sendChat(t *testing.T, r *gin.Engine, taskID, token, recipient, body string) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{
		"recipientId": recipient,
		"body":        body,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/"+taskID+"/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChat_ApplicantAndCustomerWhileActive(t *testing.T) {
	setupTestDB(t)
	seedChatTask(t, "task-chat-1", models.StatusActive, nil)
	require.NoError(t, database.DB.Create(&models.Application{
		ID:              "app-1",
		TaskID:          "task-chat-1",
		TaskerID:        "tasker-1",
		ProposedPayment: 80,
		Status:          models.ApplicationPending,
	}).Error)

	r := chatRouter()

	w := sendChat(t, r, "task-chat-1", taskerToken(t, "tasker-1"), "customer-1", "Is the ladder provided?")
	require.Equal(t, http.StatusCreated, w.Code)

	w = sendChat(t, r, "task-chat-1", customerToken(t, "customer-1"), "tasker-1", "Yes, it is on site")
	require.Equal(t, http.StatusCreated, w.Code)

	// A tasker who never applied has no access.
	w = sendChat(t, r, "task-chat-1", taskerToken(t, "tasker-9"), "customer-1", "Hello?")
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestChat_ScheduledRestrictsToSelectedTasker(t *testing.T) {
	setupTestDB(t)
	selected := "tasker-1"
	seedChatTask(t, "task-chat-2", models.StatusScheduled, &selected)
	for i, tasker := range []string{"tasker-1", "tasker-2"} {
		require.NoError(t, database.DB.Create(&models.Application{
			ID:              fmt.Sprintf("app-%d", i+1),
			TaskID:          "task-chat-2",
			TaskerID:        tasker,
			ProposedPayment: 80,
			Status:          models.ApplicationPending,
		}).Error)
	}

	r := chatRouter()

	w := sendChat(t, r, "task-chat-2", taskerToken(t, "tasker-1"), "customer-1", "See you Saturday")
	require.Equal(t, http.StatusCreated, w.Code)

	// The losing applicant could chat while the task was active, not anymore.
	w = sendChat(t, r, "task-chat-2", taskerToken(t, "tasker-2"), "customer-1", "Still available?")
	require.Equal(t, http.StatusForbidden, w.Code)

	w = sendChat(t, r, "task-chat-2", customerToken(t, "customer-1"), "tasker-2", "Sorry, went another way")
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestChat_GetMessagesFiltersConversation(t *testing.T) {
	setupTestDB(t)
	seedChatTask(t, "task-chat-3", models.StatusActive, nil)
	for i, tasker := range []string{"tasker-1", "tasker-2"} {
		require.NoError(t, database.DB.Create(&models.Application{
			ID:              fmt.Sprintf("app-%d", i+1),
			TaskID:          "task-chat-3",
			TaskerID:        tasker,
			ProposedPayment: 70,
			Status:          models.ApplicationPending,
		}).Error)
	}
	for i, m := range []models.Message{
		{TaskID: "task-chat-3", SenderID: "tasker-1", RecipientID: "customer-1", Body: "When do you need this done?"},
		{TaskID: "task-chat-3", SenderID: "customer-1", RecipientID: "tasker-1", Body: "Before Friday"},
		{TaskID: "task-chat-3", SenderID: "tasker-2", RecipientID: "customer-1", Body: "I can start today"},
	} {
		m.ID = fmt.Sprintf("msg-%d", i+1)
		require.NoError(t, database.DB.Create(&m).Error)
	}

	r := chatRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/task-chat-3/messages?with=customer-1", nil)
	req.Header.Set("Authorization", "Bearer "+taskerToken(t, "tasker-1"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []models.Message `json:"messages"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	for _, m := range resp.Messages {
		require.NotEqual(t, "tasker-2", m.SenderID)
	}

	// The counterpart param is mandatory.
	req = httptest.NewRequest(http.MethodGet, "/api/tasks/task-chat-3/messages", nil)
	req.Header.Set("Authorization", "Bearer "+taskerToken(t, "tasker-1"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_RateLimited(t *testing.T) {
	setupTestDB(t)
	seedChatTask(t, "task-chat-4", models.StatusActive, nil)
	require.NoError(t, database.DB.Create(&models.Application{
		ID:              "app-1",
		TaskID:          "task-chat-4",
		TaskerID:        "tasker-1",
		ProposedPayment: 60,
		Status:          models.ApplicationPending,
	}).Error)

	r := chatRouter()
	token := taskerToken(t, "tasker-1")

	w := sendChat(t, r, "task-chat-4", token, "customer-1", "first")
	require.Equal(t, http.StatusCreated, w.Code)

	// Default window allows one message per two seconds per sender and task.
	w = sendChat(t, r, "task-chat-4", token, "customer-1", "second")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}
