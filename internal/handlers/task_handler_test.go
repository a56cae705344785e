package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task-marketplace-api/internal/auth"
	"task-marketplace-api/internal/config"
	"task-marketplace-api/internal/database"
	"task-marketplace-api/internal/middleware"
	"task-marketplace-api/internal/models"
	"task-marketplace-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Init(config.Load(), nil)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db
}

func customerToken(t *testing.T, id string) string {
	t.Helper()
	token, err := auth.GenerateToken(id, "user-"+id, string(models.RoleCustomer))
	require.NoError(t, err)
	return token
}

func taskerToken(t *testing.T, id string) string {
	t.Helper()
	token, err := auth.GenerateToken(id, "user-"+id, string(models.RoleTasker))
	require.NoError(t, err)
	return token
}

func TestCreateTask_Success(t *testing.T) {
	setupTestDB(t)

	r := gin.New()
	r.Use(middleware.JWTAuthMiddleware())
	r.POST("/api/tasks", CreateTask)

	payload := map[string]any{
		"title":       "Assemble furniture",
		"description": "Two bookshelves",
		"minPayment":  50,
		"maxPayment":  100,
		"startDate":   time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"endDate":     time.Now().Add(72 * time.Hour).Format(time.RFC3339),
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+customerToken(t, "customer-1"))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "customer-1", created.CustomerID)
	require.Equal(t, models.StatusActive, created.Status)
	require.EqualValues(t, 50, created.MinPayment)
}

func TestCreateTask_TaskerForbidden(t *testing.T) {
	setupTestDB(t)

	r := gin.New()
	r.Use(middleware.JWTAuthMiddleware())
	r.POST("/api/tasks", CreateTask)

	payload := map[string]any{
		"title":      "Assemble furniture",
		"minPayment": 50,
		"maxPayment": 100,
		"startDate":  time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"endDate":    time.Now().Add(72 * time.Hour).Format(time.RFC3339),
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+taskerToken(t, "tasker-1"))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestApplyAndSelect_EndToEnd(t *testing.T) {
	setupTestDB(t)

	r := gin.New()
	r.Use(middleware.JWTAuthMiddleware())
	r.POST("/api/tasks/:id/applications", ApplyToTask)
	r.POST("/api/tasks/:id/applications/confirm", ConfirmTime)
	r.POST("/api/tasks/:id/select", SelectTasker)

	task := models.Task{
		ID:         "task-1",
		CustomerID: "customer-1",
		Title:      "Assemble furniture",
		MinPayment: 50,
		MaxPayment: 100,
		StartDate:  time.Now().Add(24 * time.Hour),
		EndDate:    time.Now().Add(72 * time.Hour),
		Status:     models.StatusActive,
	}
	require.NoError(t, database.DB.Create(&task).Error)

	do := func(method, url, token string, payload map[string]any) *httptest.ResponseRecorder {
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/api/tasks/task-1/applications", taskerToken(t, "tasker-1"),
		map[string]any{"proposedPayment": 75})
	require.Equal(t, http.StatusCreated, w.Code)

	// Duplicate application conflicts.
	w = do(http.MethodPost, "/api/tasks/task-1/applications", taskerToken(t, "tasker-1"),
		map[string]any{"proposedPayment": 75})
	require.Equal(t, http.StatusConflict, w.Code)

	when := time.Now().Add(30 * time.Hour).UTC().Truncate(time.Second)
	w = do(http.MethodPost, "/api/tasks/task-1/applications/confirm", taskerToken(t, "tasker-1"),
		map[string]any{"confirmedTime": when.Format(time.RFC3339), "confirmedPayment": 80})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(http.MethodPost, "/api/tasks/task-1/select", customerToken(t, "customer-1"),
		map[string]any{"taskerId": "tasker-1", "agreedTime": when.Format(time.RFC3339), "agreedPayment": 80})
	require.Equal(t, http.StatusOK, w.Code)

	var selected models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &selected))
	require.Equal(t, models.StatusActive, selected.Status)
	require.Equal(t, "tasker-1", *selected.SelectedTaskerID)
	require.Equal(t, models.AdvancePending, selected.AdvancePaymentStatus)
}

func TestGetTaskByID_VisibilityEnforced(t *testing.T) {
	setupTestDB(t)

	r := gin.New()
	r.Use(middleware.OptionalJWTMiddleware())
	r.GET("/api/tasks/:id", GetTaskByID)

	target := "tasker-u"
	task := models.Task{
		ID:               "task-1",
		CustomerID:       "customer-1",
		Title:            "Private job",
		MinPayment:       50,
		MaxPayment:       100,
		StartDate:        time.Now().Add(24 * time.Hour),
		EndDate:          time.Now().Add(72 * time.Hour),
		Status:           models.StatusActive,
		IsTargeted:       true,
		TargetedTaskerID: &target,
	}
	require.NoError(t, database.DB.Create(&task).Error)

	get := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks/task-1", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusOK, get(customerToken(t, "customer-1")).Code)
	require.Equal(t, http.StatusOK, get(taskerToken(t, "tasker-u")).Code)
	require.Equal(t, http.StatusForbidden, get(taskerToken(t, "tasker-v")).Code)
	require.Equal(t, http.StatusUnauthorized, get("").Code)
}
