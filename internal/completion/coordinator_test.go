package completion

import (
	"context"
	"errors"
	"testing"
	"time"

	"task-marketplace-api/internal/apperr"
	"task-marketplace-api/internal/models"
	"task-marketplace-api/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeStats struct {
	ratings map[string][]int
	counts  map[string]int
	fail    bool
}

func newFakeStats() *fakeStats {
	return &fakeStats{ratings: map[string][]int{}, counts: map[string]int{}}
}

func (f *fakeStats) RecordRating(_ context.Context, userID string, rating int, _ map[string]int) error {
	if f.fail {
		return errors.New("stats service down")
	}
	f.ratings[userID] = append(f.ratings[userID], rating)
	return nil
}

func (f *fakeStats) IncrementStat(_ context.Context, userID, statName string) error {
	if f.fail {
		return errors.New("stats service down")
	}
	f.counts[userID+"/"+statName]++
	return nil
}

func newCoordinator(t *testing.T, stats Stats) (*Coordinator, *gorm.DB) {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	return NewCoordinator(db, stats, nil), db
}

// seedScheduledTask creates a paid, scheduled task with tasker-1 selected.
func seedScheduledTask(t *testing.T, db *gorm.DB, mutate ...func(*models.Task)) *models.Task {
	t.Helper()
	tasker := "tasker-1"
	agreed := int64(80)
	advance := int64(40)
	when := time.Now().Add(30 * time.Hour)
	orderID := "pay-order-1"
	paidAt := time.Now()

	task := &models.Task{
		ID:                   "task-1",
		CustomerID:           "customer-1",
		Title:                "Assemble furniture",
		MinPayment:           50,
		MaxPayment:           100,
		StartDate:            time.Now().Add(24 * time.Hour),
		EndDate:              time.Now().Add(72 * time.Hour),
		Status:               models.StatusScheduled,
		SelectedTaskerID:     &tasker,
		AgreedPayment:        &agreed,
		AgreedTime:           &when,
		AdvancePaymentStatus: models.AdvancePaid,
		AdvancePayment:       &advance,
		PaymentID:            &orderID,
		PaymentDate:          &paidAt,
		TaskerConfirmed:      true,
	}
	for _, m := range mutate {
		m(task)
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

func TestConfirmSchedule(t *testing.T) {
	c, db := newCoordinator(t, nil)
	task := seedScheduledTask(t, db, func(task *models.Task) {
		task.TaskerConfirmed = false
	})

	_, err := c.ConfirmSchedule(context.Background(), task.ID, "tasker-2")
	require.True(t, apperr.Is(err, apperr.KindForbidden))

	got, err := c.ConfirmSchedule(context.Background(), task.ID, "tasker-1")
	require.NoError(t, err)
	require.True(t, got.TaskerConfirmed)

	_, err = c.ConfirmSchedule(context.Background(), task.ID, "tasker-1")
	require.True(t, apperr.Is(err, apperr.KindAlreadyConfirmed))
}

func TestTaskerComplete_RequiresScheduleConfirmation(t *testing.T) {
	c, db := newCoordinator(t, nil)
	task := seedScheduledTask(t, db, func(task *models.Task) {
		task.TaskerConfirmed = false
	})

	_, err := c.TaskerComplete(context.Background(), task.ID, "tasker-1", "")
	require.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestCompletion_TaskerThenCustomer(t *testing.T) {
	stats := newFakeStats()
	c, db := newCoordinator(t, stats)
	task := seedScheduledTask(t, db)

	got, err := c.TaskerComplete(context.Background(), task.ID, "tasker-1", "photos attached")
	require.NoError(t, err)
	// One side done: still scheduled.
	require.Equal(t, models.StatusScheduled, got.Status)
	require.NotNil(t, got.TaskerCompletedAt)
	require.Nil(t, got.CustomerCompletedAt)

	got, err = c.CustomerComplete(context.Background(), task.ID, "customer-1", 5, map[string]int{"quality": 5})
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, got.Status)

	require.Equal(t, []int{5}, stats.ratings["tasker-1"])
	require.Equal(t, 1, stats.counts["customer-1/"+StatTasksCompleted])
	require.Equal(t, 1, stats.counts["tasker-1/"+StatTasksCompleted])
}

func TestCompletion_CustomerThenTasker(t *testing.T) {
	stats := newFakeStats()
	c, db := newCoordinator(t, stats)
	task := seedScheduledTask(t, db)

	got, err := c.CustomerComplete(context.Background(), task.ID, "customer-1", 4, nil)
	require.NoError(t, err)
	require.Equal(t, models.StatusScheduled, got.Status)

	got, err = c.TaskerComplete(context.Background(), task.ID, "tasker-1", "done")
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, got.Status)

	// The rating attached at customer completion is recorded by whichever
	// call finalizes the task.
	require.Equal(t, []int{4}, stats.ratings["tasker-1"])
}

func TestCompletion_StatsFailureDoesNotBlockTransition(t *testing.T) {
	stats := newFakeStats()
	stats.fail = true
	c, db := newCoordinator(t, stats)
	task := seedScheduledTask(t, db)

	_, err := c.CustomerComplete(context.Background(), task.ID, "customer-1", 4, nil)
	require.NoError(t, err)
	got, err := c.TaskerComplete(context.Background(), task.ID, "tasker-1", "")
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, got.Status)
}

func TestCompletion_WrongCallers(t *testing.T) {
	c, db := newCoordinator(t, nil)
	task := seedScheduledTask(t, db)

	_, err := c.TaskerComplete(context.Background(), task.ID, "tasker-2", "")
	require.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = c.CustomerComplete(context.Background(), task.ID, "tasker-1", 5, nil)
	require.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestCompletion_RatingOutOfRange(t *testing.T) {
	c, db := newCoordinator(t, nil)
	task := seedScheduledTask(t, db)

	_, err := c.CustomerComplete(context.Background(), task.ID, "customer-1", 0, nil)
	require.True(t, apperr.Is(err, apperr.KindOutOfRange))
	_, err = c.CustomerComplete(context.Background(), task.ID, "customer-1", 6, nil)
	require.True(t, apperr.Is(err, apperr.KindOutOfRange))
}

func TestCancelSchedule_RevertsToActive(t *testing.T) {
	c, db := newCoordinator(t, nil)
	task := seedScheduledTask(t, db)

	// Applications from the finished matching cycle keep their markings.
	apps := []models.Application{
		{ID: "app-1", TaskID: task.ID, TaskerID: "tasker-1", ProposedPayment: 75, Status: models.ApplicationConfirmed},
		{ID: "app-2", TaskID: task.ID, TaskerID: "tasker-2", ProposedPayment: 90, Status: models.ApplicationRejected},
	}
	for i := range apps {
		require.NoError(t, db.Create(&apps[i]).Error)
	}

	_, err := c.CancelSchedule(context.Background(), task.ID, "tasker-2", "")
	require.True(t, apperr.Is(err, apperr.KindForbidden))

	got, err := c.CancelSchedule(context.Background(), task.ID, "tasker-1", "cannot make it")
	require.NoError(t, err)

	require.Equal(t, models.StatusActive, got.Status)
	require.Nil(t, got.SelectedTaskerID)
	require.Nil(t, got.AgreedTime)
	require.Nil(t, got.AgreedPayment)
	require.False(t, got.TaskerConfirmed)
	require.Equal(t, models.AdvanceRefunded, got.AdvancePaymentStatus)
	require.Equal(t, "cannot make it", got.CancellationReason)

	var app1, app2 models.Application
	require.NoError(t, db.Where("id = ?", "app-1").First(&app1).Error)
	require.NoError(t, db.Where("id = ?", "app-2").First(&app2).Error)
	require.Equal(t, models.ApplicationConfirmed, app1.Status)
	require.Equal(t, models.ApplicationRejected, app2.Status)
}

func TestCancelSchedule_OnlyWhileScheduled(t *testing.T) {
	c, db := newCoordinator(t, nil)
	task := seedScheduledTask(t, db, func(task *models.Task) {
		task.Status = models.StatusCompleted
	})

	_, err := c.CancelSchedule(context.Background(), task.ID, "customer-1", "")
	require.True(t, apperr.Is(err, apperr.KindInvalidState))
}
