package completion

import (
	"context"
	"errors"
	"time"

	"task-marketplace-api/internal/apperr"
	"task-marketplace-api/internal/models"

	"github.com/go-pkgz/lgr"
	"gorm.io/gorm"
)

// StatTasksCompleted is the counter incremented for both parties when a task
// completes.
const StatTasksCompleted = "tasks_completed"

// Stats is the external rating/statistics collaborator. Calls are
// fire-and-forget: failures are logged and must never block the completion
// transition.
type Stats interface {
	RecordRating(ctx context.Context, userID string, rating int, breakdown map[string]int) error
	IncrementStat(ctx context.Context, userID, statName string) error
}

// Coordinator runs the two-sided completion handshake on scheduled tasks.
type Coordinator struct {
	db    *gorm.DB
	stats Stats
	log   lgr.L
}

// NewCoordinator builds a Coordinator. stats and logger may be nil.
func NewCoordinator(db *gorm.DB, stats Stats, logger lgr.L) *Coordinator {
	if logger == nil {
		logger = lgr.NoOp
	}
	return &Coordinator{db: db, stats: stats, log: logger}
}

func (c *Coordinator) loadScheduled(tx *gorm.DB, taskID string) (*models.Task, error) {
	var task models.Task
	if err := tx.Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "task not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to fetch task", err)
	}
	if task.Status != models.StatusScheduled {
		return nil, apperr.New(apperr.KindInvalidState, "task is not scheduled")
	}
	return &task, nil
}

// ConfirmSchedule records the selected tasker's acceptance of the schedule.
// It is the prerequisite for TaskerComplete.
func (c *Coordinator) ConfirmSchedule(ctx context.Context, taskID, taskerID string) (*models.Task, error) {
	if taskerID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}

	task, err := c.loadScheduled(c.db.WithContext(ctx), taskID)
	if err != nil {
		return nil, err
	}
	if task.SelectedTaskerID == nil || *task.SelectedTaskerID != taskerID {
		return nil, apperr.New(apperr.KindForbidden, "only the selected tasker may confirm the schedule")
	}
	if task.TaskerConfirmed {
		return nil, apperr.New(apperr.KindAlreadyConfirmed, "schedule already confirmed")
	}

	if err := c.db.WithContext(ctx).Model(task).Update("tasker_confirmed", true).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to confirm schedule", err)
	}
	task.TaskerConfirmed = true

	c.log.Logf("INFO tasker %s confirmed schedule for task %s", taskerID, taskID)
	return task, nil
}

// TaskerComplete marks the tasker side of the handshake, attaching completion
// evidence. If the customer already completed, the task is finalized.
func (c *Coordinator) TaskerComplete(ctx context.Context, taskID, taskerID, evidence string) (*models.Task, error) {
	if taskerID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}

	var result *models.Task
	finalized := false

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := c.loadScheduled(tx, taskID)
		if err != nil {
			return err
		}
		if task.SelectedTaskerID == nil || *task.SelectedTaskerID != taskerID {
			return apperr.New(apperr.KindForbidden, "only the selected tasker may mark completion")
		}
		if !task.TaskerConfirmed {
			return apperr.New(apperr.KindInvalidState, "schedule must be confirmed before completion")
		}
		if task.TaskerCompletedAt != nil {
			return apperr.New(apperr.KindAlreadyConfirmed, "tasker completion already recorded")
		}

		now := time.Now()
		task.TaskerCompletedAt = &now
		task.CompletionEvidence = evidence
		if task.CustomerCompletedAt != nil {
			task.Status = models.StatusCompleted
			finalized = true
		}
		if err := tx.Save(task).Error; err != nil {
			return err
		}
		result = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	if finalized {
		c.finalize(ctx, result)
	}
	return result, nil
}

// CustomerComplete marks the customer side of the handshake, attaching the
// rating for the tasker. If the tasker already completed, the task is
// finalized.
func (c *Coordinator) CustomerComplete(ctx context.Context, taskID, customerID string, rating int, breakdown map[string]int) (*models.Task, error) {
	if customerID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}
	if rating < 1 || rating > 5 {
		return nil, apperr.New(apperr.KindOutOfRange, "rating must be between 1 and 5")
	}

	var result *models.Task
	finalized := false

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := c.loadScheduled(tx, taskID)
		if err != nil {
			return err
		}
		if task.CustomerID != customerID {
			return apperr.New(apperr.KindForbidden, "only the task owner may mark completion")
		}
		if task.CustomerCompletedAt != nil {
			return apperr.New(apperr.KindAlreadyConfirmed, "customer completion already recorded")
		}

		now := time.Now()
		task.CustomerCompletedAt = &now
		task.CustomerRating = &rating
		if task.TaskerCompletedAt != nil {
			task.Status = models.StatusCompleted
			finalized = true
		}
		if err := tx.Save(task).Error; err != nil {
			return err
		}
		result = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	if finalized {
		c.finalizeWithBreakdown(ctx, result, breakdown)
	}
	return result, nil
}

// CancelSchedule reverts a scheduled task to active. The selection and the
// agreed terms are cleared so a new matching cycle can start; applications
// keep their terminal markings.
func (c *Coordinator) CancelSchedule(ctx context.Context, taskID, callerID, reason string) (*models.Task, error) {
	if callerID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}

	var result *models.Task
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := c.loadScheduled(tx, taskID)
		if err != nil {
			return err
		}
		isCustomer := task.CustomerID == callerID
		isTasker := task.SelectedTaskerID != nil && *task.SelectedTaskerID == callerID
		if !isCustomer && !isTasker {
			return apperr.New(apperr.KindForbidden, "only the customer or the selected tasker may cancel the schedule")
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":              models.StatusActive,
			"selected_tasker_id":  nil,
			"agreed_time":         nil,
			"agreed_payment":      nil,
			"tasker_confirmed":    false,
			"cancelled_by":        callerID,
			"cancelled_at":        now,
			"cancellation_reason": reason,
		}
		if task.AdvancePaymentStatus == models.AdvancePaid {
			updates["advance_payment_status"] = models.AdvanceRefunded
		}
		if err := tx.Model(task).Updates(updates).Error; err != nil {
			return err
		}

		task.Status = models.StatusActive
		task.SelectedTaskerID = nil
		task.AgreedTime = nil
		task.AgreedPayment = nil
		task.TaskerConfirmed = false
		task.CancelledBy = &callerID
		task.CancelledAt = &now
		task.CancellationReason = reason
		if task.AdvancePaymentStatus == models.AdvancePaid {
			task.AdvancePaymentStatus = models.AdvanceRefunded
		}
		result = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Logf("INFO schedule for task %s cancelled by %s", taskID, callerID)
	return result, nil
}

func (c *Coordinator) finalize(ctx context.Context, task *models.Task) {
	c.finalizeWithBreakdown(ctx, task, nil)
}

// finalizeWithBreakdown fires the external rating/statistics updates after
// the completion transition has committed. Failures are logged and swallowed.
func (c *Coordinator) finalizeWithBreakdown(ctx context.Context, task *models.Task, breakdown map[string]int) {
	c.log.Logf("INFO task %s completed", task.ID)
	if c.stats == nil {
		return
	}

	if task.CustomerRating != nil && task.SelectedTaskerID != nil {
		if err := c.stats.RecordRating(ctx, *task.SelectedTaskerID, *task.CustomerRating, breakdown); err != nil {
			c.log.Logf("WARN failed to record rating for task %s: %v", task.ID, err)
		}
	}
	if err := c.stats.IncrementStat(ctx, task.CustomerID, StatTasksCompleted); err != nil {
		c.log.Logf("WARN failed to increment customer stat for task %s: %v", task.ID, err)
	}
	if task.SelectedTaskerID != nil {
		if err := c.stats.IncrementStat(ctx, *task.SelectedTaskerID, StatTasksCompleted); err != nil {
			c.log.Logf("WARN failed to increment tasker stat for task %s: %v", task.ID, err)
		}
	}
}
