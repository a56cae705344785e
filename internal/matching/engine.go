package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"task-marketplace-api/internal/apperr"
	"task-marketplace-api/internal/models"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SelectTimeTolerance is the maximum drift allowed between the agreed time
// passed at selection and the time the tasker confirmed.
const SelectTimeTolerance = 60 * time.Second

// AdvanceDivisor sets the advance payment to agreedPayment / AdvanceDivisor.
const AdvanceDivisor = 2

// Notifier receives best-effort selection notices. Implementations must not
// block; failures are ignored by the engine.
type Notifier interface {
	TaskerApproved(taskID, taskerID string)
	TaskerRejected(taskID, taskerID string)
}

// Engine orchestrates application intake, tasker confirmation and the atomic
// selection of one tasker per task.
type Engine struct {
	db       *gorm.DB
	log      lgr.L
	notifier Notifier
}

// NewEngine builds an Engine. logger and notifier may be nil.
func NewEngine(db *gorm.DB, logger lgr.L, notifier Notifier) *Engine {
	if logger == nil {
		logger = lgr.NoOp
	}
	return &Engine{db: db, log: logger, notifier: notifier}
}

func (e *Engine) loadTask(ctx context.Context, taskID string) (*models.Task, error) {
	var task models.Task
	if err := e.db.WithContext(ctx).Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "task not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to fetch task", err)
	}
	return &task, nil
}

// Apply creates a pending application for taskerID on the given task.
func (e *Engine) Apply(ctx context.Context, taskID, taskerID string, proposedPayment int64) (*models.Application, error) {
	if taskerID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}

	task, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.StatusActive {
		return nil, apperr.New(apperr.KindInvalidState, "task is not accepting applications")
	}
	if !task.StartDate.After(time.Now()) {
		return nil, apperr.New(apperr.KindInvalidState, "task start date has already passed")
	}
	if taskerID == task.CustomerID {
		return nil, apperr.New(apperr.KindForbidden, "cannot apply to your own task")
	}
	if task.IsTargeted && (task.TargetedTaskerID == nil || *task.TargetedTaskerID != taskerID) {
		return nil, apperr.New(apperr.KindForbidden, "task is targeted to another tasker")
	}
	if proposedPayment < task.MinPayment || proposedPayment > task.MaxPayment {
		return nil, apperr.New(apperr.KindOutOfRange,
			fmt.Sprintf("proposed payment must be between %d and %d", task.MinPayment, task.MaxPayment))
	}

	var existing models.Application
	err = e.db.WithContext(ctx).Where("task_id = ? AND tasker_id = ?", taskID, taskerID).First(&existing).Error
	if err == nil {
		return nil, apperr.New(apperr.KindConflict, "already applied to this task")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to check existing application", err)
	}

	app := models.Application{
		ID:              "app-" + uuid.NewString(),
		TaskID:          taskID,
		TaskerID:        taskerID,
		ProposedPayment: proposedPayment,
		Status:          models.ApplicationPending,
	}
	if err := e.db.WithContext(ctx).Create(&app).Error; err != nil {
		// The unique index on (task_id, tasker_id) closes the check-then-create race.
		if isUniqueViolation(err) {
			return nil, apperr.New(apperr.KindConflict, "already applied to this task")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create application", err)
	}

	e.log.Logf("INFO application %s created: task %s tasker %s payment %d", app.ID, taskID, taskerID, proposedPayment)
	return &app, nil
}

// ConfirmTime records the tasker's accepted time and payment on their
// application. For targeted tasks a pending application is created implicitly
// when the targeted tasker confirms without having applied (direct hire).
func (e *Engine) ConfirmTime(ctx context.Context, taskID, taskerID string, confirmedTime time.Time, confirmedPayment int64) (*models.Application, error) {
	if taskerID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}

	task, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.StatusActive {
		return nil, apperr.New(apperr.KindInvalidState, "task can no longer be confirmed")
	}
	if confirmedPayment < task.MinPayment || confirmedPayment > task.MaxPayment {
		return nil, apperr.New(apperr.KindOutOfRange,
			fmt.Sprintf("confirmed payment must be between %d and %d", task.MinPayment, task.MaxPayment))
	}
	if confirmedTime.Before(task.StartDate) || confirmedTime.After(task.EndDate) {
		return nil, apperr.New(apperr.KindOutOfRange, "confirmed time must fall within the task date window")
	}
	if !confirmedTime.After(time.Now()) {
		return nil, apperr.New(apperr.KindOutOfRange, "confirmed time must be in the future")
	}

	var app models.Application
	err = e.db.WithContext(ctx).Where("task_id = ? AND tasker_id = ?", taskID, taskerID).First(&app).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if !task.IsTargeted || task.TargetedTaskerID == nil || *task.TargetedTaskerID != taskerID {
			return nil, apperr.New(apperr.KindNotFound, "application not found")
		}
		// Direct-hire path: the targeted tasker confirms without applying first.
		app = models.Application{
			ID:              "app-" + uuid.NewString(),
			TaskID:          taskID,
			TaskerID:        taskerID,
			ProposedPayment: confirmedPayment,
			Status:          models.ApplicationPending,
		}
		if err := e.db.WithContext(ctx).Create(&app).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, apperr.New(apperr.KindConflict, "application already exists")
			}
			return nil, apperr.Wrap(apperr.KindInternal, "failed to create application", err)
		}
	case err != nil:
		return nil, apperr.Wrap(apperr.KindInternal, "failed to fetch application", err)
	}

	if app.Status != models.ApplicationPending {
		return nil, apperr.New(apperr.KindInvalidState, "application is no longer pending")
	}
	if app.ConfirmedByTasker {
		return nil, apperr.New(apperr.KindAlreadyConfirmed, "time and payment already confirmed")
	}

	app.ConfirmedByTasker = true
	app.ConfirmedTime = &confirmedTime
	app.ConfirmedPayment = &confirmedPayment
	if err := e.db.WithContext(ctx).Save(&app).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to save confirmation", err)
	}

	e.log.Logf("INFO application %s confirmed by tasker %s: time %s payment %d",
		app.ID, taskerID, confirmedTime.Format(time.RFC3339), confirmedPayment)
	return &app, nil
}

// SelectTasker atomically assigns taskerID to the task: the winning
// application becomes confirmed, every other pending application is rejected,
// and the task records the agreed terms plus a pending advance payment. The
// task stays active until the advance payment notification arrives.
func (e *Engine) SelectTasker(ctx context.Context, taskID, customerID, taskerID string, agreedTime time.Time, agreedPayment int64) (*models.Task, error) {
	if customerID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}

	task, rejected, err := e.selectOnce(ctx, taskID, customerID, taskerID, agreedTime, agreedPayment)
	if err != nil && isWriteConflict(err) {
		// One retry on a storage-level write conflict, then surface Conflict.
		e.log.Logf("WARN selection write conflict on task %s, retrying once", taskID)
		task, rejected, err = e.selectOnce(ctx, taskID, customerID, taskerID, agreedTime, agreedPayment)
		if err != nil && isWriteConflict(err) {
			return nil, apperr.Wrap(apperr.KindConflict, "selection conflicted with a concurrent update", err)
		}
	}
	if err != nil {
		return nil, err
	}

	if e.notifier != nil {
		e.notifier.TaskerApproved(task.ID, taskerID)
		// Only the taskers rejected by this selection; applications already
		// rejected in an earlier matching cycle are not re-notified.
		for _, r := range rejected {
			e.notifier.TaskerRejected(task.ID, r)
		}
	}
	return task, nil
}

func (e *Engine) selectOnce(ctx context.Context, taskID, customerID, taskerID string, agreedTime time.Time, agreedPayment int64) (*models.Task, []string, error) {
	var selected *models.Task
	var rejectedTaskers []string

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Where("id = ?", taskID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "task not found")
			}
			return err
		}
		if task.CustomerID != customerID {
			return apperr.New(apperr.KindForbidden, "only the task owner may select a tasker")
		}
		if task.Status != models.StatusActive {
			return apperr.New(apperr.KindInvalidState, "task cannot be scheduled in its current status")
		}
		if task.SelectedTaskerID != nil {
			return apperr.New(apperr.KindInvalidState, "a tasker has already been selected")
		}
		if agreedTime.Before(task.StartDate) || agreedTime.After(task.EndDate) {
			return apperr.New(apperr.KindOutOfRange, "agreed time must fall within the task date window")
		}
		if agreedPayment < task.MinPayment || agreedPayment > task.MaxPayment {
			return apperr.New(apperr.KindOutOfRange,
				fmt.Sprintf("agreed payment must be between %d and %d", task.MinPayment, task.MaxPayment))
		}

		var app models.Application
		err := tx.Where("task_id = ? AND tasker_id = ? AND status = ?", taskID, taskerID, models.ApplicationPending).
			First(&app).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindInvalidState, "no pending application from this tasker")
		}
		if err != nil {
			return err
		}
		if !app.ConfirmedByTasker || app.ConfirmedTime == nil || app.ConfirmedPayment == nil {
			return apperr.New(apperr.KindInvalidState, "tasker has not confirmed time and payment")
		}
		if drift := agreedTime.Sub(*app.ConfirmedTime); drift > SelectTimeTolerance || drift < -SelectTimeTolerance {
			return apperr.New(apperr.KindMismatch, "agreed time does not match the tasker's confirmed time")
		}
		if agreedPayment != *app.ConfirmedPayment {
			return apperr.New(apperr.KindMismatch, "agreed payment does not match the tasker's confirmed payment")
		}

		advance := agreedPayment / AdvanceDivisor
		paymentID := "pay-" + uuid.NewString()
		task.SelectedTaskerID = &taskerID
		task.AgreedPayment = &agreedPayment
		task.AgreedTime = &agreedTime
		task.AdvancePaymentStatus = models.AdvancePending
		task.AdvancePayment = &advance
		task.PaymentID = &paymentID
		if err := tx.Save(&task).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Application{}).
			Where("id = ?", app.ID).
			Update("status", models.ApplicationConfirmed).Error; err != nil {
			return err
		}

		var losers []models.Application
		if err := tx.Where("task_id = ? AND status = ? AND id <> ?", taskID, models.ApplicationPending, app.ID).
			Find(&losers).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Application{}).
			Where("task_id = ? AND status = ? AND id <> ?", taskID, models.ApplicationPending, app.ID).
			Update("status", models.ApplicationRejected).Error; err != nil {
			return err
		}
		rejectedTaskers = rejectedTaskers[:0]
		for _, l := range losers {
			rejectedTaskers = append(rejectedTaskers, l.TaskerID)
		}

		selected = &task
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	e.log.Logf("INFO tasker %s selected for task %s: payment %d advance %d",
		taskerID, taskID, agreedPayment, *selected.AdvancePayment)
	return selected, rejectedTaskers, nil
}

// CancelTask moves an active task to cancelled (customer only).
func (e *Engine) CancelTask(ctx context.Context, taskID, customerID, reason string) (*models.Task, error) {
	if customerID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}

	task, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.CustomerID != customerID {
		return nil, apperr.New(apperr.KindForbidden, "only the task owner may cancel the task")
	}
	if task.Status != models.StatusActive {
		return nil, apperr.New(apperr.KindInvalidState, "only active tasks can be cancelled")
	}

	now := time.Now()
	task.Status = models.StatusCancelled
	task.CancelledBy = &customerID
	task.CancelledAt = &now
	task.CancellationReason = reason
	if err := e.db.WithContext(ctx).Save(task).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to cancel task", err)
	}

	e.log.Logf("INFO task %s cancelled by customer %s", taskID, customerID)
	return task, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

func isWriteConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
