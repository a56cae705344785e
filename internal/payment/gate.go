package payment

import (
	"context"
	"errors"
	"time"

	"task-marketplace-api/internal/apperr"
	"task-marketplace-api/internal/matching"
	"task-marketplace-api/internal/models"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusSuccess is the provider's success sentinel; any other status code is
// treated as a failure or an explicit cancellation.
const StatusSuccess = "00"

// Notification carries the fields of an inbound payment-provider webhook.
type Notification struct {
	MerchantID string `json:"merchantId"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	StatusCode string `json:"statusCode"`
	Method     string `json:"method"`
	Signature  string `json:"signature"`
}

// Notifier receives best-effort payment notices.
type Notifier interface {
	PaymentUpdate(taskID, userID, status string)
}

// Gate interprets payment-provider notifications and moves tasks between
// active (awaiting payment) and scheduled (paid). It is the only component
// allowed to advance a task into scheduled.
type Gate struct {
	db       *gorm.DB
	secret   string
	log      lgr.L
	notifier Notifier
}

// NewGate builds a Gate. logger and notifier may be nil.
func NewGate(db *gorm.DB, secret string, logger lgr.L, notifier Notifier) *Gate {
	if logger == nil {
		logger = lgr.NoOp
	}
	return &Gate{db: db, secret: secret, log: logger, notifier: notifier}
}

// HandleNotification verifies and applies a provider notification. Replays of
// an already-applied success notification are a no-op, not an error; the
// provider delivers at least once.
func (g *Gate) HandleNotification(ctx context.Context, n Notification) (*models.Task, error) {
	if !VerifySignature(n, g.secret) {
		return nil, apperr.New(apperr.KindInvalidSignature, "payment notification signature mismatch")
	}

	var task models.Task
	if err := g.db.WithContext(ctx).Where("payment_id = ?", n.OrderID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "no task for this payment order")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to fetch task", err)
	}

	if n.StatusCode == StatusSuccess {
		return g.applySuccess(ctx, task.ID, n.OrderID)
	}
	return g.applyFailure(ctx, task.ID, n.OrderID)
}

// applySuccess performs the status-check-then-update inside a transaction so
// concurrent duplicate deliveries cannot double-apply the transition.
func (g *Gate) applySuccess(ctx context.Context, taskID, orderID string) (*models.Task, error) {
	var result *models.Task

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Where("id = ?", taskID).First(&task).Error; err != nil {
			return err
		}

		// Replay of the same successful notification: already applied.
		if task.Status == models.StatusScheduled &&
			task.AdvancePaymentStatus == models.AdvancePaid &&
			task.PaymentID != nil && *task.PaymentID == orderID {
			result = &task
			return nil
		}

		if task.Status != models.StatusActive || task.AdvancePaymentStatus != models.AdvancePending {
			return apperr.New(apperr.KindInvalidState, "task is not awaiting an advance payment")
		}

		now := time.Now()
		task.AdvancePaymentStatus = models.AdvancePaid
		task.PaymentDate = &now
		task.Status = models.StatusScheduled
		if err := tx.Save(&task).Error; err != nil {
			return err
		}

		result = &task
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.log.Logf("INFO advance payment for task %s marked paid, task scheduled", taskID)
	g.notifyParties(result, "paid")
	return result, nil
}

// applyFailure clears the pending advance so the customer can retry payment.
// The selection itself (selected tasker, agreed terms) is kept.
func (g *Gate) applyFailure(ctx context.Context, taskID, orderID string) (*models.Task, error) {
	var result *models.Task

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Where("id = ?", taskID).First(&task).Error; err != nil {
			return err
		}

		if task.Status != models.StatusActive || task.AdvancePaymentStatus != models.AdvancePending {
			// Failure notice for a payment that is not pending anymore: no-op.
			result = &task
			return nil
		}

		if err := tx.Model(&task).Updates(map[string]interface{}{
			"advance_payment_status": "",
			"advance_payment":        nil,
			"payment_id":             nil,
		}).Error; err != nil {
			return err
		}
		task.AdvancePaymentStatus = ""
		task.AdvancePayment = nil
		task.PaymentID = nil
		result = &task
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.log.Logf("WARN advance payment for task %s failed or was cancelled (order %s)", taskID, orderID)
	g.notifyParties(result, "failed")
	return result, nil
}

// RetryPayment re-initiates the advance payment after a failed or cancelled
// attempt. A fresh correlation token is issued so the provider can notify on
// the new order; the selection and agreed terms are untouched, so the
// customer does not re-run selection.
func (g *Gate) RetryPayment(ctx context.Context, taskID, customerID string) (*models.Task, error) {
	if customerID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}

	var result *models.Task
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Where("id = ?", taskID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "task not found")
			}
			return apperr.Wrap(apperr.KindInternal, "failed to fetch task", err)
		}
		if task.CustomerID != customerID {
			return apperr.New(apperr.KindForbidden, "only the task owner may retry the payment")
		}
		if task.Status != models.StatusActive || task.SelectedTaskerID == nil || task.AgreedPayment == nil {
			return apperr.New(apperr.KindInvalidState, "task has no selection awaiting payment")
		}
		if task.AdvancePaymentStatus != "" {
			return apperr.New(apperr.KindInvalidState, "an advance payment is already tracked for this task")
		}

		advance := *task.AgreedPayment / matching.AdvanceDivisor
		paymentID := "pay-" + uuid.NewString()
		task.AdvancePaymentStatus = models.AdvancePending
		task.AdvancePayment = &advance
		task.PaymentID = &paymentID
		if err := tx.Save(&task).Error; err != nil {
			return err
		}
		result = &task
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.log.Logf("INFO advance payment for task %s re-initiated (order %s)", taskID, *result.PaymentID)
	return result, nil
}

// Release moves the advance payment from paid to released once the task has
// completed.
func (g *Gate) Release(ctx context.Context, taskID, customerID string) (*models.Task, error) {
	if customerID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "caller identity required")
	}

	var task models.Task
	if err := g.db.WithContext(ctx).Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "task not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to fetch task", err)
	}
	if task.CustomerID != customerID {
		return nil, apperr.New(apperr.KindForbidden, "only the task owner may release the payment")
	}
	if task.Status != models.StatusCompleted {
		return nil, apperr.New(apperr.KindInvalidState, "payment can only be released after completion")
	}
	if task.AdvancePaymentStatus != models.AdvancePaid {
		return nil, apperr.New(apperr.KindInvalidState, "advance payment is not in a releasable state")
	}

	if err := g.db.WithContext(ctx).Model(&task).
		Update("advance_payment_status", models.AdvanceReleased).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to release payment", err)
	}
	task.AdvancePaymentStatus = models.AdvanceReleased

	g.log.Logf("INFO advance payment for task %s released", taskID)
	g.notifyParties(&task, "released")
	return &task, nil
}

func (g *Gate) notifyParties(task *models.Task, status string) {
	if g.notifier == nil || task == nil {
		return
	}
	g.notifier.PaymentUpdate(task.ID, task.CustomerID, status)
	if task.SelectedTaskerID != nil {
		g.notifier.PaymentUpdate(task.ID, *task.SelectedTaskerID, status)
	}
}
