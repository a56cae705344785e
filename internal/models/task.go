package models

import (
	"time"

	"gorm.io/gorm"
)

// TaskStatus represents the lifecycle status of a task
type TaskStatus string

const (
	StatusActive    TaskStatus = "active"
	StatusScheduled TaskStatus = "scheduled"
	StatusCompleted TaskStatus = "completed"
	StatusCancelled TaskStatus = "cancelled"
)

// AdvancePaymentStatus tracks the advance payment attached to a selection.
// The empty string means no advance payment has been initiated.
type AdvancePaymentStatus string

const (
	AdvancePending  AdvancePaymentStatus = "pending"
	AdvancePaid     AdvancePaymentStatus = "paid"
	AdvanceReleased AdvancePaymentStatus = "released"
	AdvanceRefunded AdvancePaymentStatus = "refunded"
)

// Task represents a customer-posted job in the marketplace.
// Payment amounts are in the smallest currency unit.
type Task struct {
	ID          string `json:"id" gorm:"primaryKey"`
	CustomerID  string `json:"customerId" gorm:"column:customer_id;index;not null"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description"`

	MinPayment    int64      `json:"minPayment" gorm:"column:min_payment;not null"`
	MaxPayment    int64      `json:"maxPayment" gorm:"column:max_payment;not null"`
	AgreedPayment *int64     `json:"agreedPayment,omitempty" gorm:"column:agreed_payment"`
	AgreedTime    *time.Time `json:"agreedTime,omitempty" gorm:"column:agreed_time"`

	StartDate time.Time `json:"startDate" gorm:"column:start_date;not null"`
	EndDate   time.Time `json:"endDate" gorm:"column:end_date;not null"`

	IsTargeted       bool    `json:"isTargeted" gorm:"column:is_targeted;default:false"`
	TargetedTaskerID *string `json:"targetedTasker,omitempty" gorm:"column:targeted_tasker_id"`
	SelectedTaskerID *string `json:"selectedTasker,omitempty" gorm:"column:selected_tasker_id"`

	Status TaskStatus `json:"status" gorm:"not null;default:'active';index"`

	AdvancePaymentStatus AdvancePaymentStatus `json:"advancePaymentStatus,omitempty" gorm:"column:advance_payment_status"`
	AdvancePayment       *int64               `json:"advancePayment,omitempty" gorm:"column:advance_payment"`
	PaymentID            *string              `json:"-" gorm:"column:payment_id;index"`
	PaymentDate          *time.Time           `json:"paymentDate,omitempty" gorm:"column:payment_date"`

	TaskerConfirmed     bool       `json:"taskerConfirmed" gorm:"column:tasker_confirmed;default:false"`
	TaskerCompletedAt   *time.Time `json:"taskerCompletedAt,omitempty" gorm:"column:tasker_completed_at"`
	CustomerCompletedAt *time.Time `json:"customerCompletedAt,omitempty" gorm:"column:customer_completed_at"`
	CompletionEvidence  string     `json:"completionEvidence,omitempty" gorm:"column:completion_evidence"`
	CustomerRating      *int       `json:"customerRating,omitempty" gorm:"column:customer_rating"`

	CancelledBy        *string    `json:"cancelledBy,omitempty" gorm:"column:cancelled_by"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty" gorm:"column:cancelled_at"`
	CancellationReason string     `json:"cancellationReason,omitempty" gorm:"column:cancellation_reason"`

	gorm.Model
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// IsParticipant reports whether userID is the task's customer, its selected
// tasker, or (for targeted tasks) the targeted tasker.
func (t *Task) IsParticipant(userID string) bool {
	if userID == "" {
		return false
	}
	if t.CustomerID == userID {
		return true
	}
	if t.SelectedTaskerID != nil && *t.SelectedTaskerID == userID {
		return true
	}
	if t.IsTargeted && t.TargetedTaskerID != nil && *t.TargetedTaskerID == userID {
		return true
	}
	return false
}
