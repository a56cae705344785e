package models

import (
	"time"

	"gorm.io/gorm"
)

// ApplicationStatus represents the status of a tasker's bid
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationConfirmed ApplicationStatus = "confirmed"
	ApplicationRejected  ApplicationStatus = "rejected"
)

// Application represents one tasker's bid on a task.
// The (task, tasker) pair is unique: a tasker may apply to a task at most once.
type Application struct {
	ID       string `json:"id" gorm:"primaryKey"`
	TaskID   string `json:"taskId" gorm:"column:task_id;uniqueIndex:idx_task_tasker;not null"`
	TaskerID string `json:"taskerId" gorm:"column:tasker_id;uniqueIndex:idx_task_tasker;not null"`

	ProposedPayment int64             `json:"proposedPayment" gorm:"column:proposed_payment;not null"`
	Status          ApplicationStatus `json:"status" gorm:"not null;default:'pending';index"`

	ConfirmedByTasker bool       `json:"confirmedByTasker" gorm:"column:confirmed_by_tasker;default:false"`
	ConfirmedTime     *time.Time `json:"confirmedTime,omitempty" gorm:"column:confirmed_time"`
	ConfirmedPayment  *int64     `json:"confirmedPayment,omitempty" gorm:"column:confirmed_payment"`

	gorm.Model
}

// TableName specifies the table name for Application Model
func (Application) TableName() string {
	return "applications"
}
