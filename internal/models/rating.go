package models

import (
	"gorm.io/gorm"
)

// Rating records a customer's rating of a tasker for a completed task.
type Rating struct {
	ID        string `json:"id" gorm:"primaryKey"`
	TaskID    string `json:"taskId,omitempty" gorm:"column:task_id;index"`
	TaskerID  string `json:"taskerId" gorm:"column:tasker_id;index;not null"`
	RatedByID string `json:"ratedById,omitempty" gorm:"column:rated_by_id"`
	Score     int    `json:"score" gorm:"not null"`
	Breakdown string `json:"breakdown,omitempty" gorm:"column:breakdown"`

	gorm.Model
}

// TableName specifies the table name for Rating Model
func (Rating) TableName() string {
	return "ratings"
}

// StatCounter is a per-user named counter (e.g. tasks_completed).
type StatCounter struct {
	UserID string `json:"userId" gorm:"column:user_id;uniqueIndex:idx_user_stat;not null"`
	Name   string `json:"name" gorm:"uniqueIndex:idx_user_stat;not null"`
	Value  int64  `json:"value" gorm:"not null;default:0"`

	gorm.Model
}

// TableName specifies the table name for StatCounter Model
func (StatCounter) TableName() string {
	return "stat_counters"
}
