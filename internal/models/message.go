package models

import (
	"gorm.io/gorm"
)

// Message represents one chat message exchanged in the context of a task.
// Access is decided per send/fetch by the chat access policy, never stored.
type Message struct {
	ID          string `json:"id" gorm:"primaryKey"`
	TaskID      string `json:"taskId" gorm:"column:task_id;index;not null"`
	SenderID    string `json:"senderId" gorm:"column:sender_id;not null"`
	RecipientID string `json:"recipientId" gorm:"column:recipient_id;not null"`
	Body        string `json:"body" gorm:"not null"`

	gorm.Model
}

// TableName specifies the table name for Message Model
func (Message) TableName() string {
	return "messages"
}
