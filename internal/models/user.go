package models

import (
	"gorm.io/gorm"
)

// Role distinguishes the two marketplace actors.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleTasker   Role = "tasker"
)

// CustomerProfile holds the customer-specific part of a user.
type CustomerProfile struct {
	CompanyName string `json:"companyName,omitempty" gorm:"column:company_name"`
}

// TaskerProfile holds the tasker-specific part of a user.
type TaskerProfile struct {
	Skills   string `json:"skills,omitempty" gorm:"column:skills"`
	Bio      string `json:"bio,omitempty" gorm:"column:bio"`
	Location string `json:"location,omitempty" gorm:"column:location"`
}

// User represents a user in the system. The role selects which embedded
// profile carries meaning; the other stays zero-valued.
type User struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Username string `json:"username" gorm:"unique;not null"`
	Password string `json:"-" gorm:"not null"`
	Role     Role   `json:"role" gorm:"not null;default:'customer'"`

	CustomerProfile CustomerProfile `json:"customerProfile,omitempty" gorm:"embedded"`
	TaskerProfile   TaskerProfile   `json:"taskerProfile,omitempty" gorm:"embedded"`

	gorm.Model
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}
