package models

import (
	"time"
)

// User is a marketplace member. Users are registered by the identity service.
type User struct {
	ID           int64      `json:"user_id" gorm:"column:user_id;primaryKey;autoIncrement"`
	Name         string     `json:"user_name,omitempty" gorm:"column:user_name"`
	Email        string     `json:"email,omitempty" gorm:"column:email"`
	DOB          *time.Time `json:"dob,omitempty" gorm:"column:dob"`
	PasswordHash string     `json:"-" gorm:"column:password_hash"`
	CreatedAt    time.Time  `json:"created_at" gorm:"column:created_at;<-:false"`
}

func (u User) TableName() string {
	return "users"
}

func (u User) PK() string {
	return itoa(u.ID)
}

// UserRole tags a user as a worker, organizer or employer.
type UserRole struct {
	UserID   int64  `json:"user_id" gorm:"column:user_id;primaryKey"`
	RoleName string `json:"role_name" gorm:"column:role_name;primaryKey"`
}

func (r UserRole) TableName() string {
	return "users_roles"
}
