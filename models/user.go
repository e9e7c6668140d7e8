package models

import "time"

// UserRole represents user roles, matching the ENUM in the database.
type UserRole string

const (
	RoleStudent     UserRole = "student"
	RoleCoordinator UserRole = "coordinator"
	RoleAdmin       UserRole = "admin"
)

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Department   *string   `json:"department,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
