package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleParent  UserRole = "PARENT"
	RoleSchool  UserRole = "SCHOOL"
	RoleAcademy UserRole = "ACADEMY"
	RoleAdmin   UserRole = "ADMIN"
)

// IsPrivileged reports whether the role may register several students for an individual sport.
func (r UserRole) IsPrivileged() bool {
	return r == RoleSchool || r == RoleAdmin
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"fullName"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// Actor is the authenticated caller of a use case.
type Actor struct {
	ID   string
	Role UserRole
	Name string
}
