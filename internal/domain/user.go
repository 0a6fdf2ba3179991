package domain

import "time"

// Role is the closed set of account roles.
type Role string

const (
	RoleStudent   Role = "STUDENT"
	RoleProfessor Role = "PROFESSOR"
)

// Valid reports whether the role is a known variant.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleProfessor
}

// User is the domain model for registered accounts. Profiles are immutable
// after registration apart from the password hash.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Department   *string
	StudentID    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanActOn reports whether the user may resolve or reject an issue raised
// against the given department.
func (u *User) CanActOn(department string) bool {
	return u.Role == RoleProfessor && u.Department != nil && *u.Department == department
}
