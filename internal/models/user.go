package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSupervisor UserRole = "SUPERVISOR"
	RoleAdmin      UserRole = "ADMIN"
	RoleAssistant  UserRole = "ASSISTANT"
)

// User represents a staff member in the office directory.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// EligibleHandler reports whether the user may be assigned cases: the user
// must be active and hold an administrative or supervisory role.
func (u *User) EligibleHandler() bool {
	if !u.Active {
		return false
	}
	return u.Role == RoleAdmin || u.Role == RoleSupervisor
}

// Actor identifies who performs a core operation. It is supplied explicitly
// by the caller on every mutating call; the core keeps no ambient session.
type Actor struct {
	ID   string
	Role UserRole
}

// System reports whether the action originates from the system itself.
func (a Actor) System() bool {
	return a.ID == ""
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
