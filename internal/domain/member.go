package domain

import "strings"

// Role determines ticket visibility and permitted actions.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleIT    Role = "IT"
	RoleUser  Role = "USER"
)

// IsPrivileged reports whether the role may triage any ticket.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleIT
}

// ParseRole matches a role name case-insensitively.
func ParseRole(value string) (Role, bool) {
	switch role := Role(strings.ToUpper(strings.TrimSpace(value))); role {
	case RoleAdmin, RoleIT, RoleUser:
		return role, true
	}
	return "", false
}

// Member is an authenticated helpdesk account.
type Member struct {
	ID         int64     `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	CreatedAt  Timestamp `json:"createdAt"`
}

// LoginForm is the credential payload for POST /api/auth/login.
type LoginForm struct {
	EmployeeID string `json:"employeeId"`
	Password   string `json:"password"`
}

// RegisterForm is the payload for POST /api/auth/register.
type RegisterForm struct {
	EmployeeID string `json:"employeeId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	GroupID    *int64 `json:"groupId"`
}

// AuthResult is returned by login and register.
type AuthResult struct {
	Token  string `json:"token"`
	Member Member `json:"member"`
}
