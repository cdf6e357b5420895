package domain

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStandard
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserUpdate holds a partial profile change; nil fields keep their value.
type UserUpdate struct {
	FirstName   *string
	LastName    *string
	Email       *string
	PhoneNumber *string
}

type User struct {
	ID          int64
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Role        Role
	CreatedAt   time.Time
}
