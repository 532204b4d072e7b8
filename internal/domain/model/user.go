package model

import (
	"strings"
	"time"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superAdmin"
	RoleStaffAdmin Role = "staffAdmin"
)

// IsAdmin reports whether the role may act on resources it does not own.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin, RoleStaffAdmin:
		return true
	}
	return false
}

// User is a customer account. Authentication lives outside this module;
// the user row only carries what the subscription engine reads and writes.
type User struct {
	ID                   string
	Name                 string
	Email                string
	Phone                string
	Role                 Role
	ActiveSubscriptionID *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func NewUser(id, name, email string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Email:     email,
		Role:      RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// Principal is the already-authenticated caller of an operation.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

// CanAccess is the ownership re-check every user-facing operation performs.
func (p Principal) CanAccess(ownerID string) bool {
	return p.Role.IsAdmin() || (p.UserID != "" && p.UserID == ownerID)
}
