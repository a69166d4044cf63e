package models

import "time"

type UserRole string

const (
	UserRoleMember UserRole = "member"
	UserRoleAdmin  UserRole = "admin"
)

type User struct {
	ID                    string
	Email                 string
	PasswordHash          []byte
	DisplayName           string
	Role                  UserRole
	LastUsedSellerProfile *string
	LastLoginAt           *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
