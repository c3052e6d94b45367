package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated user in the system
type User struct {
	BaseModel
	Username    string       `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Email       string       `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password    string       `gorm:"type:varchar(255);not null;default:''" json:"-"` // bcrypt hash; empty for OAuth-only accounts
	RoleID      *uint        `gorm:"index" json:"role_id"`
	Role        *Role        `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	TOTPSecret  *string      `gorm:"type:varchar(64)" json:"-"`
	Permissions []Permission `gorm:"many2many:user_permissions;constraint:OnDelete:CASCADE" json:"permissions,omitempty"`
}

// IsAdmin reports whether the user holds the administrative role.
func (u *User) IsAdmin() bool {
	return u.Role != nil && u.Role.Code == RoleAdmin
}

func (u *User) RoleCode() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Code
}

// PermissionCodes returns the explicitly granted permission codes.
func (u *User) PermissionCodes() []string {
	codes := make([]string, len(u.Permissions))
	for i, p := range u.Permissions {
		codes[i] = p.Code
	}
	return codes
}

// UserResponse is used for API responses (without sensitive data)
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	TOTPEnabled bool      `json:"totp_enabled"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.RoleCode(),
		TOTPEnabled: u.TOTPSecret != nil && *u.TOTPSecret != "",
		Permissions: u.PermissionCodes(),
		CreatedAt:   u.CreatedAt,
	}
}
