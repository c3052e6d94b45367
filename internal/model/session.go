package model

import (
	"time"

	"github.com/google/uuid"
)

// Session binds an opaque bearer token to a user. Only the SHA-256 hash of
// the token is stored. Expiry is a sliding inactivity window measured from
// LastActivity.
type Session struct {
	BaseModel
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User           *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TokenHash      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	LastActivity   time.Time `gorm:"not null;index" json:"last_activity"`
	TimeoutSeconds int       `gorm:"not null" json:"timeout_seconds"`
	Active         bool      `gorm:"not null;default:true;index" json:"active"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
}

func (s *Session) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func (s *Session) ExpiresAt() time.Time {
	return s.LastActivity.Add(s.Timeout())
}

// Expired reports whether the inactivity window has elapsed at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt())
}

// Remaining returns the time left before expiry, never negative.
func (s *Session) Remaining(now time.Time) time.Duration {
	if d := s.ExpiresAt().Sub(now); d > 0 {
		return d
	}
	return 0
}
