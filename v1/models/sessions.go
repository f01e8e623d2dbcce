package models

import "time"

// Session maps an opaque bearer token to an identity and role with an
// absolute expiry. At most one live session exists per email: issuing a new
// session removes the previous rows for that identity.
type Session struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	Email     string    `gorm:"column:email;not null;index" json:"email"`
	Token     string    `gorm:"column:token;not null;unique" json:"-"`
	Role      Role      `gorm:"column:role;not null" json:"role"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	BaseModel
}

// TableName sets the table name for GORM
func (Session) TableName() string {
	return "sessions"
}

// Live reports whether the session is still valid at the given instant.
// Expiry is strict: a session whose expiry equals now is no longer live.
func (s *Session) Live(now time.Time) bool {
	return s.ExpiresAt.After(now)
}
