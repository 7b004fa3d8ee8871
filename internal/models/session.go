package models

import (
	"time"
)

// Session is a server-side browser session. ID is the opaque value carried in
// the session cookie.
type Session struct {
	ID         string    `gorm:"primaryKey;size:64"`
	UserID     uint      `gorm:"not null;index"`
	ExpiresAt  time.Time `gorm:"not null;index"`
	LastSeenAt time.Time
	CreatedAt  time.Time
}

func (Session) TableName() string {
	return "sessions"
}

// All returns every persistent model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Recipe{},
		&Comment{},
		&Rating{},
		&Favorite{},
		&Session{},
	}
}
