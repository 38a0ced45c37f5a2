package models

import "time"

// OTPRecord is the single outstanding passcode for a user. Only the hash
// of the code is kept.
type OTPRecord struct {
	UserID      string    `gorm:"primaryKey"`
	CodeHash    string    `gorm:"not null"`
	Attempts    int       `gorm:"default:0"`
	MaxAttempts int       `gorm:"default:3"`
	CreatedAt   time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
}

// Expired reports whether the record is past its expiry at now.
func (o *OTPRecord) Expired(now time.Time) bool {
	return !o.ExpiresAt.IsZero() && now.After(o.ExpiresAt)
}
