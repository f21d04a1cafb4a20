package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessResetToken stores a bcrypt hash of the secret half of a reset token.
// The ID doubles as the public selector half.
type AccessResetToken struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	TokenHash string     `json:"-" gorm:"not null"`
	RequestIP string     `json:"request_ip" gorm:"size:64;index"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type AccessResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type AccessResetVerifyRequest struct {
	Token string `json:"token" validate:"required,min=40,max=200"`
}
