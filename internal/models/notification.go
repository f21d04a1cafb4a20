package models

import (
	"time"

	"github.com/google/uuid"
)

const NotificationTypeBuddyMatched = "buddy_matched"

// Notification represents an in-app notification (PostgreSQL)
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Type        string    `json:"type" gorm:"size:30;index"`
	ActorID     uuid.UUID `json:"actor_id" gorm:"type:uuid;index"`
	RecipientID uuid.UUID `json:"recipient_id" gorm:"type:uuid;index"`
	TargetID    string    `json:"target_id"`                  // buddy match ID
	TargetType  string    `json:"target_type" gorm:"size:20"` // buddy_match
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}
