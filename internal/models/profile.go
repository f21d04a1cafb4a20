package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile mirrors the public.profiles table owned by the identity provider.
type Profile struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	Email       string    `json:"email,omitempty" gorm:"index"`
	FirebaseUID *string   `json:"-" gorm:"uniqueIndex"` // set only for Firebase-authenticated users
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProfileCompact is the public projection shared with a buddy.
type ProfileCompact struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
}

func (p *Profile) ToCompact() ProfileCompact {
	return ProfileCompact{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
	}
}
