package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MatchStatus string

const (
	MatchStatusPending MatchStatus = "pending"
	MatchStatusActive  MatchStatus = "active"
)

// SharedGoals is the goals_shared jsonb record. The requester that opened the
// pending row fills everything but User2Goals, which is merged in when the
// row is claimed.
type SharedGoals struct {
	User1Goals         []string `json:"user_1_goals"`
	User2Goals         []string `json:"user_2_goals,omitempty"`
	CommunicationStyle string   `json:"communication_style,omitempty"`
	Frequency          string   `json:"frequency,omitempty"`
	Timezone           string   `json:"timezone,omitempty"`
}

// BuddyMatch is a row of buddy_matches. While pending only User1ID is set.
type BuddyMatch struct {
	ID          uuid.UUID                       `json:"id" gorm:"type:uuid;primaryKey"`
	User1ID     uuid.UUID                       `json:"user_1_id" gorm:"column:user_1_id;type:uuid;not null;index"`
	User2ID     *uuid.UUID                      `json:"user_2_id" gorm:"column:user_2_id;type:uuid;index"`
	Status      MatchStatus                     `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	GoalsShared datatypes.JSONType[SharedGoals] `json:"goals_shared" gorm:"column:goals_shared;type:jsonb"`
	MatchedAt   *time.Time                      `json:"matched_at"`
	CreatedAt   time.Time                       `json:"created_at"`
	UpdatedAt   time.Time                       `json:"updated_at"`
}

func (BuddyMatch) TableName() string { return "buddy_matches" }

func (m *BuddyMatch) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Goals returns the tags the pending author asked for.
func (m *BuddyMatch) Goals() []string {
	return m.GoalsShared.Data().User1Goals
}

func (m *BuddyMatch) HasUser(userID uuid.UUID) bool {
	return m.User1ID == userID || (m.User2ID != nil && *m.User2ID == userID)
}

// OtherUserID returns the participant that is not userID.
func (m *BuddyMatch) OtherUserID(userID uuid.UUID) (uuid.UUID, bool) {
	if m.User1ID == userID && m.User2ID != nil {
		return *m.User2ID, true
	}
	if m.User2ID != nil && *m.User2ID == userID {
		return m.User1ID, true
	}
	return uuid.Nil, false
}

// MatchPreferences is what a requester states when asking for a buddy.
type MatchPreferences struct {
	Goals              []string `json:"goals,omitempty" validate:"omitempty,max=20,dive,required,max=64"`
	CommunicationStyle string   `json:"communicationStyle,omitempty" validate:"omitempty,max=64"`
	Frequency          string   `json:"frequency,omitempty" validate:"omitempty,max=64"`
	Timezone           string   `json:"timezone,omitempty" validate:"omitempty,max=64"`
}

// SharedGoals builds the record stored on a new pending row.
func (p MatchPreferences) SharedGoals() SharedGoals {
	goals := p.Goals
	if goals == nil {
		goals = []string{}
	}
	return SharedGoals{
		User1Goals:         goals,
		CommunicationStyle: p.CommunicationStyle,
		Frequency:          p.Frequency,
		Timezone:           p.Timezone,
	}
}

// BuddyMatchRequest defines the request body for POST /buddy/match
type BuddyMatchRequest struct {
	UserID      string            `json:"userId" validate:"required,uuid"`
	Preferences *MatchPreferences `json:"preferences,omitempty" validate:"omitempty"`
}

// MatchWithProfiles is a match enriched with both participants' public profiles.
type MatchWithProfiles struct {
	BuddyMatch
	User1 *ProfileCompact `json:"user_1,omitempty"`
	User2 *ProfileCompact `json:"user_2,omitempty"`
}
