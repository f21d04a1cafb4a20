package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MatchOutcomeAlreadyMatched = "already_matched"
	MatchOutcomeMatched        = "matched"
	MatchOutcomePending        = "pending"
	MatchOutcomeError          = "error"
)

// MatchEvent is one audit record of a match request, stored in MongoDB.
type MatchEvent struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID         string             `json:"user_id" bson:"user_id"`
	Outcome        string             `json:"outcome" bson:"outcome"`
	MatchID        string             `json:"match_id,omitempty" bson:"match_id,omitempty"`
	BuddyID        string             `json:"buddy_id,omitempty" bson:"buddy_id,omitempty"`
	CandidateCount int                `json:"candidate_count" bson:"candidate_count"`
	BestScore      int                `json:"best_score" bson:"best_score"`
	ClaimsLost     int                `json:"claims_lost,omitempty" bson:"claims_lost,omitempty"`
	Error          string             `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}
