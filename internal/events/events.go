// Package events publishes buddy match lifecycle events for downstream
// consumers such as push notification workers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeMatchRequested = "buddy.match.requested"
	TypeMatchActivated = "buddy.match.activated"
)

// MatchEvent is the JSON payload written to the buddy events topic.
type MatchEvent struct {
	Type       string     `json:"type"`
	MatchID    uuid.UUID  `json:"matchId"`
	UserID     uuid.UUID  `json:"userId"`
	BuddyID    *uuid.UUID `json:"buddyId,omitempty"`
	Score      int        `json:"score,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}

type Publisher interface {
	PublishMatchEvent(ctx context.Context, event MatchEvent) error
	Close() error
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishMatchEvent(context.Context, MatchEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
