package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TierFree    = "free"
	TierPlus    = "plus"
	TierPremium = "premium"
	TierPro     = "pro"

	SubscriptionStatusActive   = "active"
	SubscriptionStatusInactive = "inactive"
)

// Subscription is the locally cached plan of a user, one row per user.
type Subscription struct {
	UserID                 uuid.UUID  `json:"user_id" gorm:"type:uuid;primaryKey"`
	Tier                   string     `json:"tier" gorm:"size:20;not null;default:'free'"`
	Status                 string     `json:"status" gorm:"size:20;not null;index"`
	ProviderCustomerID     string     `json:"provider_customer_id,omitempty"`
	ProviderSubscriptionID string     `json:"provider_subscription_id,omitempty"`
	AmountCents            int64      `json:"amount_cents"`
	Currency               string     `json:"currency,omitempty" gorm:"size:3"`
	Interval               string     `json:"interval,omitempty" gorm:"size:10"`
	CurrentPeriodEnd       *time.Time `json:"current_period_end,omitempty"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// IsCurrent reports whether the cached row still proves an active plan.
func (s *Subscription) IsCurrent(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(now)
}

// SubscriptionStatusResponse is returned by the status sync endpoint.
type SubscriptionStatusResponse struct {
	Tier             string     `json:"tier"`
	Status           string     `json:"status"`
	Source           string     `json:"source"` // local or provider
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}
