package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/mindhaven/backend/internal/apperrors"
	"github.com/anonto42/mindhaven/backend/internal/models"
	"github.com/anonto42/mindhaven/backend/internal/payments"
	"github.com/anonto42/mindhaven/backend/internal/repositories"
	"github.com/anonto42/mindhaven/backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	SourceLocal    = "local"
	SourceProvider = "provider"
)

// ClassifyTier maps a monthly amount in cents onto a plan tier.
func ClassifyTier(monthlyCents int64) string {
	switch {
	case monthlyCents >= 5000:
		return models.TierPro
	case monthlyCents >= 2000:
		return models.TierPremium
	case monthlyCents >= 100:
		return models.TierPlus
	default:
		return models.TierFree
	}
}

type profileByID interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// SubscriptionService resolves a user's plan tier, preferring the local
// cache and falling back to the payment provider.
type SubscriptionService struct {
	subscriptions repositories.SubscriptionRepository
	profiles      profileByID
	provider      payments.SubscriptionProvider
	log           *logrus.Logger
	now           func() time.Time
}

func NewSubscriptionService(subscriptions repositories.SubscriptionRepository, profiles profileByID, provider payments.SubscriptionProvider, log *logrus.Logger) *SubscriptionService {
	return &SubscriptionService{
		subscriptions: subscriptions,
		profiles:      profiles,
		provider:      provider,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *SubscriptionService) SyncStatus(ctx context.Context, userID uuid.UUID) (*models.SubscriptionStatusResponse, error) {
	local, err := s.subscriptions.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.Internal("Failed to check subscription status", fmt.Errorf("load local subscription: %w", err))
	}
	if local != nil && local.IsCurrent(s.now()) {
		metrics.RecordSubscriptionSync(SourceLocal, local.Tier)
		return statusResponse(local, SourceLocal), nil
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Profile not found")
		}
		return nil, apperrors.Internal("Failed to check subscription status", fmt.Errorf("load profile: %w", err))
	}

	var subs []payments.Subscription
	if profile.Email != "" {
		subs, err = s.provider.ActiveSubscriptions(ctx, profile.Email)
		if err != nil {
			return nil, apperrors.Internal("Failed to check subscription status", err)
		}
	}

	row := &models.Subscription{
		UserID: userID,
		Tier:   models.TierFree,
		Status: models.SubscriptionStatusInactive,
	}
	if best, ok := highestPaying(subs); ok {
		end := best.CurrentPeriodEnd
		row.Tier = ClassifyTier(best.MonthlyAmount)
		row.Status = models.SubscriptionStatusActive
		row.ProviderCustomerID = best.CustomerID
		row.ProviderSubscriptionID = best.SubscriptionID
		row.AmountCents = best.MonthlyAmount
		row.Currency = best.Currency
		row.Interval = best.Interval
		row.CurrentPeriodEnd = &end
	}

	if err := s.subscriptions.Upsert(ctx, row); err != nil {
		return nil, apperrors.Internal("Failed to check subscription status", fmt.Errorf("upsert subscription: %w", err))
	}

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"tier":    row.Tier,
		"status":  row.Status,
	}).Info("subscription synced from provider")
	metrics.RecordSubscriptionSync(SourceProvider, row.Tier)
	return statusResponse(row, SourceProvider), nil
}

func highestPaying(subs []payments.Subscription) (payments.Subscription, bool) {
	if len(subs) == 0 {
		return payments.Subscription{}, false
	}
	best := subs[0]
	for _, sub := range subs[1:] {
		if sub.MonthlyAmount > best.MonthlyAmount {
			best = sub
		}
	}
	return best, true
}

func statusResponse(sub *models.Subscription, source string) *models.SubscriptionStatusResponse {
	return &models.SubscriptionStatusResponse{
		Tier:             sub.Tier,
		Status:           sub.Status,
		Source:           source,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}
}
