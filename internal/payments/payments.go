// Package payments reads subscription state from the payment provider.
package payments

import (
	"context"
	"time"
)

// Subscription is an active provider subscription normalised to a monthly
// amount in the smallest currency unit.
type Subscription struct {
	CustomerID       string
	SubscriptionID   string
	MonthlyAmount    int64
	Currency         string
	Interval         string
	CurrentPeriodEnd time.Time
}

type SubscriptionProvider interface {
	// ActiveSubscriptions lists active subscriptions of the customer with
	// the given email. An unknown customer yields an empty list.
	ActiveSubscriptions(ctx context.Context, email string) ([]Subscription, error)
}

// NopProvider reports no subscriptions. Used when no provider key is set.
type NopProvider struct{}

func (NopProvider) ActiveSubscriptions(context.Context, string) ([]Subscription, error) {
	return nil, nil
}

// MonthlyAmount converts a recurring price to a monthly amount. Yearly
// prices are divided by 12, weekly and daily prices scaled up.
func MonthlyAmount(unitAmount, quantity int64, interval string, intervalCount int64) int64 {
	if quantity <= 0 {
		quantity = 1
	}
	if intervalCount <= 0 {
		intervalCount = 1
	}
	total := unitAmount * quantity

	switch interval {
	case "year":
		return total / (12 * intervalCount)
	case "week":
		return total * 52 / (12 * intervalCount)
	case "day":
		return total * 365 / (12 * intervalCount)
	default:
		return total / intervalCount
	}
}
