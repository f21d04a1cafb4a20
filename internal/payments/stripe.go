package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProvider looks customers up by email and sums their active
// subscription items.
type StripeProvider struct {
	api *client.API
}

func NewStripeProvider(secretKey string) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProvider{api: api}
}

func (p *StripeProvider) ActiveSubscriptions(ctx context.Context, email string) ([]Subscription, error) {
	customerParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	customerParams.Context = ctx
	customerParams.Limit = stripe.Int64(1)

	customers := p.api.Customers.List(customerParams)
	if !customers.Next() {
		if err := customers.Err(); err != nil {
			return nil, fmt.Errorf("stripe list customers: %w", err)
		}
		return nil, nil
	}
	customer := customers.Customer()

	subParams := &stripe.SubscriptionListParams{
		Customer: stripe.String(customer.ID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	subParams.Context = ctx

	var out []Subscription
	iter := p.api.Subscriptions.List(subParams)
	for iter.Next() {
		out = append(out, fromStripe(customer.ID, iter.Subscription()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("stripe list subscriptions: %w", err)
	}
	return out, nil
}

func fromStripe(customerID string, sub *stripe.Subscription) Subscription {
	out := Subscription{
		CustomerID:       customerID,
		SubscriptionID:   sub.ID,
		Currency:         string(sub.Currency),
		CurrentPeriodEnd: time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
	}
	if sub.Items == nil {
		return out
	}
	for _, item := range sub.Items.Data {
		if item.Price == nil || item.Price.Recurring == nil {
			continue
		}
		interval := string(item.Price.Recurring.Interval)
		out.MonthlyAmount += MonthlyAmount(item.Price.UnitAmount, item.Quantity, interval, item.Price.Recurring.IntervalCount)
		if out.Interval == "" {
			out.Interval = interval
		}
		if out.Currency == "" {
			out.Currency = string(item.Price.Currency)
		}
	}
	return out
}
