package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nuacha-app/nuacha/internal/model"
)

type dbSubscription struct {
	UserID           string       `db:"user_id"`
	Plan             string       `db:"plan"`
	Status           string       `db:"status"`
	ProviderID       string       `db:"provider_id"`
	CurrentPeriodEnd sql.NullTime `db:"current_period_end"`
	UpdatedAt        time.Time    `db:"updated_at"`
}

func (d dbSubscription) toModel() *model.Subscription {
	sub := &model.Subscription{
		UserID:     d.UserID,
		Plan:       model.PlanID(d.Plan),
		Status:     model.SubscriptionStatus(d.Status),
		ProviderID: d.ProviderID,
		UpdatedAt:  d.UpdatedAt,
	}
	if d.CurrentPeriodEnd.Valid {
		t := d.CurrentPeriodEnd.Time
		sub.CurrentPeriodEnd = &t
	}
	return sub
}

const subscriptionColumns = `user_id, plan, status, provider_id, current_period_end, updated_at`

// GetSubscription returns a user's subscription.
func (s *Store) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	return s.getSubscription(ctx, "user_id", userID)
}

// SubscriptionByProviderID finds a subscription by the billing provider's ID.
func (s *Store) SubscriptionByProviderID(ctx context.Context, providerID string) (*model.Subscription, error) {
	return s.getSubscription(ctx, "provider_id", providerID)
}

func (s *Store) getSubscription(ctx context.Context, column, value string) (*model.Subscription, error) {
	var row dbSubscription
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+subscriptionColumns+` FROM subscriptions WHERE `+column+` = ?`), value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subscription %s: %w", value, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting subscription: %w", err)
	}
	return row.toModel(), nil
}

// SaveSubscription inserts or replaces a user's subscription.
func (s *Store) SaveSubscription(ctx context.Context, sub *model.Subscription) error {
	var periodEnd sql.NullTime
	if sub.CurrentPeriodEnd != nil {
		periodEnd = sql.NullTime{Time: sub.CurrentPeriodEnd.UTC(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			plan = excluded.plan,
			status = excluded.status,
			provider_id = excluded.provider_id,
			current_period_end = excluded.current_period_end,
			updated_at = excluded.updated_at`),
		sub.UserID, string(sub.Plan), string(sub.Status), sub.ProviderID, periodEnd, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving subscription: %w", err)
	}
	return nil
}
