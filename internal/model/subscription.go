package model

import "time"

// PlanID identifies a subscription plan.
type PlanID string

const (
	PlanFree    PlanID = "free"
	PlanMonthly PlanID = "monthly"
	PlanAnnual  PlanID = "annual"
)

// SubscriptionStatus mirrors the billing provider's subscription state.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionSuspended SubscriptionStatus = "suspended"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription is a user's current plan.
type Subscription struct {
	UserID           string             `json:"user_id"`
	Plan             PlanID             `json:"plan"`
	Status           SubscriptionStatus `json:"status"`
	ProviderID       string             `json:"provider_id,omitempty"` // PayPal subscription ID
	CurrentPeriodEnd *time.Time         `json:"current_period_end,omitempty"`
	UpdatedAt        time.Time          `json:"updated_at"`
}
