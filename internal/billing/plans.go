// Package billing tracks PayPal subscriptions and enforces plan limits.
package billing

import (
	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/model"
)

// Plan describes what a subscription tier costs and allows. Zero limits
// are unlimited.
type Plan struct {
	ID                  model.PlanID    `json:"id"`
	Name                string          `json:"name"`
	Price               decimal.Decimal `json:"price"`
	Currency            string          `json:"currency"`
	Months              int             `json:"months"` // billing interval, 0 for free
	MaxFamilies         int             `json:"max_families"`
	MaxReceiptsPerMonth int             `json:"max_receipts_per_month"`
}

// Catalogue is the set of plans on offer, keyed by plan ID, plus the
// mapping from PayPal's plan IDs.
type Catalogue struct {
	Plans         map[model.PlanID]Plan
	PayPalPlanIDs map[string]model.PlanID
}

// DefaultCatalogue returns the free, monthly and annual plans.
func DefaultCatalogue() Catalogue {
	return Catalogue{
		Plans: map[model.PlanID]Plan{
			model.PlanFree: {
				ID: model.PlanFree, Name: "Free", Price: decimal.Zero, Currency: "USD",
				MaxFamilies: 1, MaxReceiptsPerMonth: 10,
			},
			model.PlanMonthly: {
				ID: model.PlanMonthly, Name: "Premium Monthly", Price: decimal.RequireFromString("4.99"), Currency: "USD",
				Months: 1, MaxFamilies: 5,
			},
			model.PlanAnnual: {
				ID: model.PlanAnnual, Name: "Premium Annual", Price: decimal.RequireFromString("49.99"), Currency: "USD",
				Months: 12, MaxFamilies: 5,
			},
		},
		PayPalPlanIDs: map[string]model.PlanID{},
	}
}

// Plan returns a plan, falling back to free for unknown IDs.
func (c Catalogue) Plan(id model.PlanID) Plan {
	if p, ok := c.Plans[id]; ok {
		return p
	}
	return c.Plans[model.PlanFree]
}

// FromPayPal maps a PayPal plan ID to a catalogue plan.
func (c Catalogue) FromPayPal(paypalPlanID string) (model.PlanID, bool) {
	id, ok := c.PayPalPlanIDs[paypalPlanID]
	return id, ok
}
