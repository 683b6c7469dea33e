package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nuacha-app/nuacha/internal/model"
)

var (
	// ErrBadSignature is returned when PayPal does not confirm a webhook
	// came from it.
	ErrBadSignature = errors.New("webhook signature not verified")
	// ErrLimitReached is returned when the user's plan does not allow
	// another family or receipt.
	ErrLimitReached = errors.New("plan limit reached")
)

// Webhook event types handled by HandleEvent.
const (
	EventSubscriptionActivated = "BILLING.SUBSCRIPTION.ACTIVATED"
	EventSubscriptionCancelled = "BILLING.SUBSCRIPTION.CANCELLED"
	EventSubscriptionSuspended = "BILLING.SUBSCRIPTION.SUSPENDED"
	EventSubscriptionExpired   = "BILLING.SUBSCRIPTION.EXPIRED"
	EventPaymentSaleCompleted  = "PAYMENT.SALE.COMPLETED"
)

// Feature is something a plan limits.
type Feature string

const (
	FeatureReceiptUpload Feature = "receipt_upload"
	FeatureFamily        Feature = "family"
)

// Verifier authenticates webhook deliveries.
type Verifier interface {
	VerifyWebhook(ctx context.Context, headers http.Header, body []byte) error
}

// Repository stores subscriptions and answers usage questions.
type Repository interface {
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	SubscriptionByProviderID(ctx context.Context, providerID string) (*model.Subscription, error)
	SaveSubscription(ctx context.Context, sub *model.Subscription) error
	CountOwnedFamilies(ctx context.Context, userID string) (int, error)
	CountReceiptsSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// Service applies billing events and checks plan limits.
type Service struct {
	repo      Repository
	verifier  Verifier
	catalogue Catalogue
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a billing Service.
func NewService(repo Repository, verifier Verifier, catalogue Catalogue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, verifier: verifier, catalogue: catalogue, logger: logger, now: time.Now}
}

// Catalogue returns the plans on offer.
func (s *Service) Catalogue() Catalogue {
	return s.catalogue
}

type webhookEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID                 string `json:"id"`
		PlanID             string `json:"plan_id"`
		CustomID           string `json:"custom_id"`
		BillingAgreementID string `json:"billing_agreement_id"`
		BillingInfo        struct {
			NextBillingTime *time.Time `json:"next_billing_time"`
		} `json:"billing_info"`
	} `json:"resource"`
}

// HandleWebhook verifies a delivery and applies it.
func (s *Service) HandleWebhook(ctx context.Context, headers http.Header, body []byte) error {
	if s.verifier == nil {
		return fmt.Errorf("%w: no verifier configured", ErrBadSignature)
	}
	if err := s.verifier.VerifyWebhook(ctx, headers, body); err != nil {
		return err
	}
	return s.HandleEvent(ctx, body)
}

// HandleEvent applies a webhook event to the stored subscription. Unknown
// event types are ignored.
func (s *Service) HandleEvent(ctx context.Context, body []byte) error {
	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: parsing webhook event: %v", model.ErrInvalid, err)
	}
	log := s.logger.With(zap.String("event_id", ev.ID), zap.String("event_type", ev.EventType))
	now := s.now().UTC()

	switch ev.EventType {
	case EventSubscriptionActivated:
		userID := ev.Resource.CustomID
		if userID == "" {
			return fmt.Errorf("activation %s has no custom_id", ev.Resource.ID)
		}
		plan, ok := s.catalogue.FromPayPal(ev.Resource.PlanID)
		if !ok {
			return fmt.Errorf("unknown paypal plan %q", ev.Resource.PlanID)
		}
		sub := &model.Subscription{
			UserID:           userID,
			Plan:             plan,
			Status:           model.SubscriptionActive,
			ProviderID:       ev.Resource.ID,
			CurrentPeriodEnd: ev.Resource.BillingInfo.NextBillingTime,
			UpdatedAt:        now,
		}
		if sub.CurrentPeriodEnd == nil {
			sub.CurrentPeriodEnd = s.periodEnd(plan, now)
		}
		log.Info("subscription activated", zap.String("user_id", userID), zap.String("plan", string(plan)))
		return s.repo.SaveSubscription(ctx, sub)

	case EventSubscriptionCancelled, EventSubscriptionSuspended, EventSubscriptionExpired:
		sub, err := s.repo.SubscriptionByProviderID(ctx, ev.Resource.ID)
		if err != nil {
			return fmt.Errorf("finding subscription %s: %w", ev.Resource.ID, err)
		}
		sub.Status = statusFor(ev.EventType)
		sub.UpdatedAt = now
		log.Info("subscription status changed", zap.String("user_id", sub.UserID), zap.String("status", string(sub.Status)))
		return s.repo.SaveSubscription(ctx, sub)

	case EventPaymentSaleCompleted:
		providerID := ev.Resource.BillingAgreementID
		if providerID == "" {
			log.Debug("sale without billing agreement ignored")
			return nil
		}
		sub, err := s.repo.SubscriptionByProviderID(ctx, providerID)
		if err != nil {
			return fmt.Errorf("finding subscription %s: %w", providerID, err)
		}
		sub.Status = model.SubscriptionActive
		sub.CurrentPeriodEnd = s.periodEnd(sub.Plan, now)
		sub.UpdatedAt = now
		log.Info("subscription renewed", zap.String("user_id", sub.UserID))
		return s.repo.SaveSubscription(ctx, sub)
	}

	log.Debug("ignoring webhook event")
	return nil
}

func statusFor(eventType string) model.SubscriptionStatus {
	switch eventType {
	case EventSubscriptionCancelled:
		return model.SubscriptionCancelled
	case EventSubscriptionSuspended:
		return model.SubscriptionSuspended
	}
	return model.SubscriptionExpired
}

func (s *Service) periodEnd(plan model.PlanID, from time.Time) *time.Time {
	months := s.catalogue.Plan(plan).Months
	if months == 0 {
		return nil
	}
	end := from.AddDate(0, months, 0)
	return &end
}

// Current returns the plan a user is entitled to now. Users without a
// subscription, or whose subscription has lapsed, are on the free plan.
// A cancelled subscription keeps its plan until the paid period ends.
func (s *Service) Current(ctx context.Context, userID string) (model.Subscription, Plan, error) {
	free := model.Subscription{UserID: userID, Plan: model.PlanFree, Status: model.SubscriptionActive}
	sub, err := s.repo.GetSubscription(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return free, s.catalogue.Plan(model.PlanFree), nil
	}
	if err != nil {
		return model.Subscription{}, Plan{}, err
	}

	entitled := sub.Status == model.SubscriptionActive ||
		(sub.Status == model.SubscriptionCancelled && sub.CurrentPeriodEnd != nil && s.now().Before(*sub.CurrentPeriodEnd))
	if !entitled {
		return *sub, s.catalogue.Plan(model.PlanFree), nil
	}
	return *sub, s.catalogue.Plan(sub.Plan), nil
}

// Allows returns ErrLimitReached when the user's plan does not permit one
// more use of feature.
func (s *Service) Allows(ctx context.Context, userID string, feature Feature) error {
	_, plan, err := s.Current(ctx, userID)
	if err != nil {
		return err
	}

	switch feature {
	case FeatureFamily:
		if plan.MaxFamilies == 0 {
			return nil
		}
		n, err := s.repo.CountOwnedFamilies(ctx, userID)
		if err != nil {
			return err
		}
		if n >= plan.MaxFamilies {
			return fmt.Errorf("%w: %s plan allows %d families", ErrLimitReached, plan.Name, plan.MaxFamilies)
		}
	case FeatureReceiptUpload:
		if plan.MaxReceiptsPerMonth == 0 {
			return nil
		}
		now := s.now().UTC()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		n, err := s.repo.CountReceiptsSince(ctx, userID, monthStart)
		if err != nil {
			return err
		}
		if n >= plan.MaxReceiptsPerMonth {
			return fmt.Errorf("%w: %s plan allows %d receipts a month", ErrLimitReached, plan.Name, plan.MaxReceiptsPerMonth)
		}
	default:
		return fmt.Errorf("unknown feature %q", feature)
	}
	return nil
}
