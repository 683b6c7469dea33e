// Package leads captures prospects from the marketing funnel.
package leads

import (
	"context"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/nuacha-app/nuacha/internal/id"
	"github.com/nuacha-app/nuacha/internal/model"
)

// Sources are the funnel forms a lead can come from.
var Sources = []string{
	"exit_intent",
	"newsletter",
	"pricing",
	"payroll_calculator",
	"budget_calculator",
	"waitlist",
	"demo_request",
	"referral",
}

// Repository stores leads keyed by email.
type Repository interface {
	UpsertLead(ctx context.Context, l *model.Lead) error
}

// Normalize trims every field and lower-cases the email and source.
func Normalize(l model.Lead) model.Lead {
	l.Email = strings.ToLower(strings.TrimSpace(l.Email))
	l.Name = strings.TrimSpace(l.Name)
	l.Source = strings.ToLower(strings.TrimSpace(l.Source))
	l.Interest = strings.TrimSpace(l.Interest)
	return l
}

// Validate checks a normalized lead.
func Validate(l model.Lead) error {
	if l.Email == "" {
		return fmt.Errorf("%w: email is required", model.ErrInvalid)
	}
	addr, err := mail.ParseAddress(l.Email)
	if err != nil || addr.Address != l.Email {
		return fmt.Errorf("%w: malformed email %q", model.ErrInvalid, l.Email)
	}
	if !slices.Contains(Sources, l.Source) {
		return fmt.Errorf("%w: unknown lead source %q", model.ErrInvalid, l.Source)
	}
	return nil
}

// Service records leads.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a leads Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Capture validates and stores a lead. Submitting the same email again
// updates the stored lead rather than adding another.
func (s *Service) Capture(ctx context.Context, l model.Lead) (model.Lead, error) {
	l = Normalize(l)
	if err := Validate(l); err != nil {
		return model.Lead{}, err
	}
	now := s.now().UTC()
	l.ID = id.New()
	l.CreatedAt = now
	l.UpdatedAt = now
	if err := s.repo.UpsertLead(ctx, &l); err != nil {
		return model.Lead{}, fmt.Errorf("saving lead: %w", err)
	}
	return l, nil
}
