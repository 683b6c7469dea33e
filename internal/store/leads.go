package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nuacha-app/nuacha/internal/model"
)

type dbLead struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	Source    string    `db:"source"`
	Interest  string    `db:"interest"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// UpsertLead inserts a lead or, when the email is already known, updates
// its name and interest while keeping the original ID, source and
// created_at. l is refreshed from the stored row.
func (s *Store) UpsertLead(ctx context.Context, l *model.Lead) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO leads (id, email, name, source, interest, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			name = CASE WHEN excluded.name = '' THEN leads.name ELSE excluded.name END,
			interest = CASE WHEN excluded.interest = '' THEN leads.interest ELSE excluded.interest END,
			updated_at = excluded.updated_at`),
		l.ID, l.Email, l.Name, l.Source, l.Interest, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting lead: %w", err)
	}

	stored, err := s.LeadByEmail(ctx, l.Email)
	if err != nil {
		return err
	}
	*l = *stored
	return nil
}

// LeadByEmail returns a lead by email address.
func (s *Store) LeadByEmail(ctx context.Context, email string) (*model.Lead, error) {
	var row dbLead
	err := s.db.GetContext(ctx, &row, s.q(`SELECT id, email, name, source, interest, created_at, updated_at
		FROM leads WHERE email = ?`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lead %s: %w", email, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting lead: %w", err)
	}
	return &model.Lead{
		ID:        row.ID,
		Email:     row.Email,
		Name:      row.Name,
		Source:    row.Source,
		Interest:  row.Interest,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}
