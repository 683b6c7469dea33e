package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nuacha-app/nuacha/internal/model"
)

type dbFamily struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Kind      string    `db:"kind"`
	Currency  string    `db:"currency"`
	OwnerID   string    `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (f dbFamily) toModel() model.Family {
	return model.Family{
		ID:        f.ID,
		Name:      f.Name,
		Kind:      model.FamilyKind(f.Kind),
		Currency:  f.Currency,
		OwnerID:   f.OwnerID,
		CreatedAt: f.CreatedAt,
	}
}

// CreateFamily inserts a family and makes its owner a member.
func (s *Store) CreateFamily(ctx context.Context, f *model.Family) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(`INSERT INTO families (id, name, kind, currency, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		f.ID, f.Name, string(f.Kind), f.Currency, f.OwnerID, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting family: %w", err)
	}
	_, err = tx.ExecContext(ctx, s.q(`INSERT INTO family_members (family_id, user_id, role) VALUES (?, ?, ?)`),
		f.ID, f.OwnerID, string(model.RoleOwner))
	if err != nil {
		return fmt.Errorf("inserting owner membership: %w", err)
	}
	return tx.Commit()
}

// GetFamily returns a family by ID.
func (s *Store) GetFamily(ctx context.Context, id string) (*model.Family, error) {
	var row dbFamily
	err := s.db.GetContext(ctx, &row, s.q(`SELECT id, name, kind, currency, owner_id, created_at
		FROM families WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("family %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting family: %w", err)
	}
	f := row.toModel()
	return &f, nil
}

// ListFamilies returns the families a user belongs to.
func (s *Store) ListFamilies(ctx context.Context, userID string) ([]model.Family, error) {
	var rows []dbFamily
	err := s.db.SelectContext(ctx, &rows, s.q(`SELECT f.id, f.name, f.kind, f.currency, f.owner_id, f.created_at
		FROM families f
		JOIN family_members m ON m.family_id = f.id
		WHERE m.user_id = ?
		ORDER BY f.created_at, f.id`), userID)
	if err != nil {
		return nil, fmt.Errorf("listing families: %w", err)
	}
	out := make([]model.Family, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// CountOwnedFamilies returns how many families a user owns.
func (s *Store) CountOwnedFamilies(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM families WHERE owner_id = ?`), userID); err != nil {
		return 0, fmt.Errorf("counting families: %w", err)
	}
	return n, nil
}

// AddMember adds or re-roles a family member.
func (s *Store) AddMember(ctx context.Context, m model.Member) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO family_members (family_id, user_id, role) VALUES (?, ?, ?)
		ON CONFLICT (family_id, user_id) DO UPDATE SET role = excluded.role`),
		m.FamilyID, m.UserID, string(m.Role))
	if err != nil {
		return fmt.Errorf("adding member: %w", err)
	}
	return nil
}

// MemberRole returns a user's role in a family, or model.ErrForbidden when
// the user is not a member.
func (s *Store) MemberRole(ctx context.Context, familyID, userID string) (model.MemberRole, error) {
	var role string
	err := s.db.GetContext(ctx, &role, s.q(`SELECT role FROM family_members WHERE family_id = ? AND user_id = ?`),
		familyID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("user %s in family %s: %w", userID, familyID, model.ErrForbidden)
	}
	if err != nil {
		return "", fmt.Errorf("getting member role: %w", err)
	}
	return model.MemberRole(role), nil
}

// Members lists a family's members.
func (s *Store) Members(ctx context.Context, familyID string) ([]model.Member, error) {
	var rows []struct {
		FamilyID string `db:"family_id"`
		UserID   string `db:"user_id"`
		Role     string `db:"role"`
	}
	err := s.db.SelectContext(ctx, &rows, s.q(`SELECT family_id, user_id, role FROM family_members
		WHERE family_id = ? ORDER BY user_id`), familyID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	out := make([]model.Member, len(rows))
	for i, r := range rows {
		out[i] = model.Member{FamilyID: r.FamilyID, UserID: r.UserID, Role: model.MemberRole(r.Role)}
	}
	return out, nil
}
