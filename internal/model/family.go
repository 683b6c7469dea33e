package model

import "time"

// FamilyKind distinguishes household books from business books.
type FamilyKind string

const (
	KindHousehold FamilyKind = "household"
	KindBusiness  FamilyKind = "business"
)

// Valid reports whether k is a known kind.
func (k FamilyKind) Valid() bool {
	return k == KindHousehold || k == KindBusiness
}

// MemberRole controls what a member may do inside a family.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
	RoleViewer MemberRole = "viewer"
)

// CanWrite reports whether the role may add or change records.
func (r MemberRole) CanWrite() bool {
	return r == RoleOwner || r == RoleMember
}

// User is an account holder.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // "user" or "admin"
	CreatedAt    time.Time `json:"created_at"`
}

// Family groups expenses, receipts and employees shared by its members.
type Family struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      FamilyKind `json:"kind"`
	Currency  string     `json:"currency"`
	OwnerID   string     `json:"owner_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// Member links a user to a family.
type Member struct {
	FamilyID string     `json:"family_id"`
	UserID   string     `json:"user_id"`
	Role     MemberRole `json:"role"`
}
