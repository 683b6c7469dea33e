package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nuacha-app/nuacha/internal/billing"
	"github.com/nuacha-app/nuacha/internal/id"
	"github.com/nuacha-app/nuacha/internal/model"
)

func (s *Server) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, s.Categories.All())
}

func (s *Server) listFamilies(c *gin.Context) {
	list, err := s.Families.ListFamilies(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	if list == nil {
		list = []model.Family{}
	}
	c.JSON(http.StatusOK, list)
}

type familyRequest struct {
	Name     string           `json:"name"`
	Kind     model.FamilyKind `json:"kind"`
	Currency string           `json:"currency"`
}

func (s *Server) createFamily(c *gin.Context) {
	var req familyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		badRequest(c, "name is required")
		return
	}
	if req.Kind == "" {
		req.Kind = model.KindHousehold
	}
	if !req.Kind.Valid() {
		badRequest(c, "kind must be household or business")
		return
	}
	if req.Currency == "" {
		req.Currency = "TTD"
	}

	ctx := c.Request.Context()
	userID := currentUser(c)
	if err := s.Billing.Allows(ctx, userID, billing.FeatureFamily); err != nil {
		s.fail(c, err)
		return
	}

	f := model.Family{
		ID:        id.New(),
		Name:      req.Name,
		Kind:      req.Kind,
		Currency:  strings.ToUpper(req.Currency),
		OwnerID:   userID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.Families.CreateFamily(ctx, &f); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (s *Server) listMembers(c *gin.Context) {
	familyID := c.Param("id")
	if !s.member(c, familyID, false) {
		return
	}
	members, err := s.Families.Members(c.Request.Context(), familyID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

type memberRequest struct {
	Email string           `json:"email"`
	Role  model.MemberRole `json:"role"`
}

// addMember lets the family owner invite an existing user by email.
func (s *Server) addMember(c *gin.Context) {
	familyID := c.Param("id")
	ctx := c.Request.Context()

	role, err := s.Families.MemberRole(ctx, familyID, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	if role != model.RoleOwner {
		s.fail(c, model.ErrForbidden)
		return
	}

	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if req.Role == "" {
		req.Role = model.RoleMember
	}
	if req.Role != model.RoleMember && req.Role != model.RoleViewer {
		badRequest(c, "role must be member or viewer")
		return
	}

	u, err := s.Families.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		s.fail(c, err)
		return
	}
	if u.ID == currentUser(c) {
		badRequest(c, "the owner is already a member")
		return
	}
	m := model.Member{FamilyID: familyID, UserID: u.ID, Role: req.Role}
	if err := s.Families.AddMember(ctx, m); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}
