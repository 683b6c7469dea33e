package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nuacha-app/nuacha/internal/auth"
	"github.com/nuacha-app/nuacha/internal/model"
)

// maxWebhookBytes limits a PayPal webhook body.
const maxWebhookBytes = 1 << 20

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	u, err := s.Auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	u, token, err := s.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(auth.TokenTTL.Seconds()),
		"user":       u,
	})
}

type leadRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Source   string `json:"source"`
	Interest string `json:"interest"`
}

func (s *Server) captureLead(c *gin.Context) {
	var req leadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	lead, err := s.Leads.Capture(c.Request.Context(), model.Lead{
		Email:    req.Email,
		Name:     req.Name,
		Source:   req.Source,
		Interest: req.Interest,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, lead)
}

func (s *Server) findLead(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		badRequest(c, "email is required")
		return
	}
	lead, err := s.LeadLookup.LeadByEmail(c.Request.Context(), auth.NormalizeEmail(email))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

func (s *Server) paypalWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		badRequest(c, "reading body")
		return
	}
	if err := s.Billing.HandleWebhook(c.Request.Context(), c.Request.Header, body); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
