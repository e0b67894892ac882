package users

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"casestudy-app/internal/app/http/middleware"
	"casestudy-app/internal/domain/profiles"
	"casestudy-app/internal/store"
)

type Handler struct {
	profiles store.ProfileStore
	log      zerolog.Logger
}

func NewHandler(profileStore store.ProfileStore, log zerolog.Logger) *Handler {
	return &Handler{profiles: profileStore, log: log.With().Str("component", "users").Logger()}
}

type MeResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"isVerified"`

	Billing BillingDTO `json:"billing"`
}

type BillingDTO struct {
	CustomerID   *string              `json:"customerId,omitempty"`
	Subscription profiles.Entitlement `json:"subscription"`
}

// GetCurrentUser returns the caller's profile plus the computed
// entitlement, creating the default profile row on first sight.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	p, err := h.profiles.Ensure(c.Request.Context(), userID, c.GetString(middleware.CtxEmail))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, MeResponse{
		ID:         p.ID,
		Email:      p.Email,
		Role:       p.Role,
		IsVerified: p.IsVerified,
		Billing: BillingDTO{
			CustomerID:   p.StripeCustomerID,
			Subscription: p.Entitlement(time.Now()),
		},
	})
}
