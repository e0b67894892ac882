package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"casestudy-app/internal/store"
)

// Entitled gates premium content. It reads the profile on every call so
// a webhook-driven downgrade takes effect immediately. On failure it
// aborts the request with the right status and returns false; premium
// gating is per record, so handlers call this instead of a route-group
// middleware.
func Entitled(c *gin.Context, profiles store.ProfileStore) bool {
	userID := c.GetString(CtxUserID)
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return false
	}

	p, err := profiles.ByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Subscription required"})
			return false
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return false
	}

	ent := p.Entitlement(time.Now())
	if !ent.IsActive {
		status := http.StatusForbidden
		msg := "Subscription required"
		if p.SubscriptionEndDate != nil && !p.SubscriptionEndDate.After(time.Now()) {
			status = http.StatusPaymentRequired
			msg = "Your subscription has expired"
		}
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return false
	}

	return true
}
