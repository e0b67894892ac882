// Package subscription answers "is this caller entitled to premium
// content". The result is computed from the store on every call, so a
// sign-in, sign-out or token refresh is reflected by simply asking
// again.
package subscription

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"casestudy-app/internal/apperr"
	"casestudy-app/internal/app/http/middleware"
	"casestudy-app/internal/domain/profiles"
	"casestudy-app/internal/store"
)

type Handler struct {
	profiles store.ProfileStore
	log      zerolog.Logger
}

func New(profileStore store.ProfileStore, log zerolog.Logger) *Handler {
	return &Handler{
		profiles: profileStore,
		log:      log.With().Str("component", "subscription").Logger(),
	}
}

// Get runs behind optional auth: anonymous callers are free tier, full
// stop. For authenticated callers the profile row is created on first
// sight.
func (h *Handler) Get(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusOK, profiles.FreeEntitlement())
		return
	}

	p, err := h.profiles.Ensure(c.Request.Context(), userID, c.GetString(middleware.CtxEmail))
	if err != nil {
		wrapped := apperr.Persistence(err)
		h.log.Error().Err(wrapped).Msg("subscription query failed")
		c.JSON(apperr.StatusOf(wrapped), gin.H{"error": apperr.MessageOf(wrapped)})
		return
	}

	c.JSON(http.StatusOK, p.Entitlement(time.Now()))
}
