// Package billing exposes the checkout and customer-portal endpoints.
package billing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"casestudy-app/internal/apperr"
	"casestudy-app/internal/app/http/middleware"
	"casestudy-app/internal/infra/stripeclient"
	"casestudy-app/internal/store"
)

type Handler struct {
	profiles store.ProfileStore
	plans    store.PlanStore
	payments store.PaymentStore
	billing  stripeclient.API
	appURL   string
	log      zerolog.Logger

	// Serializes ensure-customer per user so concurrent checkouts do
	// not create duplicate Stripe customers.
	locks keyedLocks
}

func NewHandler(profiles store.ProfileStore, planStore store.PlanStore, payments store.PaymentStore, billing stripeclient.API, appURL string, log zerolog.Logger) *Handler {
	return &Handler{
		profiles: profiles,
		plans:    planStore,
		payments: payments,
		billing:  billing,
		appURL:   appURL,
		log:      log.With().Str("component", "billing").Logger(),
	}
}

func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var body struct {
		PriceID string `json:"priceId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PriceID == "" {
		h.fail(c, apperr.Validation("Missing or invalid priceId"))
		return
	}

	userID := c.GetString(middleware.CtxUserID)
	email := c.GetString(middleware.CtxEmail)
	if userID == "" {
		h.fail(c, apperr.Unauthenticated("User not identified"))
		return
	}

	// allow-list the price id
	plan, err := h.plans.ByPriceID(c.Request.Context(), body.PriceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.fail(c, apperr.Validation("Unknown plan priceId"))
			return
		}
		h.fail(c, apperr.Persistence(err))
		return
	}

	customerID, err := h.ensureCustomer(c, userID, email)
	if err != nil {
		h.fail(c, err)
		return
	}

	sess, err := h.billing.NewCheckoutSession(
		c.Request.Context(),
		customerID,
		plan.StripePriceID,
		h.appURL+"/dashboard?success=true",
		h.appURL+"/?canceled=true",
	)
	if err != nil {
		h.fail(c, apperr.BillingProvider(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": gin.H{"id": sess.ID, "url": sess.URL}})
}

// ensureCustomer resolves the profile's billing customer, creating and
// persisting one under a per-user lock on first checkout. A racing
// request that created the customer first wins; this writer re-reads
// and uses whatever landed.
func (h *Handler) ensureCustomer(c *gin.Context, userID, email string) (string, error) {
	ctx := c.Request.Context()

	p, err := h.profiles.Ensure(ctx, userID, email)
	if err != nil {
		return "", apperr.Persistence(err)
	}
	if p.StripeCustomerID != nil && *p.StripeCustomerID != "" {
		return *p.StripeCustomerID, nil
	}

	unlock := h.locks.lock(userID)
	defer unlock()

	// Re-check under the lock.
	p, err = h.profiles.ByID(ctx, userID)
	if err != nil {
		return "", apperr.Persistence(err)
	}
	if p.StripeCustomerID != nil && *p.StripeCustomerID != "" {
		return *p.StripeCustomerID, nil
	}

	cus, err := h.billing.CreateCustomer(ctx, p.Email, map[string]string{
		"user_id": userID,
	})
	if err != nil {
		return "", apperr.BillingProvider(err)
	}

	if err := h.profiles.SetBillingCustomerID(ctx, userID, cus.ID); err != nil {
		return "", apperr.Persistence(err)
	}

	// The guarded update may have been a no-op if another writer got
	// there first; the stored value is authoritative either way.
	p, err = h.profiles.ByID(ctx, userID)
	if err != nil {
		return "", apperr.Persistence(err)
	}
	if p.StripeCustomerID == nil || *p.StripeCustomerID == "" {
		return cus.ID, nil
	}
	return *p.StripeCustomerID, nil
}

func (h *Handler) CreateBillingPortal(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		h.fail(c, apperr.Unauthenticated("User not identified"))
		return
	}

	p, err := h.profiles.ByID(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, apperr.NotFound("Profile not found"))
		return
	}
	if p.StripeCustomerID == nil || *p.StripeCustomerID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "No billing customer yet (subscribe first)"})
		return
	}

	portal, err := h.billing.NewPortalSession(c.Request.Context(), *p.StripeCustomerID, h.appURL+"/dashboard")
	if err != nil {
		h.fail(c, apperr.BillingProvider(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": portal.URL})
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.log.Error().Err(err).Msg("billing request failed")
	c.JSON(apperr.StatusOf(err), gin.H{"error": apperr.MessageOf(err)})
}
