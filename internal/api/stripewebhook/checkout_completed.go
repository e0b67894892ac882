package stripewebhook

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v75"

	"casestudy-app/internal/apperr"
)

// handleCheckoutCompleted upgrades a profile after a completed one-time
// payment. Subscription-mode checkouts are ignored here: the lifecycle
// events carry their state.
//
// A payment-mode session has no subscription object, so the user id is
// resolved from the metadata stored on the billing customer at creation
// time, not from the webhook payload.
func (h *Handler) handleCheckoutCompleted(c *gin.Context, session *stripe.CheckoutSession, log zerolog.Logger) error {
	if session.Mode != stripe.CheckoutSessionModePayment {
		return nil
	}
	if session.Customer == nil || session.Customer.ID == "" {
		return apperr.Validation("checkout session missing customer")
	}
	customerID := session.Customer.ID

	cus, err := h.billing.GetCustomer(c.Request.Context(), customerID)
	if err != nil {
		return apperr.BillingProvider(err)
	}

	userID := ""
	if cus.Metadata != nil {
		userID = cus.Metadata["user_id"]
	}
	if userID == "" {
		// The customer was created outside this app; retrying won't
		// make the metadata appear.
		return apperr.Validation("no user id found in customer metadata")
	}

	if err := h.profiles.ActivatePurchase(c.Request.Context(), userID, cus.Email, customerID); err != nil {
		return apperr.Persistence(err)
	}

	log.Info().
		Str("customer", customerID).
		Str("profile", userID).
		Msg("activated one-time purchase")
	return nil
}
