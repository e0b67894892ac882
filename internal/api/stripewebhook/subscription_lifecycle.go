package stripewebhook

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v75"

	"casestudy-app/internal/apperr"
	"casestudy-app/internal/domain/profiles"
)

// handleSubscriptionEvent covers created, updated and deleted. All
// three carry a full snapshot of the subscription, so one last-write-
// wins update handles them regardless of delivery order. Replaying the
// same event writes the same values.
func (h *Handler) handleSubscriptionEvent(c *gin.Context, sub *stripe.Subscription, log zerolog.Logger) error {
	if sub.Customer == nil || sub.Customer.ID == "" {
		return apperr.Validation("subscription event missing customer")
	}
	customerID := sub.Customer.ID

	status := profiles.NormalizeStatus(string(sub.Status))
	var endDate *time.Time
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0)
		endDate = &t
	}

	found, err := h.profiles.ApplySubscriptionSnapshot(c.Request.Context(), customerID, status, endDate)
	if err != nil {
		return apperr.Persistence(err)
	}
	if !found {
		// No profile references this customer yet; ack so Stripe does
		// not retry an event we can never apply.
		log.Warn().Str("customer", customerID).Msg("no profile for customer, ignoring")
		return nil
	}

	log.Info().
		Str("customer", customerID).
		Str("status", string(status)).
		Msg("applied subscription snapshot")
	return nil
}
