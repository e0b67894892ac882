package stripewebhook

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v75"

	"casestudy-app/internal/apperr"
	"casestudy-app/internal/domain/billing"
	"casestudy-app/internal/domain/profiles"
	"casestudy-app/internal/store"
)

// handleInvoicePaid re-fetches the subscription named on the invoice
// and applies it as a snapshot, then records the payment for history.
func (h *Handler) handleInvoicePaid(c *gin.Context, invoice *stripe.Invoice, log zerolog.Logger) error {
	if invoice.Subscription == nil || invoice.Subscription.ID == "" {
		return nil
	}
	if invoice.Customer == nil || invoice.Customer.ID == "" {
		return apperr.Validation("invoice missing customer")
	}
	customerID := invoice.Customer.ID

	sub, err := h.billing.GetSubscription(c.Request.Context(), invoice.Subscription.ID)
	if err != nil {
		return apperr.BillingProvider(err)
	}

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
		log.Warn().Str("customer", customerID).Msg("no profile for customer, ignoring paid invoice")
		return nil
	}

	if err := h.recordPayment(c, invoice, customerID); err != nil {
		return err
	}

	log.Info().Str("customer", customerID).Str("invoice", invoice.ID).Msg("processed paid invoice")
	return nil
}

func (h *Handler) recordPayment(c *gin.Context, invoice *stripe.Invoice, customerID string) error {
	p, err := h.profiles.ByCustomerID(c.Request.Context(), customerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return apperr.Persistence(err)
	}

	payment := billing.Payment{
		ProfileID:       p.ID,
		StripeInvoiceID: invoice.ID,
		Amount:          float64(invoice.AmountPaid) / 100.0,
		Currency:        string(invoice.Currency),
		Status:          "paid",
	}
	if invoice.Subscription != nil && invoice.Subscription.ID != "" {
		subID := invoice.Subscription.ID
		payment.StripeSubscriptionID = &subID
	}
	if invoice.HostedInvoiceURL != "" {
		url := invoice.HostedInvoiceURL
		payment.ReceiptURL = &url
	}

	if err := h.payments.Record(c.Request.Context(), &payment); err != nil {
		return apperr.Persistence(err)
	}
	return nil
}

// handlePaymentFailed only moves the status to past_due. The tier keeps
// its previous value until a subsequent lifecycle event changes it, so
// one failed charge does not instantly revoke access.
func (h *Handler) handlePaymentFailed(c *gin.Context, invoice *stripe.Invoice, log zerolog.Logger) error {
	if invoice.Customer == nil || invoice.Customer.ID == "" {
		return apperr.Validation("invoice missing customer")
	}
	customerID := invoice.Customer.ID

	found, err := h.profiles.MarkPastDue(c.Request.Context(), customerID)
	if err != nil {
		return apperr.Persistence(err)
	}
	if !found {
		log.Warn().Str("customer", customerID).Msg("no profile for customer, ignoring failed payment")
		return nil
	}

	log.Info().Str("customer", customerID).Msg("marked profile past_due")
	return nil
}
