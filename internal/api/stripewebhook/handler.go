// Package stripewebhook receives asynchronous billing lifecycle events
// and reconciles them into the profile store. Signature verification
// happens over the raw body before anything is parsed; persistence
// failures answer non-2xx so Stripe's own retry redelivers the event.
package stripewebhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"

	"casestudy-app/internal/apperr"
	"casestudy-app/internal/infra/stripeclient"
	"casestudy-app/internal/store"
)

const maxBodyBytes = 65536

type Handler struct {
	profiles store.ProfileStore
	payments store.PaymentStore
	billing  stripeclient.API
	secret   string
	log      zerolog.Logger
}

func New(profiles store.ProfileStore, payments store.PaymentStore, billing stripeclient.API, secret string, log zerolog.Logger) *Handler {
	return &Handler{
		profiles: profiles,
		payments: payments,
		billing:  billing,
		secret:   secret,
		log:      log.With().Str("component", "stripewebhook").Logger(),
	}
}

func (h *Handler) Handle(c *gin.Context) {
	payload, err := readRawBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		h.log.Warn().Err(err).Msg("signature verification failed")
		h.fail(c, apperr.InvalidSignature("Signature verification failed"))
		return
	}

	log := h.log.With().Str("event_id", event.ID).Str("event_type", string(event.Type)).Logger()

	switch event.Type {
	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			h.fail(c, apperr.Validation("Failed to parse subscription"))
			return
		}
		if err := h.handleSubscriptionEvent(c, &sub, log); err != nil {
			h.fail(c, err)
			return
		}

	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			h.fail(c, apperr.Validation("Failed to parse checkout session"))
			return
		}
		if err := h.handleCheckoutCompleted(c, &session, log); err != nil {
			h.fail(c, err)
			return
		}

	case "invoice.paid":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			h.fail(c, apperr.Validation("Failed to parse invoice"))
			return
		}
		if err := h.handleInvoicePaid(c, &invoice, log); err != nil {
			h.fail(c, err)
			return
		}

	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			h.fail(c, apperr.Validation("Failed to parse invoice"))
			return
		}
		if err := h.handlePaymentFailed(c, &invoice, log); err != nil {
			h.fail(c, err)
			return
		}

	default:
		// Ack anything valid-but-unhandled, otherwise Stripe keeps
		// redelivering it forever.
		log.Debug().Msg("ignoring unhandled event type")
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.log.Error().Err(err).Msg("webhook processing failed")
	c.JSON(apperr.StatusOf(err), gin.H{"error": apperr.MessageOf(err), "received": false})
}

func readRawBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
