// Package stripeclient wraps the Stripe API behind a small interface so
// handlers stay testable and the SDK client is constructed exactly once
// per process instead of through package-level globals.
package stripeclient

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
)

// API is the slice of Stripe this app talks to.
type API interface {
	CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*stripe.Customer, error)
	GetCustomer(ctx context.Context, id string) (*stripe.Customer, error)
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	NewCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (*stripe.CheckoutSession, error)
	NewPortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error)
	ListRecurringPrices(ctx context.Context) ([]*stripe.Price, error)
}

type Client struct {
	api *client.API
	log zerolog.Logger

	maxAttempts int
	retryDelay  time.Duration
}

func New(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		api:         client.New(apiKey, nil),
		log:         log.With().Str("component", "stripe").Logger(),
		maxAttempts: 3,
		retryDelay:  time.Second,
	}
}

// CreateCustomer tags the customer with the identity user id so
// webhooks can map billing events back to a profile. Rate-limited
// attempts are retried with increasing delay before giving up.
func (c *Client) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Params:   stripe.Params{Context: ctx},
		Email:    stripe.String(email),
		Metadata: metadata,
	}

	var cus *stripe.Customer
	err := withBackoff(ctx, c.maxAttempts, c.retryDelay, func() error {
		var err error
		cus, err = c.api.Customers.New(params)
		if err != nil {
			c.log.Warn().Err(err).Str("email", email).Msg("create customer attempt failed")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return cus, nil
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	return c.api.Customers.Get(id, &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
	})
}

func (c *Client) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	return c.api.Subscriptions.Get(id, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
}

func (c *Client) NewCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		AllowPromotionCodes: stripe.Bool(true),
	}
	return c.api.CheckoutSessions.New(params)
}

func (c *Client) NewPortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	return c.api.BillingPortalSessions.New(&stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	})
}

// ListRecurringPrices returns every active recurring price, with the
// product expanded so callers can filter and read metadata.
func (c *Client) ListRecurringPrices(ctx context.Context) ([]*stripe.Price, error) {
	params := &stripe.PriceListParams{}
	params.Context = ctx
	params.Active = stripe.Bool(true)
	params.Type = stripe.String("recurring")
	params.AddExpand("data.product")

	var out []*stripe.Price
	it := c.api.Prices.List(params)
	for it.Next() {
		out = append(out, it.Price())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
