// Package store is the data access layer over the profiles table and
// its satellites. Handlers depend on the narrow interfaces here so
// tests can swap in fakes.
package store

import (
	"context"
	"errors"
	"time"

	"casestudy-app/internal/domain/billing"
	"casestudy-app/internal/domain/content"
	"casestudy-app/internal/domain/plans"
	"casestudy-app/internal/domain/profiles"
)

var ErrNotFound = errors.New("store: not found")

// ProfileStore is the user directory. Per-row updates are the unit of
// atomicity; concurrent webhook deliveries for the same customer are
// safe under last-write-wins.
type ProfileStore interface {
	// Ensure returns the profile for id, creating a default free-tier
	// row if absent. Every entry point that may see a first-time user
	// goes through this.
	Ensure(ctx context.Context, id, email string) (*profiles.Profile, error)

	ByID(ctx context.Context, id string) (*profiles.Profile, error)
	ByCustomerID(ctx context.Context, customerID string) (*profiles.Profile, error)

	// SetBillingCustomerID assigns the billing customer once. A write
	// that loses the race is a no-op; the caller re-reads to learn the
	// winning value.
	SetBillingCustomerID(ctx context.Context, id, customerID string) error

	// ApplySubscriptionSnapshot treats the event payload as the
	// authoritative state for the customer's subscription. Returns
	// false when no profile matches the customer id.
	ApplySubscriptionSnapshot(ctx context.Context, customerID string, status profiles.Status, endDate *time.Time) (bool, error)

	// MarkPastDue records a failed payment: status only, the tier
	// stays whatever it was until the next lifecycle event.
	MarkPastDue(ctx context.Context, customerID string) (bool, error)

	// ActivatePurchase upgrades a profile after a completed one-time
	// payment checkout, creating the profile if it has never been seen.
	ActivatePurchase(ctx context.Context, id, email, customerID string) error
}

// PlanStore is the allow-list of purchasable prices, synced from the
// billing provider.
type PlanStore interface {
	ByPriceID(ctx context.Context, priceID string) (*plans.Plan, error)
	Upsert(ctx context.Context, plan *plans.Plan) error
	List(ctx context.Context) ([]plans.Plan, error)
}

// ContentStore serves the case-study library. Listing metadata is
// public; full bodies with questions are entitlement-gated upstream.
type ContentStore interface {
	ListCaseStudies(ctx context.Context) ([]content.CaseStudy, error)
	CaseStudyBySlug(ctx context.Context, slug string) (*content.CaseStudy, error)
	CreateCaseStudy(ctx context.Context, cs *content.CaseStudy) error
	AddQuestion(ctx context.Context, q *content.Question) error
}

// PaymentStore records settled invoices.
type PaymentStore interface {
	// Record inserts a payment; replaying the same invoice is a no-op.
	Record(ctx context.Context, p *billing.Payment) error
	ListByProfile(ctx context.Context, profileID string) ([]billing.Payment, error)
}
