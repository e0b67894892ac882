package profiles

import (
	"strings"
	"time"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusTrialing   Status = "trialing"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
	StatusIncomplete Status = "incomplete"
	StatusNone       Status = "none"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// NormalizeStatus maps a raw Stripe subscription status onto the
// statuses this app stores. Anything unknown lands on canceled, which
// never grants access.
func NormalizeStatus(s string) Status {
	switch strings.TrimSpace(s) {
	case "active":
		return StatusActive
	case "trialing":
		return StatusTrialing
	case "past_due", "unpaid":
		return StatusPastDue
	case "canceled", "incomplete_expired":
		return StatusCanceled
	case "incomplete":
		return StatusIncomplete
	case "":
		return StatusNone
	default:
		return StatusCanceled
	}
}

// DeriveTier computes the tier stored alongside a status snapshot:
// premium iff the status grants access and the period end, when known,
// is still in the future.
func DeriveTier(status Status, endDate *time.Time, now time.Time) Tier {
	if status != StatusActive && status != StatusTrialing {
		return TierFree
	}
	if endDate != nil && !endDate.After(now) {
		return TierFree
	}
	return TierPremium
}

// Entitlement is what the client subscription query returns. It is
// computed on every read, never stored.
type Entitlement struct {
	IsActive bool       `json:"isActive"`
	Tier     Tier       `json:"tier"`
	Status   Status     `json:"status"`
	EndDate  *time.Time `json:"endDate"`
}

// Entitlement resolves access from the stored snapshot. An end date in
// the past wins over the stored status. The stored tier is reported
// as-is: a past_due profile keeps its tier until the next lifecycle
// event rewrites it.
func (p *Profile) Entitlement(now time.Time) Entitlement {
	active := p.SubscriptionStatus == StatusActive || p.SubscriptionStatus == StatusTrialing
	if p.SubscriptionEndDate != nil && !p.SubscriptionEndDate.After(now) {
		active = false
	}
	return Entitlement{
		IsActive: active,
		Tier:     p.SubscriptionTier,
		Status:   p.SubscriptionStatus,
		EndDate:  p.SubscriptionEndDate,
	}
}

// FreeEntitlement is what unauthenticated callers always get.
func FreeEntitlement() Entitlement {
	return Entitlement{IsActive: false, Tier: TierFree, Status: StatusNone}
}
