package profiles

import (
	"time"
)

// Profile is one row per end user, keyed by the identity user id.
// It carries both the authentication fields and the billing linkage
// written back by Stripe webhooks.
type Profile struct {
	ID           string  `gorm:"primaryKey;type:uuid"`
	Email        string  `gorm:"not null;uniqueIndex:idx_profiles_email"`
	PasswordHash *string `gorm:""`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_profiles_google_sub"`
	Role         string
	IsVerified   bool

	// Assign-once: set on first checkout or first billing event
	// referencing this user, then never changed.
	StripeCustomerID *string `gorm:"column:stripe_customer_id;uniqueIndex:idx_profiles_stripe_customer_id"`

	SubscriptionStatus  Status     `gorm:"column:subscription_status;type:varchar(20);not null;default:'none'"`
	SubscriptionTier    Tier       `gorm:"column:subscription_tier;type:varchar(10);not null;default:'free'"`
	SubscriptionEndDate *time.Time `gorm:"column:subscription_end_date"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VerificationToken backs email verification and password reset links.
type VerificationToken struct {
	ID        uint   `gorm:"primaryKey"`
	ProfileID string `gorm:"type:uuid;index"`
	Token     string `gorm:"uniqueIndex"`
	Type      string `gorm:"type:varchar(20);not null;default:'verify'"`
	ExpiresAt time.Time
	CreatedAt time.Time
}
