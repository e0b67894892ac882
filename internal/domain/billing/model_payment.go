package billing

import (
	"time"

	"casestudy-app/internal/domain/profiles"
)

// Payment is one settled invoice, recorded from invoice.paid webhooks.
// StripeInvoiceID is unique so webhook redelivery cannot double-record.
type Payment struct {
	ID                   uint   `gorm:"primaryKey"`
	ProfileID            string `gorm:"type:uuid;index"`
	Profile              profiles.Profile
	StripeInvoiceID      string `gorm:"column:stripe_invoice_id;uniqueIndex"`
	StripeSubscriptionID *string
	Amount               float64
	Currency             string
	Status               string
	ReceiptURL           *string
	CreatedAt            time.Time
}
