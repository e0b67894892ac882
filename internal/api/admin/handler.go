package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"casestudy-app/internal/domain/billing"
	"casestudy-app/internal/domain/content"
	"casestudy-app/internal/domain/profiles"
)

// Handler serves the back-office views. Aggregate queries go straight
// through gorm; there is no fake-store seam here because everything is
// read-only reporting.
type Handler struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewHandler(db *gorm.DB, log zerolog.Logger) *Handler {
	return &Handler{db: db, log: log.With().Str("component", "admin").Logger()}
}

type AdminProfile struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Role                string     `json:"role"`
	IsVerified          bool       `json:"is_verified"`
	AuthProvider        string     `json:"auth_provider"`
	StripeCustomerID    *string    `json:"stripe_customer_id,omitempty"`
	SubscriptionStatus  string     `json:"subscription_status"`
	SubscriptionTier    string     `json:"subscription_tier"`
	SubscriptionEndDate *time.Time `json:"subscription_end_date,omitempty"`
	CreatedAt           string     `json:"created_at"`
}

type AdminPayment struct {
	ID         uint    `json:"id"`
	Email      string  `json:"email"`
	AmountUSD  float64 `json:"amount_usd"`
	Currency   string  `json:"currency"`
	Status     string  `json:"status"`
	InvoiceID  string  `json:"invoice_id"`
	ReceiptURL *string `json:"receipt_url,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

type AdminStats struct {
	TotalProfiles    int            `json:"total_profiles"`
	ActivePremium    int            `json:"active_premium"`
	PastDue          int            `json:"past_due"`
	TotalRevenue     float64        `json:"total_revenue"`
	RecentRevenue    float64        `json:"recent_revenue"`
	TotalCaseStudies int            `json:"total_case_studies"`
	ProfilesPerTier  map[string]int `json:"profiles_per_tier"`
}

func (h *Handler) GetStats(c *gin.Context) {
	var stats AdminStats

	var totalProfiles, activePremium, pastDue, studies int64
	h.db.Model(&profiles.Profile{}).Count(&totalProfiles)
	h.db.Model(&profiles.Profile{}).
		Where("subscription_tier = ? AND subscription_status IN ?", profiles.TierPremium, []profiles.Status{profiles.StatusActive, profiles.StatusTrialing}).
		Count(&activePremium)
	h.db.Model(&profiles.Profile{}).Where("subscription_status = ?", profiles.StatusPastDue).Count(&pastDue)
	h.db.Model(&content.CaseStudy{}).Count(&studies)

	var totalRevenue, recentRevenue float64
	h.db.Model(&billing.Payment{}).Where("status = ?", "paid").
		Select("COALESCE(SUM(amount), 0)").Scan(&totalRevenue)
	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	h.db.Model(&billing.Payment{}).Where("status = ? AND created_at >= ?", "paid", thirtyDaysAgo).
		Select("COALESCE(SUM(amount), 0)").Scan(&recentRevenue)

	type tierCount struct {
		Tier  string
		Count int
	}
	var counts []tierCount
	h.db.Model(&profiles.Profile{}).
		Select("subscription_tier as tier, COUNT(id) as count").
		Group("subscription_tier").
		Scan(&counts)

	stats.TotalProfiles = int(totalProfiles)
	stats.ActivePremium = int(activePremium)
	stats.PastDue = int(pastDue)
	stats.TotalCaseStudies = int(studies)
	stats.TotalRevenue = totalRevenue
	stats.RecentRevenue = recentRevenue
	stats.ProfilesPerTier = map[string]int{}
	for _, tc := range counts {
		stats.ProfilesPerTier[tc.Tier] = tc.Count
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListProfiles(c *gin.Context) {
	var list []profiles.Profile
	if err := h.db.Order("created_at DESC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profiles"})
		return
	}

	out := make([]AdminProfile, 0, len(list))
	for _, p := range list {
		out = append(out, AdminProfile{
			ID:                  p.ID,
			Email:               p.Email,
			Role:                p.Role,
			IsVerified:          p.IsVerified,
			AuthProvider:        p.AuthProvider,
			StripeCustomerID:    p.StripeCustomerID,
			SubscriptionStatus:  string(p.SubscriptionStatus),
			SubscriptionTier:    string(p.SubscriptionTier),
			SubscriptionEndDate: p.SubscriptionEndDate,
			CreatedAt:           p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ListPayments(c *gin.Context) {
	var payments []billing.Payment
	err := h.db.Preload("Profile").Order("created_at DESC").Find(&payments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	out := make([]AdminPayment, 0, len(payments))
	for _, p := range payments {
		out = append(out, AdminPayment{
			ID:         p.ID,
			Email:      p.Profile.Email,
			AmountUSD:  p.Amount,
			Currency:   p.Currency,
			Status:     p.Status,
			InvoiceID:  p.StripeInvoiceID,
			ReceiptURL: p.ReceiptURL,
			CreatedAt:  p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetProfileDetails(c *gin.Context) {
	id := c.Param("id")

	var p profiles.Profile
	if err := h.db.Where("id = ?", id).First(&p).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	var payments []billing.Payment
	if err := h.db.Where("profile_id = ?", id).Order("created_at DESC").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":     p,
		"payments":    payments,
		"entitlement": p.Entitlement(time.Now()),
	})
}
