package plans

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v75"

	"casestudy-app/internal/apperr"
	planmodel "casestudy-app/internal/domain/plans"
	"casestudy-app/internal/infra/stripeclient"
	"casestudy-app/internal/store"
)

type Handler struct {
	plans     store.PlanStore
	billing   stripeclient.API
	productID string
	log       zerolog.Logger
}

func NewHandler(planStore store.PlanStore, billing stripeclient.API, productID string, log zerolog.Logger) *Handler {
	return &Handler{
		plans:     planStore,
		billing:   billing,
		productID: productID,
		log:       log.With().Str("component", "plans").Logger(),
	}
}

type planDTO struct {
	Name     string  `json:"name"`
	PriceUSD float64 `json:"priceUsd"`
	PriceID  string  `json:"priceId"`
	Interval string  `json:"interval"`
	Tier     string  `json:"tier"`
}

// ListPlans is public: the pricing page reads it before any login.
func (h *Handler) ListPlans(c *gin.Context) {
	list, err := h.plans.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}

	out := make([]planDTO, 0, len(list))
	for _, p := range list {
		out = append(out, planDTO{
			Name:     p.Name,
			PriceUSD: p.PriceUSD,
			PriceID:  p.StripePriceID,
			Interval: p.Interval,
			Tier:     p.Tier,
		})
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}

// SyncPlans pulls the active recurring prices for our product from
// Stripe and upserts them into the local allow-list. Admin only.
func (h *Handler) SyncPlans(c *gin.Context) {
	prices, err := h.billing.ListRecurringPrices(c.Request.Context())
	if err != nil {
		e := apperr.BillingProvider(err)
		c.JSON(apperr.StatusOf(e), gin.H{"error": apperr.MessageOf(e)})
		return
	}

	synced := 0
	for _, price := range prices {
		if price.Product == nil || (h.productID != "" && price.Product.ID != h.productID) {
			continue
		}

		plan := &planmodel.Plan{
			Name:          planName(price),
			PriceUSD:      float64(price.UnitAmount) / 100,
			StripePriceID: price.ID,
			Interval:      priceInterval(price),
			Tier:          priceTier(price),
		}
		if err := h.plans.Upsert(c.Request.Context(), plan); err != nil {
			h.log.Error().Err(err).Str("price_id", price.ID).Msg("plan upsert failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync plans"})
			return
		}
		synced++
	}

	h.log.Info().Int("synced", synced).Msg("plans synced from stripe")
	c.JSON(http.StatusOK, gin.H{"synced": synced})
}

func planName(price *stripe.Price) string {
	if price.Nickname != "" {
		return price.Nickname
	}
	if price.Product != nil && price.Product.Name != "" {
		return price.Product.Name
	}
	return price.ID
}

func priceInterval(price *stripe.Price) string {
	if price.Recurring == nil {
		return ""
	}
	return string(price.Recurring.Interval)
}

// priceTier reads the tier from price metadata, falling back to the
// product's, then to premium since every paid plan grants it.
func priceTier(price *stripe.Price) string {
	if t, ok := price.Metadata["tier"]; ok && t != "" {
		return t
	}
	if price.Product != nil {
		if t, ok := price.Product.Metadata["tier"]; ok && t != "" {
			return t
		}
	}
	return "premium"
}
