package billing

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"casestudy-app/internal/apperr"
	"casestudy-app/internal/app/http/middleware"
)

type paymentDTO struct {
	ID         uint      `json:"id"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	InvoiceID  string    `json:"invoiceId"`
	ReceiptURL *string   `json:"receiptUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (h *Handler) GetPaymentHistory(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		h.fail(c, apperr.Unauthenticated("User not identified"))
		return
	}

	payments, err := h.payments.ListByProfile(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, apperr.Persistence(err))
		return
	}

	out := make([]paymentDTO, 0, len(payments))
	for _, p := range payments {
		out = append(out, paymentDTO{
			ID:         p.ID,
			Amount:     p.Amount,
			Currency:   p.Currency,
			Status:     p.Status,
			InvoiceID:  p.StripeInvoiceID,
			ReceiptURL: p.ReceiptURL,
			CreatedAt:  p.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, out)
}
