package routes

import (
	"github.com/gin-gonic/gin"

	adminapi "casestudy-app/internal/api/admin"
	authapi "casestudy-app/internal/api/auth"
	"casestudy-app/internal/api/billing"
	contentapi "casestudy-app/internal/api/content"
	plansapi "casestudy-app/internal/api/plans"
	"casestudy-app/internal/api/stripewebhook"
	"casestudy-app/internal/api/subscription"
	"casestudy-app/internal/api/users"
	"casestudy-app/internal/app/http/middleware"
)

// Handlers groups everything RegisterRoutes mounts. Constructed once in
// main with its dependencies injected.
type Handlers struct {
	Auth         *authapi.Handler
	Users        *users.Handler
	Billing      *billing.Handler
	Webhook      *stripewebhook.Handler
	Subscription *subscription.Handler
	Plans        *plansapi.Handler
	Content      *contentapi.Handler
	Admin        *adminapi.Handler

	JWTSecret string
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// The webhook route sees raw Stripe payloads and must never pass
	// through sanitization or auth; the signature is the auth.
	r.POST("/webhook", h.Webhook.Handle)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeInput())

	public.POST("/register", h.Auth.Register)
	public.POST("/login", h.Auth.Login)
	public.GET("/verify", h.Auth.VerifyEmail)
	public.POST("/resend-verification", h.Auth.ResendVerification)
	public.POST("/request-password-reset", h.Auth.RequestPasswordReset)
	public.POST("/reset-password", h.Auth.ResetPassword)

	public.GET("/auth/google", h.Auth.GoogleStart)
	public.GET("/auth/google/callback", h.Auth.GoogleCallback)

	public.GET("/plans", h.Plans.ListPlans)
	public.GET("/case-studies", h.Content.ListCaseStudies)

	// Anonymous callers get the free entitlement back, not a 401.
	optional := r.Group("/")
	optional.Use(middleware.AuthOptional(h.JWTSecret))
	optional.GET("/subscription", h.Subscription.Get)
	optional.GET("/case-studies/:slug", h.Content.GetCaseStudy)

	auth := r.Group("/")
	auth.Use(middleware.AuthRequired(h.JWTSecret))
	auth.GET("/me", h.Users.GetCurrentUser)
	auth.GET("/payments", h.Billing.GetPaymentHistory)
	auth.POST("/create-checkout-session", h.Billing.CreateCheckoutSession)
	auth.POST("/billing-portal", h.Billing.CreateBillingPortal)
	auth.POST("/change-password", h.Auth.ChangePassword)

	admin := r.Group("/admin")
	admin.Use(middleware.AuthRequired(h.JWTSecret), middleware.RequireRole("admin"))
	admin.GET("/stats", h.Admin.GetStats)
	admin.GET("/profiles", h.Admin.ListProfiles)
	admin.GET("/profiles/:id", h.Admin.GetProfileDetails)
	admin.GET("/payments", h.Admin.ListPayments)
	admin.POST("/sync-plans", h.Plans.SyncPlans)
	admin.POST("/case-studies", h.Content.CreateCaseStudy)
	admin.POST("/case-studies/:slug/questions", h.Content.AddQuestion)
}
