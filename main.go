package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"casestudy-app/config"
	"casestudy-app/database"
	adminapi "casestudy-app/internal/api/admin"
	authapi "casestudy-app/internal/api/auth"
	"casestudy-app/internal/api/billing"
	contentapi "casestudy-app/internal/api/content"
	plansapi "casestudy-app/internal/api/plans"
	"casestudy-app/internal/api/stripewebhook"
	"casestudy-app/internal/api/subscription"
	"casestudy-app/internal/api/users"
	routes "casestudy-app/internal/app/http"
	"casestudy-app/internal/infra/stripeclient"
	"casestudy-app/internal/store"
)

func main() {
	cfg := config.Load()

	log := newLogger(cfg.AppEnv)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DBURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}
	defer database.Close(db)

	stores := store.NewGorm(db)
	stripeAPI := stripeclient.New(cfg.StripeSecretKey, log)

	r := gin.New()
	r.Use(ginLogger(log), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Handlers{
		Auth:         authapi.NewHandler(db, cfg, log),
		Users:        users.NewHandler(stores, log),
		Billing:      billing.NewHandler(stores, stores, stores, stripeAPI, cfg.AppURL, log),
		Webhook:      stripewebhook.New(stores, stores, stripeAPI, cfg.StripeWebhookSecret, log),
		Subscription: subscription.New(stores, log),
		Plans:        plansapi.NewHandler(stores, stripeAPI, cfg.StripeProductID, log),
		Content:      contentapi.NewHandler(stores, stores, log),
		Admin:        adminapi.NewHandler(db, log),
		JWTSecret:    cfg.JWTSecret,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

func newLogger(env string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func ginLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
