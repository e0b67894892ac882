package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"casestudy-app/internal/domain/billing"
	"casestudy-app/internal/domain/content"
	"casestudy-app/internal/domain/plans"
	"casestudy-app/internal/domain/profiles"
)

// Gorm implements ProfileStore and PaymentStore on the shared database.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) Ensure(ctx context.Context, id, email string) (*profiles.Profile, error) {
	var p profiles.Profile
	err := g.db.WithContext(ctx).
		Where(profiles.Profile{ID: id}).
		Attrs(profiles.Profile{
			Email:              email,
			Role:               "user",
			SubscriptionStatus: profiles.StatusNone,
			SubscriptionTier:   profiles.TierFree,
		}).
		FirstOrCreate(&p).Error
	if err != nil {
		// Lost a create race: the row exists now, read it.
		var again profiles.Profile
		if e2 := g.db.WithContext(ctx).Where("id = ?", id).First(&again).Error; e2 == nil {
			return &again, nil
		}
		return nil, err
	}
	return &p, nil
}

func (g *Gorm) ByID(ctx context.Context, id string) (*profiles.Profile, error) {
	var p profiles.Profile
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (g *Gorm) ByCustomerID(ctx context.Context, customerID string) (*profiles.Profile, error) {
	var p profiles.Profile
	err := g.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (g *Gorm) SetBillingCustomerID(ctx context.Context, id, customerID string) error {
	// The guard clause makes the assignment idempotent: only a null
	// column (or a rewrite of the same value) takes effect, so racing
	// writers converge on whichever id landed first.
	return g.db.WithContext(ctx).
		Model(&profiles.Profile{}).
		Where("id = ? AND (stripe_customer_id IS NULL OR stripe_customer_id = ?)", id, customerID).
		Update("stripe_customer_id", customerID).Error
}

func (g *Gorm) ApplySubscriptionSnapshot(ctx context.Context, customerID string, status profiles.Status, endDate *time.Time) (bool, error) {
	res := g.db.WithContext(ctx).
		Model(&profiles.Profile{}).
		Where("stripe_customer_id = ?", customerID).
		Updates(map[string]interface{}{
			"subscription_status":   status,
			"subscription_tier":     profiles.DeriveTier(status, endDate, time.Now()),
			"subscription_end_date": endDate,
		})
	return res.RowsAffected > 0, res.Error
}

func (g *Gorm) MarkPastDue(ctx context.Context, customerID string) (bool, error) {
	res := g.db.WithContext(ctx).
		Model(&profiles.Profile{}).
		Where("stripe_customer_id = ?", customerID).
		Update("subscription_status", profiles.StatusPastDue)
	return res.RowsAffected > 0, res.Error
}

func (g *Gorm) ActivatePurchase(ctx context.Context, id, email, customerID string) error {
	if _, err := g.Ensure(ctx, id, email); err != nil {
		return err
	}
	return g.db.WithContext(ctx).
		Model(&profiles.Profile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stripe_customer_id":  customerID,
			"subscription_status": profiles.StatusActive,
			"subscription_tier":   profiles.TierPremium,
		}).Error
}

func (g *Gorm) ByPriceID(ctx context.Context, priceID string) (*plans.Plan, error) {
	var plan plans.Plan
	err := g.db.WithContext(ctx).Where("stripe_price_id = ?", priceID).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (g *Gorm) Upsert(ctx context.Context, plan *plans.Plan) error {
	var existing plans.Plan
	err := g.db.WithContext(ctx).Where("stripe_price_id = ?", plan.StripePriceID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return g.db.WithContext(ctx).Create(plan).Error
	}
	if err != nil {
		return err
	}
	plan.ID = existing.ID
	return g.db.WithContext(ctx).Save(plan).Error
}

func (g *Gorm) List(ctx context.Context) ([]plans.Plan, error) {
	var out []plans.Plan
	err := g.db.WithContext(ctx).Order("price_usd ASC").Find(&out).Error
	return out, err
}

func (g *Gorm) ListCaseStudies(ctx context.Context) ([]content.CaseStudy, error) {
	var out []content.CaseStudy
	err := g.db.WithContext(ctx).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (g *Gorm) CaseStudyBySlug(ctx context.Context, slug string) (*content.CaseStudy, error) {
	var cs content.CaseStudy
	err := g.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("slug = ?", slug).
		First(&cs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

func (g *Gorm) CreateCaseStudy(ctx context.Context, cs *content.CaseStudy) error {
	return g.db.WithContext(ctx).Create(cs).Error
}

func (g *Gorm) AddQuestion(ctx context.Context, q *content.Question) error {
	return g.db.WithContext(ctx).Create(q).Error
}

func (g *Gorm) Record(ctx context.Context, p *billing.Payment) error {
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_invoice_id"}},
			DoNothing: true,
		}).
		Create(p).Error
}

func (g *Gorm) ListByProfile(ctx context.Context, profileID string) ([]billing.Payment, error) {
	var payments []billing.Payment
	err := g.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}
