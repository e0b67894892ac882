package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casestudy-app/internal/app/http/middleware"
	contentmodel "casestudy-app/internal/domain/content"
	"casestudy-app/internal/domain/profiles"
	"casestudy-app/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeContent struct {
	bySlug map[string]*contentmodel.CaseStudy
}

func newFakeContent() *fakeContent {
	return &fakeContent{bySlug: map[string]*contentmodel.CaseStudy{}}
}

func (f *fakeContent) ListCaseStudies(context.Context) ([]contentmodel.CaseStudy, error) {
	var out []contentmodel.CaseStudy
	for _, cs := range f.bySlug {
		out = append(out, *cs)
	}
	return out, nil
}

func (f *fakeContent) CaseStudyBySlug(_ context.Context, slug string) (*contentmodel.CaseStudy, error) {
	if cs, ok := f.bySlug[slug]; ok {
		return cs, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeContent) CreateCaseStudy(_ context.Context, cs *contentmodel.CaseStudy) error {
	f.bySlug[cs.Slug] = cs
	return nil
}

func (f *fakeContent) AddQuestion(_ context.Context, q *contentmodel.Question) error {
	for _, cs := range f.bySlug {
		if cs.ID == q.CaseStudyID {
			cs.Questions = append(cs.Questions, *q)
		}
	}
	return nil
}

type fakeProfiles struct {
	byID map[string]*profiles.Profile
}

func (f *fakeProfiles) Ensure(_ context.Context, id, email string) (*profiles.Profile, error) {
	return f.ByID(nil, id)
}

func (f *fakeProfiles) ByID(_ context.Context, id string) (*profiles.Profile, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeProfiles) ByCustomerID(context.Context, string) (*profiles.Profile, error) {
	return nil, store.ErrNotFound
}

func (f *fakeProfiles) SetBillingCustomerID(context.Context, string, string) error { return nil }

func (f *fakeProfiles) ApplySubscriptionSnapshot(context.Context, string, profiles.Status, *time.Time) (bool, error) {
	return false, nil
}

func (f *fakeProfiles) MarkPastDue(context.Context, string) (bool, error) { return false, nil }

func (f *fakeProfiles) ActivatePurchase(context.Context, string, string, string) error { return nil }

func seedStudies(fc *fakeContent) {
	fc.bySlug["free-intro"] = &contentmodel.CaseStudy{
		ID: "cs-1", Slug: "free-intro", Title: "Intro Vignette", Topic: "ethics", Premium: false,
		Questions: []contentmodel.Question{{ID: "q-1", CaseStudyID: "cs-1", Position: 1, Prompt: "What?"}},
	}
	fc.bySlug["bond-math"] = &contentmodel.CaseStudy{
		ID: "cs-2", Slug: "bond-math", Title: "Bond Math", Topic: "fixed-income", Premium: true,
		Questions: []contentmodel.Question{{ID: "q-2", CaseStudyID: "cs-2", Position: 1, Prompt: "Price the bond", Solution: "98.2"}},
	}
}

func router(h *Handler, userID string) *gin.Engine {
	r := gin.New()
	setUser := func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.CtxUserID, userID)
		}
	}
	r.GET("/case-studies", h.ListCaseStudies)
	r.GET("/case-studies/:slug", setUser, h.GetCaseStudy)
	r.POST("/admin/case-studies", h.CreateCaseStudy)
	r.POST("/admin/case-studies/:slug/questions", h.AddQuestion)
	return r
}

func do(r *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestListCaseStudiesOmitsQuestions(t *testing.T) {
	fc := newFakeContent()
	seedStudies(fc)
	h := NewHandler(fc, &fakeProfiles{byID: map[string]*profiles.Profile{}}, zerolog.Nop())

	w := do(router(h, ""), http.MethodGet, "/case-studies", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "questions")
	assert.Contains(t, w.Body.String(), "bond-math")
}

func TestFreeCaseStudyServedAnonymously(t *testing.T) {
	fc := newFakeContent()
	seedStudies(fc)
	h := NewHandler(fc, &fakeProfiles{byID: map[string]*profiles.Profile{}}, zerolog.Nop())

	w := do(router(h, ""), http.MethodGet, "/case-studies/free-intro", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp["questions"], 1)
}

func TestPremiumCaseStudyRequiresSignIn(t *testing.T) {
	fc := newFakeContent()
	seedStudies(fc)
	h := NewHandler(fc, &fakeProfiles{byID: map[string]*profiles.Profile{}}, zerolog.Nop())

	w := do(router(h, ""), http.MethodGet, "/case-studies/bond-math", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPremiumCaseStudyRequiresEntitlement(t *testing.T) {
	fc := newFakeContent()
	seedStudies(fc)
	fp := &fakeProfiles{byID: map[string]*profiles.Profile{
		"user-1": {ID: "user-1", SubscriptionStatus: profiles.StatusNone, SubscriptionTier: profiles.TierFree},
	}}
	h := NewHandler(fc, fp, zerolog.Nop())

	w := do(router(h, "user-1"), http.MethodGet, "/case-studies/bond-math", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPremiumCaseStudyExpiredSubscription(t *testing.T) {
	fc := newFakeContent()
	seedStudies(fc)
	past := time.Now().Add(-24 * time.Hour)
	fp := &fakeProfiles{byID: map[string]*profiles.Profile{
		"user-1": {ID: "user-1", SubscriptionStatus: profiles.StatusActive, SubscriptionTier: profiles.TierPremium, SubscriptionEndDate: &past},
	}}
	h := NewHandler(fc, fp, zerolog.Nop())

	w := do(router(h, "user-1"), http.MethodGet, "/case-studies/bond-math", "")

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestPremiumCaseStudyServedToSubscriber(t *testing.T) {
	fc := newFakeContent()
	seedStudies(fc)
	future := time.Now().Add(30 * 24 * time.Hour)
	fp := &fakeProfiles{byID: map[string]*profiles.Profile{
		"user-1": {ID: "user-1", SubscriptionStatus: profiles.StatusActive, SubscriptionTier: profiles.TierPremium, SubscriptionEndDate: &future},
	}}
	h := NewHandler(fc, fp, zerolog.Nop())

	w := do(router(h, "user-1"), http.MethodGet, "/case-studies/bond-math", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Price the bond")
}

func TestGetCaseStudyNotFound(t *testing.T) {
	h := NewHandler(newFakeContent(), &fakeProfiles{byID: map[string]*profiles.Profile{}}, zerolog.Nop())

	w := do(router(h, ""), http.MethodGet, "/case-studies/nope", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateCaseStudyAndAddQuestion(t *testing.T) {
	fc := newFakeContent()
	h := NewHandler(fc, &fakeProfiles{byID: map[string]*profiles.Profile{}}, zerolog.Nop())
	r := router(h, "")

	w := do(r, http.MethodPost, "/admin/case-studies", `{"slug":"equity-val","title":"Equity Valuation","premium":true}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/admin/case-studies/equity-val/questions", `{"position":1,"prompt":"Compute FCFF","solution":"42"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, fc.bySlug["equity-val"].Questions, 1)
	assert.Equal(t, "Compute FCFF", fc.bySlug["equity-val"].Questions[0].Prompt)
}

func TestCreateCaseStudyValidation(t *testing.T) {
	h := NewHandler(newFakeContent(), &fakeProfiles{byID: map[string]*profiles.Profile{}}, zerolog.Nop())

	w := do(router(h, ""), http.MethodPost, "/admin/case-studies", `{"topic":"ethics"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
