package stripewebhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75"

	"casestudy-app/internal/domain/billing"
	"casestudy-app/internal/domain/profiles"
	"casestudy-app/internal/store"
)

const testSecret = "whsec_test_secret"

func init() {
	gin.SetMode(gin.TestMode)
}

/* ---------------- fakes ---------------- */

type fakeProfileStore struct {
	byID        map[string]*profiles.Profile
	byCustomer  map[string]*profiles.Profile
	failWrites  bool
	writeCalled bool
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{
		byID:       map[string]*profiles.Profile{},
		byCustomer: map[string]*profiles.Profile{},
	}
}

func (f *fakeProfileStore) add(p *profiles.Profile) {
	f.byID[p.ID] = p
	if p.StripeCustomerID != nil {
		f.byCustomer[*p.StripeCustomerID] = p
	}
}

func (f *fakeProfileStore) Ensure(_ context.Context, id, email string) (*profiles.Profile, error) {
	if f.failWrites {
		return nil, errors.New("db down")
	}
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	p := &profiles.Profile{
		ID:                 id,
		Email:              email,
		Role:               "user",
		SubscriptionStatus: profiles.StatusNone,
		SubscriptionTier:   profiles.TierFree,
	}
	f.add(p)
	return p, nil
}

func (f *fakeProfileStore) ByID(_ context.Context, id string) (*profiles.Profile, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeProfileStore) ByCustomerID(_ context.Context, customerID string) (*profiles.Profile, error) {
	if p, ok := f.byCustomer[customerID]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeProfileStore) SetBillingCustomerID(_ context.Context, id, customerID string) error {
	if f.failWrites {
		return errors.New("db down")
	}
	p, ok := f.byID[id]
	if !ok {
		return nil
	}
	if p.StripeCustomerID == nil {
		cid := customerID
		p.StripeCustomerID = &cid
		f.byCustomer[customerID] = p
	}
	return nil
}

func (f *fakeProfileStore) ApplySubscriptionSnapshot(_ context.Context, customerID string, status profiles.Status, endDate *time.Time) (bool, error) {
	f.writeCalled = true
	if f.failWrites {
		return false, errors.New("db down")
	}
	p, ok := f.byCustomer[customerID]
	if !ok {
		return false, nil
	}
	p.SubscriptionStatus = status
	p.SubscriptionTier = profiles.DeriveTier(status, endDate, time.Now())
	p.SubscriptionEndDate = endDate
	return true, nil
}

func (f *fakeProfileStore) MarkPastDue(_ context.Context, customerID string) (bool, error) {
	f.writeCalled = true
	if f.failWrites {
		return false, errors.New("db down")
	}
	p, ok := f.byCustomer[customerID]
	if !ok {
		return false, nil
	}
	p.SubscriptionStatus = profiles.StatusPastDue
	return true, nil
}

func (f *fakeProfileStore) ActivatePurchase(_ context.Context, id, email, customerID string) error {
	f.writeCalled = true
	if f.failWrites {
		return errors.New("db down")
	}
	p, err := f.Ensure(context.Background(), id, email)
	if err != nil {
		return err
	}
	cid := customerID
	p.StripeCustomerID = &cid
	p.SubscriptionStatus = profiles.StatusActive
	p.SubscriptionTier = profiles.TierPremium
	f.byCustomer[customerID] = p
	return nil
}

type fakePaymentStore struct {
	recorded map[string]billing.Payment
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{recorded: map[string]billing.Payment{}}
}

func (f *fakePaymentStore) Record(_ context.Context, p *billing.Payment) error {
	if _, ok := f.recorded[p.StripeInvoiceID]; ok {
		return nil
	}
	f.recorded[p.StripeInvoiceID] = *p
	return nil
}

func (f *fakePaymentStore) ListByProfile(_ context.Context, profileID string) ([]billing.Payment, error) {
	var out []billing.Payment
	for _, p := range f.recorded {
		if p.ProfileID == profileID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeBilling struct {
	customers     map[string]*stripe.Customer
	subscriptions map[string]*stripe.Subscription
	err           error
}

func newFakeBilling() *fakeBilling {
	return &fakeBilling{
		customers:     map[string]*stripe.Customer{},
		subscriptions: map[string]*stripe.Subscription{},
	}
}

func (f *fakeBilling) CreateCustomer(_ context.Context, email string, metadata map[string]string) (*stripe.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	id := fmt.Sprintf("cus_fake_%d", len(f.customers)+1)
	cus := &stripe.Customer{ID: id, Email: email, Metadata: metadata}
	f.customers[id] = cus
	return cus, nil
}

func (f *fakeBilling) GetCustomer(_ context.Context, id string) (*stripe.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	cus, ok := f.customers[id]
	if !ok {
		return nil, &stripe.Error{HTTPStatusCode: http.StatusNotFound, Msg: "no such customer"}
	}
	return cus, nil
}

func (f *fakeBilling) GetSubscription(_ context.Context, id string) (*stripe.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	sub, ok := f.subscriptions[id]
	if !ok {
		return nil, &stripe.Error{HTTPStatusCode: http.StatusNotFound, Msg: "no such subscription"}
	}
	return sub, nil
}

func (f *fakeBilling) NewCheckoutSession(_ context.Context, customerID, priceID, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	return &stripe.CheckoutSession{ID: "cs_fake", URL: "https://checkout.example/cs_fake"}, nil
}

func (f *fakeBilling) NewPortalSession(_ context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	return &stripe.BillingPortalSession{URL: "https://portal.example/ps_fake"}, nil
}

func (f *fakeBilling) ListRecurringPrices(_ context.Context) ([]*stripe.Price, error) {
	return nil, nil
}

/* ---------------- helpers ---------------- */

func signPayload(t *testing.T, payload []byte) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func deliver(t *testing.T, h *Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	router := gin.New()
	router.POST("/webhook", h.Handle)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	router.ServeHTTP(w, req)
	return w
}

func newHandler(ps *fakeProfileStore, pay *fakePaymentStore, b *fakeBilling) *Handler {
	return New(ps, pay, b, testSecret, zerolog.Nop())
}

func premiumProfile(customerID string) *profiles.Profile {
	end := time.Now().Add(30 * 24 * time.Hour)
	cid := customerID
	return &profiles.Profile{
		ID:                  "11111111-1111-1111-1111-111111111111",
		Email:               "analyst@example.com",
		StripeCustomerID:    &cid,
		SubscriptionStatus:  profiles.StatusActive,
		SubscriptionTier:    profiles.TierPremium,
		SubscriptionEndDate: &end,
	}
}

/* ---------------- tests ---------------- */

func TestWebhookRejectsBadSignature(t *testing.T) {
	ps := newFakeProfileStore()
	ps.add(premiumProfile("cus_1"))
	h := newHandler(ps, newFakePaymentStore(), newFakeBilling())

	payload := []byte(`{"id":"evt_1","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","customer":"cus_1","status":"canceled"}}}`)
	w := deliver(t, h, payload, "t=123,v1=deadbeef")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, ps.writeCalled, "no profile write may happen on a forged payload")
}

func TestWebhookAcksUnknownEventType(t *testing.T) {
	h := newHandler(newFakeProfileStore(), newFakePaymentStore(), newFakeBilling())

	payload := []byte(`{"id":"evt_2","type":"customer.tax_id.created","data":{"object":{}}}`)
	w := deliver(t, h, payload, signPayload(t, payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"received":true`)
}

func TestWebhookSubscriptionUpdated(t *testing.T) {
	ps := newFakeProfileStore()
	p := premiumProfile("cus_1")
	p.SubscriptionStatus = profiles.StatusNone
	p.SubscriptionTier = profiles.TierFree
	p.SubscriptionEndDate = nil
	ps.add(p)
	h := newHandler(ps, newFakePaymentStore(), newFakeBilling())

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	payload := []byte(fmt.Sprintf(
		`{"id":"evt_3","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","customer":"cus_1","status":"active","current_period_end":%d}}}`,
		periodEnd,
	))

	w := deliver(t, h, payload, signPayload(t, payload))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, profiles.StatusActive, p.SubscriptionStatus)
	assert.Equal(t, profiles.TierPremium, p.SubscriptionTier)
	require.NotNil(t, p.SubscriptionEndDate)
	assert.Equal(t, periodEnd, p.SubscriptionEndDate.Unix())
}

func TestWebhookSubscriptionEventIdempotent(t *testing.T) {
	ps := newFakeProfileStore()
	p := premiumProfile("cus_1")
	ps.add(p)
	h := newHandler(ps, newFakePaymentStore(), newFakeBilling())

	periodEnd := time.Now().Add(7 * 24 * time.Hour).Unix()
	payload := []byte(fmt.Sprintf(
		`{"id":"evt_4","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","customer":"cus_1","status":"canceled","current_period_end":%d}}}`,
		periodEnd,
	))

	w := deliver(t, h, payload, signPayload(t, payload))
	require.Equal(t, http.StatusOK, w.Code)
	first := *p

	w = deliver(t, h, payload, signPayload(t, payload))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, first.SubscriptionStatus, p.SubscriptionStatus)
	assert.Equal(t, first.SubscriptionTier, p.SubscriptionTier)
	assert.Equal(t, first.SubscriptionEndDate.Unix(), p.SubscriptionEndDate.Unix())
}

func TestWebhookUnknownCustomerIsAcked(t *testing.T) {
	h := newHandler(newFakeProfileStore(), newFakePaymentStore(), newFakeBilling())

	payload := []byte(`{"id":"evt_5","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","customer":"cus_ghost","status":"active"}}}`)
	w := deliver(t, h, payload, signPayload(t, payload))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookPaymentFailedPreservesTier(t *testing.T) {
	ps := newFakeProfileStore()
	p := premiumProfile("cus_1")
	ps.add(p)
	h := newHandler(ps, newFakePaymentStore(), newFakeBilling())

	payload := []byte(`{"id":"evt_6","type":"invoice.payment_failed","data":{"object":{"id":"in_1","customer":"cus_1"}}}`)
	w := deliver(t, h, payload, signPayload(t, payload))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, profiles.StatusPastDue, p.SubscriptionStatus)
	assert.Equal(t, profiles.TierPremium, p.SubscriptionTier, "failed payment must not revoke the tier")
}

func TestWebhookCheckoutCompletedPaymentMode(t *testing.T) {
	ps := newFakeProfileStore()
	b := newFakeBilling()
	b.customers["cus_9"] = &stripe.Customer{
		ID:       "cus_9",
		Email:    "buyer@example.com",
		Metadata: map[string]string{"user_id": "22222222-2222-2222-2222-222222222222"},
	}
	h := newHandler(ps, newFakePaymentStore(), b)

	payload := []byte(`{"id":"evt_7","type":"checkout.session.completed","data":{"object":{"id":"cs_1","mode":"payment","customer":"cus_9"}}}`)
	w := deliver(t, h, payload, signPayload(t, payload))

	require.Equal(t, http.StatusOK, w.Code)
	p, err := ps.ByID(context.Background(), "22222222-2222-2222-2222-222222222222")
	require.NoError(t, err)
	assert.Equal(t, profiles.StatusActive, p.SubscriptionStatus)
	assert.Equal(t, profiles.TierPremium, p.SubscriptionTier)
	require.NotNil(t, p.StripeCustomerID)
	assert.Equal(t, "cus_9", *p.StripeCustomerID)
}

func TestWebhookCheckoutCompletedMissingMetadata(t *testing.T) {
	b := newFakeBilling()
	b.customers["cus_9"] = &stripe.Customer{ID: "cus_9", Email: "buyer@example.com"}
	h := newHandler(newFakeProfileStore(), newFakePaymentStore(), b)

	payload := []byte(`{"id":"evt_8","type":"checkout.session.completed","data":{"object":{"id":"cs_1","mode":"payment","customer":"cus_9"}}}`)
	w := deliver(t, h, payload, signPayload(t, payload))

	// Unusable payload: never retried.
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookCheckoutCompletedSubscriptionModeIgnored(t *testing.T) {
	ps := newFakeProfileStore()
	h := newHandler(ps, newFakePaymentStore(), newFakeBilling())

	payload := []byte(`{"id":"evt_9","type":"checkout.session.completed","data":{"object":{"id":"cs_1","mode":"subscription","customer":"cus_9"}}}`)
	w := deliver(t, h, payload, signPayload(t, payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, ps.writeCalled)
}

func TestWebhookInvoicePaidRecordsPayment(t *testing.T) {
	ps := newFakeProfileStore()
	p := premiumProfile("cus_1")
	ps.add(p)
	pay := newFakePaymentStore()
	b := newFakeBilling()
	b.subscriptions["sub_1"] = &stripe.Subscription{
		ID:               "sub_1",
		Status:           stripe.SubscriptionStatusActive,
		CurrentPeriodEnd: time.Now().Add(30 * 24 * time.Hour).Unix(),
	}
	h := newHandler(ps, pay, b)

	payload := []byte(`{"id":"evt_10","type":"invoice.paid","data":{"object":{"id":"in_1","customer":"cus_1","subscription":"sub_1","amount_paid":4900,"currency":"usd"}}}`)
	w := deliver(t, h, payload, signPayload(t, payload))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, pay.recorded, 1)
	rec := pay.recorded["in_1"]
	assert.Equal(t, p.ID, rec.ProfileID)
	assert.Equal(t, 49.0, rec.Amount)

	// Redelivery records nothing new.
	w = deliver(t, h, payload, signPayload(t, payload))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, pay.recorded, 1)
}

func TestWebhookPersistenceFailureIsRetryable(t *testing.T) {
	ps := newFakeProfileStore()
	ps.add(premiumProfile("cus_1"))
	ps.failWrites = true
	h := newHandler(ps, newFakePaymentStore(), newFakeBilling())

	payload := []byte(`{"id":"evt_11","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","customer":"cus_1","status":"active"}}}`)
	w := deliver(t, h, payload, signPayload(t, payload))

	assert.Equal(t, http.StatusInternalServerError, w.Code, "non-2xx so the provider redelivers")
}
