package handlers

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maliyaleo/market-api/internal/models"
	"github.com/maliyaleo/market-api/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserStore struct {
	upserts     []string
	preferences [][4]string
	subscribed  bool
	toggles     int
}

func (f *fakeUserStore) Upsert(_ context.Context, phone string) error {
	f.upserts = append(f.upserts, phone)
	return nil
}

func (f *fakeUserStore) UpdatePreferences(_ context.Context, phone, commodity, market, county string) error {
	f.preferences = append(f.preferences, [4]string{phone, commodity, market, county})
	return nil
}

func (f *fakeUserStore) ToggleSubscription(context.Context, string) error {
	f.toggles++
	f.subscribed = !f.subscribed
	return nil
}

func (f *fakeUserStore) SubscriptionStatus(context.Context, string) (bool, error) {
	return f.subscribed, nil
}

type fakePriceLookup struct {
	price *decimal.Decimal

	lastGroup models.GroupKey
	lastDate  time.Time
	lastType  store.PriceType
}

func (f *fakePriceLookup) QueryPrice(_ context.Context, group models.GroupKey, date time.Time, priceType store.PriceType) (*decimal.Decimal, error) {
	f.lastGroup = group
	f.lastDate = date
	f.lastType = priceType
	return f.price, nil
}

func newUSSDRouter(users *fakeUserStore, prices *fakePriceLookup, now time.Time) *gin.Engine {
	router := gin.New()
	h := NewUSSDHandler(users, prices, 10, 90)
	h.now = func() time.Time { return now }
	router.POST("/ussd", h.Handle)
	return router
}

func ussdForm(phone, text string) url.Values {
	return url.Values{
		"sessionId":   {"s1"},
		"serviceCode": {"*384*1#"},
		"phoneNumber": {phone},
		"text":        {text},
	}
}

var ussdNow = time.Date(2025, 7, 28, 9, 30, 0, 0, time.UTC)

func TestUSSD_MainMenu(t *testing.T) {
	users := &fakeUserStore{}
	router := newUSSDRouter(users, &fakePriceLookup{}, ussdNow)

	w := performForm(router, "/ussd", ussdForm("+254700000001", ""))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "CON Welcome to Market Prices")
	assert.Contains(t, body, "1. Check Price")
	assert.Contains(t, body, "3. Subscribe/Unsubscribe Alerts")
	// Every hit registers the caller.
	assert.Equal(t, []string{"+254700000001"}, users.upserts)
}

func TestUSSD_PriceCheckPrompts(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"role prompt", "1", "CON Are you a:\n1. Farmer\n2. Consumer"},
		{"commodity prompt", "1*1", "CON Enter commodity:"},
		{"market prompt", "1*1*maize", "CON Enter market:"},
		{"county prompt", "1*1*maize*nairobi", "CON Enter county:"},
		{"date prompt", "1*1*maize*nairobi*nairobi", "CON Enter date (YYYY-MM-DD):"},
		{"invalid role", "1*9", "END Invalid selection. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newUSSDRouter(&fakeUserStore{}, &fakePriceLookup{}, ussdNow)
			w := performForm(router, "/ussd", ussdForm("+254700000001", tt.text))
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestUSSD_FarmerPriceFound(t *testing.T) {
	price := decimal.NewFromFloat(102.5)
	lookup := &fakePriceLookup{price: &price}
	users := &fakeUserStore{}
	router := newUSSDRouter(users, lookup, ussdNow)

	w := performForm(router, "/ussd", ussdForm("+254700000001", "1*1*maize*nairobi*nairobi*2025-07-29"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "END Wholesale price for Maize in Nairobi, Nairobi on 2025-07-29 is KES 102.50.", w.Body.String())

	assert.Equal(t, store.Wholesale, lookup.lastType)
	assert.Equal(t, models.GroupKey{Commodity: "Maize", Market: "Nairobi", County: "Nairobi"}, lookup.lastGroup)
	// The lookup inputs double as the caller's saved preferences.
	require.Len(t, users.preferences, 1)
	assert.Equal(t, [4]string{"+254700000001", "Maize", "Nairobi", "Nairobi"}, users.preferences[0])
}

func TestUSSD_ConsumerReadsRetail(t *testing.T) {
	lookup := &fakePriceLookup{}
	router := newUSSDRouter(&fakeUserStore{}, lookup, ussdNow)

	w := performForm(router, "/ussd", ussdForm("+254700000001", "1*2*beans*kisumu*kisumu*2025-07-29"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.Retail, lookup.lastType)
	assert.Contains(t, w.Body.String(), "END No retail price data found for Beans in Kisumu, Kisumu")
}

func TestUSSD_DateValidation(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		router := newUSSDRouter(&fakeUserStore{}, &fakePriceLookup{}, ussdNow)
		w := performForm(router, "/ussd", ussdForm("+254700000001", "1*1*maize*nairobi*nairobi*29-07-2025"))
		assert.Equal(t, "END Invalid date format. Use YYYY-MM-DD.", w.Body.String())
	})

	t.Run("too far past", func(t *testing.T) {
		router := newUSSDRouter(&fakeUserStore{}, &fakePriceLookup{}, ussdNow)
		w := performForm(router, "/ussd", ussdForm("+254700000001", "1*1*maize*nairobi*nairobi*2025-07-10"))
		assert.Contains(t, w.Body.String(), "END Date too far in the past")
	})

	t.Run("recent past accepted", func(t *testing.T) {
		lookup := &fakePriceLookup{}
		router := newUSSDRouter(&fakeUserStore{}, lookup, ussdNow)
		performForm(router, "/ussd", ussdForm("+254700000001", "1*1*maize*nairobi*nairobi*2025-07-20"))
		assert.Equal(t, time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC), lookup.lastDate)
	})

	t.Run("far future clamped", func(t *testing.T) {
		lookup := &fakePriceLookup{}
		router := newUSSDRouter(&fakeUserStore{}, lookup, ussdNow)
		performForm(router, "/ussd", ussdForm("+254700000001", "1*1*maize*nairobi*nairobi*2026-06-01"))
		assert.Equal(t, time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC), lookup.lastDate)
	})
}

func TestUSSD_UpdatePreferencesFlow(t *testing.T) {
	users := &fakeUserStore{}
	router := newUSSDRouter(users, &fakePriceLookup{}, ussdNow)

	w := performForm(router, "/ussd", ussdForm("+254700000001", "2"))
	assert.Equal(t, "CON Enter preferred commodity:", w.Body.String())

	w = performForm(router, "/ussd", ussdForm("+254700000001", "2*maize"))
	assert.Equal(t, "CON Enter preferred market:", w.Body.String())

	w = performForm(router, "/ussd", ussdForm("+254700000001", "2*maize*nairobi"))
	assert.Equal(t, "CON Enter preferred county:", w.Body.String())

	w = performForm(router, "/ussd", ussdForm("+254700000001", "2*maize*nairobi*nairobi"))
	assert.Equal(t, "END Preferences updated successfully.", w.Body.String())
	require.Len(t, users.preferences, 1)
	assert.Equal(t, [4]string{"+254700000001", "Maize", "Nairobi", "Nairobi"}, users.preferences[0])
}

func TestUSSD_ToggleSubscription(t *testing.T) {
	users := &fakeUserStore{}
	router := newUSSDRouter(users, &fakePriceLookup{}, ussdNow)

	w := performForm(router, "/ussd", ussdForm("+254700000001", "3"))
	assert.Equal(t, "END Subscribed to alerts.", w.Body.String())

	w = performForm(router, "/ussd", ussdForm("+254700000001", "3"))
	assert.Equal(t, "END Unsubscribed from alerts.", w.Body.String())
	assert.Equal(t, 2, users.toggles)
}

func TestUSSD_InvalidChoice(t *testing.T) {
	router := newUSSDRouter(&fakeUserStore{}, &fakePriceLookup{}, ussdNow)

	w := performForm(router, "/ussd", ussdForm("+254700000001", "9"))
	assert.Equal(t, "END Invalid choice. Try again.", w.Body.String())
}

func TestUSSD_MissingPhone(t *testing.T) {
	router := newUSSDRouter(&fakeUserStore{}, &fakePriceLookup{}, ussdNow)

	w := performForm(router, "/ussd", url.Values{"text": {""}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
