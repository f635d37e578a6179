package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maliyaleo/market-api/internal/models"
	"github.com/maliyaleo/market-api/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UserStore is the slice of the user repository the USSD menu needs.
type UserStore interface {
	Upsert(ctx context.Context, phone string) error
	UpdatePreferences(ctx context.Context, phone, commodity, market, county string) error
	ToggleSubscription(ctx context.Context, phone string) error
	SubscriptionStatus(ctx context.Context, phone string) (bool, error)
}

// PriceLookup reads one cached predicted price.
type PriceLookup interface {
	QueryPrice(ctx context.Context, group models.GroupKey, date time.Time, priceType store.PriceType) (*decimal.Decimal, error)
}

// USSDHandler drives the Africa's Talking style menu. Every response is
// plain text prefixed with CON (keep the session open) or END (final
// screen).
type USSDHandler struct {
	users       UserStore
	predictions PriceLookup

	maxPastDays   int
	maxFutureDays int

	now func() time.Time
}

func NewUSSDHandler(users UserStore, predictions PriceLookup, maxPastDays, maxFutureDays int) *USSDHandler {
	return &USSDHandler{
		users:         users,
		predictions:   predictions,
		maxPastDays:   maxPastDays,
		maxFutureDays: maxFutureDays,
		now:           time.Now,
	}
}

// cases.Caser is stateful, so each call builds its own.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

// Handle serves POST /ussd. The gateway replays the whole input path on
// every request as text, levels joined with "*".
func (h *USSDHandler) Handle(c *gin.Context) {
	phone := c.PostForm("phoneNumber")
	text := strings.TrimSpace(c.PostForm("text"))

	if phone == "" {
		c.String(http.StatusBadRequest, "END Missing phone number.")
		return
	}

	// Every hit keeps the user row alive.
	if err := h.users.Upsert(c.Request.Context(), phone); err != nil {
		logrus.WithError(err).Error("Failed to upsert USSD user")
		c.String(http.StatusOK, "END Service unavailable. Try again later.")
		return
	}

	c.String(http.StatusOK, h.respond(c.Request.Context(), phone, text))
}

func (h *USSDHandler) respond(ctx context.Context, phone, text string) string {
	if text == "" {
		return "CON Welcome to Market Prices\n" +
			"1. Check Price\n" +
			"2. Update Preferences\n" +
			"3. Subscribe/Unsubscribe Alerts"
	}

	levels := strings.Split(text, "*")
	switch levels[0] {
	case "1":
		return h.priceCheck(ctx, phone, levels)
	case "2":
		return h.updatePreferences(ctx, phone, levels)
	case "3":
		return h.toggleSubscription(ctx, phone)
	default:
		return "END Invalid choice. Try again."
	}
}

func (h *USSDHandler) priceCheck(ctx context.Context, phone string, levels []string) string {
	switch len(levels) {
	case 1:
		return "CON Are you a:\n1. Farmer\n2. Consumer"
	case 2:
		if levels[1] != "1" && levels[1] != "2" {
			return "END Invalid selection. Please try again."
		}
		return "CON Enter commodity:"
	case 3:
		return "CON Enter market:"
	case 4:
		return "CON Enter county:"
	case 5:
		return "CON Enter date (YYYY-MM-DD):"
	case 6:
		return h.priceAnswer(ctx, phone, levels)
	default:
		return "END Invalid choice. Try again."
	}
}

func (h *USSDHandler) priceAnswer(ctx context.Context, phone string, levels []string) string {
	commodity := titleCase(levels[2])
	market := titleCase(levels[3])
	county := titleCase(levels[4])

	queryDate, err := time.Parse("2006-01-02", strings.TrimSpace(levels[5]))
	if err != nil {
		return "END Invalid date format. Use YYYY-MM-DD."
	}

	today := h.now().UTC().Truncate(24 * time.Hour)
	if queryDate.Before(today.AddDate(0, 0, -h.maxPastDays)) {
		return fmt.Sprintf("END Date too far in the past. Please enter a date within the last %d days or any future date.", h.maxPastDays)
	}
	// Far-future asks are clamped to the end of the forecastable window
	// instead of rejected.
	if limit := today.AddDate(0, 0, h.maxFutureDays); queryDate.After(limit) {
		queryDate = limit
	}

	priceType := store.Wholesale
	if levels[1] == "2" {
		priceType = store.Retail
	}

	if err := h.users.UpdatePreferences(ctx, phone, commodity, market, county); err != nil {
		logrus.WithError(err).Warn("Failed to update USSD preferences")
	}

	group := models.GroupKey{Commodity: commodity, Market: market, County: county}
	price, err := h.predictions.QueryPrice(ctx, group, queryDate, priceType)
	if err != nil {
		logrus.WithError(err).Error("Failed USSD price lookup")
		return "END Service unavailable. Try again later."
	}
	dateStr := queryDate.Format("2006-01-02")
	if price == nil {
		return fmt.Sprintf("END No %s price data found for %s in %s, %s on %s.",
			strings.ToLower(string(priceType)), commodity, market, county, dateStr)
	}
	return fmt.Sprintf("END %s price for %s in %s, %s on %s is KES %s.",
		priceType, commodity, market, county, dateStr, price.StringFixed(2))
}

func (h *USSDHandler) updatePreferences(ctx context.Context, phone string, levels []string) string {
	switch len(levels) {
	case 1:
		return "CON Enter preferred commodity:"
	case 2:
		return "CON Enter preferred market:"
	case 3:
		return "CON Enter preferred county:"
	case 4:
		commodity := titleCase(levels[1])
		market := titleCase(levels[2])
		county := titleCase(levels[3])
		if err := h.users.UpdatePreferences(ctx, phone, commodity, market, county); err != nil {
			logrus.WithError(err).Error("Failed to update USSD preferences")
			return "END Service unavailable. Try again later."
		}
		return "END Preferences updated successfully."
	default:
		return "END Invalid choice. Try again."
	}
}

func (h *USSDHandler) toggleSubscription(ctx context.Context, phone string) string {
	if err := h.users.ToggleSubscription(ctx, phone); err != nil {
		logrus.WithError(err).Error("Failed to toggle USSD subscription")
		return "END Service unavailable. Try again later."
	}
	subscribed, err := h.users.SubscriptionStatus(ctx, phone)
	if err != nil {
		logrus.WithError(err).Error("Failed to read USSD subscription status")
		return "END Service unavailable. Try again later."
	}
	if subscribed {
		return "END Subscribed to alerts."
	}
	return "END Unsubscribed from alerts."
}
