package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/maliyaleo/market-api/internal/models"
)

// UserRepository manages USSD subscribers, keyed by phone number.
type UserRepository struct {
	db Querier
}

func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert creates the user row on first contact and refreshes last_accessed
// on every subsequent one.
func (r *UserRepository) Upsert(ctx context.Context, phone string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, phone_number, last_accessed, subscribed_alerts)
		 VALUES ($1, $2, CURRENT_TIMESTAMP, FALSE)
		 ON CONFLICT (phone_number)
		 DO UPDATE SET last_accessed = CURRENT_TIMESTAMP`,
		uuid.NewString(), phone)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// UpdatePreferences patches whichever preference fields are non-empty and
// stamps last_accessed.
func (r *UserRepository) UpdatePreferences(ctx context.Context, phone, commodity, market, county string) error {
	updates := ""
	args := []interface{}{phone}
	appendSet := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		updates += column + " = $" + strconv.Itoa(len(args)) + ", "
	}
	appendSet("preferred_commodity", commodity)
	appendSet("preferred_market", market)
	appendSet("preferred_county", county)
	if updates == "" {
		return nil
	}

	_, err := r.db.Exec(ctx,
		`UPDATE users SET `+updates+`last_accessed = CURRENT_TIMESTAMP WHERE phone_number = $1`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to update user preferences: %w", err)
	}
	return nil
}

// ToggleSubscription flips the alert subscription flag.
func (r *UserRepository) ToggleSubscription(ctx context.Context, phone string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users
		 SET subscribed_alerts = NOT subscribed_alerts, last_accessed = CURRENT_TIMESTAMP
		 WHERE phone_number = $1`, phone)
	if err != nil {
		return fmt.Errorf("failed to toggle subscription: %w", err)
	}
	return nil
}

// SubscriptionStatus reports whether the user is subscribed to alerts.
// Unknown phone numbers are simply not subscribed.
func (r *UserRepository) SubscriptionStatus(ctx context.Context, phone string) (bool, error) {
	rows, err := r.db.Query(ctx,
		`SELECT subscribed_alerts FROM users WHERE phone_number = $1`, phone)
	if err != nil {
		return false, fmt.Errorf("failed to query subscription status: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return false, rows.Err()
	}
	var subscribed bool
	if err := rows.Scan(&subscribed); err != nil {
		return false, fmt.Errorf("failed to scan subscription status: %w", err)
	}
	return subscribed, nil
}

// ListSubscribed returns users with alerts enabled, for refresh fan-out.
func (r *UserRepository) ListSubscribed(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, phone_number, preferred_commodity, preferred_market, preferred_county, subscribed_alerts, last_accessed
		 FROM users WHERE subscribed_alerts = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribed users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.PhoneNumber, &u.PreferredCommodity, &u.PreferredMarket,
			&u.PreferredCounty, &u.SubscribedAlerts, &u.LastAccessed); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}
