package models

import "time"

// User is a USSD subscriber keyed by phone number. Preferences are updated
// as a side effect of menu navigation; the forecasting core only reads them
// as a parameter source.
type User struct {
	ID                 string     `json:"id" db:"id"`
	PhoneNumber        string     `json:"phone_number" db:"phone_number"`
	PreferredCommodity *string    `json:"preferred_commodity,omitempty" db:"preferred_commodity"`
	PreferredMarket    *string    `json:"preferred_market,omitempty" db:"preferred_market"`
	PreferredCounty    *string    `json:"preferred_county,omitempty" db:"preferred_county"`
	SubscribedAlerts   bool       `json:"subscribed_alerts" db:"subscribed_alerts"`
	LastAccessed       *time.Time `json:"last_accessed,omitempty" db:"last_accessed"`
}
