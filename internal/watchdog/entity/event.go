package entity

import "time"

// Event is emitted once per detected increase of the earned-trophy total.
type Event struct {
	ID        string    `json:"id" db:"id"`
	AccountID string    `json:"accountId" db:"account_id"`
	Previous  int       `json:"previous" db:"previous"`
	Current   int       `json:"current" db:"current"`
	Delta     int       `json:"delta" db:"delta"`
	At        time.Time `json:"at" db:"detected_at"`
}

// Status is the watchdog state reported by GET /api/watchdog.
type Status struct {
	AccountID   string    `json:"accountId"`
	Interval    string    `json:"interval"`
	HasBaseline bool      `json:"hasBaseline"`
	Baseline    int       `json:"baseline"`
	LastPoll    time.Time `json:"lastPoll,omitzero"`
	LastError   string    `json:"lastError,omitempty"`
	LastEvent   *Event    `json:"lastEvent,omitempty"`
	Recent      []Event   `json:"recent,omitempty"`
}
