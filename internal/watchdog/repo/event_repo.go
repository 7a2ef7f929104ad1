package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/watchdog/entity"
)

// EventRepo keeps a history of detected trophy events.
type EventRepo struct {
	db *sqlx.DB
}

func NewEventRepo(db *sqlx.DB) *EventRepo {
	return &EventRepo{db: db}
}

// EnsureTable creates the trophy_events table if it does not already exist.
func (r *EventRepo) EnsureTable(ctx context.Context) error {
	const tbl = `
	CREATE TABLE IF NOT EXISTS trophy_events (
		id varchar(32) PRIMARY KEY,
		account_id varchar(64) NOT NULL DEFAULT '',
		previous integer NOT NULL,
		current integer NOT NULL,
		delta integer NOT NULL,
		detected_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := r.db.ExecContext(ctx, tbl); err != nil {
		return err
	}

	const idx = `
	CREATE INDEX IF NOT EXISTS idx_trophy_events_detected_at ON trophy_events (detected_at DESC);
	`
	_, err := r.db.ExecContext(ctx, idx)
	return err
}

func (r *EventRepo) Insert(ctx context.Context, e entity.Event) error {
	const q = `INSERT INTO trophy_events (id, account_id, previous, current, delta, detected_at)
		VALUES (:id, :account_id, :previous, :current, :delta, :detected_at)`
	_, err := r.db.NamedExecContext(ctx, q, e)
	return err
}

// Recent returns the newest events first.
func (r *EventRepo) Recent(ctx context.Context, limit int) ([]entity.Event, error) {
	events := []entity.Event{}
	const q = `SELECT id, account_id, previous, current, delta, detected_at
		FROM trophy_events ORDER BY detected_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &events, q, limit); err != nil {
		return nil, err
	}
	return events, nil
}
