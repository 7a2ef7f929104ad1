package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/auth/entity"
)

// NOTE: table schema (created by EnsureTable):
// CREATE TABLE service_sessions (
//   key TEXT PRIMARY KEY,
//   value TEXT NOT NULL,
//   updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
// );

// PostgresStore keeps the session as key/value rows.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureTable creates the sessions table if it does not already exist.
func (r *PostgresStore) EnsureTable(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS service_sessions (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

type kvRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

func (r *PostgresStore) Load(ctx context.Context) (*entity.ServiceAuth, error) {
	var rows []kvRow
	const q = `SELECT key, value FROM service_sessions WHERE key = ANY($1)`
	if err := r.db.SelectContext(ctx, &rows, q, pq.Array(AllKeys)); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(rows))
	for _, row := range rows {
		fields[row.Key] = row.Value
	}
	return fromFields(fields)
}

// Save upserts all keys in one statement so a reader never sees half a session.
func (r *PostgresStore) Save(ctx context.Context, a entity.ServiceAuth) error {
	fields := toFields(a)
	values := make([]string, 0, len(AllKeys))
	args := make([]any, 0, 2*len(AllKeys))
	for i, k := range AllKeys {
		values = append(values, fmt.Sprintf("($%d, $%d, NOW())", 2*i+1, 2*i+2))
		args = append(args, k, fields[k])
	}
	q := `INSERT INTO service_sessions (key, value, updated_at) VALUES ` + strings.Join(values, ", ") +
		` ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

func (r *PostgresStore) Delete(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM service_sessions WHERE key = ANY($1)`, pq.Array(AllKeys))
	return err
}
