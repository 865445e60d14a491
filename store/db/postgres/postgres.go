package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/teamdigest/internal/profile"
	"github.com/hrygo/teamdigest/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL connection with the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	if err := pgDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	driver := DB{db: pgDB, profile: profile}
	return &driver, nil
}

func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS digest (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			payload TEXT NOT NULL,
			generated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to create digest table")
	}
	return nil
}

func (d *DB) UpsertDigest(ctx context.Context, digest *store.Digest) error {
	payload, err := json.MarshalIndent(digest, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal digest")
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO digest (id, payload, generated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			payload = EXCLUDED.payload,
			generated_at = EXCLUDED.generated_at
	`, string(payload), digest.GeneratedAt)
	if err != nil {
		return errors.Wrap(err, "failed to upsert digest")
	}
	return nil
}

func (d *DB) GetDigest(ctx context.Context) (*store.Digest, error) {
	var payload string
	err := d.db.QueryRowContext(ctx, "SELECT payload FROM digest WHERE id = 1").Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNoDigest
		}
		return nil, errors.Wrap(err, "failed to get digest")
	}

	digest := &store.Digest{}
	if err := json.Unmarshal([]byte(payload), digest); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal digest payload")
	}
	return digest, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
