package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/teamdigest/internal/profile"
	"github.com/hrygo/teamdigest/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database at the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// WAL journal mode prevents locking issues between the write path and
	// concurrent digest reads. With the modernc.org/sqlite driver each pragma
	// must be prefixed with `_pragma=`.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// Single connection is optimal for SQLite with WAL.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)

	driver := DB{db: sqliteDB, profile: profile}
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
		VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			payload = excluded.payload,
			generated_at = excluded.generated_at
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
