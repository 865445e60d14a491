// Package store provides persistence for the digest record.
package store

import (
	"context"

	"github.com/hrygo/teamdigest/internal/profile"
)

// Driver is an interface for the digest database driver.
// There is exactly one record slot: an upsert replaces the previous digest
// wholesale, and readers always observe either the old or the new record.
type Driver interface {
	Migrate(ctx context.Context) error
	UpsertDigest(ctx context.Context, digest *Digest) error
	GetDigest(ctx context.Context) (*Digest, error)
	Close() error
}

// Store provides database access to the digest record.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

// UpsertDigest replaces the single current digest record.
func (s *Store) UpsertDigest(ctx context.Context, digest *Digest) error {
	return s.driver.UpsertDigest(ctx, digest)
}

// GetDigest returns the current digest record, or ErrNoDigest if generation
// has never succeeded.
func (s *Store) GetDigest(ctx context.Context) (*Digest, error) {
	return s.driver.GetDigest(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}
