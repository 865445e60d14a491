package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/teamdigest/internal/profile"
	"github.com/hrygo/teamdigest/store"
)

func newTestDriver(t *testing.T) store.Driver {
	t.Helper()
	p := &profile.Profile{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "teamdigest_test.db"),
	}
	driver, err := NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	require.NoError(t, driver.Migrate(context.Background()))
	return driver
}

func sampleDigest(id string) *store.Digest {
	return &store.Digest{
		ID:             id,
		GeneratedAt:    "2026-08-24T09:00:00Z",
		TotalMessages:  3,
		OverallSummary: "Routine week.",
		Channels: []store.ChannelSummary{
			{ChannelName: "general", Workspace: "Acme Inc", MessageCount: 3, Summary: "Updates."},
		},
	}
}

func TestGetDigestBeforeAnyWrite(t *testing.T) {
	driver := newTestDriver(t)

	_, err := driver.GetDigest(context.Background())
	require.ErrorIs(t, err, store.ErrNoDigest)
}

func TestDigestRoundTrip(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	written := sampleDigest("run-1")
	require.NoError(t, driver.UpsertDigest(ctx, written))

	read, err := driver.GetDigest(ctx)
	require.NoError(t, err)
	assert.Equal(t, written, read)
}

func TestUpsertReplacesSingleSlot(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	require.NoError(t, driver.UpsertDigest(ctx, sampleDigest("run-1")))

	second := sampleDigest("run-2")
	second.TotalMessages = 7
	require.NoError(t, driver.UpsertDigest(ctx, second))

	read, err := driver.GetDigest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", read.ID)
	assert.Equal(t, 7, read.TotalMessages)
}

func TestMigrateIsIdempotent(t *testing.T) {
	driver := newTestDriver(t)
	require.NoError(t, driver.Migrate(context.Background()))
}
