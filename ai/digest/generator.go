package digest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/hrygo/teamdigest/ai/llm"
	"github.com/hrygo/teamdigest/internal/profile"
	"github.com/hrygo/teamdigest/plugin/slack"
	"github.com/hrygo/teamdigest/store"
)

// ErrEmptyWindow signals that no channel had any message in the retrieval
// window. Nothing is written in that case and the prior digest, if any,
// remains the latest.
var ErrEmptyWindow = errors.New("no messages found in retrieval window")

// MessageSource lists channels and fetches windowed message history.
// *slack.Client implements it; tests substitute fakes.
type MessageSource interface {
	ListChannels(ctx context.Context) ([]slack.Channel, error)
	ListMessages(ctx context.Context, channelID string, oldest time.Time) ([]slack.Message, error)
}

// DigestStore persists the finished digest record.
type DigestStore interface {
	UpsertDigest(ctx context.Context, digest *store.Digest) error
}

// Outcome is the result of one generation run.
type Outcome struct {
	Digest *store.Digest
	Stats  *llm.CallStats
}

// Generator runs the digest pipeline: channel discovery, sequential windowed
// fetches, payload assembly, one summarization call, one write.
type Generator struct {
	profile    *profile.Profile
	source     MessageSource
	summarizer Summarizer
	store      DigestStore

	// group serializes overlapping generation triggers: concurrent callers
	// share a single run instead of racing on the record slot.
	group singleflight.Group

	// now is replaceable in tests.
	now func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(profile *profile.Profile, source MessageSource, summarizer Summarizer, digestStore DigestStore) *Generator {
	return &Generator{
		profile:    profile,
		source:     source,
		summarizer: summarizer,
		store:      digestStore,
		now:        time.Now,
	}
}

// Generate triggers the full pipeline and returns the new digest. Concurrent
// calls are collapsed into one run via single-flight. Returns ErrEmptyWindow
// when no channel had activity; any upstream, parse, or persistence failure
// aborts the run without touching the stored record.
func (g *Generator) Generate(ctx context.Context) (*Outcome, error) {
	v, err, shared := g.group.Do("digest-generation", func() (interface{}, error) {
		return g.generate(ctx)
	})
	if shared {
		slog.Info("digest: generation shared with concurrent trigger")
	}
	if err != nil {
		return nil, err
	}
	return v.(*Outcome), nil
}

func (g *Generator) generate(ctx context.Context) (*Outcome, error) {
	runID := uuid.NewString()
	started := g.now()
	oldest := started.Add(-time.Duration(g.profile.WindowDays) * 24 * time.Hour)

	slog.Info("digest: generation started",
		"run_id", runID,
		"workspace", g.profile.Workspace,
		"window_days", g.profile.WindowDays,
	)

	channels, err := g.source.ListChannels(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list channels")
	}

	// Fetch one channel at a time, in discovery order. Channels the
	// integration cannot read come back empty and are skipped.
	var channelLines []*ChannelLines
	for _, ch := range channels {
		msgs, err := g.source.ListMessages(ctx, ch.ID, oldest)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch messages for #%s", ch.Name)
		}
		if cl := BuildChannelLines(ch.Name, msgs); cl != nil {
			channelLines = append(channelLines, cl)
		}
	}

	if len(channelLines) == 0 {
		slog.Info("digest: retrieval window empty", "run_id", runID, "channels_scanned", len(channels))
		return nil, ErrEmptyWindow
	}

	totalMessages := TotalMessages(channelLines)
	payload := BuildPayload(g.profile.Workspace, channelLines)

	result, stats, err := g.summarizer.Summarize(ctx, payload)
	if err != nil {
		return nil, err
	}

	newDigest := &store.Digest{
		ID:             runID,
		GeneratedAt:    started.UTC().Format(time.RFC3339),
		TotalMessages:  totalMessages,
		OverallSummary: result.OverallSummary,
		Channels:       result.Channels,
	}

	if err := g.store.UpsertDigest(ctx, newDigest); err != nil {
		return nil, errors.Wrap(err, "failed to persist digest")
	}

	slog.Info("digest: generation completed",
		"run_id", runID,
		"channels", len(channelLines),
		"total_messages", totalMessages,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return &Outcome{Digest: newDigest, Stats: stats}, nil
}
