package digest

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/teamdigest/ai/llm"
	"github.com/hrygo/teamdigest/internal/profile"
	"github.com/hrygo/teamdigest/plugin/slack"
	"github.com/hrygo/teamdigest/store"
)

type fakeSource struct {
	channels  []slack.Channel
	listErr   error
	messages  map[string][]slack.Message
	fetchErr  map[string]error
	listCalls atomic.Int32

	// listStarted/release coordinate the single-flight test.
	listStarted chan struct{}
	release     chan struct{}
}

func (f *fakeSource) ListChannels(_ context.Context) ([]slack.Channel, error) {
	f.listCalls.Add(1)
	if f.listStarted != nil {
		f.listStarted <- struct{}{}
		<-f.release
	}
	return f.channels, f.listErr
}

func (f *fakeSource) ListMessages(_ context.Context, channelID string, _ time.Time) ([]slack.Message, error) {
	if err := f.fetchErr[channelID]; err != nil {
		return nil, err
	}
	return f.messages[channelID], nil
}

type fakeSummarizer struct {
	result     *Result
	err        error
	gotPayload string
}

func (f *fakeSummarizer) Summarize(_ context.Context, payload string) (*Result, *llm.CallStats, error) {
	f.gotPayload = payload
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.result, &llm.CallStats{TotalTokens: 10}, nil
}

type fakeStore struct {
	mu      sync.Mutex
	digests []*store.Digest
	err     error
}

func (f *fakeStore) UpsertDigest(_ context.Context, digest *store.Digest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.digests = append(f.digests, digest)
	return nil
}

func testProfile() *profile.Profile {
	return &profile.Profile{Workspace: "Acme Inc", WindowDays: 7}
}

func newTestGenerator(source *fakeSource, summarizer *fakeSummarizer, st *fakeStore) *Generator {
	g := NewGenerator(testProfile(), source, summarizer, st)
	g.now = func() time.Time { return time.Unix(1700000000, 0) }
	return g
}

func TestGenerate(t *testing.T) {
	source := &fakeSource{
		channels: []slack.Channel{{ID: "C1", Name: "general"}, {ID: "C2", Name: "ops"}},
		messages: map[string][]slack.Message{
			"C1": {
				{Ts: "1699990000.000100", User: "U1", Text: "one"},
				{Ts: "1699990001.000100", User: "U2", Text: "two"},
				{Ts: "1699990002.000100", Text: "three"},
			},
			// C2 has no messages in the window.
		},
	}
	summarizer := &fakeSummarizer{
		result: &Result{
			OverallSummary: "Busy week in #general.",
			Channels: []store.ChannelSummary{
				{ChannelName: "general", Workspace: "Acme Inc", MessageCount: 3, Summary: "Three updates."},
			},
		},
	}
	st := &fakeStore{}

	outcome, err := newTestGenerator(source, summarizer, st).Generate(context.Background())
	require.NoError(t, err)

	d := outcome.Digest
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, time.Unix(1700000000, 0).UTC().Format(time.RFC3339), d.GeneratedAt)
	assert.Equal(t, 3, d.TotalMessages)
	assert.Equal(t, "Busy week in #general.", d.OverallSummary)
	require.Len(t, d.Channels, 1)
	assert.Equal(t, "general", d.Channels[0].ChannelName)

	// The empty channel never reaches the payload.
	assert.Contains(t, summarizer.gotPayload, "--- #general (3 messages) ---")
	assert.NotContains(t, summarizer.gotPayload, "#ops")

	require.Len(t, st.digests, 1)
	assert.Equal(t, d, st.digests[0])
}

func TestGenerateTotalMessagesIgnoresModelCounts(t *testing.T) {
	source := &fakeSource{
		channels: []slack.Channel{{ID: "C1", Name: "general"}},
		messages: map[string][]slack.Message{
			"C1": {{Ts: "1699990000.1", User: "U1", Text: "a"}, {Ts: "1699990001.1", User: "U1", Text: "b"}},
		},
	}
	// Model misreports the per-channel count; the digest total must not care.
	summarizer := &fakeSummarizer{
		result: &Result{
			OverallSummary: "x",
			Channels: []store.ChannelSummary{
				{ChannelName: "general", Workspace: "Acme Inc", MessageCount: 999, Summary: "y"},
			},
		},
	}
	st := &fakeStore{}

	outcome, err := newTestGenerator(source, summarizer, st).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Digest.TotalMessages)
	assert.Equal(t, 999, outcome.Digest.Channels[0].MessageCount)
}

func TestGeneratePayloadKeepsDiscoveryOrder(t *testing.T) {
	source := &fakeSource{
		channels: []slack.Channel{
			{ID: "C3", Name: "zebra"},
			{ID: "C1", Name: "alpha"},
			{ID: "C2", Name: "empty"},
			{ID: "C4", Name: "mid"},
		},
		messages: map[string][]slack.Message{
			"C3": {{Ts: "1699990000.1", User: "U1", Text: "z"}},
			"C1": {{Ts: "1699990000.1", User: "U1", Text: "a"}},
			"C4": {{Ts: "1699990000.1", User: "U1", Text: "m"}},
		},
	}
	summarizer := &fakeSummarizer{result: &Result{OverallSummary: "x", Channels: []store.ChannelSummary{}}}
	st := &fakeStore{}

	_, err := newTestGenerator(source, summarizer, st).Generate(context.Background())
	require.NoError(t, err)

	payload := summarizer.gotPayload
	zebra := indexOf(t, payload, "#zebra")
	alpha := indexOf(t, payload, "#alpha")
	mid := indexOf(t, payload, "#mid")
	assert.Less(t, zebra, alpha)
	assert.Less(t, alpha, mid)
	assert.NotContains(t, payload, "#empty")
}

func indexOf(t *testing.T, s, substr string) int {
	t.Helper()
	idx := strings.Index(s, substr)
	require.GreaterOrEqual(t, idx, 0, "expected %q in payload", substr)
	return idx
}

func TestGenerateEmptyWindow(t *testing.T) {
	source := &fakeSource{
		channels: []slack.Channel{{ID: "C1", Name: "general"}, {ID: "C2", Name: "ops"}},
	}
	summarizer := &fakeSummarizer{}
	st := &fakeStore{}

	_, err := newTestGenerator(source, summarizer, st).Generate(context.Background())
	require.ErrorIs(t, err, ErrEmptyWindow)
	assert.Empty(t, st.digests)
	assert.Empty(t, summarizer.gotPayload)
}

func TestGenerateListChannelsFailureAborts(t *testing.T) {
	source := &fakeSource{listErr: errors.New("invalid_auth")}
	st := &fakeStore{}

	_, err := newTestGenerator(source, &fakeSummarizer{}, st).Generate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_auth")
	assert.Empty(t, st.digests)
}

func TestGenerateFetchFailureAborts(t *testing.T) {
	source := &fakeSource{
		channels: []slack.Channel{{ID: "C1", Name: "general"}, {ID: "C2", Name: "ops"}},
		messages: map[string][]slack.Message{
			"C1": {{Ts: "1699990000.1", User: "U1", Text: "a"}},
		},
		fetchErr: map[string]error{"C2": errors.New("ratelimited")},
	}
	st := &fakeStore{}

	_, err := newTestGenerator(source, &fakeSummarizer{}, st).Generate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ratelimited")
	assert.Empty(t, st.digests)
}

func TestGenerateSummarizerFailureAborts(t *testing.T) {
	source := &fakeSource{
		channels: []slack.Channel{{ID: "C1", Name: "general"}},
		messages: map[string][]slack.Message{
			"C1": {{Ts: "1699990000.1", User: "U1", Text: "a"}},
		},
	}
	st := &fakeStore{}

	_, err := newTestGenerator(source, &fakeSummarizer{err: errors.New("LLM response is not a valid digest")}, st).Generate(context.Background())
	require.Error(t, err)
	assert.Empty(t, st.digests)
}

func TestGeneratePersistenceFailure(t *testing.T) {
	source := &fakeSource{
		channels: []slack.Channel{{ID: "C1", Name: "general"}},
		messages: map[string][]slack.Message{
			"C1": {{Ts: "1699990000.1", User: "U1", Text: "a"}},
		},
	}
	summarizer := &fakeSummarizer{result: &Result{OverallSummary: "x", Channels: []store.ChannelSummary{}}}
	st := &fakeStore{err: errors.New("disk full")}

	_, err := newTestGenerator(source, summarizer, st).Generate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestGenerateSingleFlight(t *testing.T) {
	source := &fakeSource{
		channels: []slack.Channel{{ID: "C1", Name: "general"}},
		messages: map[string][]slack.Message{
			"C1": {{Ts: "1699990000.1", User: "U1", Text: "a"}},
		},
		listStarted: make(chan struct{}, 2),
		release:     make(chan struct{}),
	}
	summarizer := &fakeSummarizer{result: &Result{OverallSummary: "x", Channels: []store.ChannelSummary{}}}
	st := &fakeStore{}
	g := newTestGenerator(source, summarizer, st)

	var wg sync.WaitGroup
	outcomes := make([]*Outcome, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := g.Generate(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			outcomes[i] = outcome
		}(i)
	}

	// Wait until the first run is inside ListChannels, give the second
	// trigger time to join it, then let the run finish.
	<-source.listStarted
	time.Sleep(50 * time.Millisecond)
	close(source.release)
	wg.Wait()

	assert.Equal(t, int32(1), source.listCalls.Load())
	require.Len(t, st.digests, 1)
	assert.Equal(t, outcomes[0], outcomes[1])
}
