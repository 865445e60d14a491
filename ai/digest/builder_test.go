package digest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/teamdigest/plugin/slack"
)

func formattedTs(unix int64) string {
	return time.Unix(unix, 0).Local().Format("2006-01-02 15:04")
}

func TestBuildChannelLines(t *testing.T) {
	msgs := []slack.Message{
		{Ts: "1700000300.000100", User: "U2", Text: "second"},
		{Ts: "1700000100.000100", User: "U1", Text: "first"},
	}

	cl := BuildChannelLines("general", msgs)
	require.NotNil(t, cl)
	assert.Equal(t, "general", cl.ChannelName)
	require.Len(t, cl.Lines, 2)

	// Originally returned order is preserved, no re-sorting by timestamp.
	assert.Equal(t, fmt.Sprintf("[%s] U2: second", formattedTs(1700000300)), cl.Lines[0])
	assert.Equal(t, fmt.Sprintf("[%s] U1: first", formattedTs(1700000100)), cl.Lines[1])
}

func TestBuildChannelLinesEmpty(t *testing.T) {
	assert.Nil(t, BuildChannelLines("general", nil))
	assert.Nil(t, BuildChannelLines("general", []slack.Message{}))
}

func TestBuildChannelLinesMissingFields(t *testing.T) {
	msgs := []slack.Message{
		{Ts: "1700000100.000100", Text: "automated notice"}, // no user
		{Ts: "1700000200.000100", User: "U1"},               // no text
	}

	cl := BuildChannelLines("ops", msgs)
	require.NotNil(t, cl)
	require.Len(t, cl.Lines, 2)
	assert.Equal(t, fmt.Sprintf("[%s] bot: automated notice", formattedTs(1700000100)), cl.Lines[0])
	assert.Equal(t, fmt.Sprintf("[%s] U1: ", formattedTs(1700000200)), cl.Lines[1])
}

func TestBuildPayload(t *testing.T) {
	channels := []*ChannelLines{
		{ChannelName: "general", Lines: []string{"line-a", "line-b"}},
		{ChannelName: "ops", Lines: []string{"line-c"}},
	}

	payload := BuildPayload("Acme Inc", channels)

	assert.True(t, strings.HasPrefix(payload, "=== Acme Inc Slack ===\n\n"))
	assert.Contains(t, payload, "--- #general (2 messages) ---\nline-a\nline-b\n\n")
	assert.Contains(t, payload, "--- #ops (1 messages) ---\nline-c\n\n")

	// Sections follow insertion order.
	assert.Less(t, strings.Index(payload, "#general"), strings.Index(payload, "#ops"))
}

func TestTotalMessages(t *testing.T) {
	assert.Equal(t, 0, TotalMessages(nil))
	assert.Equal(t, 5, TotalMessages([]*ChannelLines{
		{ChannelName: "a", Lines: []string{"1", "2", "3"}},
		{ChannelName: "b", Lines: []string{"4", "5"}},
	}))
}
