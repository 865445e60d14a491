// Package digest implements the digest generation pipeline: per-channel
// message formatting, payload assembly, LLM summarization with a strict
// response contract, and persistence of the result.
package digest

import (
	"fmt"
	"strings"

	"github.com/hrygo/teamdigest/plugin/slack"
)

// ChannelLines holds the formatted message lines of one channel that had at
// least one message in the retrieval window. Channels without messages are
// never materialized into this structure.
type ChannelLines struct {
	ChannelName string
	Lines       []string
}

// BuildChannelLines renders raw messages into digest lines, preserving the
// order they were returned in. Messages without a user render as "bot",
// messages without text render with an empty text so the line count stays
// accurate. Returns nil when there are no messages.
func BuildChannelLines(channelName string, msgs []slack.Message) *ChannelLines {
	if len(msgs) == 0 {
		return nil
	}

	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		author := m.User
		if author == "" {
			author = "bot"
		}
		ts := m.Time().Local().Format("2006-01-02 15:04")
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", ts, author, m.Text))
	}

	return &ChannelLines{
		ChannelName: channelName,
		Lines:       lines,
	}
}

// BuildPayload assembles the summarization payload: a workspace header
// followed by one section per channel in insertion order.
func BuildPayload(workspace string, channels []*ChannelLines) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s Slack ===\n\n", workspace)
	for _, ch := range channels {
		fmt.Fprintf(&sb, "--- #%s (%d messages) ---\n", ch.ChannelName, len(ch.Lines))
		sb.WriteString(strings.Join(ch.Lines, "\n"))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// TotalMessages sums the line counts of all channels. This is the trusted
// message total: it is computed before the LLM is called and never replaced
// by anything the model reports.
func TotalMessages(channels []*ChannelLines) int {
	total := 0
	for _, ch := range channels {
		total += len(ch.Lines)
	}
	return total
}
