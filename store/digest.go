package store

import (
	"github.com/pkg/errors"
)

// ErrNoDigest signals that no digest has ever been written.
var ErrNoDigest = errors.New("no digest found")

// ChannelSummary is the per-channel summary produced by the LLM.
type ChannelSummary struct {
	ChannelName  string `json:"channelName"`
	Workspace    string `json:"workspace"`
	MessageCount int    `json:"messageCount"`
	Summary      string `json:"summary"`
}

// Digest is the single persisted summary record produced by one generation
// run. TotalMessages is computed from the fetched messages before the LLM is
// called and is trustworthy even if the model misreports per-channel counts.
type Digest struct {
	ID             string           `json:"id"`
	GeneratedAt    string           `json:"generatedAt"` // RFC3339
	TotalMessages  int              `json:"totalMessages"`
	OverallSummary string           `json:"overallSummary"`
	Channels       []ChannelSummary `json:"channels"`
}
