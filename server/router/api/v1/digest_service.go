package v1

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/teamdigest/ai/digest"
	"github.com/hrygo/teamdigest/server/metrics"
	"github.com/hrygo/teamdigest/store"
)

// GenerateDigest triggers the full generation pipeline.
//
// All pipeline failures are converted here, once, into a uniform response:
// an empty retrieval window is a distinct "no data" outcome (404), everything
// else is a generic failure (500) carrying the underlying message.
func (s *APIV1Service) GenerateDigest(c echo.Context) error {
	ctx := c.Request().Context()
	started := time.Now()

	outcome, err := s.Generator.Generate(ctx)
	if err != nil {
		if errors.Is(err, digest.ErrEmptyWindow) {
			s.Metrics.RecordGeneration(metrics.StatusEmpty, time.Since(started))
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": fmt.Sprintf("no messages found in the last %d days", s.Profile.WindowDays),
			})
		}
		slog.Error("digest generation failed", "error", err)
		s.Metrics.RecordGeneration(metrics.StatusError, time.Since(started))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	s.Metrics.RecordGeneration(metrics.StatusSuccess, time.Since(started))
	s.Metrics.RecordMessages(outcome.Digest.TotalMessages)
	if outcome.Stats != nil {
		s.Metrics.RecordLLMTokens(outcome.Stats.PromptTokens, outcome.Stats.CompletionTokens)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"digest":  outcome.Digest,
	})
}

// GetDigest returns the currently persisted digest. A pure pass-through: it
// either signals "not found" or returns the record untransformed.
func (s *APIV1Service) GetDigest(c echo.Context) error {
	ctx := c.Request().Context()

	current, err := s.Reader.GetDigest(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoDigest) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no digest found"})
		}
		slog.Error("failed to read digest", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, current)
}
