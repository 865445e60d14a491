// Package v1 exposes the digest REST endpoints.
package v1

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/teamdigest/ai/digest"
	"github.com/hrygo/teamdigest/internal/profile"
	"github.com/hrygo/teamdigest/server/metrics"
	"github.com/hrygo/teamdigest/store"
)

// Generator triggers a digest generation run.
type Generator interface {
	Generate(ctx context.Context) (*digest.Outcome, error)
}

// DigestReader returns the currently persisted digest.
type DigestReader interface {
	GetDigest(ctx context.Context) (*store.Digest, error)
}

// APIV1Service wires the digest endpoints to the pipeline and the store.
type APIV1Service struct {
	Profile   *profile.Profile
	Generator Generator
	Reader    DigestReader
	Metrics   *metrics.Metrics
}

// NewAPIV1Service creates the v1 API service.
func NewAPIV1Service(profile *profile.Profile, generator Generator, reader DigestReader, m *metrics.Metrics) *APIV1Service {
	return &APIV1Service{
		Profile:   profile,
		Generator: generator,
		Reader:    reader,
		Metrics:   m,
	}
}

// RegisterRoutes registers the digest routes on the Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	apiGroup := echoServer.Group("/api/v1")
	apiGroup.POST("/digest/generate", s.GenerateDigest)
	apiGroup.GET("/digest", s.GetDigest)
}
