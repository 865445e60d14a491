// Package server assembles the HTTP service: the digest pipeline behind the
// v1 REST surface, health and metrics routes, and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/teamdigest/ai/digest"
	"github.com/hrygo/teamdigest/ai/llm"
	"github.com/hrygo/teamdigest/internal/profile"
	"github.com/hrygo/teamdigest/plugin/slack"
	"github.com/hrygo/teamdigest/server/metrics"
	apiv1 "github.com/hrygo/teamdigest/server/router/api/v1"
	"github.com/hrygo/teamdigest/store"
)

type Server struct {
	echoServer *echo.Echo
	profile    *profile.Profile
	store      *store.Store
}

// NewServer creates the server with all pipeline components wired in.
func NewServer(ctx context.Context, profile *profile.Profile, storeInstance *store.Store) (*Server, error) {
	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true

	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.CORS())

	s := &Server{
		echoServer: echoServer,
		profile:    profile,
		store:      storeInstance,
	}

	llmService, err := llm.NewService(&llm.Config{
		Provider:  profile.LLMProvider,
		Model:     profile.LLMModel,
		APIKey:    profile.LLMAPIKey,
		BaseURL:   profile.LLMBaseURL,
		MaxTokens: profile.LLMMaxTokens,
		Timeout:   profile.LLMTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create LLM service")
	}

	// Warmup is best-effort: failures only mean a slower first request.
	go func() {
		warmupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		llmService.Warmup(warmupCtx)
	}()

	slackClient := slack.NewClient(profile.SlackToken)
	summarizer := digest.NewSummarizer(llmService)
	generator := digest.NewGenerator(profile, slackClient, summarizer, storeInstance)

	m := metrics.New()
	apiV1Service := apiv1.NewAPIV1Service(profile, generator, storeInstance, m)
	apiV1Service.RegisterRoutes(echoServer)

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"status":  "ok",
			"version": profile.Version,
		})
	})
	echoServer.GET("/metrics", echo.WrapHandler(m.Handler()))

	return s, nil
}

// Start launches the HTTP listener. It returns immediately; the listener
// runs until Shutdown is called.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	go func() {
		if err := s.echoServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
		}
	}()
	return nil
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}

	slog.Info("teamdigest stopped")
}
