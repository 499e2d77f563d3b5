package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/marketfeed/marketfeed/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", s.health.HealthHandler)
	s.router.Get("/health/live", s.health.LivenessHandler)
	s.router.Get("/health/ready", s.health.ReadinessHandler)
	s.router.Get("/health/startup", s.health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", s.metricsHandler)

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/market/{symbol}", s.market.Market)
		r.Get("/rate-limits", s.market.RateLimits)
		r.Get("/quotes/{symbol}", s.market.QuotesHandler)
		r.Get("/news", s.market.NewsHandler)
		r.Get("/social", s.market.SocialHandler)
	})

	s.registerAdminEndpoint()
}

// registerAdminEndpoint exposes POST /admin/signal when an admin token is
// configured.
func (s *Server) registerAdminEndpoint() {
	if s.opts.AdminToken == "" {
		s.logger.Debug("Admin signal endpoint disabled (no admin token set)")
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	s.logger.Info("Admin signal endpoint enabled",
		zap.String("path", "/admin/signal"),
		zap.String("rate_limit", "10/min, burst 5"))
	s.logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
}
