package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "github.com/philippdubach/cloudcounter/api/v1"
	"github.com/philippdubach/cloudcounter/internal/config"
)

// publicCORSConfig is shared by all public endpoints: the beacon must be
// loadable from any tracked site.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Referrer, User-Agent",
}

// NewRouteMounter returns the route mounting function for the given handler
// set, suitable for cartridge.ApplicationOptions.RouteMountFunc.
func NewRouteMounter(handler *v1.Handler) func(*cartridge.Server) {
	return func(srv *cartridge.Server) {
		MountAppRoutes(srv, handler)
	}
}

// MountAppRoutes mounts all application routes using cartridge's route API.
func MountAppRoutes(srv *cartridge.Server, handler *v1.Handler) {
	cfg := config.GetConfig()

	// Rate limiting only in production; in development and test it would
	// interfere with seeding and test traffic.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// The beacon must absorb legitimate pageview bursts; the stats API is
	// dashboard traffic and gets a tighter cap.
	countRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
	))
	statsRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(30),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// No Sec-Fetch-Site validation anywhere on this server (see app.go):
	// the beacon is fetched from third-party pages and must answer requests
	// that carry no such header at all.
	countConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		WriteConcurrency: false,
		CustomMiddleware: []fiber.Handler{countRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	statsConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CustomMiddleware: []fiber.Handler{statsRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	srv.Get("/_health", v1.HealthHandler)
	srv.Head("/_health", v1.HealthHandler)

	srv.Get("/count", handler.Count, countConfig)
	srv.Post("/count", handler.Count, countConfig)
	srv.Options("/count", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, countConfig)

	srv.Get("/api/v1/stats", handler.Stats, statsConfig)
	srv.Options("/api/v1/stats", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, statsConfig)
}
