package middleware

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"notekeeper/config"
	deliverycontext "notekeeper/internal/delivery/context"
	domainerrors "notekeeper/internal/domain/errors"
	"notekeeper/internal/domain/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// RateLimitMiddleware throttles requests with a shared token bucket per key.
type RateLimitMiddleware struct {
	limiter service.RateLimiter
	cfg     *config.RateLimitConfig
	logger  *slog.Logger
}

// RateLimitParams holds dependencies for RateLimitMiddleware, injected by Fx.
type RateLimitParams struct {
	fx.In

	Limiter service.RateLimiter `optional:"true"`
	Config  *config.Config
	Logger  *slog.Logger
}

// NewRateLimitMiddleware is the constructor for RateLimitMiddleware.
func NewRateLimitMiddleware(params RateLimitParams) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: params.Limiter,
		cfg:     params.Config.RateLimit,
		logger:  params.Logger,
	}
}

// Handle passes everything through when no limiter is configured.
// Limiter errors fail open: an unreachable Redis must not lock users out.
func (m *RateLimitMiddleware) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	if m.limiter == nil || m.cfg == nil || !m.cfg.Enabled {
		return next
	}

	return func(c echo.Context) error {
		key := buildRateKey(m.cfg, c)
		ctx := c.Request().Context()

		decision, err := m.limiter.Take(ctx, key)
		if err != nil {
			deliverycontext.GetLoggerOrDefault(ctx, m.logger).Warn("Rate limiter unavailable",
				slog.String("key", key),
				slog.Any("error", err),
			)

			return next(c)
		}

		header := c.Response().Header()
		header.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		header.Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))

		if !decision.Allowed {
			secs := int(math.Ceil(decision.RetryAfter.Seconds()))
			header.Set("Retry-After", strconv.Itoa(max(secs, 0)))

			return domainerrors.ErrTooManyRequests
		}

		return next(c)
	}
}

// buildRateKey joins the configured prefix with the parts the strategy selects.
func buildRateKey(cfg *config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "route":
		parts = append(parts, "route", route)
	default:
		parts = append(parts, "ip", ip, "route", route)
	}

	return strings.Join(parts, ":")
}
