package server

import (
	"errors"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	httpHandlers "github.com/bibliodesign/site/internal/adapters/http"
	"github.com/bibliodesign/site/internal/infrastructure/session"
)

// requireAuth runs h only for requests carrying a valid admin session.
// Everyone else is sent to the login page.
func (s *Server) requireAuth(h httpHandlers.AdminHandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := s.sessions.Load(c.Request())
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				s.logger.
					WithRequestID(c.Response().Header().Get(echo.HeaderXRequestID)).
					WithError(err).
					Errorw("Session lookup failed", "path", c.Request().URL.Path)
			}
			return c.Redirect(http.StatusFound, "/admin/login")
		}

		return h(c, sess)
	}
}

// ipExtractor decides which address identifies the client. Without trusted
// proxies only the peer address counts; X-Forwarded-For is honoured solely
// for hops inside the configured ranges.
func ipExtractor(trustedProxies []string) echo.IPExtractor {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPDirect()
	}

	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		options = append(options, echo.TrustIPRange(ipNet))
	}

	return echo.ExtractIPFromXFFHeader(options...)
}

// rateLimiter throttles form posts per client IP. Each call has its own
// store, so routes do not share a budget.
func (s *Server) rateLimiter() echo.MiddlewareFunc {
	cfg := s.config.Security
	limit := rate.Limit(float64(cfg.RateLimitRequests) / cfg.RateLimitWindow.Seconds())

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: limit, Burst: cfg.RateLimitRequests, ExpiresIn: cfg.RateLimitWindow},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "Request could not be identified")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			s.logger.LogSecurityEvent("rate_limited", "", identifier, map[string]interface{}{
				"path": c.Request().URL.Path,
			})
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, please try again later")
		},
	})
}
