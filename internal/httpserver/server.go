package httpserver

import (
	"context"
	"net/http"
	"time"

	"storefront/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Server owns the storefront API listener.
type Server struct {
	httpServer *http.Server
	logger     *zap.SugaredLogger
}

// New builds a Server with every API route wired.
func New(addr string, logger *zap.SugaredLogger, db *pgxpool.Pool, deps Deps, opts Options) (*Server, error) {
	logger = logging.OrNop(logger)
	router, err := buildRouter(logger, db, deps, opts)
	if err != nil {
		return nil, err
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       time.Minute,
		},
		logger: logger,
	}, nil
}

func (s *Server) ListenAndServe() error {
	s.logger.Infow("http: listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("http: shutting down", "addr", s.httpServer.Addr)
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type readinessCheck func(ctx context.Context) error

// readinessChecks lists the backing stores /readyz pings. Redis is only
// checked when the rate limiter depends on it.
func readinessChecks(db *pgxpool.Pool, rdb *redis.Client) map[string]readinessCheck {
	checks := map[string]readinessCheck{}
	if db != nil {
		checks["postgres"] = db.Ping
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

func readyHandler(checks map[string]readinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := checks["postgres"]; !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		results := gin.H{}
		ready := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = "unreachable"
				ready = false
				continue
			}
			results[name] = "ok"
		}
		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": results})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": results})
	}
}
