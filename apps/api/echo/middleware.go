package echoapi

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHTTPForbidden
		}
	}
}

// HitCounter counts the hits on key; the count expires once no hit happened for window.
type HitCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

type redisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) HitCounter {
	return &redisCounter{client: client}
}

func (rc *redisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := rc.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Wrap(err, "counting hits")
	}
	return incr.Val(), nil
}

// rateLimitMiddleware rejects a client IP once it made more than limit requests within window.
// The request goes through when the counter is unavailable.
func rateLimitMiddleware(counter HitCounter, prefix string, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if counter == nil || limit <= 0 {
				return next(ctx)
			}
			key := "ratelimit:" + prefix + ":" + ctx.RealIP()
			count, err := counter.Hit(ctx.Request().Context(), key, window)
			if err != nil {
				ctx.Logger().Errorf("%+v", err)
				return next(ctx)
			}

			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			ctx.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			ctx.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if count > int64(limit) {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}

// Metrics holds the HTTP collectors exposed on the debug server's /metrics.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ratiba",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ratiba",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latencies by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				// let the error handler write the final status
				ctx.Error(err)
			}

			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			method := ctx.Request().Method
			m.requests.WithLabelValues(method, route, strconv.Itoa(ctx.Response().Status)).Inc()
			m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
