package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitConfig config for the per-tenant RPS limiter.
type RateLimitConfig struct {
	Redis          *redis.Client // nil => in-process token buckets
	RPS            int
	Burst          int           // in-process only; defaults to RPS
	KeyPrefix      string        // e.g. "rl:tenant:"
	Window         time.Duration // usually 1s
	RetryAfterHint bool          // set Retry-After header when limited
}

// RateLimitMiddleware applies a per-tenant RPS limit. With Redis it is a
// fixed window shared by all replicas; without it each process keeps its own
// token bucket per tenant. It expects tenant_id in echo.Context (set by
// APIKeyMiddleware).
func RateLimitMiddleware(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:tenant:"
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RPS
	}
	local := &localLimiter{limit: rate.Limit(cfg.RPS), burst: cfg.Burst, buckets: make(map[string]*rate.Limiter)}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenantID, ok := TenantIDFromCtx(c)
			if !ok || cfg.RPS <= 0 {
				// no tenant or no limit configured: allow
				return next(c)
			}

			now := time.Now()
			var limited bool
			if cfg.Redis == nil {
				limited = !local.allow(tenantID)
			} else {
				// fixed-window key: rl:tenant:{id}:{unix_sec}
				key := cfg.KeyPrefix + tenantID + ":" + strconv.FormatInt(now.Unix(), 10)

				// INCR and set expiry 2*window (safety)
				pipe := cfg.Redis.Pipeline()
				cnt := pipe.Incr(c.Request().Context(), key)
				pipe.Expire(c.Request().Context(), key, cfg.Window*2)
				if _, err := pipe.Exec(c.Request().Context()); err != nil {
					return next(c)
				}
				limited = cnt.Val() > int64(cfg.RPS)
			}

			if limited {
				if cfg.RetryAfterHint {
					// seconds until next window
					remain := cfg.Window - time.Duration(now.UnixNano()%int64(cfg.Window))
					secs := int(remain.Round(time.Second) / time.Second)
					if secs < 1 {
						secs = 1
					}
					c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				}
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate_limited", "description": "too many requests"})
			}
			return next(c)
		}
	}
}

type localLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*rate.Limiter
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	l.mu.Unlock()
	return b.Allow()
}
