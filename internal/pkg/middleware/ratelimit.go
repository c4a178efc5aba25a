package middleware

import (
	"net/http"
	"strconv"
	"time"

	"marketplace/pkg/logger"
	"marketplace/pkg/metrics"
	"marketplace/pkg/ratelimit"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitMiddleware 按 (客户端 IP, 路由) 限流
// 限流器故障时放行，只记录日志
func RateLimitMiddleware(limiter ratelimit.Limiter, route string, collector *metrics.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ratelimit.Key(c.ClientIP(), route)
		res, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Log.Warn("rate limiter unavailable, allowing request",
				zap.String("route", route),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			retryAfter := res.RetryAfter(time.Now())
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
			collector.RateLimited(route)
			response.Abort(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}
