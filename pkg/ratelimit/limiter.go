// Package ratelimit 固定窗口限流
//
// 同一个 Limiter 接口有两种实现：进程内 MemoryLimiter（单实例，重启即清零）
// 和基于 Redis 的 RedisLimiter（多实例共享计数），调用方无感知。
package ratelimit

import (
	"context"
	"time"
)

// Result 单次判定结果
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter 距离窗口重置的时间
func (r Result) RetryAfter(now time.Time) time.Duration {
	if d := r.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Limiter 限流器接口
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Key 组合限流键: 客户端 + 路由
func Key(clientID, route string) string {
	return route + "|" + clientID
}
