package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter 进程内固定窗口计数器
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string]*window
	now     func() time.Time
}

// NewMemoryLimiter 创建内存限流器
// limit: 每个窗口允许的请求数
// windowLen: 窗口长度
func NewMemoryLimiter(limit int, windowLen time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  windowLen,
		entries: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow 判定是否放行
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.entries[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.window)}
		l.entries[key] = w
	}

	if w.count >= l.limit {
		return Result{Allowed: false, Limit: l.limit, Remaining: 0, ResetAt: w.resetAt}, nil
	}

	w.count++
	return Result{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - w.count,
		ResetAt:   w.resetAt,
	}, nil
}

// Sweep 清理已过期的窗口，返回清理数量
func (l *MemoryLimiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.entries {
		if !now.Before(w.resetAt) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// StartSweeper 后台定期清理，ctx 取消后退出
func (l *MemoryLimiter) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}

var _ Limiter = (*MemoryLimiter)(nil)
