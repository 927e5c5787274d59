// Package ratelimit 滑动窗口限流
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window 滑动窗口长度
const Window = time.Minute

// Info 单次判定后的窗口状态，用于响应头
type Info struct {
	Limit     int   // 窗口内允许的请求数
	Remaining int   // 剩余配额
	Reset     int64 // 窗口重置的 unix 秒
	Used      int   // 已用请求数
}

// Limiter 限流器接口
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, Info, error)
}

// MemoryLimiter 进程内滑动窗口限流器，单实例部署使用
type MemoryLimiter struct {
	limit int
	now   func() time.Time

	mu       sync.Mutex
	requests map[string][]time.Time
}

// NewMemoryLimiter 创建内存限流器
func NewMemoryLimiter(requestsPerMinute int) *MemoryLimiter {
	return &MemoryLimiter{
		limit:    requestsPerMinute,
		now:      time.Now,
		requests: make(map[string][]time.Time),
	}
}

// Allow 判定一次请求
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, Info, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-Window)

	kept := l.requests[key][:0]
	for _, ts := range l.requests[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.requests[key] = kept

	count := len(kept)
	allowed := count < l.limit
	if allowed {
		l.requests[key] = append(kept, now)
	}

	return allowed, l.info(l.requests[key], now, count, allowed), nil
}

func (l *MemoryLimiter) info(window []time.Time, now time.Time, count int, allowed bool) Info {
	used := count
	if allowed {
		used++
	}
	reset := now.Add(Window).Unix()
	if len(window) > 0 {
		reset = window[0].Add(Window).Unix()
	}
	remaining := l.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Info{Limit: l.limit, Remaining: remaining, Reset: reset, Used: used}
}
