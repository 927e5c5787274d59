package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter Redis 有序集合实现的滑动窗口限流器，多实例部署共享窗口
type RedisLimiter struct {
	client *redis.Client
	limit  int
	now    func() time.Time
}

// NewRedisLimiter 创建 Redis 限流器
func NewRedisLimiter(client *redis.Client, requestsPerMinute int) *RedisLimiter {
	return &RedisLimiter{client: client, limit: requestsPerMinute, now: time.Now}
}

// Allow 判定一次请求
// 成员按时间戳写入有序集合，窗口外的成员先清理再计数
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, Info, error) {
	now := l.now()
	redisKey := "rate_limit:" + key
	nowScore := float64(now.UnixNano()) / float64(time.Second)
	cutoff := nowScore - Window.Seconds()

	if err := l.client.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%f", cutoff)).Err(); err != nil {
		return false, Info{}, fmt.Errorf("failed to trim rate limit window: %w", err)
	}

	count, err := l.client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return false, Info{}, fmt.Errorf("failed to count rate limit window: %w", err)
	}

	allowed := int(count) < l.limit
	if allowed {
		member := fmt.Sprintf("%d", now.UnixNano())
		if err := l.client.ZAdd(ctx, redisKey, redis.Z{Score: nowScore, Member: member}).Err(); err != nil {
			return false, Info{}, fmt.Errorf("failed to record request: %w", err)
		}
		if err := l.client.Expire(ctx, redisKey, Window).Err(); err != nil {
			return false, Info{}, fmt.Errorf("failed to set window expiry: %w", err)
		}
	}

	reset := now.Add(Window).Unix()
	oldest, err := l.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err == nil && len(oldest) > 0 {
		reset = int64(oldest[0].Score + Window.Seconds())
	}

	used := int(count)
	if allowed {
		used++
	}
	remaining := l.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return allowed, Info{Limit: l.limit, Remaining: remaining, Reset: reset, Used: used}, nil
}
