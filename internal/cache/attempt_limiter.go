package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var attemptScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
if current >= tonumber(ARGV[2]) then
	redis.call("SET", KEYS[2], "1", "EX", ARGV[3])
	redis.call("DEL", KEYS[1])
end
return current
`)

// AttemptLimiter 失败次数限制器
// 窗口内失败达到上限后写入封禁 key，封禁期间一律拒绝；Redis 未启用时不限制。
type AttemptLimiter struct {
	prefix        string
	maxAttempts   int
	windowSeconds int
	blockSeconds  int
}

// NewAttemptLimiter 创建失败次数限制器
func NewAttemptLimiter(prefix string, maxAttempts, windowSeconds, blockSeconds int) *AttemptLimiter {
	if blockSeconds <= 0 {
		blockSeconds = windowSeconds
	}
	return &AttemptLimiter{
		prefix:        prefix,
		maxAttempts:   maxAttempts,
		windowSeconds: windowSeconds,
		blockSeconds:  blockSeconds,
	}
}

func (l *AttemptLimiter) enabled() bool {
	return l != nil && Enabled() && l.maxAttempts > 0 && l.windowSeconds > 0
}

func (l *AttemptLimiter) counterKey(subject string) string {
	return fmt.Sprintf("limit:%s:count:%s", l.prefix, subject)
}

func (l *AttemptLimiter) blockKey(subject string) string {
	return fmt.Sprintf("limit:%s:block:%s", l.prefix, subject)
}

// Blocked 是否处于封禁期，返回剩余时间
func (l *AttemptLimiter) Blocked(ctx context.Context, subject string) (bool, time.Duration, error) {
	if !l.enabled() {
		return false, 0, nil
	}
	return Exists(ctx, l.blockKey(subject))
}

// RecordFailure 记录一次失败，返回是否因此进入封禁
func (l *AttemptLimiter) RecordFailure(ctx context.Context, subject string) (bool, error) {
	if !l.enabled() {
		return false, nil
	}
	keys := []string{buildKey(l.counterKey(subject)), buildKey(l.blockKey(subject))}
	count, err := attemptScript.Run(ctx, Client(), keys, l.windowSeconds, l.maxAttempts, l.blockSeconds).Int64()
	if err != nil {
		return false, err
	}
	return count >= int64(l.maxAttempts), nil
}

// Reset 成功后清零计数
func (l *AttemptLimiter) Reset(ctx context.Context, subject string) error {
	if !l.enabled() {
		return nil
	}
	return Del(ctx, l.counterKey(subject))
}
