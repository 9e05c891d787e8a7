package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var apiScript = redis.NewScript(`
local c = tonumber(redis.call('GET', KEYS[1]) or '0')
if c >= tonumber(ARGV[1]) then
  return {0, redis.call('PTTL', KEYS[1])}
end
c = redis.call('INCR', KEYS[1])
if c == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {1, 0}
`)

var postScript = redis.NewScript(`
local c = tonumber(redis.call('GET', KEYS[1]) or '0')
if c >= tonumber(ARGV[1]) then
  return {0, redis.call('PTTL', KEYS[1]), 1}
end
local ttl = redis.call('PTTL', KEYS[2])
if ttl > 0 then
  return {0, ttl, 2}
end
c = redis.call('INCR', KEYS[1])
if c == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
redis.call('SET', KEYS[2], '1', 'PX', ARGV[3])
return {1, 0, 0}
`)

// RedisLimiter shares budgets between every process pointed at the same
// Redis. Each check is a single script so concurrent callers cannot both take
// the last slot.
type RedisLimiter struct {
	client redis.UniversalClient
	limits Limits
	prefix string
}

func NewRedisLimiter(client redis.UniversalClient, limits Limits) *RedisLimiter {
	return &RedisLimiter{client: client, limits: limits, prefix: "ratelimit"}
}

func (l *RedisLimiter) key(parts ...string) string {
	k := l.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (l *RedisLimiter) CheckLimit(ctx context.Context, key string, kind Kind) Decision {
	switch kind {
	case KindAPI:
		res, err := apiScript.Run(ctx, l.client,
			[]string{l.key("api", key)},
			l.limits.APIMax, l.limits.APIWindow.Milliseconds(),
		).Int64Slice()
		if err != nil {
			slog.Warn("rate limit check failed, allowing", "kind", kind, "key", key, "error", err)
			return allow()
		}
		if res[0] == 1 {
			return allow()
		}
		return deny(time.Duration(res[1])*time.Millisecond, ReasonAPIWindow)

	case KindPost:
		res, err := postScript.Run(ctx, l.client,
			[]string{l.key("post", "daily", key), l.key("post", "spacing", key)},
			l.limits.PostDailyMax, l.limits.PostDailyWindow.Milliseconds(), l.limits.PostSpacing.Milliseconds(),
		).Int64Slice()
		if err != nil {
			slog.Warn("rate limit check failed, allowing", "kind", kind, "key", key, "error", err)
			return allow()
		}
		if res[0] == 1 {
			return allow()
		}
		reason := ReasonDailyLimit
		if res[2] == 2 {
			reason = ReasonPostSpacing
		}
		return deny(time.Duration(res[1])*time.Millisecond, reason)

	case KindSubreddit:
		k := l.key("subreddit", key)
		ok, err := l.client.SetNX(ctx, k, 1, l.limits.SubredditSpacing).Result()
		if err != nil {
			slog.Warn("rate limit check failed, allowing", "kind", kind, "key", key, "error", err)
			return allow()
		}
		if ok {
			return allow()
		}
		ttl, err := l.client.PTTL(ctx, k).Result()
		if err != nil {
			slog.Warn("rate limit ttl lookup failed", "key", key, "error", err)
			ttl = l.limits.SubredditSpacing
		}
		return deny(ttl, ReasonSubredditSpacing)
	}
	return allow()
}

func (l *RedisLimiter) PostsRemaining(ctx context.Context, key string) Remaining {
	now := time.Now()
	full := Remaining{Daily: l.limits.PostDailyMax, ResetTime: now.Add(l.limits.PostDailyWindow)}

	k := l.key("post", "daily", key)
	count, err := l.client.Get(ctx, k).Int()
	if err == redis.Nil {
		return full
	}
	if err != nil {
		slog.Warn("rate limit remaining lookup failed", "key", key, "error", err)
		return full
	}
	ttl, err := l.client.PTTL(ctx, k).Result()
	if err != nil || ttl <= 0 {
		return full
	}
	remaining := l.limits.PostDailyMax - count
	if remaining < 0 {
		remaining = 0
	}
	return Remaining{Daily: remaining, ResetTime: now.Add(ttl)}
}
