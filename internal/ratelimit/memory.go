package ratelimit

import (
	"context"
	"sync"
	"time"
)

type state struct {
	requestCount  int
	windowResetAt time.Time
	nextAllowedAt time.Time
	dailyCount    int
	dailyResetAt  time.Time
}

// MemoryLimiter keeps budgets in process memory. Counters are lost on restart
// and are not shared between instances; use RedisLimiter for that.
type MemoryLimiter struct {
	limits Limits
	now    func() time.Time

	mu     sync.Mutex
	states map[string]*state
}

func NewMemoryLimiter(limits Limits) *MemoryLimiter {
	return &MemoryLimiter{
		limits: limits,
		now:    time.Now,
		states: make(map[string]*state),
	}
}

func (l *MemoryLimiter) stateFor(kind Kind, key string) *state {
	k := string(kind) + ":" + key
	s, ok := l.states[k]
	if !ok {
		s = &state{}
		l.states[k] = s
	}
	return s
}

func (l *MemoryLimiter) CheckLimit(_ context.Context, key string, kind Kind) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	s := l.stateFor(kind, key)

	switch kind {
	case KindAPI:
		if !now.Before(s.windowResetAt) {
			s.requestCount = 0
			s.windowResetAt = now.Add(l.limits.APIWindow)
		}
		if s.requestCount >= l.limits.APIMax {
			return deny(s.windowResetAt.Sub(now), ReasonAPIWindow)
		}
		s.requestCount++
		return allow()

	case KindPost:
		if s.dailyResetAt.IsZero() || !now.Before(s.dailyResetAt) {
			s.dailyCount = 0
			s.dailyResetAt = now.Add(l.limits.PostDailyWindow)
		}
		if s.dailyCount >= l.limits.PostDailyMax {
			return deny(s.dailyResetAt.Sub(now), ReasonDailyLimit)
		}
		if now.Before(s.nextAllowedAt) {
			return deny(s.nextAllowedAt.Sub(now), ReasonPostSpacing)
		}
		s.dailyCount++
		s.nextAllowedAt = now.Add(l.limits.PostSpacing)
		return allow()

	case KindSubreddit:
		if now.Before(s.nextAllowedAt) {
			return deny(s.nextAllowedAt.Sub(now), ReasonSubredditSpacing)
		}
		s.nextAllowedAt = now.Add(l.limits.SubredditSpacing)
		return allow()
	}
	return allow()
}

func (l *MemoryLimiter) PostsRemaining(_ context.Context, key string) Remaining {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	s, ok := l.states[string(KindPost)+":"+key]
	if !ok || s.dailyResetAt.IsZero() || !now.Before(s.dailyResetAt) {
		return Remaining{Daily: l.limits.PostDailyMax, ResetTime: now.Add(l.limits.PostDailyWindow)}
	}
	remaining := l.limits.PostDailyMax - s.dailyCount
	if remaining < 0 {
		remaining = 0
	}
	return Remaining{Daily: remaining, ResetTime: s.dailyResetAt}
}
