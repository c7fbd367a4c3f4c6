package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Actions throttled per caller
const (
	ActionChatMessage = "chat_message"
	ActionTyping      = "typing"
	ActionWrite       = "write"
)

// Rule allows Burst actions at once and gives one back every Refill.
type Rule struct {
	Burst  int
	Refill time.Duration
}

var DefaultRules = map[string]Rule{
	ActionChatMessage: {Burst: 10, Refill: 6 * time.Second},
	ActionTyping:      {Burst: 30, Refill: 2 * time.Second},
	ActionWrite:       {Burst: 20, Refill: 3 * time.Second},
}

var defaultRule = Rule{Burst: 20, Refill: 3 * time.Second}

type tokenBucket struct {
	tokens     int
	rule       Rule
	lastRefill time.Time
}

func (tb *tokenBucket) allow(now time.Time) (bool, time.Duration) {
	if steps := int(now.Sub(tb.lastRefill) / tb.rule.Refill); steps > 0 {
		tb.tokens += steps
		if tb.tokens > tb.rule.Burst {
			tb.tokens = tb.rule.Burst
		}
		tb.lastRefill = tb.lastRefill.Add(time.Duration(steps) * tb.rule.Refill)
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}
	return false, tb.lastRefill.Add(tb.rule.Refill).Sub(now)
}

// Limiter keeps one token bucket per key and action.
type Limiter struct {
	mu      sync.Mutex
	rules   map[string]Rule
	buckets map[string]*tokenBucket
	now     func() time.Time
}

// NewLimiter copies rules. A rule without a positive Refill gets the default one.
func NewLimiter(rules map[string]Rule) *Limiter {
	if rules == nil {
		rules = DefaultRules
	}
	checked := make(map[string]Rule, len(rules))
	for action, rule := range rules {
		if rule.Refill <= 0 {
			rule.Refill = defaultRule.Refill
		}
		checked[action] = rule
	}
	return &Limiter{
		rules:   checked,
		buckets: make(map[string]*tokenBucket),
		now:     time.Now,
	}
}

// Allow consumes a token for key and action. When none is left it returns the wait until the next one.
func (l *Limiter) Allow(key, action string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	id := key + ":" + action
	b, ok := l.buckets[id]
	if !ok {
		rule, ok := l.rules[action]
		if !ok {
			rule = defaultRule
		}
		b = &tokenBucket{tokens: rule.Burst, rule: rule, lastRefill: now}
		l.buckets[id] = b
	}
	return b.allow(now)
}

// Forget drops every bucket of key.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prefix := key + ":"
	for id := range l.buckets {
		if strings.HasPrefix(id, prefix) {
			delete(l.buckets, id)
		}
	}
}

// Cleanup removes buckets idle for longer than maxIdle.
func (l *Limiter) Cleanup(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, b := range l.buckets {
		if now.Sub(b.lastRefill) > maxIdle {
			delete(l.buckets, id)
		}
	}
}

// StartCleanup runs Cleanup periodically until ctx is done.
func (l *Limiter) StartCleanup(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.Cleanup(time.Hour)
			case <-ctx.Done():
				return
			}
		}
	}()
}
