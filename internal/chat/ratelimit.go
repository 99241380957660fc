package chat

import (
	"hash/fnv"
	"os"
	"strconv"
	"sync"
	"time"
)

const limiterShards = 16

// RateLimiter enforces N events per rolling W window per key. Keys are
// sharded so checks for different senders do not contend on one lock.
type RateLimiter struct {
	maxEvents int
	window    time.Duration
	shards    [limiterShards]*limiterShard
	now       func() time.Time
}

type limiterShard struct {
	mu     sync.Mutex
	events map[string][]time.Time
}

func NewRateLimiter(maxEvents int, window time.Duration) *RateLimiter {
	l := &RateLimiter{maxEvents: maxEvents, window: window, now: time.Now}
	for i := range l.shards {
		l.shards[i] = &limiterShard{events: make(map[string][]time.Time)}
	}
	return l
}

// RateLimiterFromEnv reads CHAT_RATE_LIMIT / CHAT_RATE_WINDOW_SECONDS,
// defaulting to 5 events per rolling second.
func RateLimiterFromEnv() *RateLimiter {
	maxEvents := 5
	if v, err := strconv.Atoi(os.Getenv("CHAT_RATE_LIMIT")); err == nil && v >= 1 {
		maxEvents = v
	}
	windowSecs := 1
	if v, err := strconv.Atoi(os.Getenv("CHAT_RATE_WINDOW_SECONDS")); err == nil && v >= 1 {
		windowSecs = v
	}
	return NewRateLimiter(maxEvents, time.Duration(windowSecs)*time.Second)
}

func (l *RateLimiter) shard(key string) *limiterShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return l.shards[h.Sum32()%limiterShards]
}

// Allow evicts expired timestamps for the key, then admits the event unless
// the window is full. Not an error path: a false return is a normal decision.
func (l *RateLimiter) Allow(key string) bool {
	now := l.now()
	windowStart := now.Add(-l.window)

	s := l.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.events[key]
	kept := events[:0]
	for _, t := range events {
		if !t.Before(windowStart) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.maxEvents {
		s.events[key] = kept
		return false
	}
	s.events[key] = append(kept, now)
	return true
}
