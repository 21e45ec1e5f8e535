package ratelimit

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"
)

// OpType selects the default bucket shape for a key that hasn't been seen
// before and isn't one of the known strict domains.
type OpType string

const (
	OpTest     OpType = "test"
	OpFetch    OpType = "fetch"
	OpGeoIP    OpType = "geoip"
	OpTelegram OpType = "telegram"
	OpDefault  OpType = "default"
)

type bucketConfig struct {
	capacity   int64
	refillRate float64
}

// defaultLimits mirrors the reference operation-type presets.
var defaultLimits = map[OpType]bucketConfig{
	OpTest:     {capacity: 50, refillRate: 10.0},
	OpFetch:    {capacity: 20, refillRate: 5.0},
	OpGeoIP:    {capacity: 10, refillRate: 2.0},
	OpTelegram: {capacity: 30, refillRate: 1.0},
	OpDefault:  {capacity: 100, refillRate: 20.0},
}

// strictDomains holds known endpoints that need much tighter limits than
// any generic operation-type preset, keyed by host.
var strictDomains = map[string]bucketConfig{
	"api.telegram.org": {capacity: 30, refillRate: 0.5},
	"ipapi.co":         {capacity: 10, refillRate: 0.5},
	"ipwho.is":         {capacity: 10, refillRate: 0.5},
	"ip-api.com":       {capacity: 5, refillRate: 0.2},
}

const maxBackoff = 300 * time.Second

// KeyedLimiter multiplexes a TokenBucket per key (domain, subnet,
// operation) on top of a single global bucket, and layers adaptive
// exponential backoff on top of repeated failures for a key.
type KeyedLimiter struct {
	mu           sync.Mutex
	buckets      map[string]*TokenBucket
	global       *TokenBucket
	failureCount map[string]int
	backoffUntil map[string]time.Time

	totalRequests int64
	totalDelayed  int64
	totalRejected int64
}

// NewKeyedLimiter builds a limiter with a 200-token, 50/s global bucket,
// matching the reference implementation's process-wide ceiling.
func NewKeyedLimiter() *KeyedLimiter {
	return &KeyedLimiter{
		buckets:      make(map[string]*TokenBucket),
		global:       NewTokenBucket(200, 50.0),
		failureCount: make(map[string]int),
		backoffUntil: make(map[string]time.Time),
	}
}

func (l *KeyedLimiter) bucketFor(key string, op OpType) *TokenBucket {
	if b, ok := l.buckets[key]; ok {
		return b
	}
	cfg, ok := strictDomains[key]
	if !ok {
		cfg, ok = defaultLimits[op]
		if !ok {
			cfg = defaultLimits[OpDefault]
		}
	}
	b := NewTokenBucket(cfg.capacity, cfg.refillRate)
	l.buckets[key] = b
	return b
}

// Acquire blocks (subject to ctx) until a single token is available for
// key under both the key's bucket and the global bucket, or returns
// false if key is in an active backoff window.
func (l *KeyedLimiter) Acquire(ctx context.Context, key string, op OpType) bool {
	for {
		l.mu.Lock()
		l.totalRequests++

		if until, inBackoff := l.backoffUntil[key]; inBackoff {
			if time.Now().Before(until) {
				l.totalRejected++
				l.mu.Unlock()
				return false
			}
			delete(l.backoffUntil, key)
		}

		b := l.bucketFor(key, op)
		if b.Take(1) && l.global.Take(1) {
			l.mu.Unlock()
			return true
		}
		wait := b.TimeUntilAvailable(1)
		if g := l.global.TimeUntilAvailable(1); g > wait {
			wait = g
		}
		l.totalDelayed++
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// RecordFailure tracks a failure against key, opening an exponential
// backoff window (2^failures seconds, capped at 5 minutes) once three or
// more consecutive failures have been observed.
func (l *KeyedLimiter) RecordFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.failureCount[key]++
	failures := l.failureCount[key]
	if failures >= 3 {
		seconds := 1 << uint(minInt(failures, 30))
		if seconds > int(maxBackoff/time.Second) {
			seconds = int(maxBackoff / time.Second)
		}
		l.backoffUntil[key] = time.Now().Add(time.Duration(seconds) * time.Second)
	}
}

// RecordSuccess decrements the tracked failure count for key by one, clearing it entirely once it reaches zero.
func (l *KeyedLimiter) RecordSuccess(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failureCount[key] > 0 {
		l.failureCount[key]--
		if l.failureCount[key] == 0 {
			delete(l.failureCount, key)
		}
	}
}

// Stats is a point-in-time snapshot for diagnostics/metrics export.
type Stats struct {
	TotalRequests  int64
	TotalDelayed   int64
	TotalRejected  int64
	ActiveBuckets  int
	ActiveBackoffs int
	GlobalTokens   int64
}

func (l *KeyedLimiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		TotalRequests:  l.totalRequests,
		TotalDelayed:   l.totalDelayed,
		TotalRejected:  l.totalRejected,
		ActiveBuckets:  len(l.buckets),
		ActiveBackoffs: len(l.backoffUntil),
		GlobalTokens:   l.global.Remaining(),
	}
}

// KeyForURL extracts the host from a URL for use as a bucket key,
// falling back to the raw string if it doesn't parse as a URL.
func KeyForURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

// KeyForIP groups an IPv4 address into its /24 subnet so a rotation of
// addresses on the same upstream server shares one bucket.
func KeyForIP(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) == 4 {
		return strings.Join(parts[:3], ".") + ".0/24"
	}
	return ip
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
