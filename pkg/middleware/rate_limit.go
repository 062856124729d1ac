package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "medibook/pkg/errors"
	httputil "medibook/pkg/http"
	"medibook/pkg/logger"

	"golang.org/x/time/rate"
)

// KeyExtractor names the bucket a request is charged to. An empty key means
// the request is not limited.
type KeyExtractor func(r *http.Request) string

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter gives every key a token bucket refilled at limit tokens
// per window with a burst of limit.
type KeyedRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	window    time.Duration
	extractor KeyExtractor
	log       *logger.Logger
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewKeyedRateLimiter(limit int, window time.Duration, extractor KeyExtractor, log *logger.Logger) *KeyedRateLimiter {
	rl := &KeyedRateLimiter{
		limiters:  make(map[string]*limiterEntry),
		limit:     rate.Limit(float64(limit) / window.Seconds()),
		burst:     limit,
		window:    window,
		extractor: extractor,
		log:       log,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

func (rl *KeyedRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.stopCh:
			return
		}
	}
}

// evictIdle drops buckets untouched for a full window; they would be full
// again anyway.
func (rl *KeyedRateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, e := range rl.limiters {
		if now.Sub(e.lastSeen) > rl.window {
			delete(rl.limiters, key)
		}
	}
}

func (rl *KeyedRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *KeyedRateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	now := rl.now()

	rl.mu.Lock()
	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	rl.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

func RateLimit(limiter *KeyedRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limiter.extractor(r)

			if !limiter.Allow(key) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", RequestID(r.Context()),
					"key", key,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", retryAfter(limiter.window, limiter.burst))
				_ = httputil.WriteError(w, apperrors.RateLimited("Too many code requests for this booking, try again later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter is the refill time of one token, in whole seconds.
func retryAfter(window time.Duration, burst int) string {
	seconds := int(window.Seconds()) / max(burst, 1)
	return strconv.Itoa(max(seconds, 1))
}

// OTPIssueKey charges code issue and resend calls to their booking so a
// patient's phone cannot be flooded. Other requests are not limited.
//
//	POST /api/v1/bookings/id/:id/consent/otp[/resend]
//	POST /api/v1/bookings/id/:id/services/:service_id/otp[/resend]
func OTPIssueKey(r *http.Request) string {
	if r.Method != http.MethodPost {
		return ""
	}
	rest, ok := strings.CutPrefix(r.URL.Path, "/api/v1/bookings/id/")
	if !ok {
		return ""
	}
	rest = strings.TrimSuffix(rest, "/resend")
	if !strings.HasSuffix(rest, "/otp") {
		return ""
	}
	bookingID, _, _ := strings.Cut(rest, "/")
	if bookingID == "" {
		return ""
	}
	return "otp:" + bookingID
}
