package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RequestRateLimiter enforces a fixed pause between consecutive requests to
// the same source. Portal operators throttle or block aggressive crawlers,
// so every page fetch in a scrape run goes through one of these.
type RequestRateLimiter struct {
	minimumDelay    time.Duration
	lastRequestTime time.Time
	mutex           sync.Mutex
	requestCount    int64

	// sleep is swappable so tests do not wait out real delays.
	sleep func(time.Duration)
}

// NewRequestRateLimiter creates a rate limiter with the specified minimum delay
func NewRequestRateLimiter(minimumDelay time.Duration) *RequestRateLimiter {
	return &RequestRateLimiter{
		minimumDelay: minimumDelay,
		sleep:        time.Sleep,
	}
}

// SetSleepFunc replaces the delay implementation. Intended for tests.
func (limiter *RequestRateLimiter) SetSleepFunc(sleep func(time.Duration)) {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	limiter.sleep = sleep
}

// EnforceRateLimit pauses for the full configured delay between consecutive
// requests. The first call of a run only stamps the start time; every later
// call sleeps the whole delay regardless of how long the previous request
// took, so the pause between fetches is never shortened.
func (limiter *RequestRateLimiter) EnforceRateLimit() {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	if !limiter.lastRequestTime.IsZero() && limiter.minimumDelay > 0 {
		logrus.WithFields(logrus.Fields{
			"component":     "RequestRateLimiter",
			"delay":         limiter.minimumDelay,
			"request_count": limiter.requestCount + 1,
		}).Debug("Enforcing rate limit delay")

		limiter.sleep(limiter.minimumDelay)
	}

	limiter.lastRequestTime = time.Now()
	limiter.requestCount++
}

// GetRequestCount returns the total number of requests processed
func (limiter *RequestRateLimiter) GetRequestCount() int64 {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	return limiter.requestCount
}

// Reset resets the rate limiter state
func (limiter *RequestRateLimiter) Reset() {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	limiter.lastRequestTime = time.Time{}
	limiter.requestCount = 0
}
