package auth

import (
	"math"
	"net/http"
	"sync"
	"time"
)

// Leaky bucket rate limiter guarding the login and password recovery
// endpoints against brute forcing. Buckets drain continuously, so blocked
// callers get through again once the period passes.

type rateLimiter struct {
	mutex   sync.Mutex
	records map[string]*rateRecord

	// the last time we checked for old records
	lastCheck float64
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		records: make(map[string]*rateRecord),
	}
}

type rateRecord struct {
	rate   float64
	period float64
	at     float64
	value  float64
}

func (record *rateRecord) update(nowSecs float64) {
	elapsed := nowSecs - record.at
	record.value = math.Max(0, record.value-elapsed*record.rate/record.period)
	record.at = nowSecs
}

func (r *rateLimiter) removeExpired(nowSecs float64) {
	// only call when locked

	// ten minutes
	if nowSecs-r.lastCheck < 10*60 {
		return
	}
	r.lastCheck = nowSecs

	for name, rec := range r.records {
		rec.update(nowSecs)
		if rec.value == 0 {
			delete(r.records, name)
		}
	}
}

func (r *rateLimiter) getRecord(name string, rate, period, nowSecs float64) *rateRecord {
	rec := r.records[name]
	if rec == nil {
		rec = &rateRecord{rate: rate, period: period, at: nowSecs}
		r.records[name] = rec
	} else {
		rec.update(nowSecs)
	}
	return rec
}

func (r *rateLimiter) isAllowed(name string, cost, rate float64, periodTime time.Duration, update bool) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	nowSecs := float64(now().Unix())
	r.removeExpired(nowSecs)
	period := float64(periodTime / time.Second)
	record := r.getRecord(name, rate, period, nowSecs)
	if record.value+cost < record.rate {
		if update {
			record.value += cost
		}
		return true
	}
	return false
}

var globalLimiter = newRateLimiter()

// RateLimitAllows will return true if the given operation is allowed. Name is an
// arbitrary string that uniquely identifies the user and operation.
// cost is the cost of the operation, and rate is the max cost allowed in the
// given time period.
//
// Example: user 123 logs in, and the maximum attempts allowed are
// 5 in a 10 minute period.
//
//	if auth.RateLimitAllows(name, 1, 5, 10*time.Minute) {
//	    // allowed
//	}
func RateLimitAllows(name string, cost, rate float64, period time.Duration) bool {
	return globalLimiter.isAllowed(name, cost, rate, period, true)
}

// DoRateLimit will rate limit an operation on both the user and ip address.
// If either bucket is full it panics with status 429; otherwise it records
// the attempt against both.
func DoRateLimit(operation string, req *http.Request, user string, rate float64, period time.Duration) {
	userlimit := operation + ":" + user
	iplimit := operation + ":" + GetIPAddress(req)

	if !globalLimiter.isAllowed(userlimit, 1, rate, period, false) ||
		!globalLimiter.isAllowed(iplimit, 1, rate, period, false) {
		HTTPPanic(429, "try again later")
	}

	globalLimiter.isAllowed(userlimit, 1, rate, period, true)
	globalLimiter.isAllowed(iplimit, 1, rate, period, true)
}
