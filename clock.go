package auth

import (
	"sync"
	"time"
)

var (
	clockMutex  sync.Mutex
	clockOffset time.Duration
)

// now returns the current time plus any offset added by AdvanceTime.
// All time handling in the package goes through it.
func now() time.Time {
	clockMutex.Lock()
	defer clockMutex.Unlock()
	return time.Now().Add(clockOffset)
}

// AdvanceTime shifts the package's idea of the current time forward.
// It exists so tests can exercise rate limits and session maintenance
// without sleeping.
func AdvanceTime(d time.Duration) {
	clockMutex.Lock()
	defer clockMutex.Unlock()
	clockOffset += d
}
